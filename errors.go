package main

import (
	"errors"
	"fmt"
)

//ErrBuildTimeout 等待其他构建超时
var ErrBuildTimeout = errors.New("timed out waiting for tile build")

//ErrLayerNotFound 图层不存在
type ErrLayerNotFound struct {
	Layer string
}

func (e ErrLayerNotFound) Error() string {
	return fmt.Sprintf("layer (%s) not found", e.Layer)
}

//ErrUnsupportedFormat 不支持的输出格式
type ErrUnsupportedFormat struct {
	Format string
}

func (e ErrUnsupportedFormat) Error() string {
	return fmt.Sprintf("unsupported tile format (%s)", e.Format)
}

//ConfigError 配置错误，启动时产生
type ConfigError struct {
	Layer  string
	Reason string
}

func (e ConfigError) Error() string {
	if e.Layer == "" {
		return fmt.Sprintf("config error: %s", e.Reason)
	}
	return fmt.Sprintf("config error for layer (%s): %s", e.Layer, e.Reason)
}

//DataSourceError 数据源查询错误
type DataSourceError struct {
	Query string
	Err   error
}

func (e DataSourceError) Error() string {
	return fmt.Sprintf("data source error: %v", e.Err)
}

func (e DataSourceError) Unwrap() error { return e.Err }

//TransformError 要素变换错误
type TransformError struct {
	Layer string
	Step  string
	Err   error
}

func (e TransformError) Error() string {
	return fmt.Sprintf("transform (%s) failed for layer (%s): %v", e.Step, e.Layer, e.Err)
}

func (e TransformError) Unwrap() error { return e.Err }
