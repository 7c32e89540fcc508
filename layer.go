package main

import (
	"fmt"

	"github.com/paulmach/orb"
)

//Layer 图层配置，进程启动时加载，只读
type Layer struct {
	Name string
	// Queries is indexed by zoom. An empty entry (or a zoom beyond the end of
	// the slice) means the layer has no data at that zoom.
	Queries   []string
	GeomTypes map[string]bool
	Transform []TransformFunc
	Sort      SortFunc
	Clip      bool
}

//QueryAt 返回指定级别的查询，ok=false 表示该级别无数据
func (l *Layer) QueryAt(zoom int) (string, bool, error) {
	if zoom < 0 {
		return "", false, ConfigError{Layer: l.Name, Reason: fmt.Sprintf("negative zoom (%d)", zoom)}
	}
	if zoom >= len(l.Queries) || l.Queries[zoom] == "" {
		return "", false, nil
	}
	return l.Queries[zoom], true, nil
}

//MaxZoom 查询表定义的最大级别
func (l *Layer) MaxZoom() int {
	return len(l.Queries) - 1
}

// wantsGeometry reports whether a geometry passes the layer's geometry type
// filter. An empty filter accepts everything.
func (l *Layer) wantsGeometry(g orb.Geometry) bool {
	if g == nil {
		return false
	}
	if len(l.GeomTypes) == 0 {
		return true
	}
	return l.GeomTypes[g.GeoJSONType()]
}
