package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

type cfgLayer struct {
	Name          string
	Queries       []string
	GeometryTypes []string `mapstructure:"geometry_types"`
	Transforms    []string
	Sort          string
	Clip          bool
}

// loadLayers builds the read-only layer table from the [[layers]] config
// sections. Every transform and sort reference is resolved here, so a bad
// name fails the process at startup instead of a request at runtime.
func loadLayers() (map[string]*Layer, error) {
	var cfgLrs []cfgLayer
	if err := viper.UnmarshalKey("layers", &cfgLrs); err != nil {
		return nil, ConfigError{Reason: fmt.Sprintf("layers table: %v", err)}
	}
	if len(cfgLrs) == 0 {
		return nil, ConfigError{Reason: "no layers configured"}
	}

	layers := make(map[string]*Layer, len(cfgLrs))
	for _, lrs := range cfgLrs {
		if lrs.Name == "" {
			return nil, ConfigError{Reason: "layer without a name"}
		}
		if _, ok := layers[lrs.Name]; ok {
			return nil, ConfigError{Layer: lrs.Name, Reason: "duplicate layer name"}
		}

		transform, err := resolveTransforms(lrs.Name, lrs.Transforms)
		if err != nil {
			return nil, err
		}
		sortFn, err := resolveSort(lrs.Name, lrs.Sort)
		if err != nil {
			return nil, err
		}

		geomTypes := make(map[string]bool, len(lrs.GeometryTypes))
		for _, gt := range lrs.GeometryTypes {
			geomTypes[gt] = true
		}

		layers[lrs.Name] = &Layer{
			Name:      lrs.Name,
			Queries:   lrs.Queries,
			GeomTypes: geomTypes,
			Transform: transform,
			Sort:      sortFn,
			// absent clip defaults to false
			Clip: lrs.Clip,
		}
	}
	return layers, nil
}

// buildCache constructs the configured cache backend.
func buildCache() (Cache, error) {
	switch backend := viper.GetString("cache.backend"); backend {
	case "disk":
		mode, err := parseFileMode(viper.GetString("cache.filemode"))
		if err != nil {
			return nil, err
		}
		return NewDiskCache(
			viper.GetString("cache.path"),
			mode,
			viper.GetStringSlice("cache.gzip"),
		), nil

	case "sqlite":
		return NewSQLiteCache(
			viper.GetString("cache.path"),
			viper.GetStringSlice("cache.gzip"),
		)

	case "redis":
		return NewRedisCache(
			viper.GetString("cache.redis.addr"),
			viper.GetString("cache.redis.password"),
			viper.GetInt("cache.redis.db"),
		), nil

	default:
		return nil, buildCacheError(backend)
	}
}

func buildProvider() (Provider, error) {
	return NewSQLProvider(
		viper.GetString("provider.driver"),
		viper.GetString("provider.dsn"),
	)
}

func parseFileMode(s string) (os.FileMode, error) {
	if s == "" {
		return 0644, nil
	}
	mode, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, ConfigError{Reason: fmt.Sprintf("bad cache.filemode (%s)", s)}
	}
	return os.FileMode(mode), nil
}
