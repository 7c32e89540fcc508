package main

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

//ZoomMin 最小级别
const ZoomMin = 0

//ZoomMax 最大级别
const ZoomMax = 22

// Constants representing tile output formats
const (
	MVT     string = "mvt" // mapbox vector tile
	PBF            = "pbf" // alias of mvt
	JSON           = "json"
	GEOJSON        = "geojson"
)

//TileKey 瓦片缓存键 layer/zoom/col/row.format
type TileKey struct {
	Layer  string
	Z      uint32
	X      uint32
	Y      uint32
	Format string
}

func (k TileKey) String() string {
	return fmt.Sprintf("%s/%d/%d/%d.%s", k.Layer, k.Z, k.X, k.Y, k.Format)
}

//Tile 瓦片坐标
func (k TileKey) Tile() maptile.Tile {
	return maptile.New(k.X, k.Y, maptile.Zoom(k.Z))
}

//Bound 瓦片范围(EPSG:4326)
func (k TileKey) Bound() orb.Bound {
	return k.Tile().Bound()
}

//Path 缓存相对路径
func (k TileKey) Path() string {
	return filepath.Join(k.Layer,
		strconv.Itoa(int(k.Z)),
		strconv.Itoa(int(k.X)),
		strconv.Itoa(int(k.Y))+"."+k.Format)
}

func flipY(t maptile.Tile) uint32 {
	zpower := math.Pow(2.0, float64(t.Z))
	return uint32(zpower) - 1 - t.Y
}

// formatContentType maps a tile format to its HTTP content type. The bool is
// false for formats no encoder supports.
func formatContentType(format string) (string, bool) {
	switch format {
	case MVT, PBF:
		return "application/vnd.mapbox-vector-tile", true
	case JSON, GEOJSON:
		return "application/json", true
	default:
		return "", false
	}
}
