package main

import (
	"path/filepath"
	"testing"

	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
)

func TestTileKeyStringAndPath(t *testing.T) {
	key := TileKey{Layer: "roads", Z: 7, X: 64, Y: 63, Format: MVT}

	assert.Equal(t, "roads/7/64/63.mvt", key.String())
	assert.Equal(t, filepath.Join("roads", "7", "64", "63.mvt"), key.Path())
}

func TestTileKeyBound(t *testing.T) {
	key := TileKey{Layer: "roads", Z: 7, X: 64, Y: 63, Format: MVT}
	b := key.Bound()

	assert.InDelta(t, 0.0, b.Min.X(), 1e-9)
	assert.InDelta(t, 2.8125, b.Max.X(), 1e-9)
	assert.InDelta(t, 0.0, b.Min.Y(), 1e-6)
	assert.Greater(t, b.Max.Y(), 2.0)
}

func TestFlipY(t *testing.T) {
	assert.Equal(t, uint32(0), flipY(maptile.New(0, 0, 0)))
	assert.Equal(t, uint32(1), flipY(maptile.New(0, 0, 1)))
	assert.Equal(t, uint32(0), flipY(maptile.New(0, 1, 1)))
	assert.Equal(t, uint32(64), flipY(maptile.New(64, 63, 7)))
}

func TestFormatContentType(t *testing.T) {
	ct, ok := formatContentType(MVT)
	assert.True(t, ok)
	assert.Equal(t, "application/vnd.mapbox-vector-tile", ct)

	ct, ok = formatContentType(PBF)
	assert.True(t, ok)
	assert.Equal(t, "application/vnd.mapbox-vector-tile", ct)

	ct, ok = formatContentType(JSON)
	assert.True(t, ok)
	assert.Equal(t, "application/json", ct)

	_, ok = formatContentType("xml")
	assert.False(t, ok)
}
