package main

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceTokens(t *testing.T) {
	tile := maptile.New(64, 63, 7)
	q := replaceTokens("select * from roads where Intersects(geom, !bbox!) -- !zoom!/!x!/!y!", tile)

	assert.Contains(t, q, "BuildMbr(")
	assert.Contains(t, q, "4326)")
	assert.Contains(t, q, "7/64/63")
	assert.NotContains(t, q, "!bbox!")
	assert.NotContains(t, q, "!zoom!")
}

func TestNewSQLProviderUnknownDriver(t *testing.T) {
	_, err := NewSQLProvider("postgres", "dsn")
	var cfgErr ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestSQLProviderTileFeatures(t *testing.T) {
	p, err := NewSQLProvider("sqlite3", ":memory:")
	require.NoError(t, err)
	defer p.Close()

	// WKB little-endian POINT(1 2)
	query := `select 7 as __id__, 'cafe' as name, !zoom! as zoom,
		X'0101000000000000000000F03F0000000000000040' as __geometry__`

	features, err := p.TileFeatures(context.Background(), query, maptile.New(64, 63, 7))
	require.NoError(t, err)
	require.Len(t, features, 1)

	f := features[0]
	assert.Equal(t, int64(7), f.ID)
	assert.Equal(t, orb.Geometry(orb.Point{1, 2}), f.Geometry)
	assert.Equal(t, "cafe", f.Properties["name"])
	assert.Equal(t, int64(7), f.Properties["zoom"])
	assert.NotContains(t, f.Properties, geomColumn)
	assert.NotContains(t, f.Properties, idColumn)
}

func TestSQLProviderNullPropertySkipped(t *testing.T) {
	p, err := NewSQLProvider("sqlite3", ":memory:")
	require.NoError(t, err)
	defer p.Close()

	query := `select 1 as __id__, null as name,
		X'0101000000000000000000F03F0000000000000040' as __geometry__`

	features, err := p.TileFeatures(context.Background(), query, maptile.New(0, 0, 0))
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.NotContains(t, features[0].Properties, "name")
}

func TestSQLProviderMissingGeometry(t *testing.T) {
	p, err := NewSQLProvider("sqlite3", ":memory:")
	require.NoError(t, err)
	defer p.Close()

	_, err = p.TileFeatures(context.Background(), "select 1 as __id__, 'x' as name", maptile.New(0, 0, 0))
	var sourceErr DataSourceError
	require.ErrorAs(t, err, &sourceErr)
	assert.Contains(t, err.Error(), geomColumn)
}

func TestSQLProviderQueryError(t *testing.T) {
	p, err := NewSQLProvider("sqlite3", ":memory:")
	require.NoError(t, err)
	defer p.Close()

	_, err = p.TileFeatures(context.Background(), "select * from no_such_table", maptile.New(0, 0, 0))
	var sourceErr DataSourceError
	require.ErrorAs(t, err, &sourceErr)
}

func TestSQLProviderEmptyResult(t *testing.T) {
	p, err := NewSQLProvider("sqlite3", ":memory:")
	require.NoError(t, err)
	defer p.Close()

	features, err := p.TileFeatures(context.Background(), "select 1 as __id__ where 1 = 0", maptile.New(0, 0, 0))
	require.NoError(t, err)
	assert.Empty(t, features)
}
