package main

import (
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marks(features []Feature) []string {
	out := make([]string, len(features))
	for i, f := range features {
		out[i], _ = f.Properties["mark"].(string)
	}
	return out
}

func TestSortStableOnEqualKeys(t *testing.T) {
	features := []Feature{
		makeFeature(nil, geojson.Properties{"sort_key": 5.0, "mark": "a"}),
		makeFeature(nil, geojson.Properties{"sort_key": 1.0, "mark": "b"}),
		makeFeature(nil, geojson.Properties{"sort_key": 5.0, "mark": "c"}),
		makeFeature(nil, geojson.Properties{"sort_key": 1.0, "mark": "d"}),
	}

	applySort(features, sortBySortKey)
	// equal keys keep fetch order
	assert.Equal(t, []string{"b", "d", "a", "c"}, marks(features))
}

func TestSortNilKeepsFetchOrder(t *testing.T) {
	features := []Feature{
		makeFeature(nil, geojson.Properties{"mark": "z"}),
		makeFeature(nil, geojson.Properties{"mark": "a"}),
		makeFeature(nil, geojson.Properties{"mark": "m"}),
	}

	applySort(features, nil)
	assert.Equal(t, []string{"z", "a", "m"}, marks(features))
}

func TestSortByAreaThenID(t *testing.T) {
	features := []Feature{
		makeFeature(nil, geojson.Properties{"area": 10.0, "id": int64(3), "mark": "a"}),
		makeFeature(nil, geojson.Properties{"area": 50.0, "id": int64(9), "mark": "b"}),
		makeFeature(nil, geojson.Properties{"area": 10.0, "id": int64(1), "mark": "c"}),
	}

	sortByAreaThenID(features)
	// area descending, ties by id ascending
	assert.Equal(t, []string{"b", "c", "a"}, marks(features))
}

func TestSortByScalerankThenPopulation(t *testing.T) {
	features := []Feature{
		makeFeature(nil, geojson.Properties{"scalerank": int64(2), "population": int64(100), "mark": "a"}),
		makeFeature(nil, geojson.Properties{"scalerank": int64(1), "population": int64(50), "mark": "b"}),
		makeFeature(nil, geojson.Properties{"scalerank": int64(2), "population": int64(900), "mark": "c"}),
	}

	sortByScalerankThenPopulation(features)
	assert.Equal(t, []string{"b", "c", "a"}, marks(features))
}

func TestSortMissingKeyUsesDefault(t *testing.T) {
	features := []Feature{
		makeFeature(nil, geojson.Properties{"sort_key": 5.0, "mark": "a"}),
		makeFeature(nil, geojson.Properties{"mark": "b"}),
		makeFeature(nil, geojson.Properties{"sort_key": -3.0, "mark": "c"}),
	}

	sortBySortKey(features)
	// missing sort_key reads as 0, between -3 and 5
	assert.Equal(t, []string{"c", "b", "a"}, marks(features))
}

func TestSortStringFallback(t *testing.T) {
	features := []Feature{
		makeFeature(nil, geojson.Properties{"id": "w2", "mark": "a"}),
		makeFeature(nil, geojson.Properties{"id": "w1", "mark": "b"}),
	}

	sortByID(features)
	assert.Equal(t, []string{"b", "a"}, marks(features))
}

func TestResolveSort(t *testing.T) {
	fn, err := resolveSort("roads", "roads")
	require.NoError(t, err)
	assert.NotNil(t, fn)

	fn, err = resolveSort("roads", "")
	require.NoError(t, err)
	assert.Nil(t, fn)

	_, err = resolveSort("roads", "nope")
	var cfgErr ConfigError
	require.ErrorAs(t, err, &cfgErr)
}
