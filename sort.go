package main

import (
	"fmt"
	"sort"
)

//SortFunc 图层要素排序函数
type SortFunc func(features []Feature)

// sortRegistry maps configuration names to sorters. The per-layer aliases
// mirror the query sets they were written for.
var sortRegistry = map[string]SortFunc{
	"by_id":                     sortByID,
	"area_then_id":              sortByAreaThenID,
	"scalerank_then_population": sortByScalerankThenPopulation,
	"by_sort_key":               sortBySortKey,

	"buildings": sortByAreaThenID,
	"earth":     sortByID,
	"landuse":   sortByAreaThenID,
	"places":    sortByScalerankThenPopulation,
	"pois":      sortByID,
	"roads":     sortBySortKey,
	"transit":   sortByID,
	"water":     sortByAreaThenID,
}

func resolveSort(layer, name string) (SortFunc, error) {
	if name == "" {
		return nil, nil
	}
	fn, ok := sortRegistry[name]
	if !ok {
		return nil, ConfigError{Layer: layer, Reason: fmt.Sprintf("unknown sort (%s)", name)}
	}
	return fn, nil
}

// applySort orders features for encoding. Without a configured sorter the
// fetch order is kept as-is. All sorters are stable: features comparing equal
// retain their relative fetch order, which keeps tile bytes deterministic.
func applySort(features []Feature, fn SortFunc) {
	if fn != nil {
		fn(features)
	}
}

func sortByID(features []Feature) {
	stableByProperty(features, "id", false, 0)
}

func sortBySortKey(features []Feature) {
	stableByProperty(features, "sort_key", false, 0)
}

// sortByAreaThenID orders by area descending, breaking ties by id ascending.
// Implemented as two chained stable sorts, least significant key first.
func sortByAreaThenID(features []Feature) {
	stableByProperty(features, "id", false, 0)
	stableByProperty(features, "area", true, 0)
}

func sortByScalerankThenPopulation(features []Feature) {
	stableByProperty(features, "population", true, -1000)
	stableByProperty(features, "scalerank", false, 1000)
}

// stableByProperty sorts on a single numeric property. Non-numeric values
// fall back to string comparison, missing values to def.
func stableByProperty(features []Feature, key string, reverse bool, def float64) {
	sort.SliceStable(features, func(i, j int) bool {
		if reverse {
			return lessProperty(features[j], features[i], key, def)
		}
		return lessProperty(features[i], features[j], key, def)
	})
}

func lessProperty(a, b Feature, key string, def float64) bool {
	av, aok := propertyFloat(a, key)
	bv, bok := propertyFloat(b, key)
	if aok && bok {
		return av < bv
	}
	if aok != bok {
		// numeric on one side only: compare against the default
		if !aok {
			av = def
		}
		if !bok {
			bv = def
		}
		return av < bv
	}

	as, aok := a.Properties[key].(string)
	bs, bok := b.Properties[key].(string)
	if aok && bok {
		return as < bs
	}
	return false
}

func propertyFloat(f Feature, key string) (float64, bool) {
	switch v := f.Properties[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}
