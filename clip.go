package main

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"
)

// clipToTile clips a geometry to a tile bound in EPSG:4326. Returns nil when
// nothing of the geometry survives. The geometry type family is preserved
// and degenerate results (zero-area polygons, zero-length lines) are
// normalized to nil. Clipping an already-clipped geometry to the same bound
// is a no-op.
func clipToTile(g orb.Geometry, bound orb.Bound) orb.Geometry {
	if g == nil {
		return nil
	}

	// fully inside: keep the original geometry untouched
	if boundWithin(g.Bound(), bound) {
		return dropDegenerate(g)
	}

	// clip mutates polygon rings in place, so work on a copy
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon, orb.Ring:
		g = orb.Clone(g)
	}

	clipped := clip.Geometry(bound, g)
	if clipped == nil {
		return nil
	}
	return dropDegenerate(clipped)
}

func boundWithin(inner, outer orb.Bound) bool {
	return inner.Min.X() >= outer.Min.X() && inner.Max.X() <= outer.Max.X() &&
		inner.Min.Y() >= outer.Min.Y() && inner.Max.Y() <= outer.Max.Y()
}

func dropDegenerate(g orb.Geometry) orb.Geometry {
	switch geo := g.(type) {
	case orb.LineString:
		if planar.Length(geo) == 0 {
			return nil
		}

	case orb.MultiLineString:
		keep := geo[:0]
		for _, ls := range geo {
			if planar.Length(ls) > 0 {
				keep = append(keep, ls)
			}
		}
		if len(keep) == 0 {
			return nil
		}
		return keep

	case orb.Ring:
		if planar.Area(geo) == 0 {
			return nil
		}

	case orb.Polygon:
		if planar.Area(geo) == 0 {
			return nil
		}

	case orb.MultiPolygon:
		keep := geo[:0]
		for _, p := range geo {
			if planar.Area(p) != 0 {
				keep = append(keep, p)
			}
		}
		if len(keep) == 0 {
			return nil
		}
		return keep
	}
	return g
}
