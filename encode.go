package main

import (
	"encoding/json"

	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
)

// encodeTile serializes an ordered feature list into the requested format.
// Identical (features, format) input yields identical bytes: property maps
// are encoded with sorted keys and feature order is whatever the pipeline
// produced. Encoding zero features is valid and yields an empty tile.
func encodeTile(key TileKey, layerName string, features []Feature) ([]byte, error) {
	switch key.Format {
	case MVT, PBF:
		return encodeMVT(key, layerName, features)
	case JSON, GEOJSON:
		return encodeGeoJSON(features)
	default:
		return nil, ErrUnsupportedFormat{Format: key.Format}
	}
}

// encodeMVT projects geometries from EPSG:4326 into tile-local integer
// coordinates and marshals a single-layer vector tile.
func encodeMVT(key TileKey, layerName string, features []Feature) ([]byte, error) {
	layer := mvt.NewLayer(layerName, toFeatureCollection(features))
	layer.ProjectToTile(key.Tile())

	return mvt.Marshal(mvt.Layers{layer})
}

// encodeGeoJSON emits a FeatureCollection with coordinates left in lon/lat.
func encodeGeoJSON(features []Feature) ([]byte, error) {
	return json.Marshal(toFeatureCollection(features))
}

func toFeatureCollection(features []Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range features {
		f := geojson.NewFeature(features[i].Geometry)
		f.ID = features[i].ID
		if features[i].Properties != nil {
			f.Properties = features[i].Properties
		}
		fc.Append(f)
	}
	return fc
}
