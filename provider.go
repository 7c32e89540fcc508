package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3" // import sqlite3 driver
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	_ "github.com/shaxbee/go-spatialite" // import spatialite driver
	log "github.com/sirupsen/logrus"
)

// result column names every layer query must produce
const (
	geomColumn = "__geometry__"
	idColumn   = "__id__"
)

//Feature 单个要素：几何 + 属性 + 可选稳定ID
type Feature struct {
	ID         interface{}
	Geometry   orb.Geometry
	Properties geojson.Properties
}

//Provider 瓦片数据源
type Provider interface {
	// TileFeatures executes a layer query for one tile and returns the raw
	// features. Query token substitution is the provider's job.
	TileFeatures(ctx context.Context, query string, tile maptile.Tile) ([]Feature, error)
	Close() error
}

//SQLProvider sqlite/spatialite 数据源
type SQLProvider struct {
	db *sql.DB
}

//NewSQLProvider 打开数据源连接
func NewSQLProvider(driver, dsn string) (*SQLProvider, error) {
	switch driver {
	case "sqlite3", "spatialite":
	default:
		return nil, ConfigError{Reason: fmt.Sprintf("unknown provider driver (%s)", driver)}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	return &SQLProvider{db: db}, nil
}

// replaceTokens substitutes !bbox!, !zoom!, !x! and !y! in a layer query with
// the requested tile's values. The bbox is emitted in EPSG:4326.
func replaceTokens(query string, t maptile.Tile) string {
	b := t.Bound()
	bbox := fmt.Sprintf("BuildMbr(%.12f, %.12f, %.12f, %.12f, 4326)",
		b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y())

	r := strings.NewReplacer(
		"!bbox!", bbox,
		"!zoom!", strconv.Itoa(int(t.Z)),
		"!x!", strconv.Itoa(int(t.X)),
		"!y!", strconv.Itoa(int(t.Y)),
	)
	return r.Replace(query)
}

//TileFeatures 执行图层查询并扫描为要素
func (p *SQLProvider) TileFeatures(ctx context.Context, query string, t maptile.Tile) ([]Feature, error) {
	qtext := replaceTokens(query, t)
	log.Debugf("qtext: %v", qtext)

	rows, err := p.db.QueryContext(ctx, qtext)
	if err != nil {
		return nil, DataSourceError{Query: qtext, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, DataSourceError{Query: qtext, Err: err}
	}

	var features []Feature

	for rows.Next() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		vals := make([]interface{}, len(cols))
		valPtrs := make([]interface{}, len(cols))
		for i := range cols {
			valPtrs[i] = &vals[i]
		}

		if err = rows.Scan(valPtrs...); err != nil {
			return nil, DataSourceError{Query: qtext, Err: err}
		}

		feature := Feature{
			Properties: geojson.Properties{},
		}
		var sawGeom bool

		for i := range cols {
			if vals[i] == nil {
				continue
			}

			switch cols[i] {
			case geomColumn:
				data, ok := vals[i].([]byte)
				if !ok {
					return nil, DataSourceError{Query: qtext,
						Err: fmt.Errorf("unexpected column type for geom field, got %T", vals[i])}
				}

				geo, err := wkb.Unmarshal(data)
				if err != nil {
					return nil, DataSourceError{Query: qtext, Err: err}
				}
				feature.Geometry = geo
				sawGeom = true

			case idColumn:
				feature.ID = vals[i]

			default:
				// any non-nil, non-id, non-geometry column becomes a property
				switch v := vals[i].(type) {
				case []uint8:
					feature.Properties[cols[i]] = string(v)
				case int64, float64, bool, string:
					feature.Properties[cols[i]] = v
				default:
					log.Errorf("unexpected type for column %v: %T", cols[i], v)
				}
			}
		}

		if !sawGeom {
			return nil, DataSourceError{Query: qtext,
				Err: fmt.Errorf("missing %s column in feature result", geomColumn)}
		}

		features = append(features, feature)
	}

	if err := rows.Err(); err != nil {
		return nil, DataSourceError{Query: qtext, Err: err}
	}

	return features, nil
}

//Close 关闭数据源连接
func (p *SQLProvider) Close() error {
	return p.db.Close()
}
