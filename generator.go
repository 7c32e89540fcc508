package main

import (
	"context"
	"fmt"
	"time"

	"github.com/paulmach/orb/maptile"
	log "github.com/sirupsen/logrus"
	"github.com/teris-io/shortid"
)

//Generator 瓦片生成调度器，组合数据源、处理链与缓存
type Generator struct {
	layers      map[string]*Layer
	provider    Provider
	cache       Cache
	waitTimeout time.Duration
}

//NewGenerator 创建调度器
func NewGenerator(layers map[string]*Layer, provider Provider, cache Cache, waitTimeout time.Duration) *Generator {
	if waitTimeout <= 0 {
		waitTimeout = 30 * time.Second
	}
	return &Generator{
		layers:      layers,
		provider:    provider,
		cache:       cache,
		waitTimeout: waitTimeout,
	}
}

// GetTile returns the encoded tile bytes and content type for one request,
// building and caching the tile on a miss. At most one build runs per key;
// callers arriving during a build wait for it and re-read the cache.
func (g *Generator) GetTile(ctx context.Context, layer string, z, x, y uint32, format string) ([]byte, string, error) {
	lyr, ok := g.layers[layer]
	if !ok {
		return nil, "", ErrLayerNotFound{Layer: layer}
	}

	contentType, ok := formatContentType(format)
	if !ok {
		return nil, "", ErrUnsupportedFormat{Format: format}
	}

	key := TileKey{Layer: layer, Z: z, X: x, Y: y, Format: format}
	start := time.Now()

	// A waiter whose build aborted retries the lock itself, so a tile that
	// failed once is not failed for everyone who queued behind it.
	for attempt := 0; attempt < 3; attempt++ {
		body, hit, err := g.cache.Read(ctx, key)
		if err != nil {
			return nil, "", err
		}
		if hit {
			log.Debugf("%v via cache in %.3fs", key, time.Since(start).Seconds())
			return body, contentType, nil
		}

		token, ok := g.cache.BeginBuild(key)
		if !ok {
			if err := g.cache.WaitBuild(ctx, key, g.waitTimeout); err != nil {
				return nil, "", err
			}
			continue
		}

		body, err = g.build(ctx, lyr, key, token)
		if err != nil {
			return nil, "", err
		}
		log.Infof("%v via build in %.3fs", key, time.Since(start).Seconds())
		return body, contentType, nil
	}

	return nil, "", fmt.Errorf("gave up building tile %v", key)
}

// build renders and commits one tile while holding the key's build lock. On
// any failure the lock is released via Abort before the error surfaces, so a
// later request can retry.
func (g *Generator) build(ctx context.Context, lyr *Layer, key TileKey, token *BuildToken) ([]byte, error) {
	bid, _ := shortid.Generate()

	// the key may have been committed between our miss and winning the lock
	if body, hit, err := g.cache.Read(ctx, key); err == nil && hit {
		g.cache.Abort(token)
		log.Debugf("%v committed while build %s waited for the lock", key, bid)
		return body, nil
	}

	query, haveData, err := lyr.QueryAt(int(key.Z))
	if err != nil {
		g.cache.Abort(token)
		return nil, err
	}

	var features []Feature

	if haveData {
		features, err = g.fetch(ctx, query, key.Tile())
		if err != nil {
			g.cache.Abort(token)
			return nil, err
		}

		features = g.process(lyr, key, features)

		features, err = applyTransforms(features, lyr.Transform, TransformContext{Z: key.Z, X: key.X, Y: key.Y})
		if err != nil {
			g.cache.Abort(token)
			return nil, TransformError{Layer: lyr.Name, Step: "chain", Err: err}
		}

		applySort(features, lyr.Sort)
	}

	body, err := encodeTile(key, lyr.Name, features)
	if err != nil {
		g.cache.Abort(token)
		return nil, err
	}

	if err := g.cache.Commit(ctx, token, body); err != nil {
		g.cache.Abort(token)
		return nil, err
	}

	log.Debugf("build %s rendered %v with %d features", bid, key, len(features))
	return body, nil
}

// fetch executes the layer query, retrying once on data source errors. The
// provider connection is only held for the duration of this call.
func (g *Generator) fetch(ctx context.Context, query string, t maptile.Tile) ([]Feature, error) {
	features, err := g.provider.TileFeatures(ctx, query, t)
	if err == nil || ctx.Err() != nil {
		return features, err
	}

	log.Warnf("retrying tile %v query after error: %v", t, err)
	return g.provider.TileFeatures(ctx, query, t)
}

// process applies the geometry type filter and, for clipping layers, clips
// each feature to the tile bound, dropping features that vanish.
func (g *Generator) process(lyr *Layer, key TileKey, features []Feature) []Feature {
	bound := key.Bound()
	keep := features[:0]

	for i := range features {
		f := features[i]
		if !lyr.wantsGeometry(f.Geometry) {
			continue
		}
		if lyr.Clip {
			if f.Geometry = clipToTile(f.Geometry, bound); f.Geometry == nil {
				continue
			}
		}
		keep = append(keep, f)
	}
	return keep
}
