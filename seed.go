package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/maptile/tilecover"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/teris-io/shortid"
	pb "gopkg.in/cheggaaa/pb.v1"
)

// runSeed pregenerates tiles for the configured layers and zoom range over a
// GeoJSON coverage area, warming the cache before the server takes traffic.
func runSeed(g *Generator, layers map[string]*Layer) error {
	id, _ := shortid.Generate()

	area := viper.GetString("seed.area")
	if area == "" {
		return ConfigError{Reason: "seed.area is required for seed mode"}
	}
	collection := loadCollection(area)

	names := viper.GetStringSlice("seed.layers")
	if len(names) == 0 {
		for name := range layers {
			names = append(names, name)
		}
	}
	for _, name := range names {
		if _, ok := layers[name]; !ok {
			return ConfigError{Layer: name, Reason: "seed layer not configured"}
		}
	}

	format := viper.GetString("seed.format")
	minz := viper.GetInt("seed.min")
	maxz := viper.GetInt("seed.max")
	workerCount := viper.GetInt("task.workers")
	ctx := context.Background()

	log.Infof("seed task %s: layers %v, zoom %d-%d, format %s", id, names, minz, maxz, format)

	for z := minz; z <= maxz; z++ {
		set := make(maptile.Set)
		for _, geom := range collection {
			s, err := tilecover.Geometry(geom, maptile.Zoom(z))
			if err != nil {
				return err
			}
			for t := range s {
				set[t] = true
			}
		}

		bar := pb.New(len(set)).Prefix(fmt.Sprintf("Zoom %d : ", z))
		bar.Start()

		workers := make(chan struct{}, workerCount)
		var wg sync.WaitGroup

		for t := range set {
			workers <- struct{}{}
			wg.Add(1)
			go func(t maptile.Tile) {
				defer wg.Done()
				defer func() { <-workers }()
				for _, name := range names {
					if _, _, err := g.GetTile(ctx, name, uint32(t.Z), t.X, t.Y, format); err != nil {
						log.Errorf("seed %s/%d/%d/%d.%s error ~ %s", name, t.Z, t.X, t.Y, format, err)
					}
				}
				bar.Increment()
			}(t)
		}
		wg.Wait()
		bar.FinishPrint(fmt.Sprintf("seed task %s zoom %d finished ~", id, z))
	}

	log.Infof("seed task %s finished ~", id)
	return nil
}
