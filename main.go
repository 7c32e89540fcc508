package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/shiena/ansicolor"
	log "github.com/sirupsen/logrus"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/spf13/viper"
)

// flag
var (
	hf bool
	cf string
	sf bool
)

func init() {
	flag.BoolVar(&hf, "h", false, "this help")
	flag.StringVar(&cf, "c", "conf.toml", "set config `file`")
	flag.BoolVar(&sf, "seed", false, "pregenerate tiles instead of serving")
	flag.Usage = usage
	//InitLog 初始化日志
	log.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		ShowFullLevel:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	log.SetOutput(ansicolor.NewAnsiColorWriter(os.Stdout))
	log.SetLevel(log.DebugLevel)
}

func usage() {
	fmt.Fprintf(os.Stderr, `tilegen version: tilegen/v0.1.0
Usage: tilegen [-h] [-c filename] [-seed]
`)
	flag.PrintDefaults()
}

// initConf 初始化配置
func initConf(cfgFile string) {
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		log.Warnf("config file(%s) not exist", cfgFile)
	}
	viper.SetConfigType("toml")
	viper.SetConfigFile(cfgFile)
	viper.AutomaticEnv() // read in environment variables that match
	err := viper.ReadInConfig()
	if err != nil {
		log.Warnf("read config file(%s) error, details: %s", viper.ConfigFileUsed(), err)
	}
	viper.SetDefault("app.version", "v 0.1.0")
	viper.SetDefault("app.title", "MapCloud TileGen")
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("provider.driver", "spatialite")
	viper.SetDefault("cache.backend", "disk")
	viper.SetDefault("cache.path", "cache")
	viper.SetDefault("cache.filemode", "0644")
	viper.SetDefault("cache.gzip", []string{JSON, GEOJSON})
	viper.SetDefault("cache.wait_timeout", "30s")
	viper.SetDefault("task.workers", 4)
	viper.SetDefault("seed.format", MVT)
	viper.SetDefault("seed.min", 0)
	viper.SetDefault("seed.max", 5)
}

func main() {
	flag.Parse()
	if hf {
		flag.Usage()
		return
	}

	if cf == "" {
		cf = "conf.toml"
	}
	initConf(cf)

	layers, err := loadLayers()
	if err != nil {
		log.Fatal(err)
	}

	provider, err := buildProvider()
	if err != nil {
		log.Fatal(err)
	}
	defer provider.Close()

	cache, err := buildCache()
	if err != nil {
		log.Fatal(err)
	}

	gtor := NewGenerator(layers, provider, cache, viper.GetDuration("cache.wait_timeout"))

	if sf {
		if err := runSeed(gtor, layers); err != nil {
			log.Fatal(err)
		}
		return
	}

	addr := viper.GetString("server.addr")
	log.Infof("%s serving %d layers on %s", viper.GetString("app.title"), len(layers), addr)
	if err := newRouter(gtor).Run(addr); err != nil {
		log.Fatal(err)
	}
}
