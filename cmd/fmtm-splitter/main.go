package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	pflag.String("config", "", "Path to YAML configuration file")
	pflag.String("aoi", "", "Path to the AOI GeoJSON file")
	pflag.String("lines", "", "Path to the linear-splitter GeoJSON FeatureCollection")
	pflag.String("features", "", "Path to the building-feature GeoJSON FeatureCollection")
	pflag.String("output", "tasks.geojson", "Path to write the task-polygon GeoJSON output")
	pflag.String("backend", "local", "Geometry backend: local or postgis")
	pflag.String("postgis-dsn", "", "PostGIS connection string, required when --backend=postgis")
	pflag.Parse()

	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		log.Fatalf("fmtm-splitter: binding flags: %v", err)
	}
	viper.SetEnvPrefix("FMTM_SPLITTER")
	viper.AutomaticEnv()

	fmt.Printf("fmtm-splitter version: %s\n", Version)

	app, err := NewApp(viper.GetViper())
	if err != nil {
		log.Fatalf("fmtm-splitter: %v", err)
	}

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("fmtm-splitter: %v", err)
	}

	os.Exit(0)
}
