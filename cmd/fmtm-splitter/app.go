package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/hotosm/fmtm-splitter-go/geobackend"
	"github.com/hotosm/fmtm-splitter-go/splitter"
)

// App encapsulates the application state and dependencies, the same
// shape this repository's service entrypoint has always used: flags
// and config resolved once at startup into a single struct, then
// handed to a Run method that does the actual work.
type App struct {
	AOIPath      string
	LinesPath    string
	FeaturesPath string
	OutputPath   string
	BackendKind  string
	PostgisDSN   string
	SplitterCfg  splitter.Config
}

// NewApp resolves configuration. The splitter options come from the
// spec default config, or from the YAML file named by the "config" key
// when one is given; the input/output paths and the backend selection
// come from CLI flags or FMTM_SPLITTER_* environment variables (already
// layered into v by viper).
func NewApp(v *viper.Viper) (*App, error) {
	cfg := splitter.DefaultConfig()
	if path := v.GetString("config"); path != "" {
		loaded, err := splitter.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = *loaded
	}

	a := &App{
		AOIPath:      v.GetString("aoi"),
		LinesPath:    v.GetString("lines"),
		FeaturesPath: v.GetString("features"),
		OutputPath:   v.GetString("output"),
		BackendKind:  v.GetString("backend"),
		PostgisDSN:   v.GetString("postgis-dsn"),
		SplitterCfg:  cfg.Defaults(),
	}
	if a.AOIPath == "" {
		return nil, fmt.Errorf("--aoi is required")
	}
	return a, nil
}

// Run loads inputs, executes the pipeline, and writes the task
// polygon GeoJSON output.
func (a *App) Run(ctx context.Context) error {
	backend, closeBackend, err := a.newBackend(ctx)
	if err != nil {
		return err
	}
	defer closeBackend()

	aoiData, err := os.ReadFile(a.AOIPath)
	if err != nil {
		return fmt.Errorf("reading AOI file: %w", err)
	}
	aoi, err := splitter.LoadAOI(aoiData)
	if err != nil {
		return fmt.Errorf("parsing AOI: %w", err)
	}

	var lines []splitter.SplitLine
	if a.LinesPath != "" {
		data, err := os.ReadFile(a.LinesPath)
		if err != nil {
			return fmt.Errorf("reading linear-splitter file: %w", err)
		}
		lines, err = splitter.LoadSplitLines(data)
		if err != nil {
			return fmt.Errorf("parsing linear splitters: %w", err)
		}
	}

	var features []splitter.Feature
	if a.FeaturesPath != "" {
		data, err := os.ReadFile(a.FeaturesPath)
		if err != nil {
			return fmt.Errorf("reading feature file: %w", err)
		}
		features, err = splitter.LoadFeatures(data)
		if err != nil {
			return fmt.Errorf("parsing features: %w", err)
		}
	}

	predicate := splitter.DefaultSplitPredicate(a.SplitterCfg.SplitTags)
	result, err := splitter.Run(ctx, backend, aoi, lines, features, predicate, a.SplitterCfg)
	if err != nil {
		return fmt.Errorf("running splitter pipeline: %w", err)
	}

	out, err := splitter.EncodeTaskPolygons(result.Tasks)
	if err != nil {
		return fmt.Errorf("encoding task polygons: %w", err)
	}
	if err := os.WriteFile(a.OutputPath, out, 0644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	fmt.Printf("wrote %d task polygons to %s\n", len(result.Tasks), a.OutputPath)
	if result.NoLinearSplitters {
		fmt.Println("note: no linear splitters intersected the AOI")
	}
	if result.EmptyFeatureSet {
		fmt.Println("note: no building features found, output is the sub-polygon tiling")
	}
	if result.MultiPolygonAOI {
		fmt.Println("note: AOI was a MultiPolygon, reduced to its convex hull")
	}
	return nil
}

func (a *App) newBackend(ctx context.Context) (geobackend.Backend, func(), error) {
	switch a.BackendKind {
	case "", "local":
		return geobackend.NewLocal(), func() {}, nil
	case "postgis":
		if a.PostgisDSN == "" {
			return nil, nil, fmt.Errorf("--postgis-dsn is required when --backend=postgis")
		}
		pg, err := geobackend.NewPostgres(ctx, a.PostgisDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() { _ = pg.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", a.BackendKind)
	}
}
