package splitter

import (
	"context"
	"errors"
	"fmt"

	"github.com/hotosm/fmtm-splitter-go/geobackend"
)

// Result is the output of a full pipeline Run: the final TaskPolygon
// collection plus a record of which degenerate-case paths (spec §7)
// were taken, so a caller can surface that in response metadata (spec
// §8, "Disconnected AOI... result is a single tiling, with a note in
// the returned metadata").
type Result struct {
	Tasks             []TaskPolygon
	MultiPolygonAOI   bool
	NoLinearSplitters bool
	EmptyFeatureSet   bool
}

// Run executes the nine-stage pipeline against one AOI. predicate
// decides which SplitLines count as splitters; pass
// DefaultSplitPredicate(cfg.SplitTags) for the spec-default behavior.
func Run(ctx context.Context, backend geobackend.Backend, aoi AOI, lines []SplitLine, rawFeatures []Feature, predicate SplitPredicate, cfg Config) (*Result, error) {
	cfg = cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(aoi.Polygon) == 0 {
		return nil, &InvalidInputGeometryError{ObjectID: "aoi", Reason: "empty polygon"}
	}

	result := &Result{MultiPolygonAOI: aoi.Multi}

	subpolys, err := LineSplit(ctx, backend, aoi, lines, predicate)
	switch {
	case errors.Is(err, ErrNoLinearSplitters):
		result.NoLinearSplitters = true
	case err != nil:
		return nil, fmt.Errorf("S1 LineSplit: %w", err)
	}

	features, subpolys, err := FeatureBind(ctx, backend, subpolys, rawFeatures)
	if err != nil {
		return nil, fmt.Errorf("S2 FeatureBind: %w", err)
	}

	if len(rawFeatures) == 0 {
		result.EmptyFeatureSet = true
		result.Tasks = subpolysToTasks(subpolys)
		return result, nil
	}

	subpolys, err = LowCountMerge(ctx, backend, subpolys, cfg)
	if err != nil {
		return nil, fmt.Errorf("S3 LowCountMerge: %w", err)
	}

	features, err = rebindAfterMerge(ctx, backend, subpolys, features)
	if err != nil {
		return nil, fmt.Errorf("S3 rebind: %w", err)
	}

	features, err = Cluster(ctx, backend, features, cfg)
	if err != nil {
		return nil, fmt.Errorf("S4 Cluster: %w", err)
	}

	cells, err := densifyAndVoronoiWithRetry(ctx, backend, features, subpolys, cfg)
	if err != nil {
		return nil, fmt.Errorf("S5/S6 Densify/Voronoi: %w", err)
	}

	preliminary, err := DissolveByCluster(ctx, backend, cells)
	if err != nil {
		return nil, fmt.Errorf("S7 DissolveByCluster: %w", err)
	}

	aoiCentroid, err := backend.Centroid(ctx, aoi.Polygon)
	if err != nil {
		return nil, fmt.Errorf("aoi centroid: %w", err)
	}

	tasks, err := Simplify(ctx, backend, preliminary, cfg, aoiCentroid)
	if err != nil {
		return nil, fmt.Errorf("S8 Simplify: %w", err)
	}

	tasks, err = SmallMerge(ctx, backend, tasks, features, cfg)
	if err != nil {
		return nil, fmt.Errorf("S9 SmallMerge: %w", err)
	}

	result.Tasks = tasks
	return result, nil
}

func subpolysToTasks(subpolys []SubPolygon) []TaskPolygon {
	out := make([]TaskPolygon, len(subpolys))
	for i, sp := range subpolys {
		out[i] = TaskPolygon{TaskID: i, Geom: sp.Geom, BuildingCount: sp.N}
	}
	return out
}

// rebindAfterMerge re-derives each Feature's PolyID after S3 may have
// tombstoned the SubPolygon a Feature was originally bound to: a
// Feature's PolyID must track the surviving merged-into polygon, not
// the original (now-tombstoned) one.
func rebindAfterMerge(ctx context.Context, backend geobackend.Backend, subpolys []SubPolygon, features []Feature) ([]Feature, error) {
	out := make([]Feature, len(features))
	copy(out, features)
	for i := range out {
		polyID, found, err := locateContainingPolygon(ctx, backend, subpolys, out[i].Centroid)
		if err != nil {
			return nil, err
		}
		if found {
			out[i].PolyID = polyID
		}
	}
	return out, nil
}

// densifyAndVoronoiWithRetry runs S5 Densify + S6 Voronoi, doubling
// SegmentizeM and re-densifying on VoronoiNumericFailureError up to a
// bounded number of times (spec §7's VoronoiNumericFailure recovery),
// then failing fatally.
func densifyAndVoronoiWithRetry(ctx context.Context, backend geobackend.Backend, features []Feature, subpolys []SubPolygon, cfg Config) ([]VoronoiCell, error) {
	const maxRetries = 3
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		points, err := Densify(ctx, backend, features, cfg)
		if err != nil {
			return nil, err
		}
		cells, err := VoronoiStage(ctx, backend, points, subpolys)
		if err == nil {
			return cells, nil
		}
		var numErr *VoronoiNumericFailureError
		if !errors.As(err, &numErr) {
			return nil, err
		}
		numErr.Retries = attempt
		lastErr = numErr
		cfg.SegmentizeM *= 2
	}
	return nil, fmt.Errorf("voronoi: exhausted retries: %w", lastErr)
}
