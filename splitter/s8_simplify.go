package splitter

import (
	"context"
	"fmt"
	"sort"

	"github.com/paulmach/orb"

	"github.com/hotosm/fmtm-splitter-go/geobackend"
)

// Simplify is S8: it extracts every preliminary polygon's boundary,
// dissolves the shared linework down to unique segments, merges those
// into maximal chains, applies Douglas-Peucker simplification once to
// the shared linework, and re-polygonizes the result into TaskPolygons
// (spec §4.8). Simplifying the shared linework exactly once — rather
// than each preliminary polygon's boundary independently — is what
// keeps adjacent tasks from drifting apart or overlapping after
// simplification.
func Simplify(ctx context.Context, backend geobackend.Backend, preliminary []PreliminaryPolygon, cfg Config, aoiCentroid orb.Point) ([]TaskPolygon, error) {
	var boundaries []orb.LineString
	for _, pp := range preliminary {
		b, err := backend.Boundary(ctx, pp.Geom)
		if err != nil {
			return nil, err
		}
		boundaries = append(boundaries, b...)
	}

	unique := uniqueSegments(boundaries)

	merged, err := backend.LineMerge(ctx, unique)
	if err != nil {
		return nil, err
	}

	tolerance := metersToDegrees(aoiCentroid, cfg.SimplifyM)
	simplified := make([]orb.LineString, len(merged))
	for i, ls := range merged {
		g, err := backend.Simplify(ctx, ls, tolerance)
		if err != nil {
			return nil, err
		}
		simplified[i], _ = g.(orb.LineString)
	}

	polys, err := backend.Polygonize(ctx, simplified)
	if err != nil {
		return nil, fmt.Errorf("simplify: re-polygonize: %w", err)
	}
	sortPolygonsByRepresentativePoint(polys)

	out := make([]TaskPolygon, len(polys))
	for i, p := range polys {
		out[i] = TaskPolygon{TaskID: i, Geom: p}
	}
	return out, nil
}

// uniqueSegments deduplicates the 2-point edges of the input
// linestrings down to one copy each (spec §4.8 step 2-3: "shared
// boundaries between two task polygons appear exactly once"). Unlike
// the dissolve techniques S3/S7/S9 use to merge polygons into fewer
// polygons, S8 keeps one polygon per cluster — it only needs every
// edge of the tiling, deduplicated, not the cancellation of interior
// edges.
func uniqueSegments(lines []orb.LineString) []orb.LineString {
	type key struct{ ax, ay, bx, by float64 }
	normalize := func(a, b orb.Point) key {
		if a[0] > b[0] || (a[0] == b[0] && a[1] > b[1]) {
			a, b = b, a
		}
		return key{a[0], a[1], b[0], b[1]}
	}

	segs := make(map[key][2]orb.Point)
	for _, ls := range lines {
		for i := 0; i+1 < len(ls); i++ {
			k := normalize(ls[i], ls[i+1])
			segs[k] = [2]orb.Point{ls[i], ls[i+1]}
		}
	}

	keys := make([]key, 0, len(segs))
	for k := range segs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ax != keys[j].ax {
			return keys[i].ax < keys[j].ax
		}
		if keys[i].ay != keys[j].ay {
			return keys[i].ay < keys[j].ay
		}
		if keys[i].bx != keys[j].bx {
			return keys[i].bx < keys[j].bx
		}
		return keys[i].by < keys[j].by
	})

	out := make([]orb.LineString, 0, len(keys))
	for _, k := range keys {
		s := segs[k]
		out = append(out, orb.LineString{s[0], s[1]})
	}
	return out
}
