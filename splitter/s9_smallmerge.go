package splitter

import (
	"context"
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/hotosm/fmtm-splitter-go/geobackend"
)

// SmallMerge is S9: it computes the mean and population standard
// deviation of task areas, marks as "small" any task below
// `mean - stddev` in area or below MinFeatures in building count, and
// merges each small task into the non-small neighbour sharing the
// greatest boundary length (spec §4.9). Processing is a single
// ascending-taskid pass.
func SmallMerge(ctx context.Context, backend geobackend.Backend, tasks []TaskPolygon, features []Feature, cfg Config) ([]TaskPolygon, error) {
	areas := make(map[int]float64, len(tasks))
	for _, t := range tasks {
		a, err := backend.GeodesicArea(ctx, t.Geom)
		if err != nil {
			return nil, err
		}
		areas[t.TaskID] = a
	}

	buildingCounts := countFeaturesPerTask(ctx, backend, tasks, features)

	mean, stddev := meanStdDev(values(areas))
	areaFloor := mean - stddev

	byID := make(map[int]*TaskPolygon, len(tasks))
	ids := make([]int, 0, len(tasks))
	geoms := make(map[int]orb.Polygon, len(tasks))
	for i := range tasks {
		tasks[i].BuildingCount = buildingCounts[tasks[i].TaskID]
		byID[tasks[i].TaskID] = &tasks[i]
		ids = append(ids, tasks[i].TaskID)
		geoms[tasks[i].TaskID] = tasks[i].Geom
	}
	sort.Ints(ids)

	isSmall := func(id int) bool {
		return areas[id] < areaFloor || byID[id].BuildingCount < cfg.MinFeatures
	}

	graph, err := NewAdjacencyGraph(ctx, backend, ids, geoms)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		t := byID[id]
		if t.Tombstoned || !isSmall(id) {
			continue
		}
		neighborIDs := graph.Neighbors(id)
		target, found, err := bestNonSmallNeighbor(ctx, backend, neighborIDs, t.Geom, byID, isSmall)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}

		merged, err := dissolveTwo(ctx, backend, byID[target].Geom, t.Geom)
		if err != nil {
			return nil, err
		}
		byID[target].Geom = merged
		byID[target].BuildingCount += t.BuildingCount
		areas[target] += areas[id]
		t.Tombstoned = true
		graph.Merge(target, id)
	}

	out := make([]TaskPolygon, 0, len(tasks))
	for _, id := range ids {
		if !byID[id].Tombstoned {
			out = append(out, *byID[id])
		}
	}
	return out, nil
}

// bestNonSmallNeighbor finds, among neighborIDs, the non-small task
// sharing the greatest boundary length with source, breaking ties by
// lowest id (spec §4.9).
func bestNonSmallNeighbor(ctx context.Context, backend geobackend.Backend, neighborIDs []int, source orb.Polygon, byID map[int]*TaskPolygon, isSmall func(int) bool) (int, bool, error) {
	best, bestLen := 0, -1.0
	found := false
	for _, n := range neighborIDs {
		if isSmall(n) {
			continue
		}
		boundary, err := backend.Boundary(ctx, byID[n].Geom)
		if err != nil {
			return 0, false, err
		}
		sourceBoundary, err := backend.Boundary(ctx, source)
		if err != nil {
			return 0, false, err
		}
		length := sharedLinestringLength(boundary, sourceBoundary)
		if !found || length > bestLen || (length == bestLen && n < best) {
			best, bestLen, found = n, length, true
		}
	}
	return best, found, nil
}

func sharedLinestringLength(a, b []orb.LineString) float64 {
	type key struct{ ax, ay, bx, by float64 }
	normalize := func(p, q orb.Point) key {
		if p[0] > q[0] || (p[0] == q[0] && p[1] > q[1]) {
			p, q = q, p
		}
		return key{p[0], p[1], q[0], q[1]}
	}
	setA := make(map[key]orb.Point, 16) // stores segment start for length calc
	lenByKey := make(map[key]float64)
	for _, ls := range a {
		for i := 0; i+1 < len(ls); i++ {
			k := normalize(ls[i], ls[i+1])
			setA[k] = ls[i]
			lenByKey[k] = distance(ls[i], ls[i+1])
		}
	}
	var total float64
	for _, ls := range b {
		for i := 0; i+1 < len(ls); i++ {
			k := normalize(ls[i], ls[i+1])
			if _, ok := setA[k]; ok {
				total += lenByKey[k]
			}
		}
	}
	return total
}

func distance(a, b orb.Point) float64 {
	dx, dy := a[0]-b[0], a[1]-b[1]
	return math.Hypot(dx, dy)
}

func countFeaturesPerTask(ctx context.Context, backend geobackend.Backend, tasks []TaskPolygon, features []Feature) map[int]int {
	out := make(map[int]int, len(tasks))
	for _, f := range features {
		for _, t := range tasks {
			contains, err := backend.Contains(ctx, t.Geom, f.Centroid)
			if err != nil || !contains {
				continue
			}
			out[t.TaskID]++
			break
		}
	}
	return out
}

func values(m map[int]float64) []float64 {
	out := make([]float64, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func meanStdDev(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}
