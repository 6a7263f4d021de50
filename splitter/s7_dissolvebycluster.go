package splitter

import (
	"context"
	"fmt"
	"sort"

	"github.com/paulmach/orb"

	"github.com/hotosm/fmtm-splitter-go/geobackend"
)

// DissolveByCluster is S7: it unions all Voronoi cells sharing a
// clusteruid into one preliminary polygon per cluster (spec §4.7).
// Cells are grouped and fed to UnionAll in ascending clusteruid order,
// and within a group in the cells' original (generator point) order,
// satisfying spec §9's "feed inputs in stable sorted order" rule for
// aggregate union.
func DissolveByCluster(ctx context.Context, backend geobackend.Backend, cells []VoronoiCell) ([]PreliminaryPolygon, error) {
	byCluster := make(map[string][]int)
	for i, c := range cells {
		byCluster[c.ClusterUID] = append(byCluster[c.ClusterUID], i)
	}

	cuids := make([]string, 0, len(byCluster))
	for cuid := range byCluster {
		cuids = append(cuids, cuid)
	}
	sort.Strings(cuids)

	out := make([]PreliminaryPolygon, 0, len(cuids))
	for _, cuid := range cuids {
		idxs := byCluster[cuid]
		geoms := make([]orb.Geometry, len(idxs))
		for i, idx := range idxs {
			geoms[i] = cells[idx].Geom
		}
		merged, err := backend.UnionAll(ctx, geoms)
		if err != nil {
			return nil, fmt.Errorf("dissolve cluster %s: %w", cuid, err)
		}
		for _, poly := range flattenToPolygons(merged) {
			out = append(out, PreliminaryPolygon{ClusterUID: cuid, Geom: poly})
		}
	}
	return out, nil
}

func flattenToPolygons(g orb.Geometry) []orb.Polygon {
	switch t := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{t}
	case orb.MultiPolygon:
		return []orb.Polygon(t)
	default:
		return nil
	}
}
