package splitter

import (
	"context"
	"sort"

	"github.com/paulmach/orb"

	"github.com/hotosm/fmtm-splitter-go/geobackend"
)

// LowCountMerge is S3: SubPolygons whose feature count falls below
// cfg's resolved MinFeatures are merged into a neighbour (spec §4.3).
// One ascending-polyid pass suffices because every merge strictly
// shrinks the low-count set: the merged-into polygon only ever gains
// features.
func LowCountMerge(ctx context.Context, backend geobackend.Backend, subpolys []SubPolygon, cfg Config) ([]SubPolygon, error) {
	byID := make(map[int]*SubPolygon, len(subpolys))
	ids := make([]int, 0, len(subpolys))
	geoms := make(map[int]orb.Polygon, len(subpolys))
	for i := range subpolys {
		byID[subpolys[i].PolyID] = &subpolys[i]
		ids = append(ids, subpolys[i].PolyID)
		geoms[subpolys[i].PolyID] = subpolys[i].Geom
	}
	sort.Ints(ids)

	graph, err := NewAdjacencyGraph(ctx, backend, ids, geoms)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		sp := byID[id]
		if sp.Tombstoned || sp.N >= cfg.MinFeatures {
			continue
		}
		neighborIDs := graph.Neighbors(id)
		if len(neighborIDs) == 0 {
			continue // isolated island, retained as-is
		}

		featureCount := make(map[int]int, len(neighborIDs))
		area := make(map[int]float64, len(neighborIDs))
		for _, n := range neighborIDs {
			featureCount[n] = byID[n].N
			area[n] = byID[n].Area
		}
		mt := graph.ChooseMergeTarget(id, featureCount, area, cfg)

		merged, err := dissolveTwo(ctx, backend, byID[mt.ID].Geom, sp.Geom)
		if err != nil {
			return nil, err
		}
		byID[mt.ID].Geom = merged
		byID[mt.ID].N += sp.N
		byID[mt.ID].Area += sp.Area
		sp.Tombstoned = true
		graph.Merge(mt.ID, id)
	}

	out := make([]SubPolygon, 0, len(subpolys))
	for _, id := range ids {
		if !byID[id].Tombstoned {
			out = append(out, *byID[id])
		}
	}
	return out, nil
}
