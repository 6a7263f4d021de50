package splitter

import (
	"context"
	"sort"

	"github.com/paulmach/orb"

	"github.com/hotosm/fmtm-splitter-go/geobackend"
)

// Cluster is S4: within each SubPolygon with n > 0 features, it runs
// deterministic k-means++ on the feature centroids with
// k = floor(n/T) + 1, assigning each Feature a local cluster index and
// composing its clusteruid (spec §4.4). Features are processed in a
// stable (ascending PolyID, then ascending ID) order so that, for a
// fixed seed, two identical inputs always see their centroids handed
// to KMeansCluster in the same order.
func Cluster(ctx context.Context, backend geobackend.Backend, features []Feature, cfg Config) ([]Feature, error) {
	byPoly := make(map[int][]int) // polyid -> indices into features
	for i, f := range features {
		byPoly[f.PolyID] = append(byPoly[f.PolyID], i)
	}

	polyIDs := make([]int, 0, len(byPoly))
	for id := range byPoly {
		polyIDs = append(polyIDs, id)
	}
	sort.Ints(polyIDs)

	out := make([]Feature, len(features))
	copy(out, features)

	for _, polyID := range polyIDs {
		idxs := byPoly[polyID]
		sort.Slice(idxs, func(a, b int) bool { return out[idxs[a]].ID < out[idxs[b]].ID })
		n := len(idxs)
		if n == 0 {
			continue
		}
		k := n/cfg.TargetClusterSize + 1

		centroids := make([]orb.Point, n)
		for i, idx := range idxs {
			centroids[i] = out[idx].Centroid
		}
		assignment, err := backend.KMeansCluster(ctx, centroids, k, cfg.KMeansSeed)
		if err != nil {
			return nil, err
		}
		for i, idx := range idxs {
			out[idx].ClusterID = assignment[i]
			out[idx].HasCluster = true
		}
	}
	return out, nil
}
