package splitter

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/hotosm/fmtm-splitter-go/geobackend"
)

// FeatureBind is S2: it assigns every Feature to the unique
// SubPolygon whose interior contains its centroid, then aggregates
// per-SubPolygon feature count and geodesic area (spec §4.2). A
// centroid exactly on a shared boundary is assigned to the lowest
// `polyid` among the SubPolygons it touches, since `contains` alone
// would assign it to none.
func FeatureBind(ctx context.Context, backend geobackend.Backend, subpolys []SubPolygon, features []Feature) ([]Feature, []SubPolygon, error) {
	assigned := make([]Feature, len(features))
	copy(assigned, features)

	counts := make(map[int]int, len(subpolys))
	for i := range assigned {
		f := &assigned[i]
		polyID, found, err := locateContainingPolygon(ctx, backend, subpolys, f.Centroid)
		if err != nil {
			return nil, nil, err
		}
		if !found {
			continue
		}
		f.PolyID = polyID
		counts[polyID]++
	}

	out := make([]SubPolygon, len(subpolys))
	for i, sp := range subpolys {
		area, err := backend.GeodesicArea(ctx, sp.Geom)
		if err != nil {
			return nil, nil, err
		}
		sp.N = counts[sp.PolyID]
		sp.Area = area
		out[i] = sp
	}
	return assigned, out, nil
}

func locateContainingPolygon(ctx context.Context, backend geobackend.Backend, subpolys []SubPolygon, centroid orb.Point) (int, bool, error) {
	var onBoundaryCandidates []int
	for _, sp := range subpolys {
		contains, err := backend.Contains(ctx, sp.Geom, centroid)
		if err != nil {
			return 0, false, err
		}
		if contains {
			return sp.PolyID, true, nil
		}
		if planar.PolygonContains(sp.Geom, centroid) || pointOnRingBoundary(sp.Geom, centroid) {
			onBoundaryCandidates = append(onBoundaryCandidates, sp.PolyID)
		}
	}
	if len(onBoundaryCandidates) == 0 {
		return 0, false, nil
	}
	best := onBoundaryCandidates[0]
	for _, c := range onBoundaryCandidates[1:] {
		if c < best {
			best = c
		}
	}
	return best, true, nil
}

func pointOnRingBoundary(p orb.Polygon, pt orb.Point) bool {
	if len(p) == 0 {
		return false
	}
	ring := p[0]
	for i := 0; i+1 < len(ring); i++ {
		if onSegment(ring[i], ring[i+1], pt) {
			return true
		}
	}
	return false
}

func onSegment(a, b, pt orb.Point) bool {
	const eps = 1e-12
	cross := (b[0]-a[0])*(pt[1]-a[1]) - (b[1]-a[1])*(pt[0]-a[0])
	if cross > eps || cross < -eps {
		return false
	}
	if pt[0] < minF(a[0], b[0])-eps || pt[0] > maxF(a[0], b[0])+eps {
		return false
	}
	if pt[1] < minF(a[1], b[1])-eps || pt[1] > maxF(a[1], b[1])+eps {
		return false
	}
	return true
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
