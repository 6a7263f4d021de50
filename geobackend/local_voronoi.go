package geobackend

import (
	"context"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// DegenerateVoronoiCellError is returned when a site's half-plane
// intersection collapses to fewer than 4 ring vertices, typically
// because that site sits numerically indistinguishable from one or
// more of its neighbours relative to the envelope's scale. Callers
// that densify and re-try at a coarser spacing (spec §7's
// VoronoiNumericFailure recovery) can recognize this case with
// errors.As.
type DegenerateVoronoiCellError struct {
	SiteIndex int
}

func (e *DegenerateVoronoiCellError) Error() string {
	return fmt.Sprintf("geobackend: local Voronoi: site %d produced a degenerate cell", e.SiteIndex)
}

// Voronoi computes each point's cell by intersecting, for every other
// site, the half-plane on the querying site's side of their
// perpendicular bisector — the textbook half-plane-intersection
// construction. Each cell starts as the clip envelope and is narrowed
// one bisector at a time via clipKeepLeft, so every cell comes out
// convex by construction, which is exactly the property S6 relies on
// when it later clips a (possibly non-convex) SubPolygon against its
// assigned cell.
func (l *Local) Voronoi(ctx context.Context, points []orb.Point, envelope orb.Bound) ([]orb.Polygon, error) {
	if len(points) == 0 {
		return nil, nil
	}
	if len(points) == 1 {
		return []orb.Polygon{{boundToRing(envelope)}}, nil
	}

	diag := math.Hypot(envelope.Max[0]-envelope.Min[0], envelope.Max[1]-envelope.Min[1])
	big := diag*10 + 1

	out := make([]orb.Polygon, len(points))
	for i, site := range points {
		cell := boundToRing(envelope)
		for j, other := range points {
			if i == j || pointsEqual(site, other) {
				continue
			}
			mid := orb.Point{(site[0] + other[0]) / 2, (site[1] + other[1]) / 2}
			dx, dy := other[0]-site[0], other[1]-site[1]
			// Perpendicular to (dx,dy), extended far past the envelope.
			px, py := -dy, dx
			norm := math.Hypot(px, py)
			if norm == 0 {
				continue
			}
			px, py = px/norm*big, py/norm*big
			a := orb.Point{mid[0] - px, mid[1] - py}
			b := orb.Point{mid[0] + px, mid[1] + py}
			if cross2(a, b, site) < 0 {
				a, b = b, a
			}
			cell = clipKeepLeft(cell, a, b)
			if len(cell) == 0 {
				break
			}
		}
		if len(cell) < 4 {
			return nil, &DegenerateVoronoiCellError{SiteIndex: i}
		}
		out[i] = orb.Polygon{cell}
	}
	return out, nil
}
