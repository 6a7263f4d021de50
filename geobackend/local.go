package geobackend

import (
	"context"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// Local is the pure-Go, in-process Backend implementation. It needs no
// database and backs the splitter package's own tests; it is also a
// legitimate production choice for a single-process deployment with a
// small AOI where a Postgres round trip is unnecessary overhead.
//
// Local restricts the general boolean operations to the shapes the
// nine pipeline stages actually need: Intersection only ever clips an
// arbitrary simple polygon or polyline against a convex one (S6, a
// Voronoi cell, always convex by construction; S1, a linear splitter
// against the AOI, which is only convex when the caller's AOI happens
// to be). Unlike S6's clip operand, S1's AOI is not guaranteed convex
// by anything upstream, so Intersection checks convexity itself and
// rejects a concave clip polygon rather than silently mis-clipping;
// callers with a concave AOI need the Postgres backend, whose
// ST_Intersection has no such restriction. Union/UnionAll only ever
// dissolve polygons that already tile (share exact boundary segments,
// S3/S7/S9). Neither limitation is worked around with a general
// polygon-clipping library, because none of the retrieved examples
// carries one; see DESIGN.md.
type Local struct{}

// NewLocal constructs a Local backend. It holds no state.
func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Intersection(ctx context.Context, a, b orb.Geometry) (orb.Geometry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if ls, ok := a.(orb.LineString); ok {
		return intersectLineAndPolygon(ls, b)
	}
	if ls, ok := b.(orb.LineString); ok {
		return intersectLineAndPolygon(ls, a)
	}

	ap, aok := a.(orb.Polygon)
	bp, bok := b.(orb.Polygon)
	if !aok || !bok || len(ap) == 0 || len(bp) == 0 {
		return nil, fmt.Errorf("geobackend: local Intersection only supports polygon/polygon and linestring/polygon")
	}
	clipped := polygonClipConvex(ap[0], bp[0])
	if len(clipped) < 4 {
		return orb.Polygon{}, nil
	}
	return orb.Polygon{clipped}, nil
}

// intersectLineAndPolygon clips ls against poly's outer ring. The
// Sutherland-Hodgman half-plane clip polylineClipConvex runs only
// produces correct linework when the clip ring is convex, and a
// concave AOI is entirely spec-legal (spec §3 only forces a
// convex-hull reduction for MultiPolygon AOIs), so a concave ring here
// is rejected outright instead of silently mis-clipping it; see
// Local's doc comment for the Postgres-backend alternative.
func intersectLineAndPolygon(ls orb.LineString, g orb.Geometry) (orb.Geometry, error) {
	p, ok := g.(orb.Polygon)
	if !ok || len(p) == 0 {
		return nil, fmt.Errorf("geobackend: local Intersection linestring/%T is unsupported", g)
	}
	if !isConvex(p[0]) {
		return nil, fmt.Errorf("geobackend: local Intersection cannot clip a linestring against a concave polygon; use the Postgres backend for a concave AOI")
	}
	runs := polylineClipConvex(ls, p[0])
	switch len(runs) {
	case 0:
		return orb.LineString{}, nil
	case 1:
		return runs[0], nil
	default:
		return orb.MultiLineString(runs), nil
	}
}

func (l *Local) Union(ctx context.Context, a, b orb.Geometry) (orb.Geometry, error) {
	return l.UnionAll(ctx, []orb.Geometry{a, b})
}

func (l *Local) UnionAll(ctx context.Context, geoms []orb.Geometry) (orb.Geometry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rings []orb.Ring
	for _, g := range geoms {
		p, ok := g.(orb.Polygon)
		if !ok || len(p) == 0 {
			continue
		}
		rings = append(rings, p[0])
	}
	merged, err := dissolveRings(rings)
	if err != nil {
		return nil, fmt.Errorf("geobackend: local UnionAll: %w", err)
	}
	if len(merged) == 0 {
		return orb.Polygon{}, nil
	}
	if len(merged) == 1 {
		return orb.Polygon{merged[0]}, nil
	}
	mp := make(orb.MultiPolygon, len(merged))
	for i, r := range merged {
		mp[i] = orb.Polygon{r}
	}
	return mp, nil
}

// Difference is not exercised by any of S1-S9: every merge the
// pipeline performs is a dissolve of adjacent, tiling polygons
// (handled by Union/UnionAll), and the one clip operation it needs
// (S6) is an intersection, not a difference. It is provided only for
// interface completeness and returns an error for the one case that
// would require general polygon clipping; the two degenerate cases
// that need no clipping at all are still handled.
func (l *Local) Difference(ctx context.Context, a, b orb.Geometry) (orb.Geometry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ap, aok := a.(orb.Polygon)
	bp, bok := b.(orb.Polygon)
	if !aok || !bok || len(ap) == 0 {
		return nil, fmt.Errorf("geobackend: local Difference only supports polygon/polygon")
	}
	if len(bp) == 0 || !boundOf(ap[0]).Intersects(boundOf(bp[0])) {
		return ap, nil
	}
	return nil, fmt.Errorf("geobackend: local Difference does not support partial overlap (unused by the pipeline; see DESIGN.md)")
}

func (l *Local) Boundary(ctx context.Context, g orb.Geometry) ([]orb.LineString, error) {
	p, ok := g.(orb.Polygon)
	if !ok {
		return nil, fmt.Errorf("geobackend: local Boundary only supports Polygon")
	}
	out := make([]orb.LineString, 0, len(p))
	for _, ring := range p {
		out = append(out, orb.LineString(ring))
	}
	return out, nil
}

func (l *Local) Dump(ctx context.Context, g orb.Geometry) ([]orb.Geometry, error) {
	switch t := g.(type) {
	case orb.MultiPolygon:
		out := make([]orb.Geometry, len(t))
		for i, p := range t {
			out[i] = p
		}
		return out, nil
	case orb.MultiLineString:
		out := make([]orb.Geometry, len(t))
		for i, ls := range t {
			out[i] = ls
		}
		return out, nil
	default:
		return []orb.Geometry{g}, nil
	}
}

func (l *Local) DumpPoints(ctx context.Context, g orb.Geometry) ([]orb.Point, error) {
	seen := make(map[orb.Point]struct{})
	var out []orb.Point
	add := func(p orb.Point) {
		s := snap(p)
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, p)
	}
	switch t := g.(type) {
	case orb.Point:
		add(t)
	case orb.LineString:
		for _, p := range t {
			add(p)
		}
	case orb.Ring:
		for _, p := range t {
			add(p)
		}
	case orb.Polygon:
		for _, ring := range t {
			for _, p := range ring {
				add(p)
			}
		}
	case orb.MultiPolygon:
		for _, poly := range t {
			for _, ring := range poly {
				for _, p := range ring {
					add(p)
				}
			}
		}
	default:
		return nil, fmt.Errorf("geobackend: local DumpPoints: unsupported geometry %T", g)
	}
	return out, nil
}

// Segmentize walks every edge of g and inserts intermediate vertices
// so no edge exceeds maxSegment, per spec §4.5 Densify. maxSegment is
// in g's own coordinate units (degrees for WGS84 geometry); callers
// convert from meters via the reference-latitude approximation
// (splitter.metersToDegrees) before calling this.
func (l *Local) Segmentize(ctx context.Context, g orb.Geometry, maxSegment float64) (orb.Geometry, error) {
	if maxSegment <= 0 {
		return g, nil
	}
	switch t := g.(type) {
	case orb.Ring:
		return densifyRing(t, maxSegment), nil
	case orb.Polygon:
		out := make(orb.Polygon, len(t))
		for i, ring := range t {
			out[i] = densifyRing(ring, maxSegment)
		}
		return out, nil
	case orb.LineString:
		return densifyLine(t, maxSegment), nil
	default:
		return nil, fmt.Errorf("geobackend: local Segmentize: unsupported geometry %T", g)
	}
}

func densifyRing(ring orb.Ring, maxSegment float64) orb.Ring {
	return orb.Ring(densifyLine(orb.LineString(ring), maxSegment))
}

func densifyLine(line orb.LineString, maxSegment float64) orb.LineString {
	if len(line) < 2 {
		return line
	}
	out := make(orb.LineString, 0, len(line))
	out = append(out, line[0])
	for i := 1; i < len(line); i++ {
		p0, p1 := line[i-1], line[i]
		d := planar.Distance(p0, p1)
		if d <= maxSegment || d == 0 {
			out = append(out, p1)
			continue
		}
		n := int(math.Ceil(d / maxSegment))
		for k := 1; k < n; k++ {
			t := float64(k) / float64(n)
			out = append(out, orb.Point{
				p0[0] + t*(p1[0]-p0[0]),
				p0[1] + t*(p1[1]-p0[1]),
			})
		}
		out = append(out, p1)
	}
	return out
}

func (l *Local) Centroid(ctx context.Context, g orb.Geometry) (orb.Point, error) {
	switch t := g.(type) {
	case orb.Polygon:
		if len(t) == 0 {
			return orb.Point{}, fmt.Errorf("geobackend: local Centroid: empty polygon")
		}
		return ringCentroidOf(t[0]), nil
	case orb.Ring:
		return ringCentroidOf(t), nil
	case orb.Point:
		return t, nil
	default:
		return orb.Point{}, fmt.Errorf("geobackend: local Centroid: unsupported geometry %T", g)
	}
}

func ringCentroidOf(ring orb.Ring) orb.Point {
	if len(ring) < 3 {
		if len(ring) == 0 {
			return orb.Point{}
		}
		return ring[0]
	}
	var cx, cy, areaSum float64
	n := len(ring)
	for i := 0; i < n; i++ {
		p0 := ring[i]
		p1 := ring[(i+1)%n]
		cr := p0[0]*p1[1] - p1[0]*p0[1]
		areaSum += cr
		cx += (p0[0] + p1[0]) * cr
		cy += (p0[1] + p1[1]) * cr
	}
	if areaSum == 0 {
		var sx, sy float64
		for _, p := range ring {
			sx += p[0]
			sy += p[1]
		}
		return orb.Point{sx / float64(n), sy / float64(n)}
	}
	areaSum *= 0.5
	return orb.Point{cx / (6 * areaSum), cy / (6 * areaSum)}
}

func (l *Local) Contains(ctx context.Context, a, b orb.Geometry) (bool, error) {
	ap, ok := a.(orb.Polygon)
	if !ok {
		return false, fmt.Errorf("geobackend: local Contains requires a Polygon subject")
	}
	switch t := b.(type) {
	case orb.Point:
		for _, ring := range ap {
			for i := 0; i+1 < len(ring); i++ {
				a0, a1 := ring[i], ring[i+1]
				if math.Abs(cross2(a0, a1, t)) <= 1e-12 &&
					t[0] >= math.Min(a0[0], a1[0]) && t[0] <= math.Max(a0[0], a1[0]) &&
					t[1] >= math.Min(a0[1], a1[1]) && t[1] <= math.Max(a0[1], a1[1]) {
					return false, nil // on the boundary, not in the interior
				}
			}
		}
		return planar.PolygonContains(ap, t), nil
	case orb.Polygon:
		if len(t) == 0 {
			return false, nil
		}
		for _, p := range t[0] {
			if !planar.PolygonContains(ap, p) {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("geobackend: local Contains: unsupported operand %T", b)
	}
}

func (l *Local) Intersects(ctx context.Context, a, b orb.Geometry) (bool, error) {
	ap, aok := a.(orb.Polygon)
	bp, bok := b.(orb.Polygon)
	if !aok || !bok || len(ap) == 0 || len(bp) == 0 {
		return false, fmt.Errorf("geobackend: local Intersects only supports polygon/polygon")
	}
	ab, bb := boundOf(ap[0]), boundOf(bp[0])
	if !ab.Intersects(bb) {
		return false, nil
	}
	clipped := polygonClipConvexIfConvex(ap[0], bp[0])
	return len(clipped) >= 4, nil
}

// polygonClipConvexIfConvex tries clipping a against b treating
// whichever ring is convex as the clip window; it is only used by
// Intersects/Touches as a cheap non-degenerate overlap test, not as a
// general intersection primitive.
func polygonClipConvexIfConvex(a, b orb.Ring) orb.Ring {
	if isConvex(b) {
		return polygonClipConvex(a, b)
	}
	if isConvex(a) {
		return polygonClipConvex(b, a)
	}
	// Neither operand is known convex; fall back to a vertex-containment
	// probe, sufficient for the adjacency checks this backend is used
	// for (spec §9's polygon/task arena never needs a precise overlap
	// polygon here, only a boolean).
	for _, p := range a {
		if planar.PolygonContains(orb.Polygon{b}, p) {
			return orb.Ring{p, p, p, p}
		}
	}
	for _, p := range b {
		if planar.PolygonContains(orb.Polygon{a}, p) {
			return orb.Ring{p, p, p, p}
		}
	}
	return nil
}

func isConvex(ring orb.Ring) bool {
	n := len(ring)
	if n < 4 {
		return false
	}
	sign := 0
	for i := 0; i < n-1; i++ {
		a := ring[i]
		b := ring[(i+1)%(n-1)]
		c := ring[(i+2)%(n-1)]
		cr := cross2(a, b, c)
		if cr == 0 {
			continue
		}
		s := 1
		if cr < 0 {
			s = -1
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return false
		}
	}
	return true
}

func (l *Local) Touches(ctx context.Context, a, b orb.Geometry) (bool, error) {
	ap, aok := a.(orb.Polygon)
	bp, bok := b.(orb.Polygon)
	if !aok || !bok || len(ap) == 0 || len(bp) == 0 {
		return false, fmt.Errorf("geobackend: local Touches only supports polygon/polygon")
	}
	shared := sharedBoundaryLength(ap[0], bp[0])
	return shared > 0, nil
}

func (l *Local) GeometryType(g orb.Geometry) string {
	switch g.(type) {
	case orb.Point:
		return "Point"
	case orb.MultiPoint:
		return "MultiPoint"
	case orb.LineString:
		return "LineString"
	case orb.MultiLineString:
		return "MultiLineString"
	case orb.Ring:
		return "LinearRing"
	case orb.Polygon:
		return "Polygon"
	case orb.MultiPolygon:
		return "MultiPolygon"
	default:
		return "Unknown"
	}
}

func (l *Local) GeodesicArea(ctx context.Context, p orb.Polygon) (float64, error) {
	area := geo.Area(p)
	if area < 0 {
		area = -area
	}
	return area, nil
}

func (l *Local) GeodesicLength(ctx context.Context, ls orb.LineString) (float64, error) {
	return geo.LengthHaversine(ls), nil
}

func (l *Local) Simplify(ctx context.Context, g orb.Geometry, tolerance float64) (orb.Geometry, error) {
	dp := simplify.DouglasPeucker(tolerance)
	return dp.Simplify(g), nil
}
