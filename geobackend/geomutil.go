package geobackend

import (
	"math"

	"github.com/paulmach/orb"
)

// snapPrecision is the coordinate-grid snap applied when comparing
// vertices for equality. It keeps numerically-close intersection
// points (the "Voronoi numerical-robustness floor" spec §9 refers to)
// from being treated as distinct graph nodes.
const snapPrecision = 1e9

func snap(p orb.Point) orb.Point {
	return orb.Point{
		math.Round(p[0]*snapPrecision) / snapPrecision,
		math.Round(p[1]*snapPrecision) / snapPrecision,
	}
}

func pointsEqual(a, b orb.Point) bool {
	return snap(a) == snap(b)
}

// cross2 returns the z-component of (b-a) x (c-a).
func cross2(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// ringSignedArea returns the shoelace signed area (positive for CCW).
func ringSignedArea(ring orb.Ring) float64 {
	var sum float64
	n := len(ring)
	for i := 0; i < n; i++ {
		p0 := ring[i]
		p1 := ring[(i+1)%n]
		sum += p0[0]*p1[1] - p1[0]*p0[1]
	}
	return sum / 2
}

// ensureCCW returns ring unchanged if it winds counter-clockwise, or
// reversed otherwise.
func ensureCCW(ring orb.Ring) orb.Ring {
	if ringSignedArea(ring) >= 0 {
		return ring
	}
	rev := make(orb.Ring, len(ring))
	for i, p := range ring {
		rev[len(ring)-1-i] = p
	}
	return rev
}

func closeRing(pts []orb.Point) orb.Ring {
	if len(pts) == 0 {
		return nil
	}
	if !pointsEqual(pts[0], pts[len(pts)-1]) {
		pts = append(pts, pts[0])
	}
	return orb.Ring(pts)
}

// segmentLineIntersect finds the parametric point where segment p0->p1
// crosses the infinite line through a->b, returning (point, ok). ok is
// false when the segment is parallel to the line.
func segmentLineIntersect(p0, p1, a, b orb.Point) (orb.Point, bool) {
	d1 := cross2(a, b, p0)
	d2 := cross2(a, b, p1)
	denom := d1 - d2
	if denom == 0 {
		return orb.Point{}, false
	}
	t := d1 / denom
	return orb.Point{
		p0[0] + t*(p1[0]-p0[0]),
		p0[1] + t*(p1[1]-p0[1]),
	}, true
}

// clipKeepLeft runs one Sutherland-Hodgman pass of subject against the
// infinite line through a->b, keeping the half-plane to the left of
// a->b (cross2(a,b,p) >= 0). subject need not be convex; a->b (the
// clip edge) must bound a convex region when iterated across a full
// convex clip polygon's edges, which is the only way this is used.
func clipKeepLeft(subject orb.Ring, a, b orb.Point) orb.Ring {
	n := len(subject)
	if n == 0 {
		return nil
	}
	var out []orb.Point
	for i := 0; i < n; i++ {
		cur := subject[i]
		prev := subject[(i-1+n)%n]
		curIn := cross2(a, b, cur) >= -1e-12
		prevIn := cross2(a, b, prev) >= -1e-12
		if curIn {
			if !prevIn {
				if ip, ok := segmentLineIntersect(prev, cur, a, b); ok {
					out = append(out, ip)
				}
			}
			out = append(out, cur)
		} else if prevIn {
			if ip, ok := segmentLineIntersect(prev, cur, a, b); ok {
				out = append(out, ip)
			}
		}
	}
	return closeRing(out)
}

// polygonClipConvex clips subject (any simple ring) against clip (a
// convex ring), returning the intersection. This is the only general
// polygon/polygon intersection this backend needs: S6 always clips an
// arbitrary SubPolygon against a Voronoi cell, and Voronoi cells are
// convex by construction (Local.Voronoi narrows each cell with
// clipKeepLeft).
func polygonClipConvex(subject orb.Ring, clip orb.Ring) orb.Ring {
	clip = ensureCCW(clip)
	out := subject
	n := len(clip)
	for i := 0; i < n-1 && len(out) > 0; i++ {
		out = clipKeepLeft(out, clip[i], clip[i+1])
	}
	return out
}

// clipRunsKeepLeft runs one Sutherland-Hodgman pass of a set of open
// polyline runs against the infinite line through a->b, keeping the
// half-plane to the left of a->b. Each input run is treated as open
// (no wrap-around edge), and a run that exits and re-enters the
// half-plane is split into separate output runs rather than
// incorrectly joined across the gap.
func clipRunsKeepLeft(runs [][]orb.Point, a, b orb.Point) [][]orb.Point {
	var outRuns [][]orb.Point
	for _, run := range runs {
		var cur []orb.Point
		for i, p := range run {
			in := cross2(a, b, p) >= -1e-12
			if i > 0 {
				prev := run[i-1]
				prevIn := cross2(a, b, prev) >= -1e-12
				if prevIn != in {
					if ip, ok := segmentLineIntersect(prev, p, a, b); ok {
						cur = append(cur, ip)
					}
					if !in {
						outRuns = append(outRuns, cur)
						cur = nil
					}
				}
			}
			if in {
				cur = append(cur, p)
			}
		}
		if len(cur) >= 2 {
			outRuns = append(outRuns, cur)
		}
	}
	return outRuns
}

// polylineClipConvex clips an open line against clip, a ring the
// caller has already confirmed is convex (intersectLineAndPolygon
// rejects a concave clip ring before calling this), returning every
// contiguous sub-line inside clip's interior.
func polylineClipConvex(line orb.LineString, clip orb.Ring) []orb.LineString {
	clip = ensureCCW(clip)
	runs := [][]orb.Point{[]orb.Point(line)}
	n := len(clip)
	for i := 0; i < n-1 && len(runs) > 0; i++ {
		runs = clipRunsKeepLeft(runs, clip[i], clip[i+1])
	}
	out := make([]orb.LineString, 0, len(runs))
	for _, r := range runs {
		if len(r) >= 2 {
			out = append(out, orb.LineString(r))
		}
	}
	return out
}

func boundToRing(b orb.Bound) orb.Ring {
	return orb.Ring{
		{b.Min[0], b.Min[1]},
		{b.Max[0], b.Min[1]},
		{b.Max[0], b.Max[1]},
		{b.Min[0], b.Max[1]},
		{b.Min[0], b.Min[1]},
	}
}

func boundOf(points []orb.Point) orb.Bound {
	if len(points) == 0 {
		return orb.Bound{}
	}
	b := orb.Bound{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b = b.Extend(p)
	}
	return b
}
