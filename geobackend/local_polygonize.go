package geobackend

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// segKey is a canonical, orientation-independent key for an edge,
// used to detect the shared boundary segments that let dissolveRings
// and sharedBoundaryLength avoid a general polygon-union algorithm:
// this pipeline only ever merges polygons that already tile (S3, S7,
// S9), so every interior edge of the merge appears in exactly two
// input rings and cancels exactly.
type segKey struct {
	ax, ay, bx, by float64
}

func makeSegKey(a, b orb.Point) segKey {
	a, b = snap(a), snap(b)
	if a[0] > b[0] || (a[0] == b[0] && a[1] > b[1]) {
		a, b = b, a
	}
	return segKey{a[0], a[1], b[0], b[1]}
}

// dissolveRings unions a set of rings that tile a region (interior
// disjoint, sharing exact boundary segments) by dropping every edge
// that appears twice and re-polygonizing what remains. It is grounded
// in the same "count edge occurrences, keep the ones seen once"
// technique PostGIS's ST_Union effectively performs for polygon sets,
// without needing a general Boolean-clipping implementation.
func dissolveRings(rings []orb.Ring) ([]orb.Ring, error) {
	if len(rings) == 0 {
		return nil, nil
	}
	if len(rings) == 1 {
		return rings, nil
	}

	counts := make(map[segKey]int)
	segByKey := make(map[segKey][2]orb.Point)
	for _, ring := range rings {
		n := len(ring)
		for i := 0; i < n-1; i++ {
			k := makeSegKey(ring[i], ring[i+1])
			counts[k]++
			segByKey[k] = [2]orb.Point{ring[i], ring[i+1]}
		}
	}

	var kept []orb.LineString
	for k, c := range counts {
		if c == 1 {
			seg := segByKey[k]
			kept = append(kept, orb.LineString{seg[0], seg[1]})
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("dissolveRings: no boundary survived, inputs do not tile")
	}
	return polygonizeSegments(kept)
}

// sharedBoundaryLength returns the planar length of the boundary a and
// b have in common, used by Local.Touches and by splitter adjacency
// building (spec §4.3/§4.9's "shares a boundary of length > 0").
func sharedBoundaryLength(a, b orb.Ring) float64 {
	segA := make(map[segKey][2]orb.Point)
	na := len(a)
	for i := 0; i < na-1; i++ {
		segA[makeSegKey(a[i], a[i+1])] = [2]orb.Point{a[i], a[i+1]}
	}
	var total float64
	nb := len(b)
	for i := 0; i < nb-1; i++ {
		k := makeSegKey(b[i], b[i+1])
		if seg, ok := segA[k]; ok {
			dx := seg[0][0] - seg[1][0]
			dy := seg[0][1] - seg[1][1]
			total += math.Hypot(dx, dy)
		}
	}
	return total
}

// Polygonize builds bounded faces from a noded set of linestrings
// using planar-graph face tracing: at each vertex, outgoing half-edges
// are ordered by angle, and the face to the left of each half-edge is
// traced by always continuing along the next half-edge clockwise from
// the reverse of the one just traversed. Bounded faces trace out with
// positive signed area; the single unbounded face (or faces, if the
// linework isn't one connected piece) traces out negative and is
// dropped. This is the standard technique JTS's Polygonizer and
// comparable PostGIS-side tooling use; it needs no external geometry
// engine.
func (l *Local) Polygonize(ctx context.Context, lines []orb.LineString) ([]orb.Polygon, error) {
	rings, err := polygonizeSegments(lines)
	if err != nil {
		return nil, err
	}
	out := make([]orb.Polygon, len(rings))
	for i, r := range rings {
		out[i] = orb.Polygon{r}
	}
	return out, nil
}

type halfEdge struct {
	from, to orb.Point
	angle    float64
	used     bool
	twin     int // index of the reverse half-edge
}

func polygonizeSegments(lines []orb.LineString) ([]orb.Ring, error) {
	atomic := nodeLineStrings(lines)

	var edges []halfEdge
	adj := make(map[orb.Point][]int) // vertex -> indices into edges, outgoing

	addEdge := func(a, b orb.Point) int {
		idx := len(edges)
		edges = append(edges, halfEdge{from: snap(a), to: snap(b), angle: math.Atan2(b[1]-a[1], b[0]-a[0])})
		adj[snap(a)] = append(adj[snap(a)], idx)
		return idx
	}

	seen := make(map[segKey]struct{})
	for _, ls := range atomic {
		for i := 0; i+1 < len(ls); i++ {
			a, b := ls[i], ls[i+1]
			if pointsEqual(a, b) {
				continue
			}
			k := makeSegKey(a, b)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			i1 := addEdge(a, b)
			i2 := addEdge(b, a)
			edges[i1].twin = i2
			edges[i2].twin = i1
		}
	}

	for v, idxs := range adj {
		sort.Slice(idxs, func(i, j int) bool { return edges[idxs[i]].angle < edges[idxs[j]].angle })
		adj[v] = idxs
	}

	var faces [][]orb.Point
	for start := range edges {
		if edges[start].used {
			continue
		}
		var ring []orb.Point
		cur := start
		for {
			e := &edges[cur]
			e.used = true
			ring = append(ring, e.from)
			// Next half-edge: from e.to, pick the one immediately
			// clockwise from the twin of the edge just used, i.e. the
			// entry before twin in the angle-sorted list at e.to.
			twin := edges[cur].twin
			nbrs := adj[e.to]
			pos := indexOf(nbrs, twin)
			next := nbrs[(pos-1+len(nbrs))%len(nbrs)]
			cur = next
			if cur == start {
				break
			}
			if len(ring) > len(edges)+1 {
				return nil, fmt.Errorf("polygonizeSegments: face trace did not close, linework is not a valid planar subdivision")
			}
		}
		if len(ring) < 3 {
			continue
		}
		faces = append(faces, ring)
	}

	var out []orb.Ring
	for _, f := range faces {
		r := closeRing(f)
		area := ringSignedArea(r)
		if area <= 1e-18 {
			continue // unbounded or degenerate face
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("polygonizeSegments: no bounded face found")
	}
	return out, nil
}

func indexOf(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

// nodeLineStrings splits every input linestring at every point where
// it properly crosses another, and at every point where another
// segment's endpoint lies in its interior (a T-junction, e.g. a
// splitter ending on the AOI boundary), so the result only meets at
// shared endpoints (a precondition for Polygonize's face tracing).
// Collinear overlap is not split specially; the pipeline never feeds
// overlapping-but-not-identical collinear splitters.
func nodeLineStrings(lines []orb.LineString) []orb.LineString {
	type segment struct {
		p0, p1 orb.Point
		ts     []float64
	}
	var segs []segment
	for _, ls := range lines {
		for i := 0; i+1 < len(ls); i++ {
			segs = append(segs, segment{p0: ls[i], p1: ls[i+1], ts: []float64{0, 1}})
		}
	}

	onInterior := func(s segment, q orb.Point) (float64, bool) {
		dx, dy := s.p1[0]-s.p0[0], s.p1[1]-s.p0[1]
		t := ((q[0]-s.p0[0])*dx + (q[1]-s.p0[1])*dy) / (dx*dx + dy*dy)
		return t, math.Abs(cross2(s.p0, s.p1, q)) <= 1e-12 && t > 1e-9 && t < 1-1e-9
	}

	for i := range segs {
		for j := i + 1; j < len(segs); j++ {
			if t1, t2, ok := properSegmentIntersect(segs[i].p0, segs[i].p1, segs[j].p0, segs[j].p1); ok {
				segs[i].ts = append(segs[i].ts, t1)
				segs[j].ts = append(segs[j].ts, t2)
			}
			for _, q := range [2]orb.Point{segs[j].p0, segs[j].p1} {
				if t, ok := onInterior(segs[i], q); ok {
					segs[i].ts = append(segs[i].ts, t)
				}
			}
			for _, q := range [2]orb.Point{segs[i].p0, segs[i].p1} {
				if t, ok := onInterior(segs[j], q); ok {
					segs[j].ts = append(segs[j].ts, t)
				}
			}
		}
	}

	out := make([]orb.LineString, 0, len(segs))
	for _, s := range segs {
		sort.Float64s(s.ts)
		var ls orb.LineString
		prev := -1.0
		for _, t := range s.ts {
			if t == prev {
				continue
			}
			prev = t
			ls = append(ls, orb.Point{
				s.p0[0] + t*(s.p1[0]-s.p0[0]),
				s.p0[1] + t*(s.p1[1]-s.p0[1]),
			})
		}
		for i := 0; i+1 < len(ls); i++ {
			out = append(out, orb.LineString{ls[i], ls[i+1]})
		}
	}
	return out
}

// properSegmentIntersect returns the parametric positions (t1 along
// p0-p1, t2 along p2-p3) where two segments cross at an interior
// point of both, or ok=false if they don't properly cross.
func properSegmentIntersect(p0, p1, p2, p3 orb.Point) (float64, float64, bool) {
	d1 := cross2(p2, p3, p0)
	d2 := cross2(p2, p3, p1)
	d3 := cross2(p0, p1, p2)
	d4 := cross2(p0, p1, p3)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		t1 := d1 / (d1 - d2)
		t2 := d3 / (d3 - d4)
		return t1, t2, true
	}
	return 0, 0, false
}

// LineMerge joins linestrings sharing endpoints into maximal simple
// chains (spec §4.8 Simplify's prerequisite union/merge step).
func (l *Local) LineMerge(ctx context.Context, lines []orb.LineString) ([]orb.LineString, error) {
	type chain struct {
		pts  []orb.Point
		used bool
	}
	chains := make([]*chain, len(lines))
	for i, ls := range lines {
		pts := append([]orb.Point(nil), ls...)
		chains[i] = &chain{pts: pts}
	}

	endIndex := func(p orb.Point) orb.Point { return snap(p) }

	changed := true
	for changed {
		changed = false
		for i, ci := range chains {
			if ci == nil || ci.used {
				continue
			}
			for j, cj := range chains {
				if i == j || cj == nil || cj.used {
					continue
				}
				if endIndex(ci.pts[len(ci.pts)-1]) == endIndex(cj.pts[0]) {
					ci.pts = append(ci.pts, cj.pts[1:]...)
					cj.used = true
					changed = true
				} else if endIndex(ci.pts[len(ci.pts)-1]) == endIndex(cj.pts[len(cj.pts)-1]) {
					rev := reversePoints(cj.pts)
					ci.pts = append(ci.pts, rev[1:]...)
					cj.used = true
					changed = true
				} else if endIndex(ci.pts[0]) == endIndex(cj.pts[len(cj.pts)-1]) {
					ci.pts = append(append([]orb.Point(nil), cj.pts...), ci.pts[1:]...)
					cj.used = true
					changed = true
				} else if endIndex(ci.pts[0]) == endIndex(cj.pts[0]) {
					ci.pts = append(reversePoints(cj.pts), ci.pts[1:]...)
					cj.used = true
					changed = true
				}
			}
		}
	}

	var out []orb.LineString
	for _, c := range chains {
		if c != nil && !c.used {
			out = append(out, orb.LineString(c.pts))
		}
	}
	return out, nil
}

func reversePoints(pts []orb.Point) []orb.Point {
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}
