package splitter

import (
	"context"
	"sort"

	"github.com/paulmach/orb"

	"github.com/hotosm/fmtm-splitter-go/geobackend"
)

// LineSplit is S1: it intersects every candidate SplitLine with the
// AOI, nodes the surviving linework together with the AOI boundary,
// and polygonizes the result into SubPolygons (spec §4.1). An empty
// or wholly-non-intersecting splitter set degrades to a single
// SubPolygon equal to the AOI, returning ErrNoLinearSplitters so the
// caller can record the degenerate-case metadata spec §8's boundary
// behaviors call for.
func LineSplit(ctx context.Context, backend geobackend.Backend, aoi AOI, lines []SplitLine, predicate SplitPredicate) ([]SubPolygon, error) {
	var clipped []orb.LineString
	for _, l := range lines {
		if !predicate(l.Tags) {
			continue
		}
		inter, err := backend.Intersection(ctx, l.Geom, aoi.Polygon)
		if err != nil {
			return nil, err
		}
		for _, ls := range flattenToLines(inter) {
			if len(ls) >= 2 {
				clipped = append(clipped, ls)
			}
		}
	}

	boundary, err := backend.Boundary(ctx, aoi.Polygon)
	if err != nil {
		return nil, err
	}

	if len(clipped) == 0 {
		return []SubPolygon{singleSubPolygon(aoi)}, ErrNoLinearSplitters
	}

	linework := append(append([]orb.LineString(nil), clipped...), boundary...)
	polys, err := backend.Polygonize(ctx, linework)
	if err != nil {
		return nil, err
	}
	if len(polys) == 0 {
		return []SubPolygon{singleSubPolygon(aoi)}, ErrNoLinearSplitters
	}

	sortPolygonsByRepresentativePoint(polys)

	out := make([]SubPolygon, len(polys))
	for i, p := range polys {
		out[i] = SubPolygon{PolyID: i, Geom: p}
	}
	return out, nil
}

func singleSubPolygon(aoi AOI) SubPolygon {
	return SubPolygon{PolyID: 0, Geom: aoi.Polygon}
}

func flattenToLines(g orb.Geometry) []orb.LineString {
	switch t := g.(type) {
	case orb.LineString:
		return []orb.LineString{t}
	case orb.MultiLineString:
		return []orb.LineString(t)
	default:
		return nil
	}
}

// sortPolygonsByRepresentativePoint imposes a stable ordering on
// polygonization output (spec §9, "determinism over dynamic
// primitives": Polygonize's face order is a traversal artifact, not a
// promised contract), ranking by each polygon's lowest-left vertex.
func sortPolygonsByRepresentativePoint(polys []orb.Polygon) {
	sort.Slice(polys, func(i, j int) bool {
		a, b := lowestLeftVertex(polys[i]), lowestLeftVertex(polys[j])
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		return a[1] < b[1]
	})
}

func lowestLeftVertex(p orb.Polygon) orb.Point {
	if len(p) == 0 || len(p[0]) == 0 {
		return orb.Point{}
	}
	best := p[0][0]
	for _, v := range p[0][1:] {
		if v[0] < best[0] || (v[0] == best[0] && v[1] < best[1]) {
			best = v
		}
	}
	return best
}
