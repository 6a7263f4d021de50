package geobackend

import (
	"context"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x0, y0, x1, y1 float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0},
	}}
}

func geodesicAreaOf(p orb.Polygon) float64 {
	return math.Abs(geo.Area(p))
}

func TestLocalIntersectionOverlappingSquares(t *testing.T) {
	l := NewLocal()
	a := square(0, 0, 2, 2)
	b := square(1, 1, 3, 3)

	got, err := l.Intersection(context.Background(), a, b)
	require.NoError(t, err)

	poly, ok := got.(orb.Polygon)
	require.True(t, ok, "expected a Polygon result, got %T", got)
	area := geodesicAreaOf(poly)
	assert.Greater(t, area, 0.0)

	// the overlap of [0,2]x[0,2] and [1,3]x[1,3] is the unit square [1,2]x[1,2]
	b2, err := l.Boundary(context.Background(), poly)
	require.NoError(t, err)
	require.Len(t, b2, 1)
}

func TestLocalIntersectionLineClippedByPolygon(t *testing.T) {
	l := NewLocal()
	poly := square(0, 0, 1, 1)
	line := orb.LineString{{-1, 0.5}, {2, 0.5}}

	got, err := l.Intersection(context.Background(), line, poly)
	require.NoError(t, err)

	clipped, ok := got.(orb.LineString)
	require.True(t, ok, "expected LineString, got %T", got)
	require.Len(t, clipped, 2)
	assert.InDelta(t, 0.0, clipped[0][0], 1e-9)
	assert.InDelta(t, 1.0, clipped[1][0], 1e-9)
}

func TestLocalIntersectionLineEntirelyInsidePolygon(t *testing.T) {
	l := NewLocal()
	poly := square(0, 0, 1, 1)
	line := orb.LineString{{0.5, 0}, {0.5, 1}}

	got, err := l.Intersection(context.Background(), line, poly)
	require.NoError(t, err)
	clipped, ok := got.(orb.LineString)
	require.True(t, ok)
	assert.Len(t, clipped, 2)
}

func TestLocalIntersectionLineEntirelyOutsidePolygon(t *testing.T) {
	l := NewLocal()
	poly := square(0, 0, 1, 1)
	line := orb.LineString{{5, 5}, {6, 6}}

	got, err := l.Intersection(context.Background(), line, poly)
	require.NoError(t, err)
	clipped, ok := got.(orb.LineString)
	require.True(t, ok)
	assert.Len(t, clipped, 0)
}

func TestLocalIntersectionRejectsConcaveClipPolygon(t *testing.T) {
	l := NewLocal()
	// an L-shaped hexagon, reflex at (1,1).
	concave := orb.Polygon{orb.Ring{
		{0, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 2}, {0, 2}, {0, 0},
	}}
	line := orb.LineString{{-1, 0.5}, {3, 0.5}}

	_, err := l.Intersection(context.Background(), line, concave)
	assert.Error(t, err)
}

func TestLocalIntersectionDisjointSquares(t *testing.T) {
	l := NewLocal()
	a := square(0, 0, 1, 1)
	b := square(5, 5, 6, 6)

	got, err := l.Intersection(context.Background(), a, b)
	require.NoError(t, err)
	poly, ok := got.(orb.Polygon)
	if ok {
		assert.True(t, len(poly) == 0 || len(poly[0]) < 4)
	}
}

func TestLocalUnionAdjacentSquares(t *testing.T) {
	l := NewLocal()
	a := square(0, 0, 1, 1)
	b := square(1, 0, 2, 1)

	got, err := l.Union(context.Background(), a, b)
	require.NoError(t, err)

	poly, ok := got.(orb.Polygon)
	require.True(t, ok, "expected Polygon, got %T", got)

	areaA := geodesicAreaOf(a)
	areaB := geodesicAreaOf(b)
	areaUnion := geodesicAreaOf(poly)
	assert.InDelta(t, areaA+areaB, areaUnion, (areaA+areaB)*0.01)
}

func TestLocalUnionAllThreeInARow(t *testing.T) {
	l := NewLocal()
	geoms := []orb.Geometry{
		square(0, 0, 1, 1),
		square(1, 0, 2, 1),
		square(2, 0, 3, 1),
	}

	got, err := l.UnionAll(context.Background(), geoms)
	require.NoError(t, err)

	var total float64
	switch t := got.(type) {
	case orb.Polygon:
		total = geodesicAreaOf(t)
	case orb.MultiPolygon:
		for _, p := range t {
			total += geodesicAreaOf(p)
		}
	default:
		require.Failf(t, "unexpected type", "%T", got)
	}
	assert.InDelta(t, 3*geodesicAreaOf(square(0, 0, 1, 1)), total, total*0.01)
}

func TestLocalContains(t *testing.T) {
	l := NewLocal()
	p := square(0, 0, 10, 10)

	inside, err := l.Contains(context.Background(), p, orb.Point{5, 5})
	require.NoError(t, err)
	assert.True(t, inside)

	outside, err := l.Contains(context.Background(), p, orb.Point{20, 20})
	require.NoError(t, err)
	assert.False(t, outside)
}

func TestLocalTouchesAdjacentSquaresShareEdge(t *testing.T) {
	l := NewLocal()
	a := square(0, 0, 1, 1)
	b := square(1, 0, 2, 1)
	c := square(5, 5, 6, 6)

	touch, err := l.Touches(context.Background(), a, b)
	require.NoError(t, err)
	assert.True(t, touch)

	noTouch, err := l.Touches(context.Background(), a, c)
	require.NoError(t, err)
	assert.False(t, noTouch)
}

func TestLocalCentroidOfSquare(t *testing.T) {
	l := NewLocal()
	p := square(0, 0, 2, 2)

	c, err := l.Centroid(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c[0], 1e-9)
	assert.InDelta(t, 1.0, c[1], 1e-9)
}

func TestLocalGeodesicAreaPositive(t *testing.T) {
	l := NewLocal()
	// small square near the equator, ~0.01deg on a side.
	p := square(0, 0, 0.01, 0.01)
	area, err := l.GeodesicArea(context.Background(), p)
	require.NoError(t, err)
	assert.Greater(t, area, 0.0)
}

func TestLocalDumpPointsDedupesSharedVertex(t *testing.T) {
	l := NewLocal()
	p := square(0, 0, 1, 1)
	pts, err := l.DumpPoints(context.Background(), p)
	require.NoError(t, err)
	// a closed 5-point ring has 4 distinct vertices.
	assert.Len(t, pts, 4)
}

func TestLocalSegmentizeInsertsVertices(t *testing.T) {
	l := NewLocal()
	p := square(0, 0, 1, 0.0001) // wide, thin rectangle

	dense, err := l.Segmentize(context.Background(), p, 0.1)
	require.NoError(t, err)

	before, err := l.DumpPoints(context.Background(), p)
	require.NoError(t, err)
	after, err := l.DumpPoints(context.Background(), dense)
	require.NoError(t, err)
	assert.Greater(t, len(after), len(before))
}

func TestLocalSimplifyLineString(t *testing.T) {
	l := NewLocal()
	ls := orb.LineString{{0, 0}, {1, 0.0001}, {2, 0}, {3, 0.0001}, {4, 0}}

	simplified, err := l.Simplify(context.Background(), ls, 0.01)
	require.NoError(t, err)
	out, ok := simplified.(orb.LineString)
	require.True(t, ok)
	assert.LessOrEqual(t, len(out), len(ls))
	assert.Equal(t, ls[0], out[0])
	assert.Equal(t, ls[len(ls)-1], out[len(out)-1])
}

func TestLocalGeometryType(t *testing.T) {
	l := NewLocal()
	assert.Equal(t, "Polygon", l.GeometryType(square(0, 0, 1, 1)))
	assert.Equal(t, "LineString", l.GeometryType(orb.LineString{{0, 0}, {1, 1}}))
	assert.Equal(t, "Point", l.GeometryType(orb.Point{0, 0}))
}
