package geobackend

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolygonizeSingleSquare(t *testing.T) {
	l := NewLocal()
	ring := orb.LineString{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}

	polys, err := l.Polygonize(context.Background(), []orb.LineString{ring})
	require.NoError(t, err)
	require.Len(t, polys, 1)
	assert.InDelta(t, geodesicAreaOf(orb.Polygon{orb.Ring(ring)}), geodesicAreaOf(polys[0]), 1e-6)
}

func TestPolygonizeSquareBisectedByLine(t *testing.T) {
	l := NewLocal()
	boundary := orb.LineString{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}
	splitter := orb.LineString{{1, 0}, {1, 2}}

	polys, err := l.Polygonize(context.Background(), []orb.LineString{boundary, splitter})
	require.NoError(t, err)
	require.Len(t, polys, 2)

	total := geodesicAreaOf(polys[0]) + geodesicAreaOf(polys[1])
	whole := geodesicAreaOf(orb.Polygon{orb.Ring(boundary)})
	assert.InDelta(t, whole, total, whole*0.01)
}

func TestPolygonizeGridOfFourCells(t *testing.T) {
	l := NewLocal()
	boundary := orb.LineString{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}
	vSplit := orb.LineString{{1, 0}, {1, 2}}
	hSplit := orb.LineString{{0, 1}, {2, 1}}

	polys, err := l.Polygonize(context.Background(), []orb.LineString{boundary, vSplit, hSplit})
	require.NoError(t, err)
	assert.Len(t, polys, 4)
}

func TestLineMergeJoinsChain(t *testing.T) {
	l := NewLocal()
	lines := []orb.LineString{
		{{0, 0}, {1, 0}},
		{{1, 0}, {2, 0}},
		{{2, 0}, {3, 0}},
	}

	merged, err := l.LineMerge(context.Background(), lines)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, orb.Point{0, 0}, merged[0][0])
	assert.Equal(t, orb.Point{3, 0}, merged[0][len(merged[0])-1])
}

func TestLineMergeKeepsDisjointSegmentsSeparate(t *testing.T) {
	l := NewLocal()
	lines := []orb.LineString{
		{{0, 0}, {1, 0}},
		{{10, 10}, {11, 10}},
	}

	merged, err := l.LineMerge(context.Background(), lines)
	require.NoError(t, err)
	assert.Len(t, merged, 2)
}
