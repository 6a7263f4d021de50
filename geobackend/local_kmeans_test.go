package geobackend

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKMeansClusterSeparatesTwoTightGroups(t *testing.T) {
	l := NewLocal()
	points := []orb.Point{
		{0, 0}, {0.01, 0}, {0, 0.01}, {0.01, 0.01},
		{10, 10}, {10.01, 10}, {10, 10.01}, {10.01, 10.01},
	}

	assign, err := l.KMeansCluster(context.Background(), points, 2, 42)
	require.NoError(t, err)
	require.Len(t, assign, len(points))

	group0 := assign[0]
	for i := 0; i < 4; i++ {
		assert.Equal(t, group0, assign[i], "point %d should share the first group's cluster", i)
	}
	group1 := assign[4]
	for i := 4; i < 8; i++ {
		assert.Equal(t, group1, assign[i], "point %d should share the second group's cluster", i)
	}
	assert.NotEqual(t, group0, group1)
}

func TestKMeansClusterDeterministicForFixedSeed(t *testing.T) {
	l := NewLocal()
	points := []orb.Point{
		{0, 0}, {1, 0}, {0, 1}, {5, 5}, {6, 5}, {5, 6}, {12, 0}, {13, 1},
	}

	first, err := l.KMeansCluster(context.Background(), points, 3, 7)
	require.NoError(t, err)
	second, err := l.KMeansCluster(context.Background(), points, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestKMeansClusterKGreaterThanNAssignsOnePerPoint(t *testing.T) {
	l := NewLocal()
	points := []orb.Point{{0, 0}, {1, 1}, {2, 2}}

	assign, err := l.KMeansCluster(context.Background(), points, 5, 1)
	require.NoError(t, err)
	require.Len(t, assign, 3)

	seen := make(map[int]bool)
	for _, c := range assign {
		assert.False(t, seen[c], "cluster index %d reused", c)
		seen[c] = true
	}
}
