package splitter

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotosm/fmtm-splitter-go/geobackend"
)

func TestNewAdjacencyGraphConnectsOnlySharedEdges(t *testing.T) {
	backend := geobackend.NewLocal()
	geoms := map[int]orb.Polygon{
		0: square(0, 0, 1, 1),
		1: square(1, 0, 2, 1),
		2: square(2, 0, 3, 1),
	}

	g, err := NewAdjacencyGraph(context.Background(), backend, []int{0, 1, 2}, geoms)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, g.Neighbors(0))
	assert.Equal(t, []int{0, 2}, g.Neighbors(1))
	assert.Equal(t, []int{1}, g.Neighbors(2))
}

func TestAdjacencyGraphMergeRewiresAndTombstones(t *testing.T) {
	backend := geobackend.NewLocal()
	geoms := map[int]orb.Polygon{
		0: square(0, 0, 1, 1),
		1: square(1, 0, 2, 1),
		2: square(2, 0, 3, 1),
	}

	g, err := NewAdjacencyGraph(context.Background(), backend, []int{0, 1, 2}, geoms)
	require.NoError(t, err)

	// merge 1 into 0: 0 should inherit 1's edge to 2, 1 should be gone.
	g.Merge(0, 1)

	assert.Equal(t, []int{2}, g.Neighbors(0))
	assert.Equal(t, []int{0}, g.Neighbors(2))
	assert.Empty(t, g.Neighbors(1))
}

func TestChooseMergeTargetPrefersMostFeaturesByDefault(t *testing.T) {
	backend := geobackend.NewLocal()
	geoms := map[int]orb.Polygon{
		0: square(0, 0, 1, 1),
		1: square(1, 0, 2, 1),
		2: square(1, 1, 2, 2),
	}
	// 1 is adjacent to both 0 and 2.
	g, err := NewAdjacencyGraph(context.Background(), backend, []int{0, 1, 2}, geoms)
	require.NoError(t, err)

	featureCount := map[int]int{0: 3, 2: 9}
	area := map[int]float64{0: 1, 2: 1}
	cfg := DefaultConfig()

	target := g.ChooseMergeTarget(1, featureCount, area, cfg)
	require.True(t, target.Found)
	assert.Equal(t, 2, target.ID)
}

func TestChooseMergeTargetFewestFeaturesInvertsPreference(t *testing.T) {
	backend := geobackend.NewLocal()
	geoms := map[int]orb.Polygon{
		0: square(0, 0, 1, 1),
		1: square(1, 0, 2, 1),
		2: square(1, 1, 2, 2),
	}
	g, err := NewAdjacencyGraph(context.Background(), backend, []int{0, 1, 2}, geoms)
	require.NoError(t, err)

	featureCount := map[int]int{0: 3, 2: 9}
	area := map[int]float64{0: 1, 2: 1}
	cfg := DefaultConfig()
	cfg.MergeByFewestFeatures = true

	target := g.ChooseMergeTarget(1, featureCount, area, cfg)
	require.True(t, target.Found)
	assert.Equal(t, 0, target.ID)
}

func TestChooseMergeTargetTiesBreakOnAreaThenID(t *testing.T) {
	backend := geobackend.NewLocal()
	geoms := map[int]orb.Polygon{
		0: square(0, 0, 1, 1),
		1: square(1, 0, 2, 1),
		2: square(1, 1, 2, 2),
	}
	g, err := NewAdjacencyGraph(context.Background(), backend, []int{0, 1, 2}, geoms)
	require.NoError(t, err)

	// equal feature counts: the tie breaks on larger area.
	featureCount := map[int]int{0: 5, 2: 5}
	area := map[int]float64{0: 10, 2: 20}
	cfg := DefaultConfig()

	target := g.ChooseMergeTarget(1, featureCount, area, cfg)
	require.True(t, target.Found)
	assert.Equal(t, 2, target.ID)

	// equal feature counts and equal area: the tie breaks on lower id.
	area[0] = 20
	target = g.ChooseMergeTarget(1, featureCount, area, cfg)
	require.True(t, target.Found)
	assert.Equal(t, 0, target.ID)
}

func TestChooseMergeTargetNoNeighboursReturnsNotFound(t *testing.T) {
	backend := geobackend.NewLocal()
	geoms := map[int]orb.Polygon{
		0: square(0, 0, 1, 1),
		5: square(10, 10, 11, 11),
	}
	g, err := NewAdjacencyGraph(context.Background(), backend, []int{0, 5}, geoms)
	require.NoError(t, err)

	target := g.ChooseMergeTarget(0, nil, nil, DefaultConfig())
	assert.False(t, target.Found)
}

func TestDissolveTwoUnionsAdjacentSquares(t *testing.T) {
	backend := geobackend.NewLocal()
	a := square(0, 0, 1, 1)
	b := square(1, 0, 2, 1)

	merged, err := dissolveTwo(context.Background(), backend, a, b)
	require.NoError(t, err)

	area, err := backend.GeodesicArea(context.Background(), merged)
	require.NoError(t, err)
	areaA, err := backend.GeodesicArea(context.Background(), a)
	require.NoError(t, err)
	areaB, err := backend.GeodesicArea(context.Background(), b)
	require.NoError(t, err)
	assert.InDelta(t, areaA+areaB, area, (areaA+areaB)*0.01)
}
