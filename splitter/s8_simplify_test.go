package splitter

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestUniqueSegmentsDedupesSharedEdgeRegardlessOfDirection(t *testing.T) {
	// two triangles sharing the edge (1,0)-(1,1), traversed in opposite
	// directions by each triangle's boundary.
	a := orb.LineString{{0, 0}, {1, 0}, {1, 1}, {0, 0}}
	b := orb.LineString{{2, 0}, {1, 1}, {1, 0}, {2, 0}}

	out := uniqueSegments([]orb.LineString{a, b})

	// 3 edges from a + 3 edges from b, minus the shared edge counted once
	// instead of twice: 5 unique segments total.
	assert.Len(t, out, 5)
}

func TestUniqueSegmentsKeepsDistinctSegmentsSeparate(t *testing.T) {
	a := orb.LineString{{0, 0}, {1, 0}}
	b := orb.LineString{{5, 5}, {6, 6}}

	out := uniqueSegments([]orb.LineString{a, b})
	assert.Len(t, out, 2)
}

func TestUniqueSegmentsDoesNotCancelOppositeEdgesAway(t *testing.T) {
	// this is the behavior S8 relies on: unlike a dissolve/XOR operation
	// that would cancel two opposing copies of the same edge to nothing,
	// uniqueSegments keeps exactly one copy so the shared boundary still
	// appears in the re-polygonized linework.
	edge := orb.LineString{{1, 0}, {1, 1}}
	reversed := orb.LineString{{1, 1}, {1, 0}}

	out := uniqueSegments([]orb.LineString{edge, reversed})
	assert.Len(t, out, 1)
}
