package splitter

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestMetersToDegreesIsPositiveAndSmallAtEquator(t *testing.T) {
	d := metersToDegrees(orb.Point{0, 0}, 100)
	assert.Greater(t, d, 0.0)
	assert.Less(t, d, 0.01) // 100m is roughly 0.0009 degrees at the equator
}

func TestMetersToDegreesGrowsWithDistance(t *testing.T) {
	short := metersToDegrees(orb.Point{0, 0}, 10)
	long := metersToDegrees(orb.Point{0, 0}, 1000)
	assert.Less(t, short, long)
}

func TestRingCentroidOfSquare(t *testing.T) {
	ring := orb.Ring{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}
	c := ringCentroid(ring)
	assert.InDelta(t, 1.0, c[0], 1e-9)
	assert.InDelta(t, 1.0, c[1], 1e-9)
}

func TestRingCentroidDegenerateFallsBackToAverage(t *testing.T) {
	// a zero-area "ring": three collinear points.
	ring := orb.Ring{{0, 0}, {1, 0}, {2, 0}}
	c := ringCentroid(ring)
	assert.InDelta(t, 1.0, c[0], 1e-9)
	assert.InDelta(t, 0.0, c[1], 1e-9)
}

func TestGeodesicAreaOfUnitSquareIsPositive(t *testing.T) {
	p := orb.Polygon{orb.Ring{{0, 0}, {0.01, 0}, {0.01, 0.01}, {0, 0.01}, {0, 0}}}
	assert.Greater(t, geodesicAreaOf(p), 0.0)
}
