package splitter

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// metersToDegrees converts a meter-valued threshold to degrees at the
// given reference point, using the geodesic east-west relationship at
// that latitude (spec §9, "Meters vs degrees"). Thresholds must never
// be assumed equal in degrees regardless of latitude.
func metersToDegrees(at orb.Point, meters float64) float64 {
	east := geo.PointAtBearingAndDistance(at, 90, meters)
	return east[0] - at[0]
}

// ringCentroid computes the planar centroid of a closed ring using the
// standard signed-area formula. No library in the retrieved pack
// exposes polygon centroid as a pure function (the backend's Centroid
// primitive is used for all geometry that actually goes through a
// backend instance); this one is needed standalone by code that only
// has a bare orb.Ring, e.g. picking a representative point before a
// backend connection exists.
func ringCentroid(ring orb.Ring) orb.Point {
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
		cross := p0[0]*p1[1] - p1[0]*p0[1]
		areaSum += cross
		cx += (p0[0] + p1[0]) * cross
		cy += (p0[1] + p1[1]) * cross
	}
	if areaSum == 0 {
		// Degenerate (zero-area) ring: fall back to the vertex average.
		var sx, sy float64
		for _, p := range ring {
			sx += p[0]
			sy += p[1]
		}
		return orb.Point{sx / float64(n), sy / float64(n)}
	}
	areaSum *= 0.5
	cx /= 6 * areaSum
	cy /= 6 * areaSum
	return orb.Point{cx, cy}
}

// geodesicAreaOf returns the geodesic area of p without a backend round
// trip. The pipeline stages themselves measure area through
// Backend.GeodesicArea; only this package's tests call this helper.
func geodesicAreaOf(p orb.Polygon) float64 {
	area := geo.Area(p)
	if area < 0 {
		area = -area
	}
	return area
}
