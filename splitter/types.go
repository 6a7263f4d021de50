// Package splitter implements the feature-aware AOI splitting pipeline:
// nine stages that turn an Area of Interest polygon, a set of linear
// splitters, and a set of building footprints into a tiling of task
// polygons sized for field survey assignment.
package splitter

import (
	"strconv"

	"github.com/paulmach/orb"
)

// AOI is the Area of Interest to split. Multipolygon inputs are reduced
// to their convex hull before the pipeline runs (spec: §3 AOI invariant).
type AOI struct {
	Polygon orb.Polygon
	// Multi is true when the original input was a MultiPolygon and
	// Polygon is therefore a convex hull rather than the literal input.
	Multi bool
}

// SplitLine is a candidate linear feature (highway/waterway/railway).
// LineSplit filters it by the configured tag predicate and clips it to
// the AOI.
type SplitLine struct {
	ID   int
	Geom orb.LineString
	Tags map[string]string
}

// Feature is a mappable object (typically a building footprint).
type Feature struct {
	ID       int
	Geom     orb.Polygon
	Tags     map[string]string
	Centroid orb.Point

	// PolyID (S2) and ClusterID/HasCluster (S4) are filled in as the
	// feature moves through the pipeline.
	PolyID     int
	ClusterID  int
	HasCluster bool
}

// SubPolygon is a region of the AOI produced by S1-S3: bounded by
// SplitLines and/or the AOI boundary, carrying a stable integer id, a
// feature count, and a geodesic area.
type SubPolygon struct {
	PolyID int
	Geom   orb.Polygon
	N      int
	Area   float64 // geodesic square meters

	// Tombstoned marks a SubPolygon absorbed into a neighbour by
	// LowCountMerge; tombstoned polygons are skipped by later stages.
	Tombstoned bool
}

// ClusterUID renders the composite "polyid-cid" identifier from spec §3.
func ClusterUID(polyID, cid int) string {
	return strconv.Itoa(polyID) + "-" + strconv.Itoa(cid)
}

// VoronoiPoint is a densified perimeter point carrying the identity of
// the feature/cluster/sub-polygon it was generated from (S5 output).
type VoronoiPoint struct {
	Point      orb.Point
	PolyID     int
	ClusterID  int
	ClusterUID string
}

// VoronoiCell is a single Voronoi cell clipped to its containing
// SubPolygon, tagged with the generator's cluster identity (S6 output).
type VoronoiCell struct {
	Geom       orb.Polygon
	PolyID     int
	ClusterID  int
	ClusterUID string
}

// PreliminaryPolygon is one cluster's dissolved Voronoi territory (S7
// output), before boundary simplification.
type PreliminaryPolygon struct {
	ClusterUID string
	Geom       orb.Polygon
}

// TaskPolygon is a final output polygon with a stable integer id (S8/S9
// output and the pipeline's ultimate result).
type TaskPolygon struct {
	TaskID        int
	Geom          orb.Polygon
	BuildingCount int

	Tombstoned bool
}

