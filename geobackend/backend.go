// Package geobackend implements the geometry backend contract of
// spec §6.4: every primitive the splitter pipeline needs (boolean set
// operations, polygonization, line-merge, densify, Voronoi, k-means
// clustering, spatial predicates, geodesic measures, and Douglas-Peucker
// simplification), behind one Backend interface with two
// implementations — a PostGIS-backed one (Postgres) issuing the `ST_*`
// SQL equivalent of each primitive, and a pure-Go in-process one
// (Local) for environments with no database, used by the splitter
// package's own tests.
package geobackend

import (
	"context"

	"github.com/paulmach/orb"
)

// Backend is the geometry backend contract required by the splitter
// pipeline (spec §6.4). All methods take a context so a PostGIS-backed
// implementation can honor cancellation/timeouts on the SQL round trip;
// the in-process implementation only checks ctx.Err() in Intersection,
// Union/UnionAll and Difference, and otherwise ignores it.
type Backend interface {
	// Intersection returns a ∩ b.
	Intersection(ctx context.Context, a, b orb.Geometry) (orb.Geometry, error)
	// Union returns the 2-ary union a ∪ b.
	Union(ctx context.Context, a, b orb.Geometry) (orb.Geometry, error)
	// UnionAll returns the aggregate union of geoms, in input order.
	// Determinism requires callers to supply geoms in stable sorted
	// order (spec §9, "Determinism over dynamic primitives").
	UnionAll(ctx context.Context, geoms []orb.Geometry) (orb.Geometry, error)
	// Difference returns a - b.
	Difference(ctx context.Context, a, b orb.Geometry) (orb.Geometry, error)
	// Boundary returns the topological boundary of g as one or more
	// linestrings.
	Boundary(ctx context.Context, g orb.Geometry) ([]orb.LineString, error)
	// Polygonize builds faces from a noded set of linestrings,
	// returning one polygon per bounded face in a deterministic
	// (insertion/traversal) order.
	Polygonize(ctx context.Context, lines []orb.LineString) ([]orb.Polygon, error)
	// LineMerge merges a set of linestrings into a maximal set of
	// simple linestrings, joining at shared endpoints.
	LineMerge(ctx context.Context, lines []orb.LineString) ([]orb.LineString, error)
	// Dump decomposes a (possibly multi-) geometry into its single
	// component geometries.
	Dump(ctx context.Context, g orb.Geometry) ([]orb.Geometry, error)
	// DumpPoints returns every vertex of g as a point, in ring/line
	// traversal order with duplicates removed.
	DumpPoints(ctx context.Context, g orb.Geometry) ([]orb.Point, error)
	// Segmentize ("densify") inserts vertices along g so that no
	// segment of the result exceeds maxSegment (in the same units as
	// g's coordinates, i.e. degrees for WGS84 input).
	Segmentize(ctx context.Context, g orb.Geometry, maxSegment float64) (orb.Geometry, error)
	// Voronoi computes the Voronoi tessellation of points, clipped to
	// envelope, returning one cell per input point in the same order.
	Voronoi(ctx context.Context, points []orb.Point, envelope orb.Bound) ([]orb.Polygon, error)
	// KMeansCluster partitions points into k clusters, returning one
	// cluster index per input point, deterministic for a given seed.
	KMeansCluster(ctx context.Context, points []orb.Point, k int, seed int64) ([]int, error)
	// Centroid returns the geometric centroid of g.
	Centroid(ctx context.Context, g orb.Geometry) (orb.Point, error)
	// Contains reports whether a's interior contains b entirely,
	// excluding the case where b lies only on a's boundary.
	Contains(ctx context.Context, a, b orb.Geometry) (bool, error)
	// Intersects reports whether a and b share any point.
	Intersects(ctx context.Context, a, b orb.Geometry) (bool, error)
	// Touches reports whether a and b share boundary points but no
	// interior points.
	Touches(ctx context.Context, a, b orb.Geometry) (bool, error)
	// GeometryType returns the OGC geometry type name of g, e.g.
	// "Polygon", "LineString", "MultiPolygon".
	GeometryType(g orb.Geometry) string
	// GeodesicArea returns the area of polygon p in square meters,
	// computed geodesically (never assuming degrees ≈ meters).
	GeodesicArea(ctx context.Context, p orb.Polygon) (float64, error)
	// GeodesicLength returns the length of ls in meters, computed
	// geodesically.
	GeodesicLength(ctx context.Context, ls orb.LineString) (float64, error)
	// Simplify applies Douglas-Peucker simplification with the given
	// tolerance (in g's coordinate units).
	Simplify(ctx context.Context, g orb.Geometry, tolerance float64) (orb.Geometry, error)
}
