package splitter

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LoadAOI accepts the shapes spec §6.1 documents: a bare Polygon, a
// Feature wrapping a Polygon or MultiPolygon, or a FeatureCollection
// with exactly one member. A MultiPolygon AOI is reduced to its
// convex hull (spec §3's AOI invariant).
func LoadAOI(data []byte) (AOI, error) {
	g, err := decodeSingleGeometry(data)
	if err != nil {
		return AOI{}, err
	}
	switch t := g.(type) {
	case orb.Polygon:
		if len(t) == 0 || len(t[0]) < 4 {
			return AOI{}, &InvalidInputGeometryError{ObjectID: "aoi", Reason: "empty or degenerate polygon"}
		}
		return AOI{Polygon: t}, nil
	case orb.MultiPolygon:
		if len(t) == 0 {
			return AOI{}, &InvalidInputGeometryError{ObjectID: "aoi", Reason: "empty multipolygon"}
		}
		hull := convexHullOfMultiPolygon(t)
		return AOI{Polygon: hull, Multi: true}, nil
	default:
		return AOI{}, &InvalidInputGeometryError{ObjectID: "aoi", Reason: fmt.Sprintf("unsupported geometry type %T", g)}
	}
}

func decodeSingleGeometry(data []byte) (orb.Geometry, error) {
	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil && len(fc.Features) > 0 {
		if len(fc.Features) != 1 {
			return nil, &InvalidInputGeometryError{ObjectID: "aoi", Reason: "FeatureCollection must have exactly one member"}
		}
		return fc.Features[0].Geometry, nil
	}
	if f, err := geojson.UnmarshalFeature(data); err == nil && f.Geometry != nil {
		return f.Geometry, nil
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, &InvalidInputGeometryError{ObjectID: "aoi", Reason: "not valid GeoJSON geometry: " + err.Error()}
	}
	return g.Geometry(), nil
}

// convexHullOfMultiPolygon computes the convex hull over every vertex
// of every member polygon using the classic Andrew monotone-chain
// scan.
func convexHullOfMultiPolygon(mp orb.MultiPolygon) orb.Polygon {
	var pts []orb.Point
	for _, poly := range mp {
		if len(poly) == 0 {
			continue
		}
		pts = append(pts, poly[0]...)
	}
	hull := convexHull(pts)
	return orb.Polygon{hull}
}

func convexHull(points []orb.Point) orb.Ring {
	pts := dedupeSortPoints(points)
	n := len(pts)
	if n < 3 {
		return closeRingPts(pts)
	}

	lower := make([]orb.Point, 0, n)
	for _, p := range pts {
		for len(lower) >= 2 && crossProduct(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	upper := make([]orb.Point, 0, n)
	for i := n - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && crossProduct(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	return closeRingPts(hull)
}

func crossProduct(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func dedupeSortPoints(points []orb.Point) []orb.Point {
	seen := make(map[orb.Point]struct{}, len(points))
	out := make([]orb.Point, 0, len(points))
	for _, p := range points {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && (out[j][0] < out[j-1][0] || (out[j][0] == out[j-1][0] && out[j][1] < out[j-1][1])); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func closeRingPts(pts []orb.Point) orb.Ring {
	if len(pts) == 0 {
		return nil
	}
	if pts[0] != pts[len(pts)-1] {
		pts = append(pts, pts[0])
	}
	return orb.Ring(pts)
}

// LoadSplitLines decodes a GeoJSON FeatureCollection of candidate
// linear splitters, normalizing each feature's tags and keeping only
// LineString geometries (spec §6.1).
func LoadSplitLines(data []byte) ([]SplitLine, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decoding split-line collection: %w", err)
	}
	out := make([]SplitLine, 0, len(fc.Features))
	for i, f := range fc.Features {
		ls, ok := f.Geometry.(orb.LineString)
		if !ok {
			continue
		}
		out = append(out, SplitLine{
			ID:   i,
			Geom: ls,
			Tags: NormalizeTags(f.Properties),
		})
	}
	return out, nil
}

// LoadFeatures decodes a GeoJSON FeatureCollection of candidate
// mappable-object polygons, keeping only those tagged `building` and
// computing each kept Feature's planar centroid (spec §3).
func LoadFeatures(data []byte) ([]Feature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decoding feature collection: %w", err)
	}
	out := make([]Feature, 0, len(fc.Features))
	id := 0
	for _, f := range fc.Features {
		var poly orb.Polygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			poly = g
		case orb.MultiPolygon:
			if len(g) == 0 {
				continue
			}
			poly = g[0]
		default:
			continue
		}
		tags := NormalizeTags(f.Properties)
		if !IsBuilding(tags) {
			continue
		}
		out = append(out, Feature{
			ID:       id,
			Geom:     poly,
			Tags:     tags,
			Centroid: ringCentroid(poly[0]),
		})
		id++
	}
	return out, nil
}

// EncodeTaskPolygons renders the final TaskPolygon collection as a
// GeoJSON FeatureCollection ordered by ascending taskid, each Feature
// carrying exactly the `building_count` property spec §6.3 promises.
func EncodeTaskPolygons(tasks []TaskPolygon) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, t := range tasks {
		if t.Tombstoned {
			continue
		}
		f := geojson.NewFeature(t.Geom)
		f.Properties = geojson.Properties{"building_count": t.BuildingCount}
		fc.Append(f)
	}
	return fc.MarshalJSON()
}
