package splitter

import (
	"context"
	"errors"

	"github.com/paulmach/orb"

	"github.com/hotosm/fmtm-splitter-go/geobackend"
)

// VoronoiStage is S6: it computes one global Voronoi tessellation over
// every densified point (across all SubPolygons at once, as spec §4.6
// specifies), then clips each cell to the SubPolygon containing its
// generator point, tagging the clipped cell with the generator's
// clusteruid.
func VoronoiStage(ctx context.Context, backend geobackend.Backend, points []VoronoiPoint, subpolys []SubPolygon) ([]VoronoiCell, error) {
	if len(points) == 0 {
		return nil, nil
	}

	envelope := orb.Bound{}
	for _, sp := range subpolys {
		envelope = envelope.Union(sp.Geom.Bound())
	}

	coords := make([]orb.Point, len(points))
	for i, p := range points {
		coords[i] = p.Point
	}

	cells, err := backend.Voronoi(ctx, coords, envelope)
	if err != nil {
		var degErr *geobackend.DegenerateVoronoiCellError
		if errors.As(err, &degErr) {
			polyID := -1
			if degErr.SiteIndex >= 0 && degErr.SiteIndex < len(points) {
				polyID = points[degErr.SiteIndex].PolyID
			}
			return nil, &VoronoiNumericFailureError{PolyID: polyID, Cause: err}
		}
		return nil, err
	}

	byPolyID := make(map[int]orb.Polygon, len(subpolys))
	for _, sp := range subpolys {
		byPolyID[sp.PolyID] = sp.Geom
	}

	out := make([]VoronoiCell, 0, len(cells))
	for i, cell := range cells {
		src := points[i]
		container, ok := byPolyID[src.PolyID]
		if !ok {
			continue
		}
		clipped, err := backend.Intersection(ctx, container, cell)
		if err != nil {
			return nil, err
		}
		poly, ok := clipped.(orb.Polygon)
		if !ok || len(poly) == 0 {
			continue
		}
		out = append(out, VoronoiCell{
			Geom:       poly,
			PolyID:     src.PolyID,
			ClusterID:  src.ClusterID,
			ClusterUID: src.ClusterUID,
		})
	}
	return out, nil
}
