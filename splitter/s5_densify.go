package splitter

import (
	"context"

	"github.com/hotosm/fmtm-splitter-go/geobackend"
)

// Densify is S5: it segmentizes every clustered Feature's boundary so
// no edge exceeds cfg's resolved SegmentizeM (converted from meters to
// degrees at that Feature's own centroid, since the meter/degree
// relationship varies with latitude), then dumps the result to points
// tagged with the owning Feature's (polyid, cid, clusteruid) (spec
// §4.5).
func Densify(ctx context.Context, backend geobackend.Backend, features []Feature, cfg Config) ([]VoronoiPoint, error) {
	var out []VoronoiPoint
	for _, f := range features {
		if !f.HasCluster {
			continue
		}
		degPerMeter := metersToDegrees(f.Centroid, cfg.SegmentizeM)
		densified, err := backend.Segmentize(ctx, f.Geom, degPerMeter)
		if err != nil {
			return nil, err
		}
		pts, err := backend.DumpPoints(ctx, densified)
		if err != nil {
			return nil, err
		}
		cuid := ClusterUID(f.PolyID, f.ClusterID)
		for _, p := range pts {
			out = append(out, VoronoiPoint{
				Point:      p,
				PolyID:     f.PolyID,
				ClusterID:  f.ClusterID,
				ClusterUID: cuid,
			})
		}
	}
	return out, nil
}
