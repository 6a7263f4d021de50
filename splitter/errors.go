package splitter

import (
	"errors"
	"fmt"
)

// Sentinel error kinds matching the error policy table (spec §7). Use
// errors.Is/errors.As to branch on these from caller code.
var (
	// ErrEmptyFeatureSet is non-fatal: the pipeline degrades to emitting
	// the SubPolygon tiling directly as tasks, skipping S3-S9.
	ErrEmptyFeatureSet = errors.New("splitter: no building-tagged features inside the AOI")

	// ErrNoLinearSplitters is non-fatal: LineSplit emits a single
	// SubPolygon equal to the AOI.
	ErrNoLinearSplitters = errors.New("splitter: no linear splitters intersect the AOI")

	// ErrBackendCommunication is fatal; the run is abandoned and the
	// caller may retry with a fresh backend connection.
	ErrBackendCommunication = errors.New("splitter: geometry backend communication failure")

	// ErrStraightSkeletonUnimplemented documents a known limitation of
	// an experimental alternative to S6 Voronoi. The core pipeline only
	// ever uses Voronoi tessellation, so this error is never raised by
	// this repository's own code; it exists so the full error-kind
	// enumeration from spec §7 is represented.
	ErrStraightSkeletonUnimplemented = errors.New("splitter: straight-skeleton fill is not implemented")
)

// InvalidInputGeometryError is fatal: the AOI (or an input geometry
// derived from it) is missing, empty, or not simple/valid. ObjectID
// names the offending object so the caller can surface it.
type InvalidInputGeometryError struct {
	ObjectID string
	Reason   string
}

func (e *InvalidInputGeometryError) Error() string {
	return fmt.Sprintf("splitter: invalid input geometry %q: %s", e.ObjectID, e.Reason)
}

// VoronoiNumericFailureError is returned by VoronoiStage when the
// backend's Voronoi primitive reports a numerically degenerate cell
// (extremely short segments). densifyAndVoronoiWithRetry retries on it
// with a doubled SegmentizeM (spec §7) and, once its bounded retries
// are used up, returns the last one wrapped as a fatal error.
type VoronoiNumericFailureError struct {
	PolyID  int
	Retries int
	Cause   error
}

func (e *VoronoiNumericFailureError) Error() string {
	return fmt.Sprintf("splitter: voronoi numeric failure in sub-polygon %d after %d retries: %v", e.PolyID, e.Retries, e.Cause)
}

func (e *VoronoiNumericFailureError) Unwrap() error {
	return e.Cause
}
