package frontend

import (
	"image"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.viam.com/vio-frontend/gridstore"
)

// StereoFrame is one synchronized stereo image pair, the inbound unit the
// orchestrator processes.
type StereoFrame struct {
	Timestamp  float64
	LeftImage  *image.Gray
	RightImage *image.Gray
}

// ImuSample is one inertial measurement. LinearAcceleration is carried for
// interface completeness but unused by this front-end.
type ImuSample struct {
	Timestamp          float64
	AngularVelocity    r3.Vector
	LinearAcceleration r3.Vector
}

// FeatureMeasurement is one published stereo correspondence, in undistorted
// normalized camera coordinates (z=1 plane), never pixels.
type FeatureMeasurement struct {
	ID gridstore.FeatureID
	P0 r2.Point // left camera, normalized
	P1 r2.Point // right camera, normalized
}

// CameraMeasurement is the per-frame published feature set.
type CameraMeasurement struct {
	Timestamp float64
	Features  []FeatureMeasurement
}

// TrackingInfo carries the per-stage survivor counters, non-increasing
// across stages within a frame.
type TrackingInfo struct {
	Timestamp      float64
	BeforeTracking int
	AfterTracking  int
	AfterMatching  int
	AfterRansac    int
}
