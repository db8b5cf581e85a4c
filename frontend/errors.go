package frontend

import "github.com/pkg/errors"

// Sentinel errors for the error taxonomy. ErrConfigInvalid is fatal at
// startup; the rest are runtime conditions the orchestrator logs and
// recovers from rather than returning up the stack.
var (
	// ErrConfigInvalid means the loaded configuration failed validation:
	// missing or malformed calibration, or an inconsistent grid/feature cap.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrFrameDropped means a StereoFrame arrived with a missing image, with
	// an image whose dimensions differ from its camera's calibrated
	// resolution, or (after the first frame) with a timestamp at or before
	// the previous frame's.
	ErrFrameDropped = errors.New("frame dropped")
)
