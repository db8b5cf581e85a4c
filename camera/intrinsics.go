// Package camera implements pinhole camera projection and lens distortion
// models used to undistort and distort 2-D image points.
package camera

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrNoIntrinsics is returned when a camera's intrinsics are unset or invalid.
var ErrNoIntrinsics = errors.New("camera intrinsics are not available")

// Intrinsics holds the parameters necessary to project between pixel
// coordinates and normalized camera coordinates for a pinhole camera.
type Intrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Cx     float64 `json:"cx"`
	Cy     float64 `json:"cy"`
}

// CheckValid returns an error if the intrinsics are missing or nonsensical.
func (in *Intrinsics) CheckValid() error {
	if in == nil {
		return errors.Wrap(ErrNoIntrinsics, "nil intrinsics")
	}
	if in.Width <= 0 || in.Height <= 0 {
		return errors.Wrapf(ErrNoIntrinsics, "invalid resolution (%d, %d)", in.Width, in.Height)
	}
	if in.Fx <= 0 || in.Fy <= 0 {
		return errors.Wrapf(ErrNoIntrinsics, "invalid focal length (%v, %v)", in.Fx, in.Fy)
	}
	return nil
}

// Matrix returns the 3x3 camera intrinsic matrix:
//
//	[[fx 0  cx],
//	 [0  fy cy],
//	 [0  0  1]]
func (in *Intrinsics) Matrix() *mat.Dense {
	k := mat.NewDense(3, 3, nil)
	k.Set(0, 0, in.Fx)
	k.Set(1, 1, in.Fy)
	k.Set(0, 2, in.Cx)
	k.Set(1, 2, in.Cy)
	k.Set(2, 2, 1)
	return k
}

// ToNormalized converts a pixel coordinate to normalized camera coordinates
// without undoing any distortion (i.e. assumes p is already undistorted pixel space).
func (in *Intrinsics) ToNormalized(p r2.Point) r2.Point {
	return r2.Point{X: (p.X - in.Cx) / in.Fx, Y: (p.Y - in.Cy) / in.Fy}
}

// ToPixel projects a normalized camera coordinate (z=1 plane) to pixel space.
func (in *Intrinsics) ToPixel(p r2.Point) r2.Point {
	return r2.Point{X: p.X*in.Fx + in.Cx, Y: p.Y*in.Fy + in.Cy}
}

// InBounds reports whether a pixel point falls within [0, Width-1] x [0, Height-1].
func (in *Intrinsics) InBounds(p r2.Point) bool {
	return p.X >= 0 && p.X <= float64(in.Width-1) && p.Y >= 0 && p.Y <= float64(in.Height-1)
}

// AverageInverseFocalLength returns 2/(fx+fy), the per-camera contribution to
// the epipolar and RANSAC pixel-normalization unit `u`.
func (in *Intrinsics) AverageInverseFocalLength() float64 {
	return 2.0 / (in.Fx + in.Fy)
}
