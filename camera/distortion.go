package camera

import (
	"math"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Model names a lens distortion model.
type Model string

// Supported distortion models. An unrecognized model name falls back to
// RadTan with a one-shot warning.
const (
	RadTan      Model = "radtan"
	Equidistant Model = "equidistant"
)

// Distorter converts between distorted pixel coordinates and undistorted
// normalized camera coordinates for one specific lens model.
type Distorter interface {
	Model() Model
	// Undistort maps a normalized-but-distorted coordinate (x,y) = ((u-cx)/fx, (v-cy)/fy)
	// to the undistorted normalized coordinate on the z=1 plane.
	Undistort(x, y float64) (float64, float64)
	// Distort is the forward map: undistorted normalized -> distorted normalized.
	Distort(x, y float64) (float64, float64)
}

// Coeffs is the 4-vector of model-specific distortion coefficients.
type Coeffs [4]float64

// NewDistorter returns the Distorter for the named model. An unrecognized
// name falls back to RadTan; onUnknown, if non-nil, is invoked exactly once
// per distinct unrecognized name (see warnOnce below).
func NewDistorter(model Model, coeffs Coeffs, onUnknown func(name string)) Distorter {
	switch model {
	case RadTan:
		return &radTan{coeffs: coeffs}
	case Equidistant:
		return &equidistant{coeffs: coeffs}
	default:
		warnOnce(string(model), onUnknown)
		return &radTan{coeffs: coeffs}
	}
}

var (
	warnedMu sync.Mutex
	warned   = map[string]bool{}
)

// warnOnce invokes fn the first time it is called for a given name, then
// never again for that name.
func warnOnce(name string, fn func(name string)) {
	warnedMu.Lock()
	defer warnedMu.Unlock()
	if warned[name] {
		return
	}
	warned[name] = true
	if fn != nil {
		fn(name)
	}
}

// radTan implements the plumb-bob (Brown-Conrady) radial+tangential model
// with coefficients (k1, k2, p1, p2) — a 4-coefficient variant with k3
// fixed at zero. The inverse (Undistort) is a Newton-Raphson iteration.
type radTan struct {
	coeffs Coeffs
}

func (r *radTan) Model() Model { return RadTan }

func (r *radTan) Distort(xu, yu float64) (float64, float64) {
	k1, k2, p1, p2 := r.coeffs[0], r.coeffs[1], r.coeffs[2], r.coeffs[3]
	r2v := xu*xu + yu*yu
	r4 := r2v * r2v
	radial := 1.0 + k1*r2v + k2*r4
	xd := xu*radial + 2.0*p1*xu*yu + p2*(r2v+2.0*xu*xu)
	yd := yu*radial + 2.0*p2*xu*yu + p1*(r2v+2.0*yu*yu)
	return xd, yd
}

func (r *radTan) Undistort(xd, yd float64) (float64, float64) {
	k1, k2, p1, p2 := r.coeffs[0], r.coeffs[1], r.coeffs[2], r.coeffs[3]
	xu, yu := xd, yd

	const maxIterations = 20
	const tolerance = 1e-10

	for i := 0; i < maxIterations; i++ {
		r2v := xu*xu + yu*yu
		r4 := r2v * r2v

		radial := 1.0 + k1*r2v + k2*r4
		tanX := 2.0*p1*xu*yu + p2*(r2v+2.0*xu*xu)
		tanY := 2.0*p2*xu*yu + p1*(r2v+2.0*yu*yu)

		xdEst := xu*radial + tanX
		ydEst := yu*radial + tanY

		errX := xdEst - xd
		errY := ydEst - yd
		if errX*errX+errY*errY < tolerance*tolerance {
			break
		}

		dRadialDxu := 2.0 * xu * (k1 + 2.0*k2*r2v)
		dRadialDyu := 2.0 * yu * (k1 + 2.0*k2*r2v)

		dxdDxu := radial + xu*dRadialDxu + 2.0*p1*yu + p2*(2.0*xu+4.0*xu)
		dxdDyu := xu*dRadialDyu + 2.0*p1*xu + p2*2.0*yu
		dydDxu := yu*dRadialDxu + 2.0*p2*yu + p1*2.0*xu
		dydDyu := radial + yu*dRadialDyu + 2.0*p2*xu + p1*(2.0*yu+4.0*yu)

		det := dxdDxu*dydDyu - dxdDyu*dydDxu
		if det == 0 {
			break
		}

		xu -= (dydDyu*errX - dxdDyu*errY) / det
		yu -= (-dydDxu*errX + dxdDxu*errY) / det
	}

	return xu, yu
}

// equidistant implements the Kannala-Brandt fisheye model with coefficients
// (k1, k2, k3, k4), inverted by the same Newton-Raphson idiom as
// radTan.Undistort above.
type equidistant struct {
	coeffs Coeffs
}

func (e *equidistant) Model() Model { return Equidistant }

func (e *equidistant) Distort(xu, yu float64) (float64, float64) {
	k1, k2, k3, k4 := e.coeffs[0], e.coeffs[1], e.coeffs[2], e.coeffs[3]
	r := math.Hypot(xu, yu)
	if r < 1e-12 {
		return xu, yu
	}
	theta := math.Atan(r)
	theta2 := theta * theta
	theta4 := theta2 * theta2
	theta6 := theta4 * theta2
	theta8 := theta4 * theta4
	thetaD := theta * (1 + k1*theta2 + k2*theta4 + k3*theta6 + k4*theta8)
	scale := thetaD / r
	return xu * scale, yu * scale
}

func (e *equidistant) Undistort(xd, yd float64) (float64, float64) {
	k1, k2, k3, k4 := e.coeffs[0], e.coeffs[1], e.coeffs[2], e.coeffs[3]
	thetaD := math.Hypot(xd, yd)
	if thetaD < 1e-12 {
		return xd, yd
	}

	theta := thetaD
	const maxIterations = 20
	const tolerance = 1e-10
	for i := 0; i < maxIterations; i++ {
		theta2 := theta * theta
		theta4 := theta2 * theta2
		theta6 := theta4 * theta2
		theta8 := theta4 * theta4
		f := theta*(1+k1*theta2+k2*theta4+k3*theta6+k4*theta8) - thetaD
		fPrime := 1 + 3*k1*theta2 + 5*k2*theta4 + 7*k3*theta6 + 9*k4*theta8
		if fPrime == 0 {
			break
		}
		delta := f / fPrime
		theta -= delta
		if delta*delta < tolerance*tolerance {
			break
		}
	}

	scale := math.Tan(theta) / thetaD
	return xd * scale, yd * scale
}

// CameraMatrixInverse returns K^-1 for the given intrinsics as a *mat.Dense,
// used by the temporal tracker's pixel-space rotation compensation
// (K * R_p_c * K^-1).
func CameraMatrixInverse(in *Intrinsics) (*mat.Dense, error) {
	k := in.Matrix()
	var kInv mat.Dense
	if err := kInv.Inverse(k); err != nil {
		return nil, errors.Wrap(err, "camera matrix is not invertible")
	}
	return &kInv, nil
}

// UndistortPoints undistorts a slice of pixel points into normalized camera
// coordinates, optionally rotating by rectify and reprojecting through
// newIntrinsics (both default to identity when nil).
func UndistortPoints(pts []r2.Point, in *Intrinsics, d Distorter, rectify *mat.Dense, newIntrinsics *Intrinsics) []r2.Point {
	out := make([]r2.Point, len(pts))
	for i, p := range pts {
		n := in.ToNormalized(p)
		xu, yu := d.Undistort(n.X, n.Y)
		if rectify != nil {
			v := mat.NewVecDense(3, []float64{xu, yu, 1})
			var rv mat.VecDense
			rv.MulVec(rectify, v)
			z := rv.AtVec(2)
			if z != 0 {
				xu, yu = rv.AtVec(0)/z, rv.AtVec(1)/z
			}
		}
		if newIntrinsics != nil {
			out[i] = newIntrinsics.ToPixel(r2.Point{X: xu, Y: yu})
		} else {
			out[i] = r2.Point{X: xu, Y: yu}
		}
	}
	return out
}

// DistortPoints is the forward projection: normalized camera coordinates on
// the z=1 plane to distorted pixel coordinates.
func DistortPoints(pts []r2.Point, in *Intrinsics, d Distorter) []r2.Point {
	out := make([]r2.Point, len(pts))
	for i, p := range pts {
		xd, yd := d.Distort(p.X, p.Y)
		out[i] = in.ToPixel(r2.Point{X: xd, Y: yd})
	}
	return out
}
