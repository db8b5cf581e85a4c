// Package geometry implements the epipolar-geometry outlier rejection used
// for stereo matching and temporal two-point RANSAC.
package geometry

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Essential builds the essential matrix E = [t]_x * R for a stereo pair
// whose relative pose (cam0 -> cam1) is (R, t).
func Essential(r *mat.Dense, t r3.Vector) *mat.Dense {
	skew := mat.NewDense(3, 3, nil)
	skew.Set(0, 1, -t.Z)
	skew.Set(0, 2, t.Y)
	skew.Set(1, 0, t.Z)
	skew.Set(1, 2, -t.X)
	skew.Set(2, 0, -t.Y)
	skew.Set(2, 1, t.X)

	e := mat.NewDense(3, 3, nil)
	e.Mul(skew, r)
	return e
}

// EpipolarResidual is the one-sided point-to-line epipolar error
// |p1^T * E * p0| / sqrt(l0^2 + l1^2) (not the symmetric Sampson distance)
// used to score a candidate stereo correspondence against the known
// essential matrix.
func EpipolarResidual(e *mat.Dense, p0, p1 r2.Point) float64 {
	p0v := mat.NewVecDense(3, []float64{p0.X, p0.Y, 1})
	var line mat.VecDense
	line.MulVec(e, p0v)

	l0, l1, l2 := line.AtVec(0), line.AtVec(1), line.AtVec(2)
	num := p1.X*l0 + p1.Y*l1 + l2
	if num < 0 {
		num = -num
	}
	denom := math.Hypot(l0, l1)
	if denom == 0 {
		return 0
	}
	return num / denom
}
