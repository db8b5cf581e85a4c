package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestIterationCountMatchesClosedForm(t *testing.T) {
	n := IterationCount(0.99)
	want := int(math.Ceil(math.Log(1-0.99) / math.Log(1-0.49)))
	test.That(t, n, test.ShouldEqual, want)
}

func TestTwoPointRansacRejectsOutliers(t *testing.T) {
	rand.Seed(1)
	const nInliers = 100
	const nOutliers = 50

	// Pure translation along x in normalized camera coordinates: a true
	// inlier under the translation-only model satisfies y1 == y2 (no
	// rotation component), with x shifting by a small constant disparity.
	pts1 := make([]r2.Point, 0, nInliers+nOutliers)
	pts2 := make([]r2.Point, 0, nInliers+nOutliers)

	for i := 0; i < nInliers; i++ {
		x := -0.3 + 0.006*float64(i)
		y := -0.2 + 0.004*float64(i%50)
		pts1 = append(pts1, r2.Point{X: x, Y: y})
		pts2 = append(pts2, r2.Point{X: x + 0.01, Y: y})
	}
	for i := 0; i < nOutliers; i++ {
		x := -0.3 + 0.011*float64(i)
		y := -0.2 + 0.009*float64(i%40)
		pts1 = append(pts1, r2.Point{X: x, Y: y})
		// Outliers get a large, unrelated displacement.
		pts2 = append(pts2, r2.Point{X: x + 0.2 + 0.01*float64(i%7), Y: y - 0.15})
	}

	identityR := mat.NewDense(3, 3, nil)
	identityR.Set(0, 0, 1)
	identityR.Set(1, 1, 1)
	identityR.Set(2, 2, 1)

	params := RansacParams{InlierError: 1.0, SuccessProbability: 0.99}
	// Typical normalized-camera average inverse focal length for a
	// ~400px-focal-length camera.
	avgInvFocal := 2.0 / 800.0

	markers := TwoPointRansac(pts1, pts2, identityR, avgInvFocal, params)

	inlierSurvivors, outlierSurvivors := 0, 0
	for i, ok := range markers {
		if !ok {
			continue
		}
		if i < nInliers {
			inlierSurvivors++
		} else {
			outlierSurvivors++
		}
	}

	test.That(t, inlierSurvivors >= 90, test.ShouldBeTrue)
	test.That(t, outlierSurvivors <= 10, test.ShouldBeTrue)
}

func TestTwoPointRansacDegenerateMotionReturnsAllInliersWhenStationary(t *testing.T) {
	pts1 := []r2.Point{
		{X: 0.01, Y: 0.02}, {X: -0.01, Y: 0.03}, {X: 0.02, Y: -0.01},
		{X: 0.015, Y: 0.01}, {X: -0.02, Y: -0.02},
	}
	pts2 := make([]r2.Point, len(pts1))
	copy(pts2, pts1) // zero motion: degenerate branch.

	identityR := mat.NewDense(3, 3, nil)
	identityR.Set(0, 0, 1)
	identityR.Set(1, 1, 1)
	identityR.Set(2, 2, 1)

	params := RansacParams{InlierError: 1.0, SuccessProbability: 0.99}
	markers := TwoPointRansac(pts1, pts2, identityR, 2.0/800.0, params)
	for _, ok := range markers {
		test.That(t, ok, test.ShouldBeTrue)
	}
}

func TestTwoPointRansacMismatchedSizesPanics(t *testing.T) {
	pts1 := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}
	pts2 := []r2.Point{{X: 0, Y: 0}}

	identityR := mat.NewDense(3, 3, nil)
	identityR.Set(0, 0, 1)
	identityR.Set(1, 1, 1)
	identityR.Set(2, 2, 1)

	params := RansacParams{InlierError: 1.0, SuccessProbability: 0.99}
	test.That(t, func() { TwoPointRansac(pts1, pts2, identityR, 2.0/800.0, params) }, test.ShouldPanic)
}

func TestTwoPointRansacFewerThanThreeInliersRejectsAll(t *testing.T) {
	pts1 := []r2.Point{{X: 0, Y: 0}, {X: 5, Y: 5}}
	pts2 := []r2.Point{{X: 100, Y: 100}, {X: -100, Y: -100}}

	identityR := mat.NewDense(3, 3, nil)
	identityR.Set(0, 0, 1)
	identityR.Set(1, 1, 1)
	identityR.Set(2, 2, 1)

	params := RansacParams{InlierError: 1.0, SuccessProbability: 0.99}
	markers := TwoPointRansac(pts1, pts2, identityR, 2.0/800.0, params)
	for _, ok := range markers {
		test.That(t, ok, test.ShouldBeFalse)
	}
}
