package klt

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"go.viam.com/vio-frontend/pyramid"
)

// gradientImage draws a smooth pattern whose intensity varies independently
// along x and along y, so Lucas-Kanade has gradient information in both
// directions to track against (a flat image, or a ramp along a single
// direction, has a singular normal-equations matrix everywhere).
func gradientImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(128 + 50*math.Sin(float64(x)/6) + 50*math.Cos(float64(y)/7))
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func shifted(img *image.Gray, dx, dy int) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sx, sy := x-dx, y-dy
			if sx < b.Min.X {
				sx = b.Min.X
			}
			if sx > b.Max.X-1 {
				sx = b.Max.X - 1
			}
			if sy < b.Min.Y {
				sy = b.Min.Y
			}
			if sy > b.Max.Y-1 {
				sy = b.Max.Y - 1
			}
			out.SetGray(x, y, img.GrayAt(sx, sy))
		}
	}
	return out
}

func TestPredictPointsIdentityHomographyIsNoOp(t *testing.T) {
	h := [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	pts := []r2.Point{{X: 10, Y: 20}, {X: 5, Y: 5}}
	out := PredictPoints(pts, h)
	test.That(t, out, test.ShouldResemble, pts)
}

func TestPredictPointsTranslation(t *testing.T) {
	h := [3][3]float64{{1, 0, 3}, {0, 1, -2}, {0, 0, 1}}
	out := PredictPoints([]r2.Point{{X: 10, Y: 20}}, h)
	test.That(t, out[0].X, test.ShouldAlmostEqual, 13.0, 1e-9)
	test.That(t, out[0].Y, test.ShouldAlmostEqual, 18.0, 1e-9)
}

func TestTrackRecoversKnownShift(t *testing.T) {
	base := gradientImage(64, 64)
	shift := shifted(base, 2, 1)

	prevPyr := pyramid.Build(base, 2)
	currPyr := pyramid.Build(shift, 2)

	prevPts := []r2.Point{{X: 32, Y: 32}}
	// Initial guess equal to the previous position (no IMU prediction
	// available), as in the degenerate/first-frame case.
	guess := []r2.Point{{X: 32, Y: 32}}

	params := Params{PatchSize: 15, MaxIteration: 30, TrackPrecision: 0.01}
	out, inliers := Track(prevPyr, currPyr, prevPts, guess, params)

	test.That(t, inliers[0], test.ShouldBeTrue)
	test.That(t, out[0].X, test.ShouldAlmostEqual, 34.0, 0.75)
	test.That(t, out[0].Y, test.ShouldAlmostEqual, 33.0, 0.75)
}

func TestTrackMarksOutOfBoundsAsNotInlier(t *testing.T) {
	base := gradientImage(32, 32)
	prevPyr := pyramid.Build(base, 1)
	currPyr := pyramid.Build(base, 1)

	prevPts := []r2.Point{{X: 16, Y: 16}}
	guess := []r2.Point{{X: 1000, Y: 1000}}

	params := Params{PatchSize: 9, MaxIteration: 10, TrackPrecision: 0.01}
	_, inliers := Track(prevPyr, currPyr, prevPts, guess, params)
	test.That(t, inliers[0], test.ShouldBeFalse)
}
