// Package klt implements pyramidal Lucas-Kanade optical flow tracking with
// OPTFLOW_USE_INITIAL_FLOW semantics: callers must supply an initial guess
// for each point's location in the current image (typically an
// IMU-predicted position), and tracking refines that guess rather than
// searching from the previous position.
package klt

import (
	"image"
	"math"

	"github.com/golang/geo/r2"

	"go.viam.com/vio-frontend/pyramid"
)

// Params bundles the window size, iteration cap, and convergence epsilon
// for one Track call.
type Params struct {
	PatchSize     int // window is PatchSize x PatchSize
	MaxIteration  int
	TrackPrecision float64
}

// PredictPoints applies a 2-D homography H = K*R*K^-1 to a set of previous
// pixel points, producing the initial guess tracking is seeded with: a
// pixel-space rotation compensation derived from the IMU-predicted rotation.
func PredictPoints(prevPts []r2.Point, h [3][3]float64) []r2.Point {
	out := make([]r2.Point, len(prevPts))
	for i, p := range prevPts {
		x := h[0][0]*p.X + h[0][1]*p.Y + h[0][2]
		y := h[1][0]*p.X + h[1][1]*p.Y + h[1][2]
		w := h[2][0]*p.X + h[2][1]*p.Y + h[2][2]
		if w == 0 {
			out[i] = p
			continue
		}
		out[i] = r2.Point{X: x / w, Y: y / w}
	}
	return out
}

// Track runs pyramidal Lucas-Kanade from prevPyr to currPyr for each point
// in prevPts, using initialGuess[i] as the starting estimate in currPts
// (OPTFLOW_USE_INITIAL_FLOW). It returns the refined point per input point
// and a parallel inlier mask (false where tracking diverged or left the
// image bounds).
func Track(prevPyr, currPyr *pyramid.Pyramid, prevPts, initialGuess []r2.Point, params Params) ([]r2.Point, []bool) {
	n := len(prevPts)
	outPts := make([]r2.Point, n)
	inliers := make([]bool, n)

	levels := len(prevPyr.Levels) - 1

	for i := 0; i < n; i++ {
		guess := initialGuess[i]
		ok := true

		// Coarse-to-fine: scale the guess down to the coarsest level, then
		// refine and upscale back to full resolution.
		scale := math.Pow(2, float64(levels))
		levelGuess := r2.Point{X: guess.X / scale, Y: guess.Y / scale}
		levelPrev := r2.Point{X: prevPts[i].X / scale, Y: prevPts[i].Y / scale}

		for level := levels; level >= 0; level-- {
			refined, levelOK := trackOneLevel(
				prevPyr.Levels[level].Img, currPyr.Levels[level].Img,
				levelPrev, levelGuess, params)
			if !levelOK {
				ok = false
			}
			levelGuess = refined
			if level > 0 {
				levelGuess = r2.Point{X: levelGuess.X * 2, Y: levelGuess.Y * 2}
				levelPrev = r2.Point{X: levelPrev.X * 2, Y: levelPrev.Y * 2}
			}
		}

		outPts[i] = levelGuess
		bounds := currPyr.Levels[0].Img.Bounds()
		if !ok || !inBoundsF(levelGuess, bounds) {
			inliers[i] = false
		} else {
			inliers[i] = true
		}
	}

	return outPts, inliers
}

func inBoundsF(p r2.Point, b image.Rectangle) bool {
	return p.X >= float64(b.Min.X) && p.X <= float64(b.Max.X-1) &&
		p.Y >= float64(b.Min.Y) && p.Y <= float64(b.Max.Y-1)
}

// trackOneLevel performs the classic iterative Lucas-Kanade normal-equations
// update over a PatchSize x PatchSize window, terminating on MaxIteration or
// once the update step falls below TrackPrecision.
func trackOneLevel(prev, curr *image.Gray, prevPt, guess r2.Point, params Params) (r2.Point, bool) {
	half := params.PatchSize / 2
	pt := guess

	for iter := 0; iter < params.MaxIteration; iter++ {
		var gxx, gxy, gyy float64
		var bx, by float64
		samples := 0

		for dy := -half; dy <= half; dy++ {
			for dx := -half; dx <= half; dx++ {
				px := prevPt.X + float64(dx)
				py := prevPt.Y + float64(dy)
				qx := pt.X + float64(dx)
				qy := pt.Y + float64(dy)

				if !inBoundsF(r2.Point{X: px, Y: py}, prev.Bounds()) ||
					!inBoundsF(r2.Point{X: qx, Y: qy}, curr.Bounds()) {
					continue
				}

				ix := gradX(prev, px, py)
				iy := gradY(prev, px, py)
				it := bilinear(curr, qx, qy) - bilinear(prev, px, py)

				gxx += ix * ix
				gxy += ix * iy
				gyy += iy * iy
				bx += -it * ix
				by += -it * iy
				samples++
			}
		}

		if samples == 0 {
			return pt, false
		}

		det := gxx*gyy - gxy*gxy
		if math.Abs(det) < 1e-9 {
			return pt, false
		}

		dx := (gyy*bx - gxy*by) / det
		dy := (gxx*by - gxy*bx) / det

		pt.X += dx
		pt.Y += dy

		if dx*dx+dy*dy < params.TrackPrecision*params.TrackPrecision {
			return pt, true
		}
	}

	return pt, true
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// bilinear samples img at fractional coordinates (x, y), clamping to bounds.
func bilinear(img *image.Gray, x, y float64) float64 {
	b := img.Bounds()
	x = clampF(x, float64(b.Min.X), float64(b.Max.X-1))
	y = clampF(y, float64(b.Min.Y), float64(b.Max.Y-1))

	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 > b.Max.X-1 {
		x1 = x0
	}
	if y1 > b.Max.Y-1 {
		y1 = y0
	}

	fx := x - float64(x0)
	fy := y - float64(y0)

	v00 := float64(img.GrayAt(x0, y0).Y)
	v10 := float64(img.GrayAt(x1, y0).Y)
	v01 := float64(img.GrayAt(x0, y1).Y)
	v11 := float64(img.GrayAt(x1, y1).Y)

	return v00*(1-fx)*(1-fy) + v10*fx*(1-fy) + v01*(1-fx)*fy + v11*fx*fy
}

// gradX/gradY are central-difference image gradients sampled at fractional
// coordinates via bilinear interpolation.
func gradX(img *image.Gray, x, y float64) float64 {
	return (bilinear(img, x+1, y) - bilinear(img, x-1, y)) / 2
}

func gradY(img *image.Gray, x, y float64) float64 {
	return (bilinear(img, x, y+1) - bilinear(img, x, y-1)) / 2
}
