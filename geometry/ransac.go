package geometry

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// RansacParams bundles the inlier error threshold and desired success
// probability for TwoPointRansac.
type RansacParams struct {
	InlierError        float64
	SuccessProbability float64
}

// assumedInlierRatio is the per-point inlier rate the iteration-count
// formula assumes for a 2-point minimal sample.
const assumedInlierRatio = 0.7

// IterationCount returns the number of RANSAC iterations needed to reach
// successProbability assuming a 2-point minimal sample and a 0.7 per-point
// inlier rate: ceil(log(1-p) / log(1-0.7^2)).
func IterationCount(successProbability float64) int {
	n := math.Log(1-successProbability) / math.Log(1-assumedInlierRatio*assumedInlierRatio)
	return int(math.Ceil(n))
}

// rescalePoints jointly rescales pts1 and pts2 so their combined mean norm
// is sqrt(2), for numerical conditioning, and returns the scaling factor
// applied.
func rescalePoints(pts1, pts2 []r2.Point) float64 {
	sum := 0.0
	for i := range pts1 {
		sum += math.Hypot(pts1[i].X, pts1[i].Y)
		sum += math.Hypot(pts2[i].X, pts2[i].Y)
	}
	if sum == 0 {
		return 1
	}
	scale := float64(len(pts1)+len(pts2)) / sum * math.Sqrt2
	for i := range pts1 {
		pts1[i] = r2.Point{X: pts1[i].X * scale, Y: pts1[i].Y * scale}
		pts2[i] = r2.Point{X: pts2[i].X * scale, Y: pts2[i].Y * scale}
	}
	return scale
}

// TwoPointRansac runs rotation-compensated translation-only two-point
// RANSAC between undistorted normalized points pts1Undist (previous frame)
// and pts2Undist (current frame), after rotating pts1Undist into the
// current frame by rPrevToCurr. It returns an inlier mask parallel to the
// input slices. Callers invoke this once per camera with pre-undistorted
// point sets. Panics if pts1Undist and pts2Undist have different lengths.
func TwoPointRansac(pts1Undist, pts2Undist []r2.Point, rPrevToCurr *mat.Dense, averageInverseFocalLength float64, params RansacParams) []bool {
	if len(pts1Undist) != len(pts2Undist) {
		panic(errors.Errorf("geometry: mismatched point set sizes %d != %d", len(pts1Undist), len(pts2Undist)))
	}
	n := len(pts1Undist)
	markers := make([]bool, n)
	for i := range markers {
		markers[i] = true
	}
	if n == 0 {
		return markers
	}

	normPixelUnit := averageInverseFocalLength
	iterNum := IterationCount(params.SuccessProbability)

	pts1 := make([]r2.Point, n)
	for i, p := range pts1Undist {
		rotated := matVecHomogeneous(rPrevToCurr, p)
		pts1[i] = rotated
	}
	pts2 := make([]r2.Point, n)
	copy(pts2, pts2Undist)

	scale := rescalePoints(pts1, pts2)
	normPixelUnit *= scale

	ptsDiff := make([]r2.Point, n)
	for i := range pts1 {
		ptsDiff[i] = r2.Point{X: pts1[i].X - pts2[i].X, Y: pts1[i].Y - pts2[i].Y}
	}

	meanPtDistance := 0.0
	rawInlierCount := 0
	for i, d := range ptsDiff {
		dist := math.Hypot(d.X, d.Y)
		if dist > 50.0*normPixelUnit {
			markers[i] = false
		} else {
			meanPtDistance += dist
			rawInlierCount++
		}
	}
	if rawInlierCount < 3 {
		for i := range markers {
			markers[i] = false
		}
		return markers
	}
	meanPtDistance /= float64(rawInlierCount)

	if meanPtDistance < normPixelUnit {
		for i, d := range ptsDiff {
			if !markers[i] {
				continue
			}
			if math.Hypot(d.X, d.Y) > params.InlierError*normPixelUnit {
				markers[i] = false
			}
		}
		return markers
	}

	coeffT := mat.NewDense(n, 3, nil)
	for i := range ptsDiff {
		coeffT.Set(i, 0, ptsDiff[i].Y)
		coeffT.Set(i, 1, -ptsDiff[i].X)
		coeffT.Set(i, 2, pts1[i].X*pts2[i].Y-pts1[i].Y*pts2[i].X)
	}

	var rawInlierIdx []int
	for i, ok := range markers {
		if ok {
			rawInlierIdx = append(rawInlierIdx, i)
		}
	}

	var bestInlierSet []int

	for iter := 0; iter < iterNum; iter++ {
		if len(rawInlierIdx) < 2 {
			break
		}
		pairIdx1 := rawInlierIdx[rand.Intn(len(rawInlierIdx))]
		idxDiff := 1
		if len(rawInlierIdx) > 2 {
			idxDiff = 1 + rand.Intn(len(rawInlierIdx)-1)
		}
		pairIdx2 := pairIdx1 + idxDiff
		if pairIdx2 >= len(rawInlierIdx) {
			pairIdx2 -= len(rawInlierIdx)
		}

		coeffTx := [2]float64{coeffT.At(pairIdx1, 0), coeffT.At(pairIdx2, 0)}
		coeffTy := [2]float64{coeffT.At(pairIdx1, 1), coeffT.At(pairIdx2, 1)}
		coeffTz := [2]float64{coeffT.At(pairIdx1, 2), coeffT.At(pairIdx2, 2)}

		l1Tx := math.Abs(coeffTx[0]) + math.Abs(coeffTx[1])
		l1Ty := math.Abs(coeffTy[0]) + math.Abs(coeffTy[1])
		l1Tz := math.Abs(coeffTz[0]) + math.Abs(coeffTz[1])

		baseIndicator := 0
		best := l1Tx
		if l1Ty < best {
			baseIndicator = 1
			best = l1Ty
		}
		if l1Tz < best {
			baseIndicator = 2
		}

		model, ok := solveModel(baseIndicator, coeffTx, coeffTy, coeffTz)
		if !ok {
			continue
		}

		var inlierSet []int
		for i := 0; i < n; i++ {
			if !markers[i] {
				continue
			}
			e := coeffT.At(i, 0)*model[0] + coeffT.At(i, 1)*model[1] + coeffT.At(i, 2)*model[2]
			if math.Abs(e) < params.InlierError*normPixelUnit {
				inlierSet = append(inlierSet, i)
			}
		}

		if float64(len(inlierSet)) < 0.2*float64(n) {
			continue
		}

		// The refit model only recomputes the fitted translation; selection
		// between iterations is purely by inlier-set size.
		if _, ok := refitModel(baseIndicator, coeffT, inlierSet); !ok {
			continue
		}

		if len(inlierSet) > len(bestInlierSet) {
			bestInlierSet = inlierSet
		}
	}

	out := make([]bool, n)
	for _, idx := range bestInlierSet {
		out[idx] = true
	}
	return out
}

// matVecHomogeneous applies a 3x3 rotation to the homogeneous point (x,y,1)
// and returns the first two components of the result, without dividing by
// the third.
func matVecHomogeneous(r *mat.Dense, p r2.Point) r2.Point {
	v := mat.NewVecDense(3, []float64{p.X, p.Y, 1})
	var out mat.VecDense
	out.MulVec(r, v)
	return r2.Point{X: out.AtVec(0), Y: out.AtVec(1)}
}

// solveModel solves the minimal 2-point translation-direction model, fixing
// the component named by baseIndicator to 1.0 and solving the remaining 2x2
// linear system for the other two.
func solveModel(baseIndicator int, tx, ty, tz [2]float64) ([3]float64, bool) {
	cols := [3][2]float64{tx, ty, tz}
	others := [3][2]int{{1, 2}, {0, 2}, {0, 1}}[baseIndicator]

	a := mat.NewDense(2, 2, []float64{
		cols[others[0]][0], cols[others[1]][0],
		cols[others[0]][1], cols[others[1]][1],
	})
	b := mat.NewVecDense(2, []float64{-cols[baseIndicator][0], -cols[baseIndicator][1]})

	var aInv mat.Dense
	if err := aInv.Inverse(a); err != nil {
		return [3]float64{}, false
	}
	var sol mat.VecDense
	sol.MulVec(&aInv, b)

	var model [3]float64
	model[baseIndicator] = 1.0
	model[others[0]] = sol.AtVec(0)
	model[others[1]] = sol.AtVec(1)
	return model, true
}

// refitModel refits the model using ordinary least squares over every index
// in inlierSet: the normal-equations solve (A^T A)^-1 A^T b.
func refitModel(baseIndicator int, coeffT *mat.Dense, inlierSet []int) ([3]float64, bool) {
	others := [3][2]int{{1, 2}, {0, 2}, {0, 1}}[baseIndicator]

	a := mat.NewDense(len(inlierSet), 2, nil)
	b := mat.NewVecDense(len(inlierSet), nil)
	for i, idx := range inlierSet {
		a.Set(i, 0, coeffT.At(idx, others[0]))
		a.Set(i, 1, coeffT.At(idx, others[1]))
		b.SetVec(i, -coeffT.At(idx, baseIndicator))
	}

	var at mat.Dense
	at.CloneFrom(a.T())

	var ata mat.Dense
	ata.Mul(&at, a)

	var ataInv mat.Dense
	if err := ataInv.Inverse(&ata); err != nil {
		return [3]float64{}, false
	}

	var atb mat.VecDense
	atb.MulVec(&at, b)

	var sol mat.VecDense
	sol.MulVec(&ataInv, &atb)

	var model [3]float64
	model[baseIndicator] = 1.0
	model[others[0]] = sol.AtVec(0)
	model[others[1]] = sol.AtVec(1)
	return model, true
}
