package frontend

import (
	"image"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/vio-frontend/camera"
)

func countTrue(ok []bool) int {
	n := 0
	for _, v := range ok {
		if v {
			n++
		}
	}
	return n
}

func gatherPoints(pts []r2.Point, idx []int) []r2.Point {
	out := make([]r2.Point, len(idx))
	for i, j := range idx {
		out[i] = pts[j]
	}
	return out
}

func prevRightPtsOf(prev []prevFeature) []r2.Point {
	out := make([]r2.Point, len(prev))
	for i, f := range prev {
		out[i] = f.rightPt
	}
	return out
}

func sortIndicesByResponseDesc(idxs []int, responses []float64) {
	sort.SliceStable(idxs, func(i, j int) bool { return responses[idxs[i]] > responses[idxs[j]] })
}

// nearExisting reports whether p falls within a (2*radius+1)^2 neighborhood
// of any point in existing. Used as a post-detection filter during
// replenishment, equivalent in effect to zeroing the neighborhood before
// detection, since a masked pixel can only ever suppress — never create —
// a candidate at exactly that location.
func nearExisting(p image.Point, existing map[image.Point]bool, radius int) bool {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if existing[image.Point{X: p.X + dx, Y: p.Y + dy}] {
				return true
			}
		}
	}
	return false
}

// homographyFromRotation returns K * r * K^-1 as a plain array: the
// pixel-space rotation-compensation homography used to predict a tracked
// point's current-frame location from its previous-frame location.
func homographyFromRotation(in *camera.Intrinsics, r *mat.Dense) [3][3]float64 {
	k := in.Matrix()
	kInv, err := camera.CameraMatrixInverse(in)
	if err != nil {
		return identity3Array()
	}
	var kr mat.Dense
	kr.Mul(k, r)
	var h mat.Dense
	h.Mul(&kr, kInv)
	return denseToArray3(&h)
}

func identity3Array() [3][3]float64 {
	var h [3][3]float64
	h[0][0], h[1][1], h[2][2] = 1, 1, 1
	return h
}

func denseToArray3(m *mat.Dense) [3][3]float64 {
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

func matMul3(a, b *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Mul(a, b)
	return &out
}

func transposeOf(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(cols, rows, nil)
	out.CloneFrom(m.T())
	return out
}

func matVec3Arr(m *mat.Dense, v [3]float64) [3]float64 {
	vec := mat.NewVecDense(3, []float64{v[0], v[1], v[2]})
	var out mat.VecDense
	out.MulVec(m, vec)
	return [3]float64{out.AtVec(0), out.AtVec(1), out.AtVec(2)}
}

func matVec3Vector(m *mat.Dense, v r3.Vector) r3.Vector {
	vec := mat.NewVecDense(3, []float64{v.X, v.Y, v.Z})
	var out mat.VecDense
	out.MulVec(m, vec)
	return r3.Vector{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

func subVec(a, b r3.Vector) r3.Vector {
	return r3.Vector{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z}
}
