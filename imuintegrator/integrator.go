package imuintegrator

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Window bounds for selecting IMU samples relevant to the interval between
// two frame timestamps: samples more than 10ms before tPrev are skipped,
// and scanning stops at the first sample 5ms or more past tCurr. The asymmetry likely
// reflects a sensor-specific timestamp offset; treat both as tunables.
const (
	windowBeforePrev = 0.01
	windowAfterCurr  = 0.005
)

// Rotation is the relative rotation of a single camera between two frames,
// R_{prev->curr} expressed in that camera's frame.
type Rotation struct {
	R *mat.Dense // 3x3
}

// Identity returns the 3x3 identity rotation.
func Identity() Rotation {
	r := mat.NewDense(3, 3, nil)
	r.Set(0, 0, 1)
	r.Set(1, 1, 1)
	r.Set(2, 2, 1)
	return Rotation{R: r}
}

// selectWindow returns the half-open index range [begin, end) of samples
// relevant to the (tPrev, tCurr) interval.
func selectWindow(samples []Sample, tPrev, tCurr float64) (begin, end int) {
	begin = 0
	for begin < len(samples) && samples[begin].Timestamp-tPrev < -windowBeforePrev {
		begin++
	}
	end = begin
	for end < len(samples) && samples[end].Timestamp-tCurr < windowAfterCurr {
		end++
	}
	return begin, end
}

// meanAngularVelocity returns the componentwise mean angular velocity over
// samples[begin:end], or the zero vector if the range is empty.
func meanAngularVelocity(samples []Sample, begin, end int) r3.Vector {
	var sum r3.Vector
	n := end - begin
	if n <= 0 {
		return sum
	}
	for i := begin; i < end; i++ {
		sum = sum.Add(samples[i].AngularVelocity)
	}
	return sum.Mul(1.0 / float64(n))
}

// rodrigues computes the rotation matrix corresponding to a rotation vector
// via the Rodrigues formula.
func rodrigues(v r3.Vector) *mat.Dense {
	theta := v.Norm()
	r := mat.NewDense(3, 3, nil)
	if theta < 1e-12 {
		r.Set(0, 0, 1)
		r.Set(1, 1, 1)
		r.Set(2, 2, 1)
		return r
	}
	axis := v.Mul(1.0 / theta)
	k := skew(axis)

	var kk mat.Dense
	kk.Mul(k, k)

	identity := mat.NewDense(3, 3, nil)
	identity.Set(0, 0, 1)
	identity.Set(1, 1, 1)
	identity.Set(2, 2, 1)

	sinT := math.Sin(theta)
	oneMinusCosT := 1 - math.Cos(theta)

	var kScaled, kkScaled mat.Dense
	kScaled.Scale(sinT, k)
	kkScaled.Scale(oneMinusCosT, &kk)

	r.Add(identity, &kScaled)
	r.Add(r, &kkScaled)
	return r
}

// skew returns the 3x3 skew-symmetric cross-product matrix [v]_x.
func skew(v r3.Vector) *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	m.Set(0, 1, -v.Z)
	m.Set(0, 2, v.Y)
	m.Set(1, 0, v.Z)
	m.Set(1, 2, -v.X)
	m.Set(2, 0, -v.Y)
	m.Set(2, 1, v.X)
	return m
}

func transpose3(m *mat.Dense) *mat.Dense {
	out := mat.NewDense(3, 3, nil)
	out.CloneFrom(m.T())
	return out
}

func matVec(m *mat.Dense, v r3.Vector) r3.Vector {
	vec := mat.NewVecDense(3, []float64{v.X, v.Y, v.Z})
	var out mat.VecDense
	out.MulVec(m, vec)
	return r3.Vector{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// Integrate computes the per-camera relative rotation R_{prev->curr} for
// each camera's R_cam_imu (camera<-IMU rotation) between tPrev and tCurr,
// draining consumed samples from queue. It runs a windowed-mean-then-
// Rodrigues-then-transpose pipeline once per entry in rCamImu, so a caller
// with any number of cameras can reuse it directly.
func Integrate(queue *Queue, tPrev, tCurr float64, rCamImu []*mat.Dense) []Rotation {
	samples := queue.Snapshot()
	begin, end := selectWindow(samples, tPrev, tCurr)

	mean := meanAngularVelocity(samples, begin, end)
	dt := tCurr - tPrev

	out := make([]Rotation, len(rCamImu))
	for i, rCam := range rCamImu {
		camMeanAngVel := matVec(transpose3(rCam), mean)
		rotVec := camMeanAngVel.Mul(dt)
		r := rodrigues(rotVec)
		out[i] = Rotation{R: transpose3(r)}
	}

	queue.DropBefore(end)
	return out
}
