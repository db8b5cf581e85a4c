package imuintegrator

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func identity3() *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	m.Set(0, 0, 1)
	m.Set(1, 1, 1)
	m.Set(2, 2, 1)
	return m
}

func TestSelectWindowIncludesBeforePrevAndAfterCurr(t *testing.T) {
	samples := []Sample{
		{Timestamp: 0.0}, // excluded: 0.0 - 1.0 = -1.0 < -0.01
		{Timestamp: 0.995},
		{Timestamp: 1.0},
		{Timestamp: 1.05},
		{Timestamp: 1.104}, // included: 1.104-1.1=0.004 < 0.005
		{Timestamp: 1.2},   // excluded
	}
	begin, end := selectWindow(samples, 1.0, 1.1)
	test.That(t, begin, test.ShouldEqual, 1)
	test.That(t, end, test.ShouldEqual, 5)
}

func TestMeanAngularVelocityEmptyRangeIsZero(t *testing.T) {
	v := meanAngularVelocity(nil, 0, 0)
	test.That(t, v, test.ShouldResemble, r3.Vector{})
}

func TestMeanAngularVelocityAverages(t *testing.T) {
	samples := []Sample{
		{AngularVelocity: r3.Vector{X: 1, Y: 0, Z: 0}},
		{AngularVelocity: r3.Vector{X: 3, Y: 0, Z: 0}},
	}
	v := meanAngularVelocity(samples, 0, 2)
	test.That(t, v.X, test.ShouldAlmostEqual, 2.0, 1e-12)
}

func TestRodriguesZeroVectorIsIdentity(t *testing.T) {
	r := rodrigues(r3.Vector{})
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			test.That(t, r.At(i, j), test.ShouldAlmostEqual, want, 1e-12)
		}
	}
}

func TestRodriguesRotatesAboutZAxis(t *testing.T) {
	theta := math.Pi / 2
	r := rodrigues(r3.Vector{X: 0, Y: 0, Z: theta})
	// Rotating the x-axis by +90 degrees about z should yield +y.
	rotated := matVec(r, r3.Vector{X: 1, Y: 0, Z: 0})
	test.That(t, rotated.X, test.ShouldAlmostEqual, 0.0, 1e-9)
	test.That(t, rotated.Y, test.ShouldAlmostEqual, 1.0, 1e-9)
}

func TestIntegrateNoSamplesReturnsIdentity(t *testing.T) {
	q := NewQueue()
	out := Integrate(q, 0.0, 0.1, []*mat.Dense{identity3(), identity3()})
	test.That(t, len(out), test.ShouldEqual, 2)
	for _, rot := range out {
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				want := 0.0
				if i == j {
					want = 1.0
				}
				test.That(t, rot.R.At(i, j), test.ShouldAlmostEqual, want, 1e-12)
			}
		}
	}
	test.That(t, q.Len(), test.ShouldEqual, 0)
}

func TestIntegrateDropsConsumedSamplesOnly(t *testing.T) {
	q := NewQueue()
	q.Push(Sample{Timestamp: 0.0, AngularVelocity: r3.Vector{X: 0.1}})
	q.Push(Sample{Timestamp: 0.05, AngularVelocity: r3.Vector{X: 0.1}})
	q.Push(Sample{Timestamp: 0.2, AngularVelocity: r3.Vector{X: 0.1}})

	_ = Integrate(q, 0.0, 0.05, []*mat.Dense{identity3()})
	// The sample at 0.2 is well past the 0.005s after-window for tCurr=0.05
	// and must survive for the next call.
	test.That(t, q.Len(), test.ShouldEqual, 1)
}
