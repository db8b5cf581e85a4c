package camera

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrConfigInvalid signals missing or malformed calibration, fatal at
// startup.
var ErrConfigInvalid = errors.New("camera calibration is invalid")

// Pose is a rigid transform: a 3x3 rotation plus a 3-vector translation.
type Pose struct {
	Rotation    *mat.Dense
	Translation r3.Vector
}

// Identity returns the identity pose.
func Identity() Pose {
	r := mat.NewDense(3, 3, nil)
	r.Set(0, 0, 1)
	r.Set(1, 1, 1)
	r.Set(2, 2, 1)
	return Pose{Rotation: r, Translation: r3.Vector{}}
}

// Inverse returns the inverse pose (R^T, -R^T * t).
func (p Pose) Inverse() Pose {
	rt := transpose(p.Rotation)
	t := matVec3(rt, p.Translation)
	return Pose{Rotation: rt, Translation: r3.Vector{X: -t.X, Y: -t.Y, Z: -t.Z}}
}

// Compose returns p followed by q, i.e. q*p in homogeneous-transform terms:
// rotation = q.R * p.R, translation = q.R*p.t + q.t.
func Compose(p, q Pose) Pose {
	var rOut mat.Dense
	rOut.Mul(q.Rotation, p.Rotation)
	t := matVec3(q.Rotation, p.Translation)
	t = r3.Vector{X: t.X + q.Translation.X, Y: t.Y + q.Translation.Y, Z: t.Z + q.Translation.Z}
	return Pose{Rotation: &rOut, Translation: t}
}

func transpose(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(cols, rows, nil)
	out.CloneFrom(m.T())
	return out
}

func matVec3(m *mat.Dense, v r3.Vector) r3.Vector {
	vec := mat.NewVecDense(3, []float64{v.X, v.Y, v.Z})
	var out mat.VecDense
	out.MulVec(m, vec)
	return r3.Vector{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// SE3FromRows builds a Pose from a 4x4 row-major homogeneous transform, the
// shape configuration files use for camera/IMU extrinsics.
func SE3FromRows(m [4][4]float64) Pose {
	r := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r.Set(i, j, m[i][j])
		}
	}
	return Pose{
		Rotation:    r,
		Translation: r3.Vector{X: m[0][3], Y: m[1][3], Z: m[2][3]},
	}
}

// Calibration bundles a single camera's resolution, intrinsics, distortion
// model and coefficients, and its IMU extrinsics.
type Calibration struct {
	Intrinsics        Intrinsics
	DistortionModel   Model
	DistortionCoeffs  Coeffs
	TCamImu           Pose // IMU -> camera
	onUnknownModel    func(name string)
	distorter         Distorter
}

// NewCalibration validates and constructs a Calibration, returning
// ErrConfigInvalid if resolution/intrinsics are missing or malformed.
func NewCalibration(in Intrinsics, model Model, coeffs Coeffs, tCamImu Pose, onUnknownModel func(string)) (*Calibration, error) {
	if err := in.CheckValid(); err != nil {
		return nil, errors.Wrap(ErrConfigInvalid, err.Error())
	}
	c := &Calibration{
		Intrinsics:       in,
		DistortionModel:  model,
		DistortionCoeffs: coeffs,
		TCamImu:          tCamImu,
		onUnknownModel:   onUnknownModel,
	}
	c.distorter = NewDistorter(model, coeffs, onUnknownModel)
	return c, nil
}

// Distorter returns the lens distortion model for this camera.
func (c *Calibration) Distorter() Distorter { return c.distorter }

// RCamImu is the camera<-IMU rotation (i.e. rotates IMU-frame vectors into
// the camera frame).
func (c *Calibration) RCamImu() *mat.Dense {
	return c.TCamImu.Inverse().Rotation
}

// TCamImuTranslation is the IMU origin expressed in the camera frame.
func (c *Calibration) TCamImuTranslation() r3.Vector {
	return c.TCamImu.Inverse().Translation
}
