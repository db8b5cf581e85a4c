package camera

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestPoseInverseRoundTrip(t *testing.T) {
	p := SE3FromRows([4][4]float64{
		{1, 0, 0, 0.1},
		{0, 1, 0, -0.02},
		{0, 0, 1, 0.05},
		{0, 0, 0, 1},
	})
	inv := p.Inverse()
	test.That(t, inv.Translation.X, test.ShouldAlmostEqual, -0.1, 1e-12)
	test.That(t, inv.Translation.Y, test.ShouldAlmostEqual, 0.02, 1e-12)
	test.That(t, inv.Translation.Z, test.ShouldAlmostEqual, -0.05, 1e-12)

	roundTrip := inv.Inverse()
	test.That(t, roundTrip.Translation.X, test.ShouldAlmostEqual, p.Translation.X, 1e-12)
}

func TestNewCalibrationRejectsInvalidIntrinsics(t *testing.T) {
	_, err := NewCalibration(Intrinsics{}, RadTan, Coeffs{}, Identity(), nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCalibrationRCamImuMatchesInverseOfTCamImu(t *testing.T) {
	tCamImu := SE3FromRows([4][4]float64{
		{0, -1, 0, 0.01},
		{1, 0, 0, 0.02},
		{0, 0, 1, 0.03},
		{0, 0, 0, 1},
	})
	c, err := NewCalibration(Intrinsics{Width: 640, Height: 480, Fx: 400, Fy: 400, Cx: 320, Cy: 240}, RadTan, Coeffs{}, tCamImu, nil)
	test.That(t, err, test.ShouldBeNil)

	expected := tCamImu.Inverse()
	got := c.RCamImu()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			test.That(t, got.At(i, j), test.ShouldAlmostEqual, expected.Rotation.At(i, j), 1e-12)
		}
	}

	gotT := c.TCamImuTranslation()
	test.That(t, gotT, test.ShouldResemble, r3.Vector{X: expected.Translation.X, Y: expected.Translation.Y, Z: expected.Translation.Z})
}
