package frontend

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"go.viam.com/test"

	"go.viam.com/vio-frontend/gridstore"
	"go.viam.com/vio-frontend/pyramid"
)

func cornerTestImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 80, 80))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.Gray{Y: 20}}, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(20, 20, 60, 60), &image.Uniform{C: color.Gray{Y: 230}}, image.Point{}, draw.Src)
	return img
}

func identity4x4() [4][4]float64 {
	var m [4][4]float64
	m[0][0], m[1][1], m[2][2], m[3][3] = 1, 1, 1, 1
	return m
}

func testConfig() Config {
	cfg := DefaultConfig()
	cam := CameraConfig{
		Resolution:       [2]int{80, 80},
		Intrinsics:       [4]float64{60, 60, 40, 40},
		DistortionModel:  "radtan",
		DistortionCoeffs: [4]float64{0, 0, 0, 0},
	}
	cfg.Cam0 = cam
	cfg.Cam0.TCamImu = identity4x4()
	cfg.Cam1 = cam
	cfg.Cam1.TCnCnm1 = identity4x4()
	cfg.GridRow, cfg.GridCol = 2, 2
	cfg.GridMinFeatureNum = 1
	cfg.GridMaxFeatureNum = 3
	cfg.PyramidLevels = 2
	cfg.PatchSize = 11
	cfg.MaxIteration = 10
	return cfg
}

func TestReplenishReturnsDetectedAndMatchedCounts(t *testing.T) {
	o, err := NewOrchestrator(testConfig(), nil, nil, nil)
	test.That(t, err, test.ShouldBeNil)

	img := cornerTestImage()
	frame := StereoFrame{Timestamp: 1, LeftImage: img, RightImage: img}
	pyr0 := pyramid.Build(img, o.cfg.PyramidLevels)
	pyr1 := pyramid.Build(img, o.cfg.PyramidLevels)

	store := gridstore.NewGridStore(o.cfg.GridRow, o.cfg.GridCol)
	detectedNew, matchedNew := o.replenish(frame, pyr0, pyr1, store)

	test.That(t, detectedNew > 0, test.ShouldBeTrue)
	test.That(t, matchedNew <= detectedNew, test.ShouldBeTrue)
	test.That(t, store.Count() <= matchedNew, test.ShouldBeTrue)
	for cell := 0; cell < store.NumCells(); cell++ {
		test.That(t, store.CellCount(cell) <= o.cfg.GridMinFeatureNum, test.ShouldBeTrue)
	}
}

func TestNewOrchestratorRejectsInvalidConfig(t *testing.T) {
	_, err := NewOrchestrator(Config{}, nil, nil, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestProcessFrameDropsMismatchedDimensions(t *testing.T) {
	o, err := NewOrchestrator(testConfig(), nil, nil, nil)
	test.That(t, err, test.ShouldBeNil)

	badFrame := StereoFrame{
		Timestamp:  1,
		LeftImage:  image.NewGray(image.Rect(0, 0, 10, 10)),
		RightImage: cornerTestImage(),
	}
	_, err = o.ProcessFrame(badFrame)
	test.That(t, err, test.ShouldEqual, ErrFrameDropped)
}

func TestStaticSceneKeepsStableFeatureSetAcrossFrames(t *testing.T) {
	o, err := NewOrchestrator(testConfig(), nil, nil, nil)
	test.That(t, err, test.ShouldBeNil)

	img := cornerTestImage()

	info1, err := o.ProcessFrame(StereoFrame{Timestamp: 1, LeftImage: img, RightImage: img})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info1.BeforeTracking > 0, test.ShouldBeTrue)
	test.That(t, o.prevStore.Count() > 0, test.ShouldBeTrue)

	n1 := o.prevStore.Count()
	ids1 := map[gridstore.FeatureID]int{}
	o.prevStore.Iterate(func(_ int, recs []gridstore.FeatureRecord) {
		for _, r := range recs {
			ids1[r.ID] = r.Lifetime
		}
	})

	info2, err := o.ProcessFrame(StereoFrame{Timestamp: 2, LeftImage: img, RightImage: img})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, o.prevStore.Count(), test.ShouldEqual, n1)
	test.That(t, info2.AfterRansac, test.ShouldEqual, n1)
	o.prevStore.Iterate(func(_ int, recs []gridstore.FeatureRecord) {
		for _, r := range recs {
			prev, ok := ids1[r.ID]
			test.That(t, ok, test.ShouldBeTrue)
			test.That(t, r.Lifetime, test.ShouldEqual, prev+1)
		}
	})

	info3, err := o.ProcessFrame(StereoFrame{Timestamp: 3, LeftImage: img, RightImage: img})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, o.prevStore.Count(), test.ShouldEqual, n1)
	test.That(t, info3.AfterRansac, test.ShouldEqual, n1)
}
