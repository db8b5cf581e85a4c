package pyramid

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
)

func solidGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func TestBuildProducesLevelsPlusOne(t *testing.T) {
	img := solidGray(64, 48, 100)
	p := Build(img, 3)
	test.That(t, len(p.Levels), test.ShouldEqual, 4)
	test.That(t, p.Levels[0].Width, test.ShouldEqual, 64)
	test.That(t, p.Levels[0].Height, test.ShouldEqual, 48)
}

func TestBuildHalvesResolutionEachLevel(t *testing.T) {
	img := solidGray(64, 48, 100)
	p := Build(img, 2)
	test.That(t, p.Levels[1].Width, test.ShouldEqual, 32)
	test.That(t, p.Levels[1].Height, test.ShouldEqual, 24)
	test.That(t, p.Levels[2].Width, test.ShouldEqual, 16)
	test.That(t, p.Levels[2].Height, test.ShouldEqual, 12)
}

func TestDownsamplePreservesConstantIntensity(t *testing.T) {
	img := solidGray(32, 32, 200)
	down := downsample(img)
	for y := 0; y < down.Bounds().Dy(); y++ {
		for x := 0; x < down.Bounds().Dx(); x++ {
			test.That(t, down.GrayAt(x, y).Y, test.ShouldEqual, uint8(200))
		}
	}
}

func TestBuildIntoReusesMatchingLevelBuffers(t *testing.T) {
	img1 := solidGray(64, 48, 100)
	p := &Pyramid{}
	BuildInto(p, img1, 2)
	level1Buf := p.Levels[1].Img
	level2Buf := p.Levels[2].Img

	img2 := solidGray(64, 48, 150)
	BuildInto(p, img2, 2)
	test.That(t, p.Levels[1].Img, test.ShouldEqual, level1Buf)
	test.That(t, p.Levels[2].Img, test.ShouldEqual, level2Buf)
	test.That(t, p.Levels[1].Img.GrayAt(0, 0).Y, test.ShouldEqual, uint8(150))
}

func TestBuildIntoReallocatesOnDimensionChange(t *testing.T) {
	p := &Pyramid{}
	BuildInto(p, solidGray(64, 48, 100), 2)
	oldBuf := p.Levels[1].Img

	BuildInto(p, solidGray(32, 24, 100), 2)
	test.That(t, p.Levels[1].Img, test.ShouldNotEqual, oldBuf)
	test.That(t, p.Levels[1].Width, test.ShouldEqual, 16)
	test.That(t, p.Levels[1].Height, test.ShouldEqual, 12)
}

func TestReflect101StaysInBounds(t *testing.T) {
	for i := -10; i < 20; i++ {
		r := reflect101(i, 8)
		test.That(t, r >= 0 && r < 8, test.ShouldBeTrue)
	}
}

func TestReflect101DoesNotDuplicateEdge(t *testing.T) {
	// BORDER_REFLECT_101: index -1 reflects to 1, not 0.
	test.That(t, reflect101(-1, 8), test.ShouldEqual, 1)
	test.That(t, reflect101(8, 8), test.ShouldEqual, 6)
}
