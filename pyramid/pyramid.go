// Package pyramid builds Gaussian image pyramids used as the coarse-to-fine
// search structure for pyramidal Lucas-Kanade tracking.
package pyramid

import (
	"image"
	"image/color"
)

// Level is a single pyramid octave: a grayscale image and its dimensions.
// No gradients are stored; the klt package computes them from Img.
type Level struct {
	Img    *image.Gray
	Width  int
	Height int
}

// Pyramid is a coarse-to-fine stack of Level, index 0 is full resolution.
// Gradients are recomputed lazily by the klt package rather than cached
// here, since not every level's gradient is needed every frame.
type Pyramid struct {
	Levels []Level
}

// Build constructs a fresh Pyramid with the given number of additional
// levels beyond the base image (i.e. len(Levels) == levels+1); derivatives
// are computed on demand by the tracker rather than here. Each level is the
// previous one smoothed with a 5-tap Gaussian kernel and downsampled by 2,
// using reflected edge handling.
func Build(img *image.Gray, levels int) *Pyramid {
	p := &Pyramid{}
	BuildInto(p, img, levels)
	return p
}

// BuildInto builds into dst in place, reusing dst's existing per-level image
// buffers when their dimensions already match img's (i.e. when dst was
// previously built from a same-sized image), so that steady-state frame
// processing does not reallocate the downsampled levels every frame. Level
// 0 always aliases img directly rather than copying it, since the caller
// owns that buffer for the lifetime of one frame.
func BuildInto(dst *Pyramid, img *image.Gray, levels int) {
	if len(dst.Levels) != levels+1 {
		dst.Levels = make([]Level, levels+1)
	}
	dst.Levels[0] = Level{Img: img, Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
	cur := img
	for i := 1; i <= levels; i++ {
		cur = downsampleInto(dst.Levels[i].Img, cur)
		dst.Levels[i] = Level{Img: cur, Width: cur.Bounds().Dx(), Height: cur.Bounds().Dy()}
	}
}

// gaussianKernel5 is the standard 5-tap binomial approximation to a
// Gaussian.
var gaussianKernel5 = [5]float64{1, 4, 6, 4, 1}

const gaussianKernelSum = 16.0

// reflect101 maps an out-of-bounds index into [0, n) using reflected
// (mirror-101) border semantics: the edge pixel itself is not duplicated.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}

// downsample applies a separable 5-tap Gaussian blur then halves resolution,
// always allocating a fresh output image.
func downsample(src *image.Gray) *image.Gray {
	return downsampleInto(nil, src)
}

// downsampleInto is downsample but writes into dst's backing image when dst
// is non-nil and already sized to the expected output, instead of
// allocating a new one.
func downsampleInto(dst *image.Gray, src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	blurred := make([]float64, w*h)
	at := func(x, y int) float64 {
		return float64(src.GrayAt(b.Min.X+reflect101(x, w), b.Min.Y+reflect101(y, h)).Y)
	}

	// Horizontal pass.
	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0.0
			for k := -2; k <= 2; k++ {
				sum += gaussianKernel5[k+2] * at(x+k, y)
			}
			tmp[y*w+x] = sum / gaussianKernelSum
		}
	}
	// Vertical pass, reading from tmp with the same reflect border.
	tmpAt := func(x, y int) float64 {
		return tmp[reflect101(y, h)*w+reflect101(x, w)]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0.0
			for k := -2; k <= 2; k++ {
				sum += gaussianKernel5[k+2] * tmpAt(x, y+k)
			}
			blurred[y*w+x] = sum / gaussianKernelSum
		}
	}

	outW, outH := (w+1)/2, (h+1)/2
	out := dst
	if out == nil || out.Bounds().Dx() != outW || out.Bounds().Dy() != outH {
		out = image.NewGray(image.Rect(0, 0, outW, outH))
	}
	for y := 0; y < outH; y++ {
		for x := 0; x < outW; x++ {
			v := blurred[(2*y)*w+(2*x)]
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			out.SetGray(x, y, color.Gray{Y: uint8(v + 0.5)})
		}
	}
	return out
}
