// Package fast implements FAST corner detection: a fixed-radius circle of
// pixels around a candidate is tested for a contiguous arc that is all
// brighter or all darker than the center pixel by a relative threshold.
package fast

import (
	"encoding/json"
	"image"
	"math"
	"os"
	"sort"

	"github.com/pkg/errors"
)

// Config is the FAST detector configuration: the relative contrast
// threshold, the circle/arc geometry, and the non-max suppression window.
type Config struct {
	Threshold      float64 `json:"threshold"`
	NMatchesCircle int     `json:"n_matches_circle"`
	NMSWinSize     int     `json:"nms_win_size"`
	Oriented       bool    `json:"oriented"`
}

// LoadFASTConfiguration reads a Config from a JSON file.
func LoadFASTConfiguration(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	cfg := &Config{}
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil
	}
	return cfg
}

// CrossIdx is the 4-neighbor cross pattern: right, bottom, left, top.
var CrossIdx = []image.Point{
	{1, 0}, {0, 1}, {-1, 0}, {0, -1},
}

// CircleIdx is the 16-pixel Bresenham circle of radius 3 used by the
// standard FAST-9/FAST-16 test, ordered starting at (3,0) and proceeding
// clockwise.
var CircleIdx = []image.Point{
	{3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1},
	{-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
	{0, -3}, {1, -3}, {2, -2}, {3, -1},
}

// GetPointValuesInNeighborhood returns the grayscale intensities of img at
// p+offset for every offset in idx, in order. Points outside img's bounds
// are skipped (not appended), matching the way the test rig only appends
// in-bounds samples.
func GetPointValuesInNeighborhood(img *image.Gray, p image.Point, idx []image.Point) []float64 {
	b := img.Bounds()
	vals := make([]float64, 0, len(idx))
	for _, off := range idx {
		q := p.Add(off)
		if !q.In(b) {
			continue
		}
		vals = append(vals, float64(img.GrayAt(q.X, q.Y).Y))
	}
	return vals
}

// isValidSliceVals reports whether s contains a contiguous run (wrapping
// around the end) of strictly more than n non-zero entries.
func isValidSliceVals(s []float64, n int) bool {
	l := len(s)
	if l == 0 {
		return false
	}
	best := 0
	run := 0
	for i := 0; i < 2*l; i++ {
		if s[i%l] != 0 {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 0
		}
		if best >= l {
			break
		}
	}
	return best > n
}

func sumOfPositiveValuesSlice(s []float64) float64 {
	sum := 0.0
	for _, v := range s {
		if v > 0 {
			sum += v
		}
	}
	return sum
}

func sumOfNegativeValuesSlice(s []float64) float64 {
	sum := 0.0
	for _, v := range s {
		if v < 0 {
			sum += v
		}
	}
	return sum
}

// getBrighterValues returns a 0/1 mask: 1 where s[i] > t, 0 otherwise.
func getBrighterValues(s []float64, t float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		if v > t {
			out[i] = 1
		}
	}
	return out
}

// getDarkerValues returns a 0/1 mask: 1 where s[i] < t, 0 otherwise.
func getDarkerValues(s []float64, t float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		if v < t {
			out[i] = 1
		}
	}
	return out
}

// crossPasses is the 4-point cross test used to reject most non-corners
// cheaply before paying for the full 16-point circle test. At least two of
// the four neighbors must be brighter (or darker) than the center, which the
// two outside neighbors of a right-angle corner pixel satisfy.
func crossPasses(img *image.Gray, p image.Point, threshold float64) bool {
	center := float64(img.GrayAt(p.X, p.Y).Y)
	vals := GetPointValuesInNeighborhood(img, p, CrossIdx)
	if len(vals) != len(CrossIdx) {
		return false
	}
	hi := center * (1 + threshold)
	lo := center * (1 - threshold)
	bright := getBrighterValues(vals, hi)
	dark := getDarkerValues(vals, lo)
	return sumOfPositiveValuesSlice(bright) >= 2 || sumOfPositiveValuesSlice(dark) >= 2
}

// ComputeResponseAt exposes the response score a caller already knows is a
// corner (e.g. one of ComputeFAST's own outputs) without rerunning
// detection, used by replenishment to sort candidates for per-cell capping.
func ComputeResponseAt(img *image.Gray, p image.Point, cfg *Config) (float64, bool) {
	return response(img, p, cfg)
}

// response scores a corner candidate by how strongly its circle pixels stand
// out from the center: over all 16 circle pixels, the larger of the summed
// positive deviations and the summed magnitude of the negative deviations.
func response(img *image.Gray, p image.Point, cfg *Config) (float64, bool) {
	center := float64(img.GrayAt(p.X, p.Y).Y)
	vals := GetPointValuesInNeighborhood(img, p, CircleIdx)
	if len(vals) != len(CircleIdx) {
		return 0, false
	}

	hi := center * (1 + cfg.Threshold)
	lo := center * (1 - cfg.Threshold)

	brightMask := getBrighterValues(vals, hi)
	darkMask := getDarkerValues(vals, lo)

	isCorner := isValidSliceVals(brightMask, cfg.NMatchesCircle) || isValidSliceVals(darkMask, cfg.NMatchesCircle)
	if !isCorner {
		return 0, false
	}

	deviations := make([]float64, len(vals))
	for i, v := range vals {
		deviations[i] = v - center
	}
	score := math.Max(sumOfPositiveValuesSlice(deviations), -sumOfNegativeValuesSlice(deviations))
	return score, true
}

// ComputeFAST detects FAST corners in img, applying the circle-radius border
// margin and non-maximum suppression within cfg.NMSWinSize, and returns
// corner locations ordered row-major.
func ComputeFAST(img *image.Gray, cfg *Config) []image.Point {
	b := img.Bounds()
	const margin = 3

	type scored struct {
		p image.Point
		r float64
	}
	var candidates []scored

	for y := b.Min.Y + margin; y < b.Max.Y-margin; y++ {
		for x := b.Min.X + margin; x < b.Max.X-margin; x++ {
			p := image.Point{X: x, Y: y}
			if !crossPasses(img, p, cfg.Threshold) {
				continue
			}
			if r, ok := response(img, p, cfg); ok {
				candidates = append(candidates, scored{p: p, r: r})
			}
		}
	}

	if cfg.NMSWinSize <= 1 {
		out := make([]image.Point, len(candidates))
		for i, c := range candidates {
			out[i] = c.p
		}
		return out
	}

	suppressed := make([]bool, len(candidates))
	half := cfg.NMSWinSize / 2
	for i := range candidates {
		if suppressed[i] {
			continue
		}
		for j := range candidates {
			if i == j || suppressed[j] {
				continue
			}
			dx := candidates[i].p.X - candidates[j].p.X
			dy := candidates[i].p.Y - candidates[j].p.Y
			if dx < 0 {
				dx = -dx
			}
			if dy < 0 {
				dy = -dy
			}
			if dx <= half && dy <= half {
				if candidates[j].r > candidates[i].r ||
					(candidates[j].r == candidates[i].r && pointLess(candidates[j].p, candidates[i].p)) {
					suppressed[i] = true
					break
				}
			}
		}
	}

	out := make([]image.Point, 0, len(candidates))
	for i, c := range candidates {
		if !suppressed[i] {
			out = append(out, c.p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return pointLess(out[i], out[j]) })
	return out
}

func pointLess(a, b image.Point) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}

// KeyPoints is the output of NewFASTKeypointsFromImage: corner locations
// plus, when Config.Oriented is set, the dominant gradient direction of
// each corner's neighborhood (the intensity-centroid angle FAST-ORB uses).
type KeyPoints struct {
	Points       []image.Point
	Orientations []float64
}

// IsOriented reports whether Orientations was populated.
func (k *KeyPoints) IsOriented() bool {
	return k.Orientations != nil
}

// NewFASTKeypointsFromImage computes FAST corners and, if cfg.Oriented,
// their intensity-centroid orientation angle (radians).
func NewFASTKeypointsFromImage(img *image.Gray, cfg *Config) *KeyPoints {
	pts := ComputeFAST(img, cfg)
	kp := &KeyPoints{Points: pts}
	if !cfg.Oriented {
		return kp
	}
	kp.Orientations = make([]float64, len(pts))
	for i, p := range pts {
		kp.Orientations[i] = intensityCentroidAngle(img, p)
	}
	return kp
}

// intensityCentroidAngle computes the orientation of a keypoint patch as
// the angle of its intensity centroid offset from the patch center, the
// measure used by ORB ("IC angle").
func intensityCentroidAngle(img *image.Gray, p image.Point) float64 {
	const radius = 7
	b := img.Bounds()
	var m01, m10 float64
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			q := image.Point{X: p.X + dx, Y: p.Y + dy}
			if !q.In(b) {
				continue
			}
			v := float64(img.GrayAt(q.X, q.Y).Y)
			m10 += float64(dx) * v
			m01 += float64(dy) * v
		}
	}
	return math.Atan2(m01, m10)
}

// ErrDecodeConfig is returned by callers that want a typed error instead of
// LoadFASTConfiguration's nil-on-failure contract.
var ErrDecodeConfig = errors.New("failed to decode FAST configuration")
