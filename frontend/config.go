package frontend

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"go.viam.com/vio-frontend/camera"
)

// CameraConfig is one camera's entry in the cam{0,1}/... key table.
type CameraConfig struct {
	Resolution       [2]int          `json:"resolution"`
	Intrinsics       [4]float64      `json:"intrinsics"` // fx, fy, cx, cy
	DistortionModel  camera.Model    `json:"distortion_model"`
	DistortionCoeffs camera.Coeffs   `json:"distortion_coeffs"`
	TCamImu          [4][4]float64   `json:"t_cam_imu,omitempty"`  // cam0 only
	TCnCnm1          [4][4]float64   `json:"t_cn_cnm1,omitempty"`  // cam1 only
}

// Config is the full front-end configuration, loaded once at startup.
type Config struct {
	Cam0 CameraConfig `json:"cam0"`
	Cam1 CameraConfig `json:"cam1"`

	GridRow            int     `json:"grid_row"`
	GridCol            int     `json:"grid_col"`
	GridMinFeatureNum  int     `json:"grid_min_feature_num"`
	GridMaxFeatureNum  int     `json:"grid_max_feature_num"`
	PyramidLevels      int     `json:"pyramid_levels"`
	PatchSize          int     `json:"patch_size"`
	FastThreshold      int     `json:"fast_threshold"`
	MaxIteration       int     `json:"max_iteration"`
	TrackPrecision     float64 `json:"track_precision"`
	RansacThreshold    float64 `json:"ransac_threshold"`
	StereoThreshold    float64 `json:"stereo_threshold"`
	SuccessProbability float64 `json:"success_probability"`
}

// DefaultConfig returns the documented defaults with zeroed camera
// calibration (callers must fill that in; there is no sane default for
// intrinsics/extrinsics).
func DefaultConfig() Config {
	return Config{
		GridRow:            4,
		GridCol:            4,
		GridMinFeatureNum:  2,
		GridMaxFeatureNum:  4,
		PyramidLevels:      3,
		PatchSize:          31,
		FastThreshold:      20,
		MaxIteration:       30,
		TrackPrecision:     0.01,
		RansacThreshold:    3.0,
		StereoThreshold:    3.0,
		SuccessProbability: 0.99,
	}
}

// LoadConfig reads a Config from a JSON file, starting from DefaultConfig
// so unset keys keep their documented defaults.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, errors.Wrap(ErrConfigInvalid, err.Error())
	}
	defer f.Close()

	cfg := DefaultConfig()
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, errors.Wrap(ErrConfigInvalid, err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate sanity-checks the loaded configuration: missing or malformed
// calibration is fatal at startup.
func (c *Config) Validate() error {
	for _, cam := range []CameraConfig{c.Cam0, c.Cam1} {
		if cam.Resolution[0] <= 0 || cam.Resolution[1] <= 0 {
			return errors.Wrap(ErrConfigInvalid, "camera resolution must be positive")
		}
		if cam.Intrinsics[0] <= 0 || cam.Intrinsics[1] <= 0 {
			return errors.Wrap(ErrConfigInvalid, "camera focal length must be positive")
		}
	}
	if c.GridRow <= 0 || c.GridCol <= 0 {
		return errors.Wrap(ErrConfigInvalid, "grid_row and grid_col must be positive")
	}
	if c.GridMinFeatureNum <= 0 || c.GridMaxFeatureNum < c.GridMinFeatureNum {
		return errors.Wrap(ErrConfigInvalid, "grid_max_feature_num must be >= grid_min_feature_num > 0")
	}
	if c.PyramidLevels < 0 {
		return errors.Wrap(ErrConfigInvalid, "pyramid_levels must be >= 0")
	}
	if c.PatchSize <= 0 {
		return errors.Wrap(ErrConfigInvalid, "patch_size must be positive")
	}
	return nil
}

// CameraIntrinsics returns the camera.Intrinsics derived from a CameraConfig's
// resolution and intrinsics array.
func (c CameraConfig) CameraIntrinsics() camera.Intrinsics {
	return camera.Intrinsics{
		Width:  c.Resolution[0],
		Height: c.Resolution[1],
		Fx:     c.Intrinsics[0],
		Fy:     c.Intrinsics[1],
		Cx:     c.Intrinsics[2],
		Cy:     c.Intrinsics[3],
	}
}
