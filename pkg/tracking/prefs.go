package tracking

import (
	"errors"

	"github.com/teslashibe/go-lantern/pkg/prefs"
)

// Preference keys read and written by the tracker.
const (
	KeyCameraName = "detector.camera_name"
	KeyInvert     = "detector.invert"
	KeySmoothTime = "detector.smooth_time"
	KeyThreshold  = "detector.threshold"
	KeyMaskPolicy = "detector.mask_policy"
)

// LoadConfig overlays stored preferences onto base.
func LoadConfig(s prefs.Store, base Config) Config {
	cfg := base
	cfg.CameraName = prefs.String(s, KeyCameraName, base.CameraName)
	cfg.Invert = prefs.Bool(s, KeyInvert, base.Invert)
	cfg.Motion.SmoothTime = prefs.Float(s, KeySmoothTime, base.Motion.SmoothTime)
	cfg.Detector.Threshold = prefs.Float(s, KeyThreshold, base.Detector.Threshold)
	cfg.MaskPolicy = prefs.String(s, KeyMaskPolicy, base.MaskPolicy)
	return cfg
}

// SaveConfig writes the persisted subset of cfg.
func SaveConfig(s prefs.Store, cfg Config) error {
	return errors.Join(
		s.Set(KeyCameraName, cfg.CameraName),
		s.Set(KeyInvert, cfg.Invert),
		s.Set(KeySmoothTime, cfg.Motion.SmoothTime),
		s.Set(KeyThreshold, cfg.Detector.Threshold),
		s.Set(KeyMaskPolicy, cfg.MaskPolicy),
	)
}
