package tracking

import (
	"errors"

	"github.com/teslashibe/go-lantern/pkg/mask"
)

// TuningParams holds the real-time adjustable tracking parameters.
// These can be modified via the tuning API without restarting.
type TuningParams struct {
	// Smoothing
	SmoothTime      float64 `json:"smooth_time"`       // Position time constant (s)
	SpeedSmoothTime float64 `json:"speed_smooth_time"` // Speed time constant (s)

	// Detection
	Threshold  float64 `json:"threshold"`   // Minimum luma that contributes (0-1)
	MaskPolicy string  `json:"mask_policy"` // Generator used by UpdateMask
}

// TuningUpdate is a partial change to TuningParams. Nil fields are left
// unchanged, so zero is a value like any other.
type TuningUpdate struct {
	SmoothTime      *float64 `json:"smooth_time"`
	SpeedSmoothTime *float64 `json:"speed_smooth_time"`
	Threshold       *float64 `json:"threshold"`
	MaskPolicy      *string  `json:"mask_policy"`
}

var errNegativeSmoothTime = errors.New("smooth times must not be negative")

// GetTuningParams returns current tuning parameters from the tracker.
func (t *Tracker) GetTuningParams() TuningParams {
	m := t.smoother.Config()
	return TuningParams{
		SmoothTime:      m.SmoothTime,
		SpeedSmoothTime: m.SpeedSmoothTime,
		Threshold:       t.detector.Config().Threshold,
		MaskPolicy:      t.config.MaskPolicy,
	}
}

// SetTuningParams applies u at runtime. Nothing is applied when any field
// is invalid. The persisted subset of the config is saved when a
// preference store is attached.
func (t *Tracker) SetTuningParams(u TuningUpdate) error {
	var gen mask.Generator
	if u.MaskPolicy != nil {
		g, err := mask.Policy(*u.MaskPolicy)
		if err != nil {
			return err
		}
		gen = g
	}
	if (u.SmoothTime != nil && *u.SmoothTime < 0) || (u.SpeedSmoothTime != nil && *u.SpeedSmoothTime < 0) {
		return errNegativeSmoothTime
	}

	if gen != nil {
		t.masks.SetGenerator(gen)
		t.config.MaskPolicy = *u.MaskPolicy
	}
	if u.SmoothTime != nil {
		t.smoother.SetSmoothTime(*u.SmoothTime)
		t.config.Motion.SmoothTime = *u.SmoothTime
	}
	if u.SpeedSmoothTime != nil {
		t.smoother.SetSpeedSmoothTime(*u.SpeedSmoothTime)
		t.config.Motion.SpeedSmoothTime = *u.SpeedSmoothTime
	}
	if u.Threshold != nil {
		t.detector.SetThreshold(*u.Threshold)
		t.config.Detector.Threshold = t.detector.Config().Threshold
	}

	if t.prefs != nil {
		if err := SaveConfig(t.prefs, t.config); err != nil {
			t.logger.Warn("failed to save preferences", "error", err)
		}
	}

	t.logger.Info("tuning updated",
		"smooth_time", t.config.Motion.SmoothTime,
		"speed_smooth_time", t.config.Motion.SpeedSmoothTime,
		"threshold", t.config.Detector.Threshold,
		"mask_policy", t.config.MaskPolicy)
	return nil
}
