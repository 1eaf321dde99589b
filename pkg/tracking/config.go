package tracking

import (
	"time"

	"github.com/teslashibe/go-lantern/pkg/detector"
	"github.com/teslashibe/go-lantern/pkg/frame"
	"github.com/teslashibe/go-lantern/pkg/motion"
)

// Config holds all tunable parameters for the tracking pipeline
type Config struct {
	// Timing
	TickInterval time.Duration // How often Run ticks the pipeline

	// Camera
	CameraName  string            // Preferred device; empty selects the default index
	Orientation frame.Orientation // Applied to every frame before detection

	// Output
	Invert bool // Mirror the position (1 - p)

	// Detection
	Detector   detector.Config
	MaskPolicy string // Generator used by UpdateMask: "opaque" or "background"

	// Smoothing
	Motion motion.Config
}

// DefaultConfig returns the recommended configuration for a 60 Hz display
func DefaultConfig() Config {
	return Config{
		TickInterval: time.Second / 60,

		Detector:   detector.DefaultConfig(),
		MaskPolicy: "opaque",

		Motion: motion.DefaultConfig(),
	}
}

// SmoothConfig returns a configuration for slow, calm indicator movement
func SmoothConfig() Config {
	cfg := DefaultConfig()
	cfg.Motion.SmoothTime = 0.15
	cfg.Motion.SpeedSmoothTime = 0.3
	cfg.Detector.Threshold = 0.2 // Ignore dim ambient light
	return cfg
}

// RawConfig returns a configuration with minimal smoothing and no debug
// rendering, for driving fast actuators
func RawConfig() Config {
	cfg := DefaultConfig()
	cfg.Motion.SmoothTime = 0.001
	cfg.Motion.SpeedSmoothTime = 0.02
	cfg.Detector.Debug = false
	return cfg
}

// Validate checks the configuration and returns a list of problems.
func (c *Config) Validate() []string {
	var errors []string
	if c.TickInterval <= 0 {
		errors = append(errors, "tick_interval must be positive")
	}
	if err := c.Orientation.Validate(); err != nil {
		errors = append(errors, err.Error())
	}
	if c.Detector.Threshold < 0 || c.Detector.Threshold > 1 {
		errors = append(errors, "threshold must be between 0 and 1")
	}
	if c.Motion.SmoothTime < 0 || c.Motion.SpeedSmoothTime < 0 {
		errors = append(errors, "smoothing times must not be negative")
	}
	switch c.MaskPolicy {
	case "", "opaque", "background":
	default:
		errors = append(errors, "mask_policy must be opaque or background")
	}
	return errors
}
