// Package lantern wires the camera, detector, smoother and web server into
// one application.
package lantern

import (
	"os"
	"strconv"

	"github.com/teslashibe/go-lantern/internal/config"
	"github.com/teslashibe/go-lantern/pkg/camera"
	"github.com/teslashibe/go-lantern/pkg/frame"
	"github.com/teslashibe/go-lantern/pkg/tracking"
)

// Presets selectable with Config.Preset.
var Presets = map[string]func() tracking.Config{
	"default": tracking.DefaultConfig,
	"smooth":  tracking.SmoothConfig,
	"raw":     tracking.RawConfig,
}

// Config holds all configuration for the application.
// Flag parsing is done in cmd/lantern/main.go; this struct is data only.
type Config struct {
	// Debug enables verbose debug logging.
	Debug bool
	// DebugDetect logs every detection. Very chatty.
	DebugDetect bool
	// LogLevel is used when Debug is off.
	LogLevel string

	// Port is the HTTP listen port.
	Port string
	// DataDir holds prefs.json and mask.png. Empty resolves via
	// LANTERN_DATA_DIR or the user config directory.
	DataDir string

	// Synthetic replaces webcams with generated test devices.
	Synthetic bool
	// ProbeMax is how many webcam indexes are probed.
	ProbeMax int

	// Camera overrides the stored camera preference when set.
	Camera string
	// Preset picks the base tracking configuration.
	Preset string
	// Orientation is applied to every frame.
	Orientation frame.Orientation

	// Capture holds device-level settings.
	Capture camera.Config
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: config.DefaultLogLevel,
		Port:     config.DefaultPort,
		ProbeMax: 4,
		Preset:   "default",
		Capture:  camera.DefaultConfig(),
	}
}

// LoadEnvConfig applies environment overrides that flags did not set.
func (c *Config) LoadEnvConfig() {
	if c.Port == config.DefaultPort {
		c.Port = config.Port()
	}
	if c.LogLevel == config.DefaultLogLevel {
		c.LogLevel = config.LogLevel()
	}
	if v := os.Getenv("LANTERN_SYNTHETIC"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Synthetic = c.Synthetic || b
		}
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, ok := Presets[c.Preset]; !ok {
		return &ConfigError{Field: "Preset", Message: "preset must be one of default, smooth, raw"}
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return &ConfigError{Field: "Port", Message: "port must be numeric"}
	}
	if err := c.Orientation.Validate(); err != nil {
		return &ConfigError{Field: "Orientation", Message: err.Error()}
	}
	if problems := c.Capture.Validate(); len(problems) > 0 {
		return &ConfigError{Field: "Capture", Message: problems[0]}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
