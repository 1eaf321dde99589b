// Package camera manages the lifecycle of the capture device feeding the tracker.
package camera

// Config holds the camera selection and readiness parameters.
type Config struct {
	// === Readiness ===
	// MinReadyWidth is the frame width a device must exceed before it is
	// considered ready. Some cameras report 0x0 or 16x16 while warming up.
	MinReadyWidth int `json:"min_ready_width"`

	// Fallback mask resolution used when no camera is ready yet.
	FallbackWidth  int `json:"fallback_width"`
	FallbackHeight int `json:"fallback_height"`

	// === Selection ===
	// DefaultIndex is used when no device name is configured.
	DefaultIndex int `json:"default_index"`

	// Blacklist names devices that index-based selection skips over.
	Blacklist []string `json:"blacklist"`

	// === Requested capture format (0 = device default) ===
	Width     int `json:"width"`
	Height    int `json:"height"`
	Framerate int `json:"framerate"`
}

// Capture limits accepted by Validate.
const (
	MaxWidth     = 7680
	MaxHeight    = 4320
	MaxFramerate = 240
)

// DefaultConfig returns the recommended configuration for USB webcams.
func DefaultConfig() Config {
	return Config{
		MinReadyWidth:  100,
		FallbackWidth:  512,
		FallbackHeight: 512,

		DefaultIndex: 0,
		Blacklist:    []string{"OBS Virtual Camera"},

		// Low resolution is plenty for a brightness centroid
		Width:     640,
		Height:    480,
		Framerate: 30,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.MinReadyWidth < 0 {
		errors = append(errors, "min_ready_width must not be negative")
	}
	if c.FallbackWidth < 1 || c.FallbackWidth > MaxWidth {
		errors = append(errors, "fallback_width must be between 1 and 7680")
	}
	if c.FallbackHeight < 1 || c.FallbackHeight > MaxHeight {
		errors = append(errors, "fallback_height must be between 1 and 4320")
	}
	if c.DefaultIndex < 0 {
		errors = append(errors, "default_index must not be negative")
	}

	if c.Width != 0 && (c.Width < 16 || c.Width > MaxWidth) {
		errors = append(errors, "width must be 0 (device default) or between 16 and 7680")
	}
	if c.Height != 0 && (c.Height < 16 || c.Height > MaxHeight) {
		errors = append(errors, "height must be 0 (device default) or between 16 and 4320")
	}
	if c.Framerate != 0 && (c.Framerate < 1 || c.Framerate > MaxFramerate) {
		errors = append(errors, "framerate must be 0 (device default) or between 1 and 240")
	}

	return errors
}

// IsBlacklisted reports whether name must be skipped by index selection.
func (c *Config) IsBlacklisted(name string) bool {
	for _, b := range c.Blacklist {
		if b == name {
			return true
		}
	}
	return false
}
