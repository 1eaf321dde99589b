package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/teslashibe/go-lantern/pkg/frame"
	"github.com/teslashibe/go-lantern/pkg/prefs"
)

func TestDefaultConfig_TickInterval(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.TickInterval != time.Second/60 {
		t.Errorf("TickInterval = %v, want %v", cfg.TickInterval, time.Second/60)
	}
	if cfg.MaskPolicy != "opaque" {
		t.Errorf("MaskPolicy = %q, want opaque", cfg.MaskPolicy)
	}
}

func TestPresets_Valid(t *testing.T) {
	presets := map[string]Config{
		"default": DefaultConfig(),
		"smooth":  SmoothConfig(),
		"raw":     RawConfig(),
	}
	for name, cfg := range presets {
		if problems := cfg.Validate(); len(problems) > 0 {
			t.Errorf("%s: unexpected problems %v", name, problems)
		}
	}
}

func TestPresets_Ordering(t *testing.T) {
	if SmoothConfig().Motion.SmoothTime <= DefaultConfig().Motion.SmoothTime {
		t.Error("smooth preset should smooth more than default")
	}
	if RawConfig().Motion.SmoothTime >= DefaultConfig().Motion.SmoothTime {
		t.Error("raw preset should smooth less than default")
	}
	if RawConfig().Detector.Debug {
		t.Error("raw preset should not render the debug field")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tick", func(c *Config) { c.TickInterval = 0 }},
		{"threshold above 1", func(c *Config) { c.Detector.Threshold = 1.5 }},
		{"negative smoothing", func(c *Config) { c.Motion.SmoothTime = -1 }},
		{"unknown policy", func(c *Config) { c.MaskPolicy = "chroma" }},
		{"bad rotation", func(c *Config) { c.Orientation = frame.Orientation{Rotation: 45} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if len(cfg.Validate()) == 0 {
				t.Error("expected a validation problem")
			}
		})
	}
}

func TestLoadConfig_Overlay(t *testing.T) {
	store := prefs.NewMemoryStore()
	assert.NoError(t, store.Set(KeyCameraName, "1"))
	assert.NoError(t, store.Set(KeyInvert, true))
	assert.NoError(t, store.Set(KeySmoothTime, 0.2))

	cfg := LoadConfig(store, DefaultConfig())
	assert.Equal(t, "1", cfg.CameraName)
	assert.True(t, cfg.Invert)
	assert.Equal(t, 0.2, cfg.Motion.SmoothTime)
	assert.Equal(t, DefaultConfig().Detector.Threshold, cfg.Detector.Threshold)
	assert.Equal(t, "opaque", cfg.MaskPolicy)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	store := prefs.NewMemoryStore()
	cfg := SmoothConfig()
	cfg.CameraName = "usb"
	cfg.Invert = true
	cfg.MaskPolicy = "background"

	assert.NoError(t, SaveConfig(store, cfg))

	got := LoadConfig(store, DefaultConfig())
	assert.Equal(t, cfg.CameraName, got.CameraName)
	assert.Equal(t, cfg.Invert, got.Invert)
	assert.Equal(t, cfg.Motion.SmoothTime, got.Motion.SmoothTime)
	assert.Equal(t, cfg.Detector.Threshold, got.Detector.Threshold)
	assert.Equal(t, cfg.MaskPolicy, got.MaskPolicy)
}
