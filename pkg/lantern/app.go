package lantern

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-lantern/internal/config"
	"github.com/teslashibe/go-lantern/internal/log"
	"github.com/teslashibe/go-lantern/pkg/camera"
	"github.com/teslashibe/go-lantern/pkg/camera/gocvcam"
	"github.com/teslashibe/go-lantern/pkg/debug"
	"github.com/teslashibe/go-lantern/pkg/mask"
	"github.com/teslashibe/go-lantern/pkg/metrics"
	"github.com/teslashibe/go-lantern/pkg/prefs"
	"github.com/teslashibe/go-lantern/pkg/tracking"
	"github.com/teslashibe/go-lantern/pkg/web"
)

// Names of the generated devices in synthetic mode.
var SyntheticDevices = camera.StaticEnumerator{"synthetic-0", "synthetic-1"}

// App is the main application orchestrator.
// It manages all components and their lifecycle.
type App struct {
	config Config
	logger *slog.Logger

	prefs   *prefs.JSONStore
	session *camera.Session
	masks   *mask.Store
	metrics *metrics.Metrics
	tracker *tracking.Tracker

	webServer *web.Server
}

// New creates the application with the given configuration.
func New(cfg Config) (*App, error) {
	cfg.LoadEnvConfig()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if cfg.Debug || cfg.DebugDetect {
		level = "debug"
	}
	log.Init(level)
	debug.Enabled = cfg.Debug
	debug.Detection = cfg.DebugDetect

	return &App{
		config: cfg,
		logger: log.Component("app"),
	}, nil
}

// Init builds every component. Call this after New() and before Run().
func (a *App) Init() error {
	dir := a.config.DataDir
	if dir == "" {
		var err error
		if dir, err = config.DataDir(); err != nil {
			return err
		}
	}

	store, err := prefs.NewJSONStore(config.PrefsPath(dir))
	if err != nil {
		return fmt.Errorf("preferences: %w", err)
	}
	a.prefs = store

	base := Presets[a.config.Preset]()
	if err := a.registerDefaults(base); err != nil {
		return fmt.Errorf("preferences: %w", err)
	}

	trackCfg := tracking.LoadConfig(store, base)
	trackCfg.Orientation = a.config.Orientation
	if a.config.Camera != "" {
		trackCfg.CameraName = a.config.Camera
	}

	enum, open := a.devices()
	a.session = camera.NewSession(a.config.Capture, enum, open)
	a.masks = mask.NewStore(config.MaskPath(dir), a.config.Capture.FallbackWidth, a.config.Capture.FallbackHeight, nil)
	a.metrics = metrics.New()

	a.tracker, err = tracking.New(trackCfg, a.session, a.masks)
	if err != nil {
		return fmt.Errorf("tracker: %w", err)
	}
	a.tracker.SetMetrics(a.metrics)
	a.tracker.SetPrefs(store)

	a.webServer = web.NewServer(a.config.Port, a.tracker, a.metrics)

	a.logger.Info("initialized",
		"data_dir", dir,
		"preset", a.config.Preset,
		"synthetic", a.config.Synthetic,
		"camera", trackCfg.CameraName,
		"invert", trackCfg.Invert)
	return nil
}

// registerDefaults stores preset values for keys not yet in the store so
// the preference file lists every tunable.
func (a *App) registerDefaults(base tracking.Config) error {
	defaults := []struct {
		key   string
		value any
	}{
		{tracking.KeyCameraName, base.CameraName},
		{tracking.KeyInvert, base.Invert},
		{tracking.KeySmoothTime, base.Motion.SmoothTime},
		{tracking.KeyThreshold, base.Detector.Threshold},
		{tracking.KeyMaskPolicy, base.MaskPolicy},
	}
	for _, d := range defaults {
		if _, err := prefs.Ensure(a.prefs, d.key, d.value); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) devices() (camera.Enumerator, camera.Opener) {
	if a.config.Synthetic {
		w, h := a.config.Capture.Width, a.config.Capture.Height
		return SyntheticDevices, camera.SyntheticOpener(w, h)
	}
	return &gocvcam.ProbeEnumerator{Max: a.config.ProbeMax}, gocvcam.Opener(a.config.Capture)
}

// Run starts the web server and the tracker loop.
// Blocks until context is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.tracker.Start(); err != nil {
		// The API can still select a camera once one appears
		a.logger.Warn("no camera started", "error", err)
	}

	go func() {
		if err := a.webServer.Start(ctx); err != nil {
			a.logger.Error("web server stopped", "error", err)
		}
	}()

	a.tracker.Run(ctx)
	return nil
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown() {
	if a.webServer != nil {
		if err := a.webServer.Shutdown(); err != nil {
			a.logger.Warn("web shutdown", "error", err)
		}
	}
	a.logger.Info("goodbye")
}

// Tracker returns the tracker, nil before Init.
func (a *App) Tracker() *tracking.Tracker {
	return a.tracker
}
