// lantern tracks the brightest object in a webcam feed and publishes its
// smoothed horizontal position over HTTP and websockets.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-lantern/pkg/lantern"
)

func main() {
	cfg := parseFlags()

	app, err := lantern.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}

	if err := app.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "initialization failed: %v\n", err)
		os.Exit(1)
	}
	defer app.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags and returns configuration.
func parseFlags() lantern.Config {
	cfg := lantern.DefaultConfig()

	flag.BoolVar(&cfg.Debug, "debug", false, "Enable verbose debug logging")
	flag.BoolVar(&cfg.DebugDetect, "debug-detect", false, "Log every detection (very chatty)")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	flag.StringVar(&cfg.Port, "port", cfg.Port, "HTTP port (overrides LANTERN_PORT)")
	flag.StringVar(&cfg.DataDir, "data-dir", "", "Directory for prefs.json and mask.png (overrides LANTERN_DATA_DIR)")
	flag.BoolVar(&cfg.Synthetic, "synthetic", false, "Use generated test cameras instead of webcams")
	flag.IntVar(&cfg.ProbeMax, "probe", cfg.ProbeMax, "Number of webcam indexes to probe")
	flag.StringVar(&cfg.Camera, "camera", "", "Camera to use (overrides the saved preference)")
	flag.StringVar(&cfg.Preset, "preset", cfg.Preset, "Tracking preset: default, smooth, raw")
	flag.IntVar(&cfg.Capture.DefaultIndex, "index", cfg.Capture.DefaultIndex, "Camera index used when none is configured")
	flag.IntVar(&cfg.Capture.Width, "width", cfg.Capture.Width, "Requested capture width")
	flag.IntVar(&cfg.Capture.Height, "height", cfg.Capture.Height, "Requested capture height")
	flag.IntVar(&cfg.Orientation.Rotation, "rotate", 0, "Rotate frames clockwise: 0, 90, 180, 270")
	flag.BoolVar(&cfg.Orientation.FlipHorizontal, "flip-h", false, "Mirror frames horizontally")
	flag.BoolVar(&cfg.Orientation.FlipVertical, "flip-v", false, "Flip frames vertically")

	flag.Parse()
	return cfg
}
