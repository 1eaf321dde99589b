// Package config provides process-level settings for go-lantern commands.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults used when the environment does not override them.
const (
	DefaultPort     = "8090"
	DefaultLogLevel = "info"
	appDirName      = "lantern"
)

// Well-known file names inside the data directory.
const (
	PrefsFile = "prefs.json"
	MaskFile  = "mask.png"
)

// Port returns the dashboard port from LANTERN_PORT or the default.
func Port() string {
	if p := os.Getenv("LANTERN_PORT"); p != "" {
		return p
	}
	return DefaultPort
}

// LogLevel returns the log level from LANTERN_LOG_LEVEL or the default.
func LogLevel() string {
	if lvl := os.Getenv("LANTERN_LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return DefaultLogLevel
}

// DataDir returns the directory holding preferences and the persisted mask.
// LANTERN_DATA_DIR wins; otherwise ~/.config/lantern is used.
// The directory is created if missing.
func DataDir() (string, error) {
	dir := os.Getenv("LANTERN_DATA_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("unable to determine user home directory: %w", err)
		}
		dir = filepath.Join(home, ".config", appDirName)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}

// PrefsPath returns the preference file path within dir.
func PrefsPath(dir string) string {
	return filepath.Join(dir, PrefsFile)
}

// MaskPath returns the persisted mask path within dir.
func MaskPath(dir string) string {
	return filepath.Join(dir, MaskFile)
}
