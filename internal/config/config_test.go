package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPort(t *testing.T) {
	t.Setenv("LANTERN_PORT", "")
	if got := Port(); got != DefaultPort {
		t.Errorf("Port() = %q, want %q", got, DefaultPort)
	}

	t.Setenv("LANTERN_PORT", "9999")
	if got := Port(); got != "9999" {
		t.Errorf("Port() = %q, want 9999", got)
	}
}

func TestLogLevel(t *testing.T) {
	t.Setenv("LANTERN_LOG_LEVEL", "")
	if got := LogLevel(); got != DefaultLogLevel {
		t.Errorf("LogLevel() = %q, want %q", got, DefaultLogLevel)
	}

	t.Setenv("LANTERN_LOG_LEVEL", "debug")
	if got := LogLevel(); got != "debug" {
		t.Errorf("LogLevel() = %q, want debug", got)
	}
}

func TestDataDir_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "lantern")
	t.Setenv("LANTERN_DATA_DIR", dir)

	got, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir: %v", err)
	}
	if got != dir {
		t.Errorf("DataDir() = %q, want %q", got, dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("expected %s to exist as a directory", dir)
	}

	if PrefsPath(dir) != filepath.Join(dir, "prefs.json") {
		t.Errorf("unexpected prefs path %q", PrefsPath(dir))
	}
	if MaskPath(dir) != filepath.Join(dir, "mask.png") {
		t.Errorf("unexpected mask path %q", MaskPath(dir))
	}
}
