// Package debug provides global switches for verbose per-frame logging.
package debug

import "github.com/teslashibe/go-lantern/internal/log"

// Enabled controls whether general debug logging is active
var Enabled bool

// Detection controls per-frame detector logs (centroid, weight sums).
// These are very chatty at camera frame rates.
var Detection bool

// Log emits a debug record only if debug mode is enabled
func Log(msg string, args ...any) {
	if Enabled {
		log.Debug(msg, args...)
	}
}

// DetectLog emits a record only if detection debugging is enabled
func DetectLog(msg string, args ...any) {
	if Detection {
		log.Debug(msg, args...)
	}
}
