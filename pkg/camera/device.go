package camera

import (
	"errors"
	"fmt"
)

var (
	// ErrCameraUnavailable is returned when no capture device is enumerated.
	ErrCameraUnavailable = errors.New("camera: no devices available")

	// ErrDeviceNotFound is returned when a requested device name is not enumerated.
	// The previously active camera is kept.
	ErrDeviceNotFound = errors.New("camera: device not found")

	// ErrNotReady is returned when pixels are requested before the device is ready.
	ErrNotReady = errors.New("camera: device not ready")

	// ErrShortBuffer is returned when a pixel destination is too small.
	ErrShortBuffer = errors.New("camera: destination buffer too small")
)

// Device is a started-or-stopped capture handle.
//
// Width and Height report the current frame size and may be zero or bogus
// while the device warms up. FrameSeq increases every time a new frame is
// captured. ReadPixels copies the latest frame as tightly packed RGBA
// (4 bytes per pixel, top row first) into dst.
type Device interface {
	Name() string
	Start() error
	Stop() error
	Width() int
	Height() int
	FrameSeq() uint64
	ReadPixels(dst []byte) error
}

// Faulter is implemented by devices whose capture can fail after Start.
// A non-nil Err means the device will never deliver frames.
type Faulter interface {
	Err() error
}

// Opener creates a device for an enumerated name. The device is not started.
type Opener func(name string) (Device, error)

// Enumerator lists the available devices. Index 0 is the default device.
type Enumerator interface {
	Devices() ([]string, error)
}

// StaticEnumerator returns a fixed device list.
type StaticEnumerator []string

// Devices returns a copy of the list.
func (s StaticEnumerator) Devices() ([]string, error) {
	out := make([]string, len(s))
	copy(out, s)
	return out, nil
}

// checkBuffer validates a ReadPixels destination for a w x h frame.
func checkBuffer(dst []byte, w, h int) error {
	if w <= 0 || h <= 0 {
		return ErrNotReady
	}
	if need := w * h * 4; len(dst) < need {
		return fmt.Errorf("%w: have %d, need %d", ErrShortBuffer, len(dst), need)
	}
	return nil
}
