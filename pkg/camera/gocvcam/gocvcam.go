// Package gocvcam provides OpenCV-backed capture devices for the camera session.
package gocvcam

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-lantern/internal/log"
	"github.com/teslashibe/go-lantern/pkg/camera"
	"gocv.io/x/gocv"
)

// Device captures from a webcam index or a video file/URL on its own
// goroutine. Opening happens in the background so Start never blocks the
// tick loop; Width stays 0 until the first frame has been read.
type Device struct {
	name   string
	config camera.Config
	logger *slog.Logger

	mu     sync.Mutex
	pixels []byte // latest frame, RGBA
	width  int
	height int
	err    error // set when capture could not be opened

	seq     atomic.Uint64
	stop    chan struct{}
	done    chan struct{}
	running bool
}

var _ camera.Faulter = (*Device)(nil)

// readRetry is the pause after a failed or empty read.
const readRetry = 10 * time.Millisecond

// New creates a device for name. Numeric names are device indexes,
// anything else is passed to OpenCV as a file or stream URL.
func New(name string, cfg camera.Config) *Device {
	return &Device{
		name:   name,
		config: cfg,
		logger: log.Component("gocvcam").With("device", name),
	}
}

// Opener returns a camera.Opener creating gocv devices with cfg.
func Opener(cfg camera.Config) camera.Opener {
	return func(name string) (camera.Device, error) {
		return New(name, cfg), nil
	}
}

func (d *Device) Name() string { return d.name }

// Start launches the capture goroutine.
func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return nil
	}
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	d.err = nil
	d.running = true
	go d.captureLoop(d.stop, d.done)
	return nil
}

// Stop ends the capture goroutine and releases the capture handle.
func (d *Device) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	close(d.stop)
	done := d.done
	d.mu.Unlock()

	<-done

	d.mu.Lock()
	d.width, d.height = 0, 0
	d.mu.Unlock()
	return nil
}

// Err reports why the capture goroutine gave up, or nil.
func (d *Device) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *Device) open() (*gocv.VideoCapture, error) {
	if id, err := strconv.Atoi(d.name); err == nil {
		return gocv.OpenVideoCapture(id)
	}
	return gocv.OpenVideoCapture(d.name)
}

func (d *Device) captureLoop(stop, done chan struct{}) {
	defer close(done)

	capture, err := d.open()
	if err != nil {
		d.logger.Error("failed to open capture", "error", err)
		d.mu.Lock()
		d.err = err
		d.mu.Unlock()
		return
	}
	defer capture.Close()

	if d.config.Width > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(d.config.Width))
	}
	if d.config.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameHeight, float64(d.config.Height))
	}
	if d.config.Framerate > 0 {
		capture.Set(gocv.VideoCaptureFPS, float64(d.config.Framerate))
	}

	mat := gocv.NewMat()
	defer mat.Close()

	failures := 0
	for {
		select {
		case <-stop:
			return
		default:
		}

		if ok := capture.Read(&mat); !ok || mat.Empty() {
			failures++
			if failures == 30 {
				d.logger.Warn("camera is not delivering frames")
			}
			select {
			case <-stop:
				return
			case <-time.After(readRetry):
			}
			continue
		}
		failures = 0

		if err := d.store(mat); err != nil {
			d.logger.Warn("dropping frame", "error", err)
		}
	}
}

// store converts a BGR(A)/gray Mat into the RGBA latest-frame buffer.
func (d *Device) store(mat gocv.Mat) error {
	w, h, ch := mat.Cols(), mat.Rows(), mat.Channels()
	src := mat.ToBytes()
	if len(src) < w*h*ch {
		return fmt.Errorf("short mat: %d bytes for %dx%dx%d", len(src), w, h, ch)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.pixels) != w*h*4 {
		d.pixels = make([]byte, w*h*4)
	}
	for i, j := 0, 0; i < w*h; i, j = i+1, j+ch {
		o := i * 4
		switch ch {
		case 1:
			v := src[j]
			d.pixels[o], d.pixels[o+1], d.pixels[o+2] = v, v, v
		default:
			d.pixels[o], d.pixels[o+1], d.pixels[o+2] = src[j+2], src[j+1], src[j]
		}
		d.pixels[o+3] = 255
	}
	d.width, d.height = w, h
	d.seq.Add(1)
	return nil
}

func (d *Device) Width() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width
}

func (d *Device) Height() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.height
}

func (d *Device) FrameSeq() uint64 {
	return d.seq.Load()
}

// ReadPixels copies the latest frame into dst.
func (d *Device) ReadPixels(dst []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.width == 0 || d.height == 0 {
		return camera.ErrNotReady
	}
	if len(dst) < len(d.pixels) {
		return fmt.Errorf("%w: have %d, need %d", camera.ErrShortBuffer, len(dst), len(d.pixels))
	}
	copy(dst, d.pixels)
	return nil
}

// ProbeEnumerator lists webcam indexes that OpenCV can open.
// Devices are named by index ("0", "1", ...).
type ProbeEnumerator struct {
	Max int // highest index probed is Max-1

	once  sync.Once
	names []string
	err   error
}

// Devices probes once and caches the result.
func (p *ProbeEnumerator) Devices() ([]string, error) {
	p.once.Do(func() {
		max := p.Max
		if max <= 0 {
			max = 4
		}
		for i := 0; i < max; i++ {
			vc, err := gocv.OpenVideoCapture(i)
			if err != nil {
				continue
			}
			if vc.IsOpened() {
				p.names = append(p.names, strconv.Itoa(i))
			}
			vc.Close()
		}
		if len(p.names) == 0 {
			p.err = errors.New("no webcams could be opened")
		}
	})
	return p.names, p.err
}
