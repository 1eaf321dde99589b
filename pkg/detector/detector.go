// Package detector finds the horizontal brightness centroid of a masked frame.
package detector

import (
	"errors"
	"fmt"
	"image"

	"github.com/teslashibe/go-lantern/pkg/debug"
	"github.com/teslashibe/go-lantern/pkg/frame"
	"github.com/teslashibe/go-lantern/pkg/mask"
)

// ErrSizeMismatch is returned when frame and mask dimensions differ.
var ErrSizeMismatch = errors.New("detector: frame and mask size differ")

// MinWeight is the total weight below which a frame carries no information.
const MinWeight = 1e-6

// Config holds detector tuning.
type Config struct {
	// Threshold drops pixels darker than this luma (0-1) before weighting.
	Threshold float64
	// Debug renders the weighted field during detection.
	Debug bool
}

// DefaultConfig weights every pixel by its brightness.
func DefaultConfig() Config {
	return Config{Threshold: 0, Debug: true}
}

// Result is the outcome of one detection.
type Result struct {
	Position float64 // normalized [0, 1], inversion applied
	Raw      float64 // normalized [0, 1], before inversion
	Found    bool    // false when the frame carried no weighted brightness
	Weight   float64 // total brightness x mask weight
}

// Detector computes a brightness-weighted horizontal centroid.
// It is used from one goroutine.
type Detector struct {
	config  Config
	lastRaw float64
	field   *image.Gray
	seq     uint64
}

// New creates a detector holding position 0 until the first detection.
func New(cfg Config) *Detector {
	return &Detector{config: cfg}
}

// Config returns the detector configuration.
func (d *Detector) Config() Config {
	return d.config
}

// SetThreshold changes the minimum luma that contributes.
func (d *Detector) SetThreshold(t float64) {
	d.config.Threshold = clamp(t, 0, 1)
}

// Reset clears the held position.
func (d *Detector) Reset() {
	d.lastRaw = 0
}

// Detect computes the centroid of f weighted by m. When the frame carries
// no weight the previous position is returned unchanged. A size mismatch
// also holds the previous position and returns ErrSizeMismatch.
func (d *Detector) Detect(f *frame.Frame, m *mask.Mask, invert bool) (Result, error) {
	if f.Width != m.Width() || f.Height != m.Height() {
		return d.result(false, 0, invert), fmt.Errorf("%w: frame %dx%d, mask %dx%d",
			ErrSizeMismatch, f.Width, f.Height, m.Width(), m.Height())
	}

	var field []uint8
	if d.config.Debug {
		field = d.debugField(f.Width, f.Height)
	}

	threshold := d.config.Threshold
	var sumX, sum float64
	for y := 0; y < f.Height; y++ {
		weights := m.Row(y)
		pix := f.Pix[y*f.Width*4 : (y+1)*f.Width*4]
		for x, mw := range weights {
			if mw == 0 {
				if field != nil {
					field[y*f.Width+x] = 0
				}
				continue
			}
			i := x * 4
			b := frame.Luma(pix[i], pix[i+1], pix[i+2])
			if b < threshold {
				b = 0
			}
			w := b * float64(mw) / 255
			sumX += float64(x) * w
			sum += w
			if field != nil {
				field[y*f.Width+x] = uint8(w*255 + 0.5)
			}
		}
	}

	if field != nil {
		d.seq++
	}

	if sum < MinWeight {
		debug.DetectLog("no weighted brightness, holding position", "held", d.lastRaw)
		return d.result(false, sum, invert), nil
	}

	d.lastRaw = clamp(sumX/sum/float64(f.Width), 0, 1)
	debug.DetectLog("centroid", "raw", d.lastRaw, "weight", sum)
	return d.result(true, sum, invert), nil
}

func (d *Detector) result(found bool, weight float64, invert bool) Result {
	pos := d.lastRaw
	if invert {
		pos = Invert(pos)
	}
	return Result{Position: pos, Raw: d.lastRaw, Found: found, Weight: weight}
}

func (d *Detector) debugField(w, h int) []uint8 {
	if d.field == nil || d.field.Rect.Dx() != w || d.field.Rect.Dy() != h {
		d.field = image.NewGray(image.Rect(0, 0, w, h))
	}
	return d.field.Pix
}

// DebugField returns a copy of the last weighted intensity field and its
// sequence number. It returns nil before the first debug detection.
func (d *Detector) DebugField() (*image.Gray, uint64) {
	if d.field == nil {
		return nil, d.seq
	}
	cp := image.NewGray(d.field.Rect)
	copy(cp.Pix, d.field.Pix)
	return cp, d.seq
}

// DebugSeq increases once per frame that rendered a debug field.
func (d *Detector) DebugSeq() uint64 {
	return d.seq
}

// Invert mirrors a normalized position.
func Invert(p float64) float64 {
	return 1 - p
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
