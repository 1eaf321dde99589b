// Package mask holds the region-of-interest weighting image used by detection.
package mask

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/teslashibe/go-lantern/pkg/frame"
)

// Mask is a per-pixel weight in [0, 1], stored as 8-bit gray (255 = full weight).
type Mask struct {
	img *image.Gray
}

// New returns a w x h mask with every weight set to v/255.
func New(w, h int, v uint8) *Mask {
	m := &Mask{img: image.NewGray(image.Rect(0, 0, w, h))}
	if v != 0 {
		for i := range m.img.Pix {
			m.img.Pix[i] = v
		}
	}
	return m
}

// Opaque returns a pass-through mask.
func Opaque(w, h int) *Mask {
	return New(w, h, 255)
}

// FromImage converts any image to a mask using its luminance.
func FromImage(src image.Image) *Mask {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return &Mask{img: dst}
}

func (m *Mask) Width() int  { return m.img.Rect.Dx() }
func (m *Mask) Height() int { return m.img.Rect.Dy() }

// At returns the raw 8-bit weight at (x, y).
func (m *Mask) At(x, y int) uint8 {
	return m.img.Pix[y*m.img.Stride+x]
}

// Weight returns the normalized weight at (x, y).
func (m *Mask) Weight(x, y int) float64 {
	return float64(m.At(x, y)) / 255
}

// Set writes the raw 8-bit weight at (x, y).
func (m *Mask) Set(x, y int, v uint8) {
	m.img.Pix[y*m.img.Stride+x] = v
}

// Row returns the weights of row y.
func (m *Mask) Row(y int) []uint8 {
	off := y * m.img.Stride
	return m.img.Pix[off : off+m.Width()]
}

// Resized returns a copy scaled to w x h. Nearest-neighbor keeps hard mask
// edges intact.
func (m *Mask) Resized(w, h int) *Mask {
	if w == m.Width() && h == m.Height() {
		return m.Clone()
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), m.img, m.img.Bounds(), draw.Src, nil)
	return &Mask{img: dst}
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	cp := image.NewGray(m.img.Rect)
	copy(cp.Pix, m.img.Pix)
	return &Mask{img: cp}
}

// Image returns a copy of the mask as a gray image.
func (m *Mask) Image() *image.Gray {
	return m.Clone().img
}

// Coverage returns the mean weight in [0, 1].
func (m *Mask) Coverage() float64 {
	w, h := m.Width(), m.Height()
	if w == 0 || h == 0 {
		return 0
	}
	var sum uint64
	for y := 0; y < h; y++ {
		for _, v := range m.Row(y) {
			sum += uint64(v)
		}
	}
	return float64(sum) / float64(w*h*255)
}

func (m *Mask) String() string {
	return fmt.Sprintf("mask(%dx%d)", m.Width(), m.Height())
}

// Generator derives a mask from the current frame into dst (same size).
type Generator func(f *frame.Frame, dst *Mask)

// OpaqueGenerator resets the mask to pass-through.
func OpaqueGenerator(_ *frame.Frame, dst *Mask) {
	for i := range dst.img.Pix {
		dst.img.Pix[i] = 255
	}
}

// BackgroundGenerator excludes everything that is bright when the mask is
// captured (lamps, windows, reflections), so only new bright objects count.
func BackgroundGenerator(threshold float64) Generator {
	return func(f *frame.Frame, dst *Mask) {
		for y := 0; y < f.Height; y++ {
			row := dst.Row(y)
			for x := range row {
				if f.Luma(x, y) >= threshold {
					row[x] = 0
				} else {
					row[x] = 255
				}
			}
		}
	}
}

// Policies maps configuration names to generators.
var Policies = map[string]Generator{
	"opaque":     OpaqueGenerator,
	"background": BackgroundGenerator(0.5),
}

// Policy returns the named generator.
func Policy(name string) (Generator, error) {
	g, ok := Policies[name]
	if !ok {
		return nil, fmt.Errorf("unknown mask policy %q", name)
	}
	return g, nil
}

