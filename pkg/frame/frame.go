// Package frame converts device pixels into the tracker's canonical frame layout.
package frame

import (
	"fmt"
	"image"
)

// Frame is a width x height RGBA pixel buffer, top row first.
// It is valid for one tick only.
type Frame struct {
	Width  int
	Height int
	Pix    []byte // 4 bytes per pixel
}

// New allocates a zeroed w x h frame.
func New(w, h int) *Frame {
	return &Frame{Width: w, Height: h, Pix: make([]byte, w*h*4)}
}

// Offset returns the index of pixel (x, y) in Pix.
func (f *Frame) Offset(x, y int) int {
	return (y*f.Width + x) * 4
}

// Luma returns the Rec.601 brightness of pixel (x, y) in [0, 1].
func (f *Frame) Luma(x, y int) float64 {
	i := f.Offset(x, y)
	return Luma(f.Pix[i], f.Pix[i+1], f.Pix[i+2])
}

// Luma returns the Rec.601 brightness of an 8-bit RGB sample in [0, 1].
func Luma(r, g, b uint8) float64 {
	return (299*float64(r) + 587*float64(g) + 114*float64(b)) / (1000 * 255)
}

// Set writes an RGB sample at (x, y) with full alpha.
func (f *Frame) Set(x, y int, r, g, b uint8) {
	i := f.Offset(x, y)
	f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = r, g, b, 255
}

// RGBA wraps the frame as an image without copying.
func (f *Frame) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

func (f *Frame) String() string {
	return fmt.Sprintf("frame(%dx%d)", f.Width, f.Height)
}
