package frame

import "fmt"

// Source is the part of a capture device the acquirer reads from.
type Source interface {
	Width() int
	Height() int
	ReadPixels(dst []byte) error
}

// Acquirer pulls the current frame from a Source into a reused buffer.
// Buffers are reallocated only when the source dimensions change.
type Acquirer struct {
	orientation Orientation

	raw         []byte
	rawW, rawH  int
	frame       *Frame
	allocations int
}

// NewAcquirer creates an acquirer applying o to every frame.
func NewAcquirer(o Orientation) (*Acquirer, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return &Acquirer{orientation: o}, nil
}

// Orientation returns the active orientation.
func (a *Acquirer) Orientation() Orientation {
	return a.orientation
}

// SetOrientation changes the orientation applied from the next Acquire.
func (a *Acquirer) SetOrientation(o Orientation) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o != a.orientation {
		a.orientation = o
		a.frame = nil
	}
	return nil
}

// Acquire reads the source's current pixels and returns the oriented frame.
// The returned frame is overwritten by the next call.
func (a *Acquirer) Acquire(src Source) (*Frame, error) {
	w, h := src.Width(), src.Height()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("acquire: invalid source size %dx%d", w, h)
	}

	if w != a.rawW || h != a.rawH || a.frame == nil {
		a.reallocate(w, h)
	}

	// Identity orientation reads straight into the frame
	dst := a.raw
	if a.orientation.IsIdentity() {
		dst = a.frame.Pix
	}
	if err := src.ReadPixels(dst); err != nil {
		return nil, fmt.Errorf("acquire: %w", err)
	}
	if !a.orientation.IsIdentity() {
		a.orientation.apply(a.frame.Pix, a.raw, w, h)
	}
	return a.frame, nil
}

func (a *Acquirer) reallocate(w, h int) {
	a.rawW, a.rawH = w, h
	if a.orientation.IsIdentity() {
		a.raw = nil
	} else {
		a.raw = make([]byte, w*h*4)
	}
	fw, fh := a.orientation.Size(w, h)
	a.frame = New(fw, fh)
	a.allocations++
}

// Allocations returns how many times the frame buffer was (re)allocated.
func (a *Acquirer) Allocations() int {
	return a.allocations
}
