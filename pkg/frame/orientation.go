package frame

import "fmt"

// Orientation describes how raw device pixels map onto the canonical layout.
// Flips are applied before rotation. Rotation is clockwise in degrees.
type Orientation struct {
	FlipVertical   bool `json:"flip_vertical"`
	FlipHorizontal bool `json:"flip_horizontal"`
	Rotation       int  `json:"rotation"` // 0, 90, 180 or 270
}

// Validate checks the rotation angle.
func (o Orientation) Validate() error {
	switch o.Rotation {
	case 0, 90, 180, 270:
		return nil
	}
	return fmt.Errorf("rotation must be 0, 90, 180 or 270, got %d", o.Rotation)
}

// IsIdentity reports whether the orientation leaves pixels in place.
func (o Orientation) IsIdentity() bool {
	return !o.FlipVertical && !o.FlipHorizontal && o.Rotation == 0
}

// Size returns the oriented size of a w x h source.
func (o Orientation) Size(w, h int) (int, int) {
	if o.Rotation == 90 || o.Rotation == 270 {
		return h, w
	}
	return w, h
}

// apply copies src (sw x sh RGBA) into dst in oriented layout.
func (o Orientation) apply(dst, src []byte, sw, sh int) {
	if o.IsIdentity() {
		copy(dst, src)
		return
	}

	dw, _ := o.Size(sw, sh)
	for y := 0; y < sh; y++ {
		for x := 0; x < sw; x++ {
			fx, fy := x, y
			if o.FlipHorizontal {
				fx = sw - 1 - x
			}
			if o.FlipVertical {
				fy = sh - 1 - y
			}

			var dx, dy int
			switch o.Rotation {
			case 90:
				dx, dy = sh-1-fy, fx
			case 180:
				dx, dy = sw-1-fx, sh-1-fy
			case 270:
				dx, dy = fy, sw-1-fx
			default:
				dx, dy = fx, fy
			}

			si := (y*sw + x) * 4
			di := (dy*dw + dx) * 4
			copy(dst[di:di+4], src[si:si+4])
		}
	}
}
