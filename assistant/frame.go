// Package assistant holds the frame helpers of the miniscreen: geometry,
// normalisation of arbitrary images to 1-bit frames, diffing, inversion,
// word wrapping, text rendering and image loading.
//
// A frame is a 128x64 *image1bit.VerticalLSB. Its Pix layout is the SH1106
// page layout, so frames go to the device without repacking.
package assistant

import (
	"image"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

const (
	Width  = 128
	Height = 64
	// Mode is the frame pixel format, one bit per pixel.
	Mode = "1"
)

// Bounds is the frame rectangle.
var Bounds = image.Rect(0, 0, Width, Height)

// NewFrame returns an empty frame, all pixels off.
func NewFrame() *image1bit.VerticalLSB {
	return image1bit.NewVerticalLSB(Bounds)
}

// CopyFrame returns a deep copy of f.
func CopyFrame(f *image1bit.VerticalLSB) *image1bit.VerticalLSB {
	c := &image1bit.VerticalLSB{
		Pix:    make([]byte, len(f.Pix)),
		Stride: f.Stride,
		Rect:   f.Rect,
	}
	copy(c.Pix, f.Pix)
	return c
}

// Clear switches every pixel of f off.
func Clear(f *image1bit.VerticalLSB) {
	for i := range f.Pix {
		f.Pix[i] = 0
	}
}

// Invert returns a new frame with every pixel of f flipped.
func Invert(f *image1bit.VerticalLSB) *image1bit.VerticalLSB {
	inv := CopyFrame(f)
	for i := range inv.Pix {
		inv.Pix[i] = ^inv.Pix[i]
	}
	return inv
}

// BoundingBox returns the inclusive corners of the display, (0,0,127,63).
func BoundingBox() (x0, y0, x1, y1 int) {
	return 0, 0, Width - 1, Height - 1
}

func Size() image.Point {
	return image.Pt(Width, Height)
}

// Center is the recommended text position.
func Center() image.Point {
	return image.Pt(Width/2, Height/2)
}

func TopLeft() image.Point {
	return image.Pt(0, 0)
}

func TopRight() image.Point {
	return image.Pt(Width-1, 0)
}

func BottomLeft() image.Point {
	return image.Pt(0, Height-1)
}

func BottomRight() image.Point {
	return image.Pt(Width-1, Height-1)
}
