package assistant

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// ProcessImage normalises src to a frame. An image of the display size is
// converted pixel for pixel; any other size is first resized to 128x64
// with nearest-neighbour resampling. The result never aliases src.
func ProcessImage(src image.Image) *image1bit.VerticalLSB {
	if f, ok := src.(*image1bit.VerticalLSB); ok && f.Rect == Bounds {
		return CopyFrame(f)
	}

	frame := NewFrame()
	if src == nil {
		return frame
	}
	if src.Bounds().Size() != Size() {
		src = imaging.Resize(src, Width, Height, imaging.NearestNeighbor)
	}
	draw.Draw(frame, Bounds, src, src.Bounds().Min, draw.Src)
	return frame
}

// ImagesMatch reports whether a and b have no differing pixel once reduced
// to one bit.
func ImagesMatch(a, b image.Image) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	fa, okA := a.(*image1bit.VerticalLSB)
	fb, okB := b.(*image1bit.VerticalLSB)
	if okA && okB && fa.Rect == fb.Rect && fa.Stride == fb.Stride {
		return bytes.Equal(fa.Pix, fb.Pix)
	}
	return DiffBounds(a, b).Empty()
}

// DiffBounds returns the smallest rectangle holding every pixel that
// differs between a and b. Images of different sizes differ everywhere.
func DiffBounds(a, b image.Image) image.Rectangle {
	ra, rb := a.Bounds(), b.Bounds()
	if ra.Size() != rb.Size() {
		return ra.Union(rb)
	}

	diff := image.Rectangle{}
	for y := 0; y < ra.Dy(); y++ {
		for x := 0; x < ra.Dx(); x++ {
			pa := image1bit.BitModel.Convert(a.At(ra.Min.X+x, ra.Min.Y+y))
			pb := image1bit.BitModel.Convert(b.At(rb.Min.X+x, rb.Min.Y+y))
			if pa != pb {
				diff = diff.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return diff
}
