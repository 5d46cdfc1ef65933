package srv

import (
	"image"
	"image/color"

	"github.com/hajimehoshi/bitmapfont/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

var uniformImage = image.NewUniform(color.White)

// AddLabel draws label with its baseline at y.
func AddLabel(img *image.RGBA, x, y int, label string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  uniformImage,
		Face: bitmapfont.Face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(label)
}

func AddCenteredLabel(img *image.RGBA, y int, label string) {
	width := font.MeasureString(bitmapfont.Face, label).Ceil()
	AddLabel(img, (img.Bounds().Dx()-width)/2, y, label)
}
