package oled

import (
	"image"

	"github.com/pi-top/miniscreen/assistant"
	"github.com/sirupsen/logrus"
)

// Display shows the canvas.
//
// Deprecated: use DisplayImage.
func (o *OLED) Display(force bool) error {
	logrus.Debugf("Display() is deprecated, you will need to handle your own images in future")
	return o.display(o.canvas, force, false, nil)
}

// Deprecated: use DisplayImage.
func (o *OLED) Draw() error {
	logrus.Debugf("Draw() is deprecated, using Display()")
	return o.Display(false)
}

// Deprecated: use DisplayImageFile.
func (o *OLED) DrawImageFile(pathOrURL string) error {
	logrus.Debugf("DrawImageFile() is deprecated, using DisplayImageFile()")
	return o.DisplayImageFile(pathOrURL, false)
}

// Deprecated: use DisplayImage.
func (o *OLED) DrawImage(img image.Image) error {
	logrus.Debugf("DrawImage() is deprecated, using DisplayImage()")
	return o.DisplayImage(img, false)
}

// Deprecated: use DisplayText.
func (o *OLED) DrawText(text string, xy *image.Point, fontSize int) error {
	logrus.Debugf("DrawText() is deprecated, using DisplayText()")
	return o.DisplayText(text, assistant.TextOpts{XY: xy, FontSize: fontSize}, false)
}

// Deprecated: use DisplayMultilineText.
func (o *OLED) DrawMultilineText(text string, xy *image.Point, fontSize int) error {
	logrus.Debugf("DrawMultilineText() is deprecated, using DisplayMultilineText()")
	return o.DisplayMultilineText(text, assistant.TextOpts{XY: xy, FontSize: fontSize}, false)
}
