package srv

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/pi-top/miniscreen/assistant"
	"github.com/pi-top/miniscreen/internal/version"
)

func (s *ServerApp) refreshDisplay() {
	var img image.Image
	switch s.currentMode {
	case UNDEFINED_MODE:
		img = s.startupScreen()
	case STATUS_MODE:
		img = s.statusScreen()
	case END_MODE:
		img = s.byeScreen()
	default:
		return
	}
	s.displayDevice.ShowImage(img)
}

func newScreen() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, assistant.Width, assistant.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.Black}, image.Point{}, draw.Src)
	return img
}

func (s *ServerApp) startupScreen() image.Image {
	img := newScreen()
	AddCenteredLabel(img, 24, "miniscreend")
	AddCenteredLabel(img, 40, "v"+version.AppVersion.String())
	return img
}

// statusScreen summarises the daemon setup. It is shown while cancel is
// held.
func (s *ServerApp) statusScreen() image.Image {
	img := newScreen()
	AddCenteredLabel(img, 12, "miniscreend v"+version.AppVersion.String())
	AddLabel(img, 2, 28, fmt.Sprintf("SPI bus: %d", s.displayDevice.Screen().SPIBus()))
	if s.ApiParam.Enabled {
		AddLabel(img, 2, 42, fmt.Sprintf("API port: %d", s.ApiParam.Port))
	} else {
		AddLabel(img, 2, 42, "API: off")
	}
	AddLabel(img, 2, 56, fmt.Sprintf("Contrast: %d", s.Contrast()))
	return img
}

func (s *ServerApp) byeScreen() image.Image {
	img := newScreen()
	AddCenteredLabel(img, 36, "Bye")
	return img
}
