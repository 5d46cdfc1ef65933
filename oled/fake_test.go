package oled_test

import (
	"bytes"
	"testing"

	"github.com/pi-top/miniscreen/assistant"
	"github.com/pi-top/miniscreen/internal/fonttest"
	"github.com/pi-top/miniscreen/internal/oledtest"
	"github.com/pi-top/miniscreen/oled"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

type testRig struct {
	*oledtest.Rig
	oled *oled.OLED
}

func newTestOLED(t *testing.T) *testRig {
	t.Helper()
	r := &testRig{Rig: oledtest.NewRig(1)}
	opts := r.Opts(fonttest.Install(t))
	o, err := oled.New(&opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { o.Close() })
	r.oled = o
	return r
}

func fullFrame() *image1bit.VerticalLSB {
	return assistant.Invert(assistant.NewFrame())
}

func halfFrame() *image1bit.VerticalLSB {
	f := assistant.NewFrame()
	for y := 0; y < assistant.Height/2; y++ {
		for x := 0; x < assistant.Width; x++ {
			f.SetBit(x, y, image1bit.On)
		}
	}
	return f
}

func sameFrame(a, b *image1bit.VerticalLSB) bool {
	return a != nil && b != nil && bytes.Equal(a.Pix, b.Pix)
}
