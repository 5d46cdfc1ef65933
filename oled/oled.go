// Package oled is the miniscreen display: it renders text, still images
// and animations on the 128x64 panel, skipping frames that would not change
// what is on screen.
package oled

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/pi-top/miniscreen/assistant"
	"github.com/pi-top/miniscreen/fps"
	"github.com/pi-top/miniscreen/ptdm"
	"github.com/sirupsen/logrus"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// ErrReconstructRequired is returned once the display could not be
// recovered after a hub daemon restart.
var ErrReconstructRequired = errors.New("oled: error resetting miniscreen, please re-create the Miniscreen object")

// Opts configures an OLED. Hub, Subscriber and OpenPanel default to the
// real hub clients and SPI panel.
type Opts struct {
	Endpoints ptdm.Endpoints
	SPI       SPIOpts
	// MaxFPS <= 0 disables pacing.
	MaxFPS float64
	Fonts  *assistant.Fonts

	Hub        Hub
	Subscriber Subscriber
	OpenPanel  PanelOpener
}

var DefaultOpts = Opts{
	Endpoints: ptdm.DefaultEndpoints,
	SPI:       DefaultSPIOpts,
	MaxFPS:    fps.DefaultMaxFPS,
}

// OLED is the display facade. Display calls are meant to come from one
// goroutine; the background animation and the hub callbacks are
// serialised with them.
type OLED struct {
	Assistant *assistant.Assistant

	controller *DeviceController
	fps        *fps.Regulator
	sub        Subscriber

	displayLock sync.Mutex
	image       *image1bit.VerticalLSB
	canvas      *image1bit.VerticalLSB

	lock    sync.RWMutex
	visible bool
	failure error

	animLock sync.Mutex
	anim     *animation
}

// New takes control of the panel: it asks the hub to route it to the pi,
// initialises it, clears it and shows it.
func New(opts *Opts) (*OLED, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	hub := opts.Hub
	if hub == nil {
		hub = ptdm.NewRequestClient(opts.Endpoints)
	}
	sub := opts.Subscriber
	if sub == nil {
		sub = ptdm.NewSubscribeClient(opts.Endpoints)
	}
	open := opts.OpenPanel
	if open == nil {
		open = OpenSPIPanel(opts.SPI)
	}
	fonts := opts.Fonts
	if fonts == nil {
		fonts = assistant.NewFonts("", "")
	}

	controller, err := NewDeviceController(hub, sub, open)
	if err != nil {
		return nil, err
	}

	o := &OLED{
		Assistant:  assistant.New(fonts),
		controller: controller,
		fps:        fps.NewRegulator(opts.MaxFPS),
		sub:        sub,
		image:      assistant.NewFrame(),
		canvas:     assistant.NewFrame(),
	}
	controller.SetWhenDeviceReset(o.redrawLastImage)

	if err := o.Reset(); err != nil {
		controller.Close()
		return nil, err
	}

	if err := sub.On(ptdm.PUB_PITOPD_READY, o.onHubReady); err != nil {
		controller.Close()
		return nil, err
	}
	sub.StartListening()
	return o, nil
}

func (o *OLED) onHubReady() {
	logrus.Debugf("pi-topd is ready, resetting miniscreen")

	backup := o.Image()
	err := o.Reset()
	if err == nil {
		err = o.DisplayImage(backup, false)
	}
	if err != nil {
		logrus.Errorf("Error resetting miniscreen: %v", err)
		o.lock.Lock()
		o.failure = fmt.Errorf("%w: %v", ErrReconstructRequired, err)
		o.lock.Unlock()
	}
}

// Err returns ErrReconstructRequired once recovering from a hub daemon
// restart failed.
func (o *OLED) Err() error {
	o.lock.RLock()
	defer o.lock.RUnlock()
	return o.failure
}

// Controller gives access to the device controller.
func (o *OLED) Controller() *DeviceController {
	return o.controller
}

// Image returns a copy of the frame currently on the device.
func (o *OLED) Image() *image1bit.VerticalLSB {
	o.displayLock.Lock()
	defer o.displayLock.Unlock()
	return assistant.CopyFrame(o.image)
}

// Canvas is the scratch frame shown by Display.
//
// Deprecated: render into your own frame and use DisplayImage.
func (o *OLED) Canvas() *image1bit.VerticalLSB {
	return o.canvas
}

func (o *OLED) Size() image.Point { return assistant.Size() }
func (o *OLED) Width() int { return assistant.Width }
func (o *OLED) Height() int { return assistant.Height }
func (o *OLED) Mode() string { return assistant.Mode }
func (o *OLED) Center() image.Point { return assistant.Center() }
func (o *OLED) TopLeft() image.Point { return assistant.TopLeft() }
func (o *OLED) TopRight() image.Point { return assistant.TopRight() }
func (o *OLED) BottomLeft() image.Point { return assistant.BottomLeft() }
func (o *OLED) BottomRight() image.Point { return assistant.BottomRight() }

// BoundingBox is (0, 0, 127, 63).
func (o *OLED) BoundingBox() (x0, y0, x1, y1 int) {
	return assistant.BoundingBox()
}

func (o *OLED) SPIBus() int {
	return o.controller.SPIBus()
}

// SetSPIBus moves the panel to SPI bus 0 or 1.
func (o *OLED) SetSPIBus(bus int) error {
	return o.controller.SetSPIBus(bus)
}

// SetMaxFPS caps the frame rate of every display call. A value <= 0
// removes the cap.
func (o *OLED) SetMaxFPS(maxFPS float64) {
	o.fps.SetMaxFPS(maxFPS)
}

// FPS returns the frame rate regulator.
func (o *OLED) FPS() *fps.Regulator {
	return o.fps
}

func (o *OLED) SetControlToPi() error {
	return o.controller.SetControlToPi()
}

// SetControlToHub hands the panel to the hub. What later display calls do
// depends on the hub.
func (o *OLED) SetControlToHub() error {
	return o.controller.SetControlToHub()
}

// Visible reports whether the panel is shown.
func (o *OLED) Visible() bool {
	o.lock.RLock()
	defer o.lock.RUnlock()
	return o.visible
}

// Show turns the panel back on, with the image it had before Hide.
func (o *OLED) Show() error {
	if err := o.controller.Show(); err != nil {
		return err
	}
	o.lock.Lock()
	o.visible = true
	o.lock.Unlock()
	return nil
}

// Hide puts the panel in low power mode. The image is kept.
func (o *OLED) Hide() error {
	if err := o.controller.Hide(); err != nil {
		return err
	}
	o.lock.Lock()
	o.visible = false
	o.lock.Unlock()
	return nil
}

func (o *OLED) Contrast(level int) error {
	return o.controller.Contrast(level)
}

// Wake sets the highest contrast.
func (o *OLED) Wake() error {
	return o.Contrast(255)
}

// Sleep sets the lowest contrast.
func (o *OLED) Sleep() error {
	return o.Contrast(0)
}

// PrepareImage turns any image into a frame for the display.
func (o *OLED) PrepareImage(img image.Image) *image1bit.VerticalLSB {
	return assistant.ProcessImage(img)
}

// ShouldRedisplay reports whether img differs from the frame on the device.
// A nil img stands for the canvas.
func (o *OLED) ShouldRedisplay(img image.Image) bool {
	if img == nil {
		img = o.canvas
	}
	o.displayLock.Lock()
	defer o.displayLock.Unlock()
	return o.shouldRedisplay(img)
}

func (o *OLED) shouldRedisplay(img image.Image) bool {
	return o.image == nil || !assistant.ImagesMatch(o.image, img)
}

// Clear blanks the screen.
func (o *OLED) Clear() error {
	return o.clear(nil)
}

func (o *OLED) clear(caller *animation) error {
	assistant.Clear(o.canvas)
	return o.display(o.canvas, true, false, caller)
}

func (o *OLED) redrawLastImage() {
	if err := o.display(o.Image(), true, false, nil); err != nil {
		logrus.Warnf("Unable to redraw the miniscreen: %v", err)
	}
}

// Refresh takes the panel back from the hub, reinitialises it and redraws
// the last frame.
func (o *OLED) Refresh() error {
	return o.refresh(nil)
}

func (o *OLED) refresh(caller *animation) error {
	if err := o.SetControlToPi(); err != nil {
		return err
	}
	if err := o.controller.ResetDevice(); err != nil {
		return err
	}
	return o.display(o.Image(), true, false, caller)
}

// Reset gives this process the screen: it clears it, refreshes the
// device, sets full contrast and shows the panel.
func (o *OLED) Reset() error {
	return o.reset(nil)
}

func (o *OLED) reset(caller *animation) error {
	if err := o.clear(caller); err != nil {
		return err
	}
	if err := o.refresh(caller); err != nil {
		return err
	}
	if err := o.Wake(); err != nil {
		return err
	}
	if !o.Visible() {
		return o.Show()
	}
	return nil
}

// DisplayImage shows img, resized to the display when needed.
func (o *OLED) DisplayImage(img image.Image, invert bool) error {
	return o.displayImage(img, invert, nil)
}

func (o *OLED) displayImage(img image.Image, invert bool, caller *animation) error {
	return o.display(assistant.ProcessImage(img), false, invert, caller)
}

// DisplayImageFile shows the image at a local path or an http(s) URL.
func (o *OLED) DisplayImageFile(pathOrURL string, invert bool) error {
	img, err := assistant.LoadImage(pathOrURL)
	if err != nil {
		return err
	}
	return o.DisplayImage(img, invert)
}

// DisplayText shows a single line of text. Newlines in text still break
// lines.
func (o *OLED) DisplayText(text string, opts assistant.TextOpts, invert bool) error {
	return o.displayText(text, false, opts, invert)
}

// DisplayMultilineText shows text wrapped to the display width.
func (o *OLED) DisplayMultilineText(text string, opts assistant.TextOpts, invert bool) error {
	return o.displayText(text, true, opts, invert)
}

func (o *OLED) displayText(text string, wrap bool, opts assistant.TextOpts, invert bool) error {
	frame := assistant.NewFrame()
	if err := o.Assistant.RenderText(frame, text, wrap, opts); err != nil {
		return err
	}
	return o.DisplayImage(frame, invert)
}

// display is the single path to the device: it preempts any animation
// other than caller, waits for the frame slot, skips frames already on
// screen unless forced and caches what was sent.
func (o *OLED) display(frame *image1bit.VerticalLSB, force bool, invert bool, caller *animation) error {
	if err := o.Err(); err != nil {
		return err
	}
	o.stopAnimation(caller)

	if invert {
		frame = assistant.Invert(frame)
	}

	o.displayLock.Lock()
	defer o.displayLock.Unlock()

	o.fps.StopTimer()
	if force || o.shouldRedisplay(frame) {
		if err := o.controller.Display(frame); err != nil {
			return err
		}
	}
	o.fps.StartTimer()

	o.image = assistant.CopyFrame(frame)
	return nil
}

// Close stops the animation, the hub listener and releases the panel.
func (o *OLED) Close() error {
	o.StopAnimatedImage()
	o.sub.StopListening()
	o.controller.Close()
	return nil
}
