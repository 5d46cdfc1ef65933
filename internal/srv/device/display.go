package device

import (
	"fmt"
	"image"
	"sync"

	"github.com/pi-top/miniscreen/internal/srv/event"
	"github.com/pi-top/miniscreen/miniscreen"
	"github.com/sirupsen/logrus"
)

// Display owns the miniscreen. It also reports when another program takes
// the miniscreen lock or gives it back.
type Display struct {
	lock         sync.RWMutex
	opts         *miniscreen.Opts
	screen       *miniscreen.Miniscreen
	eventChannel chan event.ControlEvent
}

func NewDisplay(opts *miniscreen.Opts) *Display {
	return &Display{
		opts:         opts,
		eventChannel: make(chan event.ControlEvent, 8),
	}
}

// Start blocks until the miniscreen is free, then takes it.
func (d *Display) Start() error {
	logrus.Infof("Start display device")

	d.lock.Lock()
	defer d.lock.Unlock()

	screen, err := miniscreen.New(d.opts)
	if err != nil {
		return fmt.Errorf("unable to open the miniscreen: %w", err)
	}
	if err := screen.SetWhenUserControlled(func() { d.notify(true) }); err != nil {
		screen.Close()
		return err
	}
	if err := screen.SetWhenSystemControlled(func() { d.notify(false) }); err != nil {
		screen.Close()
		return err
	}
	d.screen = screen
	return nil
}

func (d *Display) notify(userControlled bool) {
	select {
	case d.eventChannel <- event.ControlEvent{UserControlled: userControlled}:
	default:
		logrus.Debugf("Control event dropped")
	}
}

func (d *Display) Stop() {
	logrus.Infof("Stop display device")

	d.lock.Lock()
	defer d.lock.Unlock()

	if d.screen == nil {
		return
	}
	if err := d.screen.Close(); err != nil {
		logrus.Warnf("Unable to close the miniscreen: %v", err)
	}
	d.screen = nil
}

func (d *Display) Screen() *miniscreen.Miniscreen {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.screen
}

// PressSources returns the buttons, in ButtonId order.
func (d *Display) PressSources() []PressSource {
	screen := d.Screen()
	sources := make([]PressSource, 0, 4)
	for _, b := range screen.Buttons() {
		sources = append(sources, b)
	}
	return sources
}

// ShowImage displays img, logging rather than returning failures.
func (d *Display) ShowImage(img image.Image) {
	if err := d.Screen().DisplayImage(img, false); err != nil {
		logrus.Warnf("Unable to display image: %v", err)
	}
}

func (d *Display) EventChannel() chan event.ControlEvent {
	return d.eventChannel
}
