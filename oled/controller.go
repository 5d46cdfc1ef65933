package oled

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/pi-top/miniscreen/ptdm"
	"github.com/pi-top/miniscreen/sh1106"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
)

var (
	ErrHardwareUnavailable = errors.New("oled: hardware unavailable")
	ErrInvalidArgument     = errors.New("oled: invalid argument")
)

// Hub is the part of the hub request client the controller uses.
type Hub interface {
	SetOLEDControl(pi bool) error
	OLEDControl() (bool, error)
	OLEDSPIBus() (int, error)
	SetOLEDSPIBus(bus int) error
}

// Subscriber registers callbacks on hub publications.
type Subscriber interface {
	On(id ptdm.MessageId, cb ptdm.Callback) error
	StartListening()
	StopListening()
}

// Panel is an initialised display chip.
type Panel interface {
	Draw(frame *image1bit.VerticalLSB) error
	SetContrast(level byte) error
	Show(on bool) error
	// Close releases the serial port, leaving the panel as it is.
	Close() error
}

// PanelOpener opens and initialises the panel wired to an SPI bus.
type PanelOpener func(bus int) (Panel, error)

// DeviceController owns the panel: it opens it on the SPI bus chosen by the
// hub, reopens it when the bus changes and routes the panel to the pi or to
// the hub.
type DeviceController struct {
	hub  Hub
	open PanelOpener

	lock      sync.RWMutex
	bus       int
	whenReset func()

	panelLock sync.Mutex
	panel     Panel
}

// NewDeviceController asks the hub for the current SPI bus and follows its
// changes through sub. The panel itself is opened on first use.
func NewDeviceController(hub Hub, sub Subscriber, open PanelOpener) (*DeviceController, error) {
	bus, err := hub.OLEDSPIBus()
	if err != nil {
		return nil, err
	}
	if bus != 0 && bus != 1 {
		return nil, fmt.Errorf("%w: hub reported SPI bus %d", ErrHardwareUnavailable, bus)
	}
	logrus.Debugf("Miniscreen is on SPI bus %d", bus)

	c := &DeviceController{
		hub:  hub,
		open: open,
		bus:  bus,
	}
	if sub != nil {
		if err := sub.On(ptdm.PUB_OLED_SPI_BUS_CHANGED, c.onSPIBusChanged); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// SetWhenDeviceReset sets the function called after the panel was reopened
// on another bus.
func (c *DeviceController) SetWhenDeviceReset(f func()) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.whenReset = f
}

func (c *DeviceController) SPIBus() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.bus
}

// SetSPIBus asks the hub to move the panel to bus, then reopens it there.
func (c *DeviceController) SetSPIBus(bus int) error {
	if bus != 0 && bus != 1 {
		return fmt.Errorf("%w: SPI bus must be 0 or 1, got %d", ErrInvalidArgument, bus)
	}
	if c.SPIBus() == bus {
		return nil
	}
	if err := c.hub.SetOLEDSPIBus(bus); err != nil {
		return err
	}
	return c.adoptBus(bus)
}

func (c *DeviceController) onSPIBusChanged(params []string) {
	bus, err := strconv.Atoi(params[0])
	if err != nil || (bus != 0 && bus != 1) {
		logrus.Warnf("Ignoring SPI bus change to %q", params[0])
		return
	}
	if err := c.adoptBus(bus); err != nil {
		logrus.Errorf("Unable to move the miniscreen to SPI bus %d: %v", bus, err)
	}
}

func (c *DeviceController) adoptBus(bus int) error {
	c.lock.Lock()
	changed := c.bus != bus
	c.bus = bus
	whenReset := c.whenReset
	c.lock.Unlock()

	if !changed {
		return nil
	}
	logrus.Infof("Miniscreen moved to SPI bus %d", bus)
	if err := c.ResetDevice(); err != nil {
		return err
	}
	if whenReset != nil {
		whenReset()
	}
	return nil
}

// ResetDevice releases the serial port and initialises the panel again.
func (c *DeviceController) ResetDevice() error {
	c.panelLock.Lock()
	defer c.panelLock.Unlock()

	c.closePanel()
	_, err := c.panelLocked()
	return err
}

func (c *DeviceController) closePanel() {
	if c.panel == nil {
		return
	}
	if err := c.panel.Close(); err != nil {
		logrus.Debugf("Unable to release the miniscreen port: %v", err)
	}
	c.panel = nil
}

func (c *DeviceController) panelLocked() (Panel, error) {
	if c.panel != nil {
		return c.panel, nil
	}
	p, err := c.open(c.SPIBus())
	if err != nil {
		return nil, err
	}
	c.panel = p
	return p, nil
}

func (c *DeviceController) withPanel(f func(p Panel) error) error {
	c.panelLock.Lock()
	defer c.panelLock.Unlock()

	p, err := c.panelLocked()
	if err != nil {
		return err
	}
	return f(p)
}

// Display transfers a full frame.
func (c *DeviceController) Display(frame *image1bit.VerticalLSB) error {
	return c.withPanel(func(p Panel) error { return p.Draw(frame) })
}

// Contrast sets the panel contrast, from 0 to 255.
func (c *DeviceController) Contrast(level int) error {
	if level < 0 || level > 255 {
		return fmt.Errorf("%w: contrast must be between 0 and 255, got %d", ErrInvalidArgument, level)
	}
	return c.withPanel(func(p Panel) error { return p.SetContrast(byte(level)) })
}

func (c *DeviceController) Show() error {
	return c.withPanel(func(p Panel) error { return p.Show(true) })
}

func (c *DeviceController) Hide() error {
	return c.withPanel(func(p Panel) error { return p.Show(false) })
}

func (c *DeviceController) SetControlToPi() error {
	return c.hub.SetOLEDControl(true)
}

// SetControlToHub hands the panel back to the hub's own menu. What later
// SPI transfers show while the hub is in control is undefined.
func (c *DeviceController) SetControlToHub() error {
	return c.hub.SetOLEDControl(false)
}

// ControlledByPi reports whether the hub routes the panel to the pi.
func (c *DeviceController) ControlledByPi() (bool, error) {
	return c.hub.OLEDControl()
}

// Close releases the serial port.
func (c *DeviceController) Close() {
	c.panelLock.Lock()
	defer c.panelLock.Unlock()
	c.closePanel()
}

// SPIOpts wires the panel to the pi.
type SPIOpts struct {
	// Chip select index on the bus.
	Device int
	Speed  physic.Frequency
	// DC pin name per bus.
	DCPins [2]string
	// Optional reset pin name.
	RSTPin    string
	ResetHold time.Duration
}

var DefaultSPIOpts = SPIOpts{
	Device: 0,
	Speed:  8 * physic.MegaHertz,
	DCPins: [2]string{"GPIO7", "GPIO17"},
}

type spiPanel struct {
	*sh1106.Dev
	port spi.PortCloser
}

func (p *spiPanel) Close() error {
	return p.port.Close()
}

// OpenSPIPanel returns the opener of the SH1106 panel on the pi SPI buses.
func OpenSPIPanel(opts SPIOpts) PanelOpener {
	if opts.Speed == 0 {
		opts.Speed = DefaultSPIOpts.Speed
	}
	for i, name := range opts.DCPins {
		if name == "" {
			opts.DCPins[i] = DefaultSPIOpts.DCPins[i]
		}
	}

	return func(bus int) (Panel, error) {
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHardwareUnavailable, err)
		}

		node := fmt.Sprintf("/dev/spidev%d.%d", bus, opts.Device)
		if _, err := os.Stat(node); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHardwareUnavailable, err)
		}

		port, err := spireg.Open(fmt.Sprintf("SPI%d.%d", bus, opts.Device))
		if err != nil {
			return nil, fmt.Errorf("%w: unable to open SPI%d.%d: %v", ErrHardwareUnavailable, bus, opts.Device, err)
		}
		conn, err := port.Connect(opts.Speed, spi.Mode0, 8)
		if err != nil {
			port.Close()
			return nil, fmt.Errorf("%w: %v", ErrHardwareUnavailable, err)
		}

		dc := gpioreg.ByName(opts.DCPins[bus])
		if dc == nil {
			port.Close()
			return nil, fmt.Errorf("%w: no pin %s", ErrHardwareUnavailable, opts.DCPins[bus])
		}
		var rst gpio.PinOut
		if opts.RSTPin != "" {
			if p := gpioreg.ByName(opts.RSTPin); p != nil {
				rst = p
			} else {
				logrus.Warnf("Reset pin %s not found, skipping hardware reset", opts.RSTPin)
			}
		}

		dev, err := sh1106.New(conn, dc, &sh1106.Opts{RST: rst, ResetHold: opts.ResetHold})
		if err != nil {
			port.Close()
			return nil, fmt.Errorf("%w: %v", ErrHardwareUnavailable, err)
		}
		logrus.Debugf("Miniscreen initialised on %s", dev)
		return &spiPanel{Dev: dev, port: port}, nil
	}
}
