// Package sh1106 drives a 128x64 SH1106 OLED controller over SPI.
//
// Pixels are streamed one page (8 rows) at a time, using the same byte
// layout as image1bit.VerticalLSB: bit 0 of each byte is the top pixel of
// the page.
package sh1106

import (
	"errors"
	"fmt"
	"image"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

const (
	Width  = 128
	Height = 64
	Pages  = Height / 8

	// The SH1106 has 132 columns of RAM; a 128 pixel panel sits at column 2.
	ColumnOffset = 2
)

const (
	cmdSetLowColumn          = 0x00
	cmdSetHighColumn         = 0x10
	cmdSetMemoryMode         = 0x20
	cmdSetStartLine          = 0x40
	cmdSetContrast           = 0x81
	cmdSetChargePump         = 0x8D
	cmdSetSegmentRemap       = 0xA1
	cmdSetDisplayAllOnResume = 0xA4
	cmdSetNormalDisplay      = 0xA6
	cmdSetMultiplexRatio     = 0xA8
	cmdSetDisplayOff         = 0xAE
	cmdSetDisplayOn          = 0xAF
	cmdSetPageAddr           = 0xB0
	cmdSetComScanDec         = 0xC8
	cmdSetDisplayOffset      = 0xD3
	cmdSetDisplayClockDiv    = 0xD5
	cmdSetPrecharge          = 0xD9
	cmdSetComPins            = 0xDA
	cmdSetVCOMDetect         = 0xDB
)

// DefaultContrast is the contrast programmed by the init sequence.
const DefaultContrast = 0x7F

var ErrHalted = errors.New("sh1106: halted")

// Opts is the configuration for the SH1106 display.
type Opts struct {
	// Optional hardware reset pin
	RST gpio.PinOut
	// Time RST is held low, and then high, during reset.
	ResetHold time.Duration
}

// Dev is an open handle to the display controller.
type Dev struct {
	c   conn.Conn
	dc  gpio.PinOut
	rst gpio.PinOut

	resetHold time.Duration
	halted    bool
}

// New initialises the controller reachable through c. The connection must
// already be configured (mode 0, 8 bits per word).
func New(c conn.Conn, dc gpio.PinOut, opts *Opts) (*Dev, error) {
	if dc == nil {
		return nil, errors.New("sh1106: a data/command pin is required")
	}
	if opts == nil {
		opts = &Opts{}
	}
	d := &Dev{
		c:         c,
		dc:        dc,
		rst:       opts.RST,
		resetHold: opts.ResetHold,
	}
	if d.resetHold == 0 {
		d.resetHold = 10 * time.Millisecond
	}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("sh1106.Dev{%s, %dx%d}", d.c, Width, Height)
}

// Bounds returns the panel geometry.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rect(0, 0, Width, Height)
}

func (d *Dev) init() error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return fmt.Errorf("sh1106: failed to drive DC: %w", err)
	}
	if d.rst != nil {
		if err := d.rst.Out(gpio.Low); err != nil {
			return fmt.Errorf("sh1106: failed to pull RST low: %w", err)
		}
		time.Sleep(d.resetHold)
		if err := d.rst.Out(gpio.High); err != nil {
			return fmt.Errorf("sh1106: failed to pull RST high: %w", err)
		}
		time.Sleep(d.resetHold)
	}

	if err := d.sendCommands(initSequence()); err != nil {
		return err
	}
	if err := d.sendCommands([]byte{cmdSetContrast, DefaultContrast}); err != nil {
		return err
	}
	if err := d.writePages(make([]byte, Width*Pages)); err != nil {
		return err
	}
	return d.sendCommands([]byte{cmdSetDisplayOn})
}

func initSequence() []byte {
	return []byte{
		cmdSetDisplayOff,
		cmdSetMemoryMode,
		cmdSetHighColumn, 0xB0, cmdSetComScanDec,
		cmdSetLowColumn, 0x10, cmdSetStartLine,
		cmdSetSegmentRemap,
		cmdSetNormalDisplay,
		cmdSetMultiplexRatio, Height - 1,
		cmdSetDisplayAllOnResume,
		cmdSetDisplayOffset, 0x00,
		cmdSetDisplayClockDiv, 0xF0,
		cmdSetPrecharge, 0x22,
		cmdSetComPins, 0x12,
		cmdSetVCOMDetect, 0x20,
		cmdSetChargePump, 0x14,
	}
}

// Draw transfers a full frame to the panel, one SPI transaction per page.
func (d *Dev) Draw(frame *image1bit.VerticalLSB) error {
	if d.halted {
		return ErrHalted
	}
	if frame == nil || frame.Rect != d.Bounds() {
		return errors.New("sh1106: frame must be a 128x64 image1bit.VerticalLSB")
	}
	return d.writePages(frame.Pix)
}

func (d *Dev) writePages(pix []byte) error {
	if len(pix) != Width*Pages {
		return fmt.Errorf("sh1106: invalid buffer size %d", len(pix))
	}
	for page := 0; page < Pages; page++ {
		if err := d.sendCommands([]byte{
			cmdSetPageAddr | byte(page),
			cmdSetLowColumn | ColumnOffset,
			cmdSetHighColumn,
		}); err != nil {
			return err
		}
		if err := d.sendData(pix[page*Width : (page+1)*Width]); err != nil {
			return err
		}
	}
	return nil
}

// SetContrast sets the display contrast (0-255).
func (d *Dev) SetContrast(level byte) error {
	if d.halted {
		return ErrHalted
	}
	return d.sendCommands([]byte{cmdSetContrast, level})
}

// Show turns the panel on or off. RAM content is preserved.
func (d *Dev) Show(on bool) error {
	if d.halted {
		return ErrHalted
	}
	if on {
		return d.sendCommands([]byte{cmdSetDisplayOn})
	}
	return d.sendCommands([]byte{cmdSetDisplayOff})
}

// Halt turns the panel off. The handle is unusable afterwards.
func (d *Dev) Halt() error {
	if d.halted {
		return nil
	}
	err := d.sendCommands([]byte{cmdSetDisplayOff})
	d.halted = true
	return err
}

func (d *Dev) sendCommands(cmds []byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	return d.c.Tx(cmds, nil)
}

func (d *Dev) sendData(data []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	return d.c.Tx(data, nil)
}
