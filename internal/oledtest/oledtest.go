// Package oledtest provides in-memory stand-ins for the hub and the panel,
// so that an oled.OLED can run without hardware.
package oledtest

import (
	"sync"

	"github.com/pi-top/miniscreen/assistant"
	"github.com/pi-top/miniscreen/oled"
	"github.com/pi-top/miniscreen/ptdm"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Hub records control and bus requests.
type Hub struct {
	lock     sync.Mutex
	bus      int
	pi       bool
	controls []bool
	busCalls []int
	err      error
}

func NewHub(bus int) *Hub {
	return &Hub{bus: bus}
}

// SetErr makes every later request fail with err.
func (h *Hub) SetErr(err error) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.err = err
}

func (h *Hub) SetOLEDControl(pi bool) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.err != nil {
		return h.err
	}
	h.pi = pi
	h.controls = append(h.controls, pi)
	return nil
}

func (h *Hub) OLEDControl() (bool, error) {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.pi, h.err
}

func (h *Hub) OLEDSPIBus() (int, error) {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.bus, h.err
}

func (h *Hub) SetOLEDSPIBus(bus int) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.err != nil {
		return h.err
	}
	h.busCalls = append(h.busCalls, bus)
	h.bus = bus
	return nil
}

// Controls returns the control requests, true meaning pi.
func (h *Hub) Controls() []bool {
	h.lock.Lock()
	defer h.lock.Unlock()
	return append([]bool(nil), h.controls...)
}

// BusRequests returns the SPI bus change requests.
func (h *Hub) BusRequests() []int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return append([]int(nil), h.busCalls...)
}

// Subscriber calls the registered callback synchronously from Publish.
type Subscriber struct {
	lock      sync.Mutex
	callbacks map[ptdm.MessageId]func([]string)
	listening bool
}

func NewSubscriber() *Subscriber {
	return &Subscriber{callbacks: make(map[ptdm.MessageId]func([]string))}
}

func (s *Subscriber) On(id ptdm.MessageId, cb ptdm.Callback) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	switch f := cb.(type) {
	case nil:
		delete(s.callbacks, id)
	case func():
		s.callbacks[id] = func([]string) { f() }
	case func([]string):
		s.callbacks[id] = f
	default:
		return ptdm.ErrInvalidArgument
	}
	return nil
}

func (s *Subscriber) StartListening() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.listening = true
}

func (s *Subscriber) StopListening() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.listening = false
}

func (s *Subscriber) IsListening() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.listening
}

// Publish delivers a hub message as the listener would.
func (s *Subscriber) Publish(id ptdm.MessageId, params ...string) {
	s.lock.Lock()
	cb := s.callbacks[id]
	s.lock.Unlock()
	if cb != nil {
		cb(params)
	}
}

// Panels opens fake panels and records what they were asked to do.
type Panels struct {
	lock     sync.Mutex
	opens    []int
	closes   int
	draws    []*image1bit.VerticalLSB
	contrast []byte
	shown    bool
	drawErr  error
	openErr  error
}

// Open is an oled.PanelOpener.
func (p *Panels) Open(bus int) (oled.Panel, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.openErr != nil {
		return nil, p.openErr
	}
	p.opens = append(p.opens, bus)
	return &panel{rig: p}, nil
}

func (p *Panels) SetOpenErr(err error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.openErr = err
}

func (p *Panels) SetDrawErr(err error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.drawErr = err
}

// Opens returns the bus of every panel opened.
func (p *Panels) Opens() []int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]int(nil), p.opens...)
}

func (p *Panels) Draws() []*image1bit.VerticalLSB {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]*image1bit.VerticalLSB(nil), p.draws...)
}

func (p *Panels) DrawCount() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return len(p.draws)
}

// LastDraw returns the frame on screen, nil before the first draw.
func (p *Panels) LastDraw() *image1bit.VerticalLSB {
	p.lock.Lock()
	defer p.lock.Unlock()
	if len(p.draws) == 0 {
		return nil
	}
	return p.draws[len(p.draws)-1]
}

// Contrast returns the last contrast set, -1 if none was.
func (p *Panels) Contrast() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	if len(p.contrast) == 0 {
		return -1
	}
	return int(p.contrast[len(p.contrast)-1])
}

func (p *Panels) Shown() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.shown
}

type panel struct {
	rig *Panels
}

func (p *panel) Draw(frame *image1bit.VerticalLSB) error {
	p.rig.lock.Lock()
	defer p.rig.lock.Unlock()
	if p.rig.drawErr != nil {
		return p.rig.drawErr
	}
	p.rig.draws = append(p.rig.draws, assistant.CopyFrame(frame))
	return nil
}

func (p *panel) SetContrast(level byte) error {
	p.rig.lock.Lock()
	defer p.rig.lock.Unlock()
	p.rig.contrast = append(p.rig.contrast, level)
	return nil
}

func (p *panel) Show(on bool) error {
	p.rig.lock.Lock()
	defer p.rig.lock.Unlock()
	p.rig.shown = on
	return nil
}

func (p *panel) Close() error {
	p.rig.lock.Lock()
	defer p.rig.lock.Unlock()
	p.rig.closes++
	return nil
}

// Rig bundles the fakes an OLED runs on.
type Rig struct {
	Hub        *Hub
	Subscriber *Subscriber
	Panels     *Panels
}

func NewRig(bus int) *Rig {
	return &Rig{
		Hub:        NewHub(bus),
		Subscriber: NewSubscriber(),
		Panels:     &Panels{},
	}
}

// Opts returns OLED options wired to the rig, with pacing disabled.
func (r *Rig) Opts(fonts *assistant.Fonts) oled.Opts {
	return oled.Opts{
		Fonts:      fonts,
		Hub:        r.Hub,
		Subscriber: r.Subscriber,
		OpenPanel:  r.Panels.Open,
	}
}

// Lit counts the pixels on in f.
func Lit(f *image1bit.VerticalLSB) int {
	n := 0
	for _, b := range f.Pix {
		for ; b != 0; b &= b - 1 {
			n++
		}
	}
	return n
}
