// Package miniscreen is the entry point to the pi-top miniscreen: the
// display, its four buttons and the lock telling which program owns them.
package miniscreen

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pi-top/miniscreen/lock"
	"github.com/pi-top/miniscreen/oled"
	"github.com/pi-top/miniscreen/ptdm"
	"github.com/sirupsen/logrus"
)

// SystemEnv set to "1" keeps the miniscreen lock free. Only the system
// menu sets it.
const SystemEnv = "PT_MINISCREEN_SYSTEM"

var ErrInvalidArgument = errors.New("miniscreen: invalid argument")

type Opts struct {
	oled.Opts
	// LockDir holds the miniscreen lock file.
	LockDir string
	// PollInterval paces the wait for another owner to release the lock.
	PollInterval time.Duration
}

var DefaultOpts = Opts{
	Opts:         oled.DefaultOpts,
	LockDir:      lock.DefaultDir,
	PollInterval: time.Second,
}

var buttonMessages = []struct {
	id      ButtonId
	pressed ptdm.MessageId
	release ptdm.MessageId
}{
	{UP_BUTTON, ptdm.PUB_V3_BUTTON_UP_PRESSED, ptdm.PUB_V3_BUTTON_UP_RELEASED},
	{DOWN_BUTTON, ptdm.PUB_V3_BUTTON_DOWN_PRESSED, ptdm.PUB_V3_BUTTON_DOWN_RELEASED},
	{SELECT_BUTTON, ptdm.PUB_V3_BUTTON_SELECT_PRESSED, ptdm.PUB_V3_BUTTON_SELECT_RELEASED},
	{CANCEL_BUTTON, ptdm.PUB_V3_BUTTON_CANCEL_PRESSED, ptdm.PUB_V3_BUTTON_CANCEL_RELEASED},
}

// Miniscreen is the display of a pi-top [4] together with its buttons.
type Miniscreen struct {
	*oled.OLED

	lock    *lock.Lock
	monitor *lock.Monitor
	buttons [4]*Button
}

// New waits for any other program to release the miniscreen, takes the
// lock unless SystemEnv is set, then takes control of the display.
func New(opts *Opts) (*Miniscreen, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	dir := opts.LockDir
	if dir == "" {
		dir = lock.DefaultDir
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultOpts.PollInterval
	}

	l, err := lock.NewInDir(dir, lock.MiniscreenName)
	if err != nil {
		return nil, err
	}
	if l.IsLocked() {
		logrus.Infof("There's another miniscreen instance running; sleeping until it's released")
		for l.IsLocked() {
			time.Sleep(poll)
		}
	}

	m := &Miniscreen{
		lock:    l,
		monitor: lock.NewMonitor(l.Path),
	}
	if os.Getenv(SystemEnv) != "1" {
		if err := l.Acquire(); err != nil {
			l.Close()
			return nil, err
		}
	}

	oledOpts := opts.Opts
	if oledOpts.Subscriber == nil {
		// buttons and display share one listener
		oledOpts.Subscriber = ptdm.NewSubscribeClient(oledOpts.Endpoints)
	}
	// registered before oled.New starts listening so no press is dropped
	for _, bm := range buttonMessages {
		b := newButton(bm.id)
		m.buttons[bm.id] = b
		if err := oledOpts.Subscriber.On(bm.pressed, func() { b.setPressed(true) }); err != nil {
			l.Close()
			return nil, err
		}
		if err := oledOpts.Subscriber.On(bm.release, func() { b.setPressed(false) }); err != nil {
			l.Close()
			return nil, err
		}
	}
	m.OLED, err = oled.New(&oledOpts)
	if err != nil {
		l.Close()
		return nil, err
	}
	return m, nil
}

func (m *Miniscreen) Up() *Button { return m.buttons[UP_BUTTON] }
func (m *Miniscreen) Down() *Button { return m.buttons[DOWN_BUTTON] }
func (m *Miniscreen) Select() *Button { return m.buttons[SELECT_BUTTON] }
func (m *Miniscreen) Cancel() *Button { return m.buttons[CANCEL_BUTTON] }

// Buttons returns the four buttons, indexed by ButtonId.
func (m *Miniscreen) Buttons() []*Button {
	return m.buttons[:]
}

// IsActive reports whether a program holds the miniscreen lock.
func (m *Miniscreen) IsActive() bool {
	return m.lock.IsLocked()
}

// LockPath returns the path of the miniscreen lock file.
func (m *Miniscreen) LockPath() string {
	return m.lock.Path
}

// SetWhenUserControlled sets the function called when a program opens the
// lock file to take the miniscreen.
func (m *Miniscreen) SetWhenUserControlled(f func()) error {
	if f == nil {
		return fmt.Errorf("%w: callback must be callable", ErrInvalidArgument)
	}
	m.monitor.SetWhenOpened(f)
	return m.monitor.Start()
}

// SetWhenSystemControlled sets the function called when a program gives
// the miniscreen back to the system.
func (m *Miniscreen) SetWhenSystemControlled(f func()) error {
	if f == nil {
		return fmt.Errorf("%w: callback must be callable", ErrInvalidArgument)
	}
	m.monitor.SetWhenClosed(f)
	return m.monitor.Start()
}

// Close stops watching the lock, releases the display and then the lock.
func (m *Miniscreen) Close() error {
	m.monitor.Stop()
	if m.OLED != nil {
		m.OLED.Close()
	}
	return m.lock.Close()
}
