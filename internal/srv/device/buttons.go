package device

import (
	"sync"
	"time"

	"github.com/pi-top/miniscreen/internal/srv/event"
	"github.com/pi-top/miniscreen/miniscreen"
	"github.com/sirupsen/logrus"
)

// PressSource is a button that reports its presses through callbacks.
type PressSource interface {
	SetWhenPressed(cb miniscreen.ButtonCallback) error
	SetWhenReleased(cb miniscreen.ButtonCallback) error
}

const (
	// resolution of the press step timer
	buttonsCheckPeriod = 10 * time.Millisecond
	pressStepPeriod    = 160 * time.Millisecond
)

type buttonChange struct {
	buttonId miniscreen.ButtonId
	pressed  bool
	at       time.Time
}

type Button struct {
	buttonId       miniscreen.ButtonId
	isPressed      bool
	pressStepCount int64
	lastChange     time.Time
}

func NewButton(buttonId miniscreen.ButtonId) *Button {
	return &Button{buttonId: buttonId}
}

// Change emits a press event when the button goes down and a release event
// when it goes up. Repeated states are ignored.
func (b *Button) Change(pressed bool, now time.Time, buttonEventChannel chan event.ButtonEvent) {
	if pressed == b.isPressed {
		return
	}
	b.isPressed = pressed
	b.lastChange = now

	if pressed {
		b.pressStepCount = 1
		buttonEventChannel <- event.ButtonEvent{ButtonId: b.buttonId, ButtonEventType: event.PRESS_EVENT_TYPE, PressStepCount: b.pressStepCount}
		return
	}
	buttonEventChannel <- event.ButtonEvent{ButtonId: b.buttonId, ButtonEventType: event.RELEASE_EVENT_TYPE, PressStepCount: b.pressStepCount}
	b.pressStepCount = 0
}

// Refresh emits one more press event per step while the button is held.
func (b *Button) Refresh(now time.Time, buttonEventChannel chan event.ButtonEvent) {
	if !b.isPressed || b.lastChange.Add(pressStepPeriod).After(now) {
		return
	}
	b.lastChange = now
	b.pressStepCount++
	buttonEventChannel <- event.ButtonEvent{ButtonId: b.buttonId, ButtonEventType: event.PRESS_EVENT_TYPE, PressStepCount: b.pressStepCount}
}

// Buttons turns the miniscreen button callbacks into events, adding hold
// steps while a button stays down.
type Buttons struct {
	lock         sync.RWMutex
	eventChannel chan event.ButtonEvent

	sources []PressSource
	buttons []*Button
	period  time.Duration
	changes chan buttonChange

	checkTicker *time.Ticker

	askDone chan bool
	done    chan bool
}

// NewButtons watches sources, indexed by button id.
func NewButtons(sources []PressSource) *Buttons {
	device := &Buttons{
		eventChannel: make(chan event.ButtonEvent),
		sources:      sources,
		period:       buttonsCheckPeriod,
		changes:      make(chan buttonChange, 16),
	}
	for i := range sources {
		device.buttons = append(device.buttons, NewButton(miniscreen.ButtonId(i)))
	}
	return device
}

func (d *Buttons) Start() {
	logrus.Infof("Start buttons device")

	d.lock.Lock()
	defer d.lock.Unlock()

	if d.checkTicker != nil {
		return
	}
	d.askDone = make(chan bool)
	d.done = make(chan bool)
	askDone := d.askDone

	for i, source := range d.sources {
		buttonId := miniscreen.ButtonId(i)
		notify := func(pressed bool) func() {
			return func() {
				select {
				case d.changes <- buttonChange{buttonId: buttonId, pressed: pressed, at: time.Now()}:
				case <-askDone:
				}
			}
		}
		if err := source.SetWhenPressed(notify(true)); err != nil {
			logrus.Warnf("Unable to watch %v button: %v", buttonId, err)
		}
		if err := source.SetWhenReleased(notify(false)); err != nil {
			logrus.Warnf("Unable to watch %v button: %v", buttonId, err)
		}
	}

	d.checkTicker = time.NewTicker(d.period)
	go func() {
		for loop := true; loop; {
			select {
			case change := <-d.changes:
				d.buttons[change.buttonId].Change(change.pressed, change.at, d.eventChannel)
			case now := <-d.checkTicker.C:
				for _, button := range d.buttons {
					button.Refresh(now, d.eventChannel)
				}
			case <-askDone:
				loop = false
			}
		}
		d.done <- true
	}()
}

// StopSendingEvent must be called while the event channel is still
// drained.
func (d *Buttons) StopSendingEvent() {
	logrus.Infof("Stop buttons device")

	d.lock.Lock()
	defer d.lock.Unlock()

	if d.checkTicker == nil {
		return
	}
	for _, source := range d.sources {
		source.SetWhenPressed(nil)
		source.SetWhenReleased(nil)
	}
	d.checkTicker.Stop()
	close(d.askDone)
	<-d.done
	d.checkTicker = nil
}

func (d *Buttons) EventChannel() chan event.ButtonEvent {
	return d.eventChannel
}
