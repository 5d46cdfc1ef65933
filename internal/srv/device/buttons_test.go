package device

import (
	"sync"
	"testing"
	"time"

	"github.com/pi-top/miniscreen/internal/srv/event"
	"github.com/pi-top/miniscreen/miniscreen"
)

// fakeSource calls its callbacks synchronously, as the hub listener does.
type fakeSource struct {
	lock         sync.Mutex
	whenPressed  func()
	whenReleased func()
}

func (s *fakeSource) SetWhenPressed(cb miniscreen.ButtonCallback) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.whenPressed, _ = cb.(func())
	return nil
}

func (s *fakeSource) SetWhenReleased(cb miniscreen.ButtonCallback) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.whenReleased, _ = cb.(func())
	return nil
}

func (s *fakeSource) set(pressed bool) {
	s.lock.Lock()
	cb := s.whenReleased
	if pressed {
		cb = s.whenPressed
	}
	s.lock.Unlock()
	if cb != nil {
		cb()
	}
}

func newFakeSources() []PressSource {
	return []PressSource{&fakeSource{}, &fakeSource{}, &fakeSource{}, &fakeSource{}}
}

func stopButtons(t *testing.T, d *Buttons) {
	t.Helper()
	stopped := make(chan bool)
	go func() {
		d.StopSendingEvent()
		stopped <- true
	}()
	for {
		select {
		case <-d.EventChannel():
		case <-stopped:
			return
		case <-time.After(time.Second):
			t.Fatal("StopSendingEvent did not return")
		}
	}
}

func TestButtonSteps(t *testing.T) {
	b := NewButton(miniscreen.CANCEL_BUTTON)
	events := make(chan event.ButtonEvent, 16)
	start := time.Unix(0, 0)

	const change, tick = true, false
	steps := []struct {
		at      time.Duration
		kind    bool
		pressed bool
		want    *event.ButtonEvent
	}{
		{0, tick, false, nil},
		{0, change, false, nil},
		{10 * time.Millisecond, change, true, &event.ButtonEvent{ButtonId: miniscreen.CANCEL_BUTTON, ButtonEventType: event.PRESS_EVENT_TYPE, PressStepCount: 1}},
		{20 * time.Millisecond, change, true, nil},
		{100 * time.Millisecond, tick, false, nil},
		{170 * time.Millisecond, tick, false, &event.ButtonEvent{ButtonId: miniscreen.CANCEL_BUTTON, ButtonEventType: event.PRESS_EVENT_TYPE, PressStepCount: 2}},
		{300 * time.Millisecond, tick, false, nil},
		{330 * time.Millisecond, tick, false, &event.ButtonEvent{ButtonId: miniscreen.CANCEL_BUTTON, ButtonEventType: event.PRESS_EVENT_TYPE, PressStepCount: 3}},
		{340 * time.Millisecond, change, false, &event.ButtonEvent{ButtonId: miniscreen.CANCEL_BUTTON, ButtonEventType: event.RELEASE_EVENT_TYPE, PressStepCount: 3}},
		{600 * time.Millisecond, tick, false, nil},
		{610 * time.Millisecond, change, true, &event.ButtonEvent{ButtonId: miniscreen.CANCEL_BUTTON, ButtonEventType: event.PRESS_EVENT_TYPE, PressStepCount: 1}},
		{611 * time.Millisecond, change, false, &event.ButtonEvent{ButtonId: miniscreen.CANCEL_BUTTON, ButtonEventType: event.RELEASE_EVENT_TYPE, PressStepCount: 1}},
	}
	for i, step := range steps {
		if step.kind == change {
			b.Change(step.pressed, start.Add(step.at), events)
		} else {
			b.Refresh(start.Add(step.at), events)
		}
		select {
		case got := <-events:
			if step.want == nil {
				t.Fatalf("step %d: unexpected event %+v", i, got)
			}
			if got != *step.want {
				t.Fatalf("step %d: got %+v, want %+v", i, got, *step.want)
			}
		default:
			if step.want != nil {
				t.Fatalf("step %d: no event, want %+v", i, *step.want)
			}
		}
	}
}

func TestButtonsDevice(t *testing.T) {
	sources := newFakeSources()
	d := NewButtons(sources)
	d.period = time.Millisecond
	d.Start()

	sources[miniscreen.SELECT_BUTTON].(*fakeSource).set(true)

	select {
	case ev := <-d.EventChannel():
		if ev.ButtonId != miniscreen.SELECT_BUTTON || ev.ButtonEventType != event.PRESS_EVENT_TYPE {
			t.Errorf("got %+v, want a select press", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no button event")
	}

	stopButtons(t, d)
	d.StopSendingEvent()

	// callbacks are removed on stop
	source := sources[miniscreen.SELECT_BUTTON].(*fakeSource)
	if source.whenPressed != nil || source.whenReleased != nil {
		t.Error("button callbacks still set after StopSendingEvent")
	}
}

func TestButtonsQuickPresses(t *testing.T) {
	const presses = 20
	sources := newFakeSources()
	d := NewButtons(sources)
	d.Start()
	defer stopButtons(t, d)

	go func() {
		source := sources[miniscreen.UP_BUTTON].(*fakeSource)
		for i := 0; i < presses; i++ {
			source.set(true)
			time.Sleep(500 * time.Microsecond)
			source.set(false)
		}
	}()

	var pressed, released int
	for pressed+released < 2*presses {
		select {
		case ev := <-d.EventChannel():
			if ev.ButtonId != miniscreen.UP_BUTTON {
				t.Fatalf("got %+v, want an up event", ev)
			}
			switch ev.ButtonEventType {
			case event.PRESS_EVENT_TYPE:
				if ev.PressStepCount == 1 {
					pressed++
				}
			case event.RELEASE_EVENT_TYPE:
				released++
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("got %d presses and %d releases, want %d of each", pressed, released, presses)
		}
	}
	if pressed != presses || released != presses {
		t.Errorf("got %d presses and %d releases, want %d of each", pressed, released, presses)
	}
}
