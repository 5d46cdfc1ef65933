package ptdm

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func newTestSubscribeClient() (*SubscribeClient, *fakeDialer) {
	d := &fakeDialer{newSocket: func() *fakeSocket { return newFakeSocket(nil) }}
	c := NewSubscribeClient(Endpoints{Timeout: 10 * time.Millisecond})
	c.Dial = d.dial
	return c, d
}

// waitSocket waits for the listener to connect.
func waitSocket(t *testing.T, d *fakeDialer) *fakeSocket {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := d.last(); s != nil {
			return s
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("listener never connected")
	return nil
}

func TestCallbackValidation(t *testing.T) {
	tests := []struct {
		name string
		cb   Callback
		ok   bool
	}{
		{"no argument", func() {}, true},
		{"parameters", func([]string) {}, true},
		{"two arguments", func(a, b string) {}, false},
		{"wrong argument type", func(int) {}, false},
		{"not a function", 42, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestSubscribeClient()
			err := c.On(PUB_V3_BUTTON_UP_PRESSED, tt.cb)
			if tt.ok && err != nil {
				t.Errorf("On() error = %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("On() error = %v, want %v", err, ErrInvalidArgument)
			}
		})
	}
}

func TestInitialiseRejectsWholeTable(t *testing.T) {
	c, _ := newTestSubscribeClient()
	c.On(PUB_PITOPD_READY, func() {})
	err := c.Initialise(map[MessageId]Callback{
		PUB_V3_BUTTON_UP_PRESSED:   func() {},
		PUB_V3_BUTTON_DOWN_PRESSED: func(a, b int) {},
	})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Initialise() error = %v", err)
	}
	if _, ok := c.callbacks[PUB_PITOPD_READY]; !ok {
		t.Error("a failed Initialise replaced the callback table")
	}
}

func TestDispatch(t *testing.T) {
	c, d := newTestSubscribeClient()
	pressed := make(chan struct{}, 1)
	params := make(chan []string, 1)
	err := c.Initialise(map[MessageId]Callback{
		PUB_V3_BUTTON_SELECT_PRESSED: func() { pressed <- struct{}{} },
		PUB_OLED_SPI_BUS_CHANGED:     func(p []string) { params <- p },
	})
	if err != nil {
		t.Fatalf("Initialise() error = %v", err)
	}
	c.StartListening()
	defer c.StopListening()

	s := waitSocket(t, d)
	s.publish("326|x")
	s.publish("999")
	s.publish("317")
	s.publish("326|1")

	select {
	case <-pressed:
	case <-time.After(2 * time.Second):
		t.Fatal("button callback not called")
	}
	select {
	case p := <-params:
		if !reflect.DeepEqual(p, []string{"1"}) {
			t.Errorf("params = %v, want [1]", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("bus callback not called")
	}
	select {
	case p := <-params:
		t.Errorf("malformed message dispatched with %v", p)
	default:
	}
}

func TestDispatchRecoversPanic(t *testing.T) {
	c, d := newTestSubscribeClient()
	called := make(chan struct{}, 1)
	c.On(PUB_V3_BUTTON_UP_PRESSED, func() { panic("boom") })
	c.On(PUB_V3_BUTTON_UP_RELEASED, func() { called <- struct{}{} })
	c.StartListening()
	defer c.StopListening()

	s := waitSocket(t, d)
	s.publish("313")
	s.publish("314")
	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("listener died after a panicking callback")
	}
}

func TestListenRetriesConnection(t *testing.T) {
	c, d := newTestSubscribeClient()
	d.failFirst = 3
	c.StartListening()
	defer c.StopListening()

	waitSocket(t, d)
	if n := d.dialCount(); n < 4 {
		t.Errorf("dialed %d times, want at least 4", n)
	}
}

func TestStopListening(t *testing.T) {
	c, d := newTestSubscribeClient()
	c.StopListening()

	c.StartListening()
	if !c.IsListening() {
		t.Error("IsListening() = false after StartListening")
	}
	s := waitSocket(t, d)
	c.StopListening()
	c.StopListening()
	if c.IsListening() {
		t.Error("IsListening() = true after StopListening")
	}
	if s.closeCount() == 0 {
		t.Error("socket left open")
	}
}
