package miniscreen

import (
	"errors"
	"reflect"
	"testing"

	"github.com/pi-top/miniscreen/internal/oledtest"
	"github.com/pi-top/miniscreen/ptdm"
)

// eagerSubscriber delivers a button press as soon as listening starts.
type eagerSubscriber struct {
	*oledtest.Subscriber
}

func (s eagerSubscriber) StartListening() {
	s.Subscriber.StartListening()
	s.Publish(ptdm.PUB_V3_BUTTON_SELECT_PRESSED)
}

func TestButtonPressedWhileStarting(t *testing.T) {
	t.Setenv(SystemEnv, "")
	rig := oledtest.NewRig(1)
	opts := testOpts(t, rig, t.TempDir())
	opts.Subscriber = eagerSubscriber{rig.Subscriber}

	m, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer m.Close()
	if !m.Select().IsPressed() {
		t.Error("press delivered when listening started was dropped")
	}
}

func TestButtonEvents(t *testing.T) {
	m, rig, _ := newTestMiniscreen(t)

	var events []string
	select_ := m.Select()
	select_.SetWhenPressed(func() {
		events = append(events, "pressed")
		if !select_.IsPressed() {
			t.Error("IsPressed() = false in the pressed callback")
		}
	})
	select_.SetWhenReleased(func(b *Button) {
		events = append(events, "released "+b.Id.String())
		if b.IsPressed() {
			t.Error("IsPressed() = true in the released callback")
		}
	})

	rig.Subscriber.Publish(ptdm.PUB_V3_BUTTON_SELECT_PRESSED)
	if !select_.IsPressed() {
		t.Error("select not pressed between the two events")
	}
	rig.Subscriber.Publish(ptdm.PUB_V3_BUTTON_SELECT_RELEASED)

	if want := []string{"pressed", "released select"}; !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
	for _, b := range []*Button{m.Up(), m.Down(), m.Cancel()} {
		if b.IsPressed() {
			t.Errorf("%s pressed by a select event", b.Id)
		}
	}
}

func TestButtonsFollowTheirMessages(t *testing.T) {
	m, rig, _ := newTestMiniscreen(t)
	tests := []struct {
		button  *Button
		pressed ptdm.MessageId
		release ptdm.MessageId
	}{
		{m.Up(), ptdm.PUB_V3_BUTTON_UP_PRESSED, ptdm.PUB_V3_BUTTON_UP_RELEASED},
		{m.Down(), ptdm.PUB_V3_BUTTON_DOWN_PRESSED, ptdm.PUB_V3_BUTTON_DOWN_RELEASED},
		{m.Select(), ptdm.PUB_V3_BUTTON_SELECT_PRESSED, ptdm.PUB_V3_BUTTON_SELECT_RELEASED},
		{m.Cancel(), ptdm.PUB_V3_BUTTON_CANCEL_PRESSED, ptdm.PUB_V3_BUTTON_CANCEL_RELEASED},
	}
	for _, tt := range tests {
		t.Run(tt.button.Id.String(), func(t *testing.T) {
			rig.Subscriber.Publish(tt.pressed)
			if !tt.button.IsPressed() {
				t.Error("not pressed")
			}
			rig.Subscriber.Publish(tt.release)
			if tt.button.IsPressed() {
				t.Error("still pressed")
			}
		})
	}
	if len(m.Buttons()) != 4 {
		t.Errorf("got %d buttons", len(m.Buttons()))
	}
}

func TestButtonCallbackValidation(t *testing.T) {
	tests := []struct {
		name string
		cb   ButtonCallback
		ok   bool
	}{
		{"nil", nil, true},
		{"no argument", func() {}, true},
		{"button", func(*Button) {}, true},
		{"two arguments", func(a, b *Button) {}, false},
		{"wrong argument", func(int) {}, false},
		{"not a function", "press", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newButton(UP_BUTTON)
			err := b.SetWhenPressed(tt.cb)
			if tt.ok && err != nil {
				t.Errorf("SetWhenPressed() error = %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("SetWhenPressed() error = %v, want %v", err, ErrInvalidArgument)
			}
		})
	}
}

func TestButtonIdString(t *testing.T) {
	if CANCEL_BUTTON.String() != "cancel" || ButtonId(9).String() != "button(9)" {
		t.Errorf("unexpected names %q %q", CANCEL_BUTTON, ButtonId(9))
	}
}
