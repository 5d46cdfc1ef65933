package miniscreen

import (
	"fmt"
	"reflect"
	"sync"
)

type ButtonId int

const (
	UP_BUTTON ButtonId = iota
	DOWN_BUTTON
	SELECT_BUTTON
	CANCEL_BUTTON
)

func (id ButtonId) String() string {
	switch id {
	case UP_BUTTON:
		return "up"
	case DOWN_BUTTON:
		return "down"
	case SELECT_BUTTON:
		return "select"
	case CANCEL_BUTTON:
		return "cancel"
	}
	return fmt.Sprintf("button(%d)", int(id))
}

// ButtonCallback is a func() or a func(*Button).
type ButtonCallback interface{}

// Button is one of the four buttons around the miniscreen. Its state
// follows the hub button messages; callbacks run on the hub listener
// goroutine, one at a time.
type Button struct {
	Id ButtonId

	lock         sync.RWMutex
	isPressed    bool
	whenPressed  func(*Button)
	whenReleased func(*Button)
}

func newButton(id ButtonId) *Button {
	return &Button{Id: id}
}

func (b *Button) IsPressed() bool {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.isPressed
}

// SetWhenPressed sets the function called when the button is pressed. A
// nil callback removes it.
func (b *Button) SetWhenPressed(cb ButtonCallback) error {
	f, err := adaptButtonCallback(cb)
	if err != nil {
		return err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	b.whenPressed = f
	return nil
}

// SetWhenReleased sets the function called when the button is released. A
// nil callback removes it.
func (b *Button) SetWhenReleased(cb ButtonCallback) error {
	f, err := adaptButtonCallback(cb)
	if err != nil {
		return err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	b.whenReleased = f
	return nil
}

func (b *Button) setPressed(pressed bool) {
	b.lock.Lock()
	b.isPressed = pressed
	cb := b.whenReleased
	if pressed {
		cb = b.whenPressed
	}
	b.lock.Unlock()

	if cb != nil {
		cb(b)
	}
}

func adaptButtonCallback(cb ButtonCallback) (func(*Button), error) {
	switch f := cb.(type) {
	case nil:
		return nil, nil
	case func():
		return func(*Button) { f() }, nil
	case func(*Button):
		return f, nil
	}
	if t := reflect.TypeOf(cb); t.Kind() == reflect.Func && t.NumIn() > 1 {
		return nil, fmt.Errorf("%w: button callback should receive at most one argument, got %d", ErrInvalidArgument, t.NumIn())
	}
	return nil, fmt.Errorf("%w: button callback must be a func() or a func(*Button), got %T", ErrInvalidArgument, cb)
}
