package event

import (
	"image"

	"github.com/pi-top/miniscreen/apimodel"
	"github.com/pi-top/miniscreen/assistant"
	"github.com/pi-top/miniscreen/miniscreen"
)

// Buttons
type ButtonEventType int

const (
	PRESS_EVENT_TYPE ButtonEventType = iota
	RELEASE_EVENT_TYPE
)

// ButtonEvent is sent when a button goes down, then every step while it is
// held, then once when it is released.
type ButtonEvent struct {
	ButtonId        miniscreen.ButtonId
	ButtonEventType ButtonEventType
	PressStepCount  int64
}

// Lock
type ControlEvent struct {
	UserControlled bool
}

// Api
type ApiEvent struct {
	Result chan error
	Data   interface{}
}

type ApiEventTextData struct {
	Request apimodel.TextRequest
}

type ApiEventImageData struct {
	Image  image.Image
	Invert bool
}

type ApiEventAnimationData struct {
	Clip *assistant.AnimationClip
	Loop bool
}

type ApiEventClearData struct{}

type ApiEventContrastData struct {
	Contrast int
}

type ApiEventVisibilityData struct {
	Visible bool
}

// ApiEventButtonsData and ApiEventStateData are answered by filling the
// pointed document before the result is sent.
type ApiEventButtonsData struct {
	State *apimodel.ButtonsState
}

type ApiEventStateData struct {
	State *apimodel.ScreenState
}

// Internal
type InternalEvent struct {
	Data interface{}
}

type InternalEventStatusHideData struct{}
