package srv

import (
	"time"

	"github.com/pi-top/miniscreen/assistant"
	"github.com/pi-top/miniscreen/internal/srv/event"
	"github.com/pi-top/miniscreen/internal/version"
	"github.com/pi-top/miniscreen/miniscreen"
	"github.com/sirupsen/logrus"
)

func (s *ServerApp) eventLoop() {
	for loop := true; loop; {
		select {
		case ev := <-s.internalEventChannel:
			switch ev.Data.(type) {
			case event.InternalEventStatusHideData:
				if s.statusHideTimer != nil {
					s.hideStatus()
				}
			}
		case ev := <-s.displayDevice.EventChannel():
			if ev.UserControlled {
				logrus.Infof("Miniscreen lock opened by a user program")
			} else {
				logrus.Infof("Miniscreen lock given back to the system")
			}
		case ev := <-s.apiDevice.EventChannel():
			ev.Result <- s.handleApiEvent(ev)
		case ev := <-s.buttonsDevice.EventChannel():
			logrus.Debugf("Receive button event: %s, %d, %d", ev.ButtonId, ev.ButtonEventType, ev.PressStepCount)
			s.handleButtonEvent(ev)
		case <-s.eventLoopAskDone:
			loop = false
		}
	}
	s.eventLoopDone <- true
}

func (s *ServerApp) handleApiEvent(ev event.ApiEvent) error {
	screen := s.displayDevice.Screen()

	switch data := ev.Data.(type) {
	case event.ApiEventTextData:
		s.leaveStatus()
		request := data.Request
		opts := assistant.TextOpts{
			FontSize: request.FontSize,
			Font:     request.Font,
			Align:    request.Align,
			Anchor:   request.Anchor,
		}
		var err error
		if request.Multiline {
			err = screen.DisplayMultilineText(request.Text, opts, request.Invert)
		} else {
			err = screen.DisplayText(request.Text, opts, request.Invert)
		}
		if err == nil {
			s.SetLastText(request.Text)
		}
		return err
	case event.ApiEventImageData:
		s.leaveStatus()
		s.SetLastText("")
		return screen.DisplayImage(data.Image, data.Invert)
	case event.ApiEventAnimationData:
		s.leaveStatus()
		s.SetLastText("")
		return screen.PlayAnimatedImage(data.Clip, true, data.Loop)
	case event.ApiEventClearData:
		s.leaveStatus()
		s.SetLastText("")
		return screen.Clear()
	case event.ApiEventContrastData:
		if err := screen.Contrast(data.Contrast); err != nil {
			return err
		}
		s.SetContrast(data.Contrast)
		return nil
	case event.ApiEventVisibilityData:
		var err error
		if data.Visible {
			err = screen.Show()
		} else {
			err = screen.Hide()
		}
		if err == nil {
			s.SetVisible(data.Visible)
		}
		return err
	case event.ApiEventButtonsData:
		*data.State = s.buttonsState
		return nil
	case event.ApiEventStateData:
		data.State.Visible = screen.Visible()
		data.State.Contrast = s.Contrast()
		data.State.SPIBus = screen.SPIBus()
		data.State.Animating = screen.IsAnimating()
		data.State.MaxFPS = s.DisplayParam.MaxFPS
		data.State.LastText = s.LastText()
		data.State.LockPath = screen.LockPath()
		data.State.Version = version.AppVersion.String()
		return nil
	}
	logrus.Warnf("Unknown api event %T", ev.Data)
	return nil
}

func (s *ServerApp) handleButtonEvent(ev event.ButtonEvent) {
	pressed := ev.ButtonEventType == event.PRESS_EVENT_TYPE
	switch ev.ButtonId {
	case miniscreen.UP_BUTTON:
		s.buttonsState.Up = pressed
	case miniscreen.DOWN_BUTTON:
		s.buttonsState.Down = pressed
	case miniscreen.SELECT_BUTTON:
		s.buttonsState.Select = pressed
	case miniscreen.CANCEL_BUTTON:
		s.buttonsState.Cancel = pressed
		if pressed && ev.PressStepCount == statusHoldSteps {
			s.showStatus()
		}
	}
}

func (s *ServerApp) showStatus() {
	if s.currentMode != STATUS_MODE {
		s.statusBackup = s.displayDevice.Screen().Image()
		s.currentMode = STATUS_MODE
	}
	logrus.Debugf("Show status screen")
	s.refreshDisplay()

	if s.statusHideTimer != nil {
		s.statusHideTimer.Stop()
	}
	s.statusHideTimer = time.AfterFunc(s.statusDuration, func() {
		s.internalEventChannel <- event.InternalEvent{Data: event.InternalEventStatusHideData{}}
	})
}

// hideStatus puts the client frame back.
func (s *ServerApp) hideStatus() {
	backup := s.statusBackup
	s.leaveStatus()
	if backup == nil {
		return
	}
	if err := s.displayDevice.Screen().DisplayImage(backup, false); err != nil {
		logrus.Warnf("Unable to restore screen after status: %v", err)
	}
}

// leaveStatus drops the status screen without redrawing.
func (s *ServerApp) leaveStatus() {
	if s.statusHideTimer != nil {
		s.statusHideTimer.Stop()
		s.statusHideTimer = nil
	}
	s.statusBackup = nil
	if s.currentMode == STATUS_MODE {
		s.currentMode = CLIENT_MODE
	}
}
