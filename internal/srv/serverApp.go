// Package srv is the miniscreend daemon: it owns the miniscreen and lets
// other programs drive it over an HTTP API.
package srv

import (
	"time"

	"github.com/pi-top/miniscreen/apimodel"
	"github.com/pi-top/miniscreen/assistant"
	"github.com/pi-top/miniscreen/internal/srv/config"
	"github.com/pi-top/miniscreen/internal/srv/device"
	"github.com/pi-top/miniscreen/internal/srv/event"
	"github.com/pi-top/miniscreen/internal/version"
	"github.com/pi-top/miniscreen/miniscreen"
	"github.com/sirupsen/logrus"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

type ServerApp struct {
	*config.ServerConfig
	displayDevice *device.Display
	buttonsDevice *device.Buttons
	apiDevice     *device.Api

	currentMode  Mode
	buttonsState apimodel.ButtonsState

	// statusBackup is the client frame hidden by the status screen.
	statusBackup    *image1bit.VerticalLSB
	statusHideTimer *time.Timer

	startupDelay   time.Duration
	statusDuration time.Duration

	internalEventChannel chan event.InternalEvent

	eventLoopAskDone chan bool
	eventLoopDone    chan bool
}

type Mode int64

const (
	UNDEFINED_MODE Mode = iota
	CLIENT_MODE
	STATUS_MODE
	END_MODE
)

// statusHoldSteps is how many press steps cancel must be held for the
// status screen to show up.
const statusHoldSteps = 6

func NewServerApp(serverConfig *config.ServerConfig, screenOpts *miniscreen.Opts) *ServerApp {
	logrus.Debugf("Creation of miniscreend %s ...", version.AppVersion.String())

	app := &ServerApp{
		ServerConfig:         serverConfig,
		currentMode:          UNDEFINED_MODE,
		startupDelay:         2 * time.Second,
		statusDuration:       3 * time.Second,
		internalEventChannel: make(chan event.InternalEvent, 4),
		eventLoopAskDone:     make(chan bool),
		eventLoopDone:        make(chan bool),
	}

	app.displayDevice = device.NewDisplay(screenOpts)
	app.apiDevice = device.NewApi(serverConfig)

	logrus.Debugln("Server created")

	return app
}

// Start waits for the miniscreen, restores the saved state and then starts
// serving buttons and API requests.
func (s *ServerApp) Start() error {
	logrus.Printf("Starting miniscreend ...")

	if err := s.displayDevice.Start(); err != nil {
		return err
	}
	screen := s.displayDevice.Screen()

	if bus := s.DisplayParam.SpiBus; bus != nil {
		if err := screen.SetSPIBus(*bus); err != nil {
			logrus.Warnf("Unable to select SPI bus %d: %v", *bus, err)
		}
	}
	if err := screen.Contrast(s.Contrast()); err != nil {
		logrus.Warnf("Unable to restore contrast: %v", err)
	}

	// Startup screen
	s.refreshDisplay()
	time.Sleep(s.startupDelay)

	s.restoreScreen(screen)
	s.currentMode = CLIENT_MODE

	s.buttonsDevice = device.NewButtons(s.displayDevice.PressSources())

	go s.eventLoop()

	s.buttonsDevice.Start()
	s.apiDevice.Start()

	return nil
}

func (s *ServerApp) restoreScreen(screen *miniscreen.Miniscreen) {
	var err error
	if text := s.LastText(); text != "" {
		err = screen.DisplayText(text, assistant.TextOpts{}, false)
	} else {
		err = screen.Clear()
	}
	if err != nil {
		logrus.Warnf("Unable to restore screen: %v", err)
	}
	if !s.Visible() {
		if err := screen.Hide(); err != nil {
			logrus.Warnf("Unable to hide screen: %v", err)
		}
	}
}

func (s *ServerApp) Stop() {
	logrus.Printf("Stopping miniscreend ...")

	s.apiDevice.StopSendingEvent()

	if s.buttonsDevice != nil {
		s.buttonsDevice.StopSendingEvent()

		logrus.Infof("Stop event loop")
		s.eventLoopAskDone <- true
		<-s.eventLoopDone
		s.buttonsDevice = nil
	}

	if s.statusHideTimer != nil {
		s.statusHideTimer.Stop()
		s.statusHideTimer = nil
	}

	if s.displayDevice.Screen() != nil {
		s.currentMode = END_MODE
		s.refreshDisplay()
	}

	s.ServerConfig.ServerState.FlushSave()

	s.displayDevice.Stop()

	logrus.Printf("Server stopped")
}
