package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const saveDelay = 10 * time.Second

// ServerState is what miniscreend restores on the next start. Changes are
// written to disk once they have settled for a while.
type ServerState struct {
	serverStateConfig     ServerStateConfig
	lock                  sync.RWMutex
	backupTimer           *time.Timer
	completeStateFilename string
}

type ServerStateConfig struct {
	Contrast int    `yaml:"contrast"`
	Visible  bool   `yaml:"visible"`
	LastText string `yaml:"last_text,omitempty"`
}

func NewServerState(completeStateFilename string, defaultContrast int) (*ServerState, error) {
	serverState := &ServerState{
		completeStateFilename: completeStateFilename,
	}

	rawConfig, err := os.ReadFile(completeStateFilename)
	if err == nil {
		if err = yaml.Unmarshal(rawConfig, &serverState.serverStateConfig); err != nil {
			return nil, fmt.Errorf("unable to interpret state file: %w", err)
		}
	} else {
		logrus.Infof("Create default state file")
		serverState.serverStateConfig = ServerStateConfig{Contrast: defaultContrast, Visible: true}
		serverState.lock.Lock()
		serverState.scheduleSave()
		serverState.lock.Unlock()
	}

	return serverState, nil
}

func (ss *ServerState) Contrast() int {
	ss.lock.RLock()
	defer ss.lock.RUnlock()
	return ss.serverStateConfig.Contrast
}

func (ss *ServerState) SetContrast(contrast int) {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	ss.serverStateConfig.Contrast = contrast
	ss.scheduleSave()
}

func (ss *ServerState) Visible() bool {
	ss.lock.RLock()
	defer ss.lock.RUnlock()
	return ss.serverStateConfig.Visible
}

func (ss *ServerState) SetVisible(visible bool) {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	ss.serverStateConfig.Visible = visible
	ss.scheduleSave()
}

func (ss *ServerState) LastText() string {
	ss.lock.RLock()
	defer ss.lock.RUnlock()
	return ss.serverStateConfig.LastText
}

func (ss *ServerState) SetLastText(text string) {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	ss.serverStateConfig.LastText = text
	ss.scheduleSave()
}

func (ss *ServerState) scheduleSave() {
	if ss.backupTimer == nil {
		ss.backupTimer = time.AfterFunc(saveDelay, func() {
			ss.lock.Lock()
			defer ss.lock.Unlock()
			ss.save()
		})
	} else {
		ss.backupTimer.Reset(saveDelay)
	}
}

func (ss *ServerState) save() {
	logrus.Infof("Save state file: %s", ss.completeStateFilename)
	rawConfig, err := yaml.Marshal(&ss.serverStateConfig)
	if err != nil {
		logrus.Errorf("Unable to serialize state file: %v", err)
		return
	}
	if err = os.WriteFile(ss.completeStateFilename, rawConfig, 0660); err != nil {
		logrus.Errorf("Unable to save state file: %v", err)
	}
}

// FlushSave writes a pending change right away.
func (ss *ServerState) FlushSave() {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	if ss.backupTimer != nil && ss.backupTimer.Stop() {
		ss.save()
	}
}
