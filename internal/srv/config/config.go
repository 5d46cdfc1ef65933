// Package config loads the miniscreend param file and keeps its runtime
// state on disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pi-top/miniscreen/assistant"
	"github.com/pi-top/miniscreen/miniscreen"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const paramFilename = "param.yaml"
const stateFilename = "state.yaml"

type ServerConfig struct {
	ConfigDir string
	DebugMode bool

	*ServerParam
	*ServerState
}

// NewServerConfig reads configDir, creating the folder and a default param
// file when they are missing.
func NewServerConfig(configDir string, debugMode bool) (*ServerConfig, error) {
	serverConfig := &ServerConfig{
		ConfigDir: configDir,
		DebugMode: debugMode,
	}

	// Check configuration folder
	_, err := os.Stat(configDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("unable to access config folder %s: %w", configDir, err)
		}
		logrus.Infof("Creation of config folder: %s", configDir)
		if err = os.MkdirAll(configDir, 0770); err != nil {
			return nil, fmt.Errorf("unable to create config folder: %w", err)
		}
	}

	serverConfig.ServerParam = &ServerParam{}
	rawConfig, err := os.ReadFile(serverConfig.GetCompleteParamFilename())
	if err == nil {
		if err = yaml.Unmarshal(rawConfig, serverConfig.ServerParam); err != nil {
			return nil, fmt.Errorf("unable to interpret param file: %w", err)
		}
	} else {
		logrus.Infof("Create default param file")
		if err = yaml.Unmarshal(ParamDefaultFile, serverConfig.ServerParam); err != nil {
			return nil, fmt.Errorf("unable to interpret default param file: %w", err)
		}
		if err = serverConfig.SaveParam(); err != nil {
			return nil, err
		}
	}

	serverConfig.ServerState, err = NewServerState(serverConfig.GetCompleteStateFilename(), serverConfig.DisplayParam.Contrast)
	if err != nil {
		return nil, err
	}

	return serverConfig, nil
}

func (sc *ServerConfig) GetCompleteParamFilename() string {
	return filepath.Join(sc.ConfigDir, paramFilename)
}

func (sc *ServerConfig) GetCompleteStateFilename() string {
	return filepath.Join(sc.ConfigDir, stateFilename)
}

func (sc *ServerConfig) SaveParam() error {
	logrus.Debugf("Save param file: %s", sc.GetCompleteParamFilename())
	rawConfig, err := yaml.Marshal(sc.ServerParam)
	if err != nil {
		return fmt.Errorf("unable to serialize param file: %w", err)
	}
	if err = os.WriteFile(sc.GetCompleteParamFilename(), rawConfig, 0660); err != nil {
		return fmt.Errorf("unable to save param file: %w", err)
	}
	return nil
}

// MiniscreenOpts builds the miniscreen options described by the param
// file.
func (sc *ServerConfig) MiniscreenOpts() *miniscreen.Opts {
	opts := miniscreen.DefaultOpts
	opts.Endpoints = sc.HubParam.Endpoints()
	opts.Fonts = assistant.NewFonts(sc.FontsParam.RegularDir, sc.FontsParam.MonoDir)
	if sc.DisplayParam.MaxFPS > 0 {
		opts.MaxFPS = sc.DisplayParam.MaxFPS
	}
	if sc.DisplayParam.LockDir != "" {
		opts.LockDir = sc.DisplayParam.LockDir
	}
	return &opts
}
