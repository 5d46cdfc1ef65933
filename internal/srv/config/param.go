package config

import (
	_ "embed"
	"time"

	"github.com/pi-top/miniscreen/ptdm"
)

//go:embed param_default.yaml
var ParamDefaultFile []byte

type ServerParam struct {
	ApiParam     ApiParam     `yaml:"api"`
	DisplayParam DisplayParam `yaml:"display"`
	FontsParam   FontsParam   `yaml:"fonts"`
	HubParam     HubParam     `yaml:"hub"`
}

type ApiParam struct {
	Enabled bool   `yaml:"enabled"`
	Port    int64  `yaml:"port"`
	ApiKey  string `yaml:"api_key"`
	Ssl     bool   `yaml:"ssl"`
}

type DisplayParam struct {
	MaxFPS float64 `yaml:"max_fps"`
	// SpiBus, when set, is requested from the hub at startup.
	SpiBus   *int   `yaml:"spi_bus,omitempty"`
	Contrast int    `yaml:"contrast"`
	LockDir  string `yaml:"lock_dir"`
}

type FontsParam struct {
	RegularDir string `yaml:"regular_dir"`
	MonoDir    string `yaml:"mono_dir"`
}

type HubParam struct {
	Request   string `yaml:"request"`
	Subscribe string `yaml:"subscribe"`
	// TimeoutMs bounds each request round trip.
	TimeoutMs int64 `yaml:"timeout_ms"`
}

// Endpoints converts the hub section, empty fields keeping their default.
func (h HubParam) Endpoints() ptdm.Endpoints {
	endpoints := ptdm.DefaultEndpoints
	if h.Request != "" {
		endpoints.Request = h.Request
	}
	if h.Subscribe != "" {
		endpoints.Subscribe = h.Subscribe
	}
	if h.TimeoutMs > 0 {
		endpoints.Timeout = time.Duration(h.TimeoutMs) * time.Millisecond
	}
	return endpoints
}
