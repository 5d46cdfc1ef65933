package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestNewServerConfigWritesDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "miniscreend")

	sc, err := NewServerConfig(dir, false)
	if err != nil {
		t.Fatalf("NewServerConfig() error = %v", err)
	}
	if _, err := os.Stat(sc.GetCompleteParamFilename()); err != nil {
		t.Fatalf("param file not written: %v", err)
	}
	if !sc.ApiParam.Enabled || sc.ApiParam.Port != 8443 {
		t.Errorf("api = %+v, want the defaults", sc.ApiParam)
	}
	if sc.DisplayParam.MaxFPS != 50 || sc.DisplayParam.SpiBus != nil {
		t.Errorf("display = %+v, want the defaults", sc.DisplayParam)
	}
	if got := sc.Contrast(); got != 255 {
		t.Errorf("Contrast() = %d, want 255", got)
	}
	if !sc.Visible() {
		t.Error("a fresh state should be visible")
	}
	sc.FlushSave()
}

func TestNewServerConfigReadsParam(t *testing.T) {
	dir := t.TempDir()
	bus := 0
	param := ServerParam{
		ApiParam:     ApiParam{Port: 9000, ApiKey: "secret"},
		DisplayParam: DisplayParam{MaxFPS: 10, SpiBus: &bus, Contrast: 12, LockDir: dir},
		HubParam:     HubParam{Request: "tcp://10.0.0.1:1", TimeoutMs: 250},
	}
	raw, err := yaml.Marshal(param)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, paramFilename), raw, 0600); err != nil {
		t.Fatal(err)
	}

	sc, err := NewServerConfig(dir, true)
	if err != nil {
		t.Fatalf("NewServerConfig() error = %v", err)
	}
	if sc.ApiParam.ApiKey != "secret" || sc.DisplayParam.SpiBus == nil || *sc.DisplayParam.SpiBus != 0 {
		t.Errorf("param = %+v", sc.ServerParam)
	}
	if got := sc.Contrast(); got != 12 {
		t.Errorf("Contrast() = %d, want the param contrast 12", got)
	}

	opts := sc.MiniscreenOpts()
	if opts.MaxFPS != 10 || opts.LockDir != dir {
		t.Errorf("MiniscreenOpts() = %+v", opts)
	}
	if opts.Endpoints.Request != "tcp://10.0.0.1:1" || opts.Endpoints.Subscribe != "tcp://127.0.0.1:3781" {
		t.Errorf("endpoints = %+v", opts.Endpoints)
	}
	if opts.Endpoints.Timeout != 250*time.Millisecond {
		t.Errorf("timeout = %v, want 250ms", opts.Endpoints.Timeout)
	}
	sc.FlushSave()
}

func TestNewServerConfigRejectsBadParam(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, paramFilename), []byte("api: ["), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewServerConfig(dir, false); err == nil {
		t.Error("expected an error for a broken param file")
	}
}

func TestStateFlushSave(t *testing.T) {
	filename := filepath.Join(t.TempDir(), stateFilename)

	ss, err := NewServerState(filename, 100)
	if err != nil {
		t.Fatalf("NewServerState() error = %v", err)
	}
	ss.SetContrast(42)
	ss.SetVisible(false)
	ss.SetLastText("hello")
	ss.FlushSave()

	reloaded, err := NewServerState(filename, 100)
	if err != nil {
		t.Fatalf("NewServerState() error = %v", err)
	}
	if reloaded.Contrast() != 42 || reloaded.Visible() || reloaded.LastText() != "hello" {
		t.Errorf("reloaded state = %+v", reloaded.serverStateConfig)
	}
	reloaded.FlushSave()
}

func TestFlushSaveWithoutChange(t *testing.T) {
	filename := filepath.Join(t.TempDir(), stateFilename)
	if err := os.WriteFile(filename, []byte("contrast: 7\nvisible: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	ss, err := NewServerState(filename, 100)
	if err != nil {
		t.Fatal(err)
	}
	ss.FlushSave()
	if ss.Contrast() != 7 {
		t.Errorf("Contrast() = %d, want 7", ss.Contrast())
	}
}
