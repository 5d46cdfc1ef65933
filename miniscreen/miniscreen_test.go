package miniscreen

import (
	"errors"
	"testing"
	"time"

	"github.com/pi-top/miniscreen/internal/oledtest"
	"github.com/pi-top/miniscreen/lock"
	"github.com/pi-top/miniscreen/ptdm"
)

func testOpts(t *testing.T, rig *oledtest.Rig, dir string) *Opts {
	t.Helper()
	return &Opts{
		Opts:         rig.Opts(nil),
		LockDir:      dir,
		PollInterval: 10 * time.Millisecond,
	}
}

func newTestMiniscreen(t *testing.T) (*Miniscreen, *oledtest.Rig, string) {
	t.Helper()
	t.Setenv(SystemEnv, "")
	rig := oledtest.NewRig(1)
	dir := t.TempDir()
	m, err := New(testOpts(t, rig, dir))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m, rig, dir
}

func TestNewAcquiresLock(t *testing.T) {
	m, _, dir := newTestMiniscreen(t)
	if !m.IsActive() {
		t.Error("IsActive() = false after New")
	}

	other, err := lock.NewInDir(dir, lock.MiniscreenName)
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()
	if !other.IsLocked() {
		t.Error("lock not visible from another holder")
	}

	m.Close()
	if other.IsLocked() {
		t.Error("lock still held after Close")
	}
}

func TestSystemInstanceLeavesLockFree(t *testing.T) {
	t.Setenv(SystemEnv, "1")
	rig := oledtest.NewRig(1)
	m, err := New(testOpts(t, rig, t.TempDir()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer m.Close()
	if m.IsActive() {
		t.Error("system instance took the lock")
	}
	if rig.Panels.DrawCount() == 0 {
		t.Error("system instance did not take the display")
	}
}

func TestNewWaitsForOwner(t *testing.T) {
	t.Setenv(SystemEnv, "")
	dir := t.TempDir()
	owner, err := lock.NewInDir(dir, lock.MiniscreenName)
	if err != nil {
		t.Fatal(err)
	}
	defer owner.Close()
	if err := owner.Acquire(); err != nil {
		t.Fatal(err)
	}

	created := make(chan *Miniscreen, 1)
	go func() {
		m, err := New(testOpts(t, oledtest.NewRig(1), dir))
		if err != nil {
			t.Errorf("New() error = %v", err)
		}
		created <- m
	}()

	select {
	case <-created:
		t.Fatal("New() returned while another program owned the miniscreen")
	case <-time.After(100 * time.Millisecond):
	}

	owner.Release()
	select {
	case m := <-created:
		if m == nil {
			return
		}
		defer m.Close()
		if !m.IsActive() || !owner.IsLocked() {
			t.Error("lock not taken after the owner released it")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("New() still waiting after the lock was released")
	}
}

func TestNewFailureReleasesLock(t *testing.T) {
	t.Setenv(SystemEnv, "")
	dir := t.TempDir()
	rig := oledtest.NewRig(1)
	rig.Hub.SetErr(ptdm.ErrHub)
	if _, err := New(testOpts(t, rig, dir)); !errors.Is(err, ptdm.ErrHub) {
		t.Fatalf("New() error = %v, want %v", err, ptdm.ErrHub)
	}

	other, err := lock.NewInDir(dir, lock.MiniscreenName)
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()
	if other.IsLocked() {
		t.Error("lock kept after a failed New")
	}
}

func TestDisplayThroughMiniscreen(t *testing.T) {
	m, rig, _ := newTestMiniscreen(t)
	before := rig.Panels.DrawCount()
	if err := m.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if rig.Panels.DrawCount() != before+1 {
		t.Error("Clear() did not reach the panel")
	}
}

func TestWhenControlled(t *testing.T) {
	m, _, dir := newTestMiniscreen(t)

	if err := m.SetWhenUserControlled(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetWhenUserControlled(nil) error = %v, want %v", err, ErrInvalidArgument)
	}

	user := make(chan struct{}, 8)
	system := make(chan struct{}, 8)
	if err := m.SetWhenUserControlled(func() { user <- struct{}{} }); err != nil {
		t.Fatalf("SetWhenUserControlled() error = %v", err)
	}
	if err := m.SetWhenSystemControlled(func() { system <- struct{}{} }); err != nil {
		t.Fatalf("SetWhenSystemControlled() error = %v", err)
	}

	other, err := lock.NewInDir(dir, lock.MiniscreenName)
	if err != nil {
		t.Fatal(err)
	}
	select {
	case <-user:
	case <-time.After(2 * time.Second):
		t.Fatal("user controlled callback not called")
	}

	other.Close()
	select {
	case <-system:
	case <-time.After(2 * time.Second):
		t.Fatal("system controlled callback not called")
	}
}
