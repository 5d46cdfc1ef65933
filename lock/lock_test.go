package lock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestLock(t *testing.T, dir string) *Lock {
	t.Helper()
	l, err := NewInDir(dir, "test")
	if err != nil {
		t.Fatalf("NewInDir() error = %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestNewCreatesWritableFile(t *testing.T) {
	dir := t.TempDir()
	l := newTestLock(t, dir)
	if want := filepath.Join(dir, "test.lock"); l.Path != want {
		t.Errorf("Path = %q, want %q", l.Path, want)
	}
	info, err := os.Stat(l.Path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0666 {
		t.Errorf("mode = %v, want 0666", info.Mode().Perm())
	}
}

func TestAcquireRelease(t *testing.T) {
	l := newTestLock(t, t.TempDir())
	if l.IsLocked() {
		t.Fatal("fresh lock reported as locked")
	}
	if err := l.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !l.IsLocked() || !l.IsOwned() {
		t.Error("lock not held after Acquire")
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if l.IsLocked() {
		t.Error("lock still held after Release")
	}
	if err := l.Release(); !errors.Is(err, ErrNotOwner) {
		t.Errorf("second Release() error = %v, want %v", err, ErrNotOwner)
	}
}

// Two Lock values own separate open files, so they contend like two
// processes would.
func TestContention(t *testing.T) {
	dir := t.TempDir()
	owner := newTestLock(t, dir)
	other := newTestLock(t, dir)

	if err := owner.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !other.IsLocked() {
		t.Error("IsLocked() = false while another holder has the lock")
	}
	if other.IsOwned() {
		t.Error("IsOwned() = true for a lock held elsewhere")
	}

	acquired := make(chan struct{})
	go func() {
		other.Acquire()
		close(acquired)
	}()
	select {
	case <-acquired:
		t.Fatal("Acquire() returned while the lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	owner.Release()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire() did not return after Release")
	}
	if !owner.IsLocked() {
		t.Error("IsLocked() = false after the other holder took the lock")
	}
	other.Release()
}

func TestDo(t *testing.T) {
	l := newTestLock(t, t.TempDir())
	boom := errors.New("boom")
	err := l.Do(func() error {
		if !l.IsOwned() {
			t.Error("lock not held inside Do")
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Do() error = %v, want %v", err, boom)
	}
	if l.IsLocked() {
		t.Error("lock still held after Do")
	}

	func() {
		defer func() { recover() }()
		l.Do(func() error { panic("boom") })
	}()
	if l.IsLocked() {
		t.Error("lock still held after a panic in Do")
	}
}
