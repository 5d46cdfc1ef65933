// Package lock provides the advisory file lock that tells which process
// owns the miniscreen, and a watcher firing callbacks when any process
// takes or drops it.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	DefaultDir = "/tmp"
	// MiniscreenName is the lock shared by every program drawing on the
	// miniscreen.
	MiniscreenName = ".com.pi-top.sdk.miniscreen"
)

var ErrNotOwner = errors.New("lock: not held by this process")

// Lock is a named flock(2) lock on <dir>/<name>.lock.
type Lock struct {
	Path string

	// serialises holders inside the process: flock is granted again to the
	// same open file.
	holder sync.Mutex

	lock  sync.Mutex
	file  *os.File
	owned bool
}

func New(name string) (*Lock, error) {
	return NewInDir(DefaultDir, name)
}

func NewInDir(dir string, name string) (*Lock, error) {
	path := filepath.Join(dir, name+".lock")

	_, statErr := os.Stat(path)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0666)
	if err != nil {
		return nil, fmt.Errorf("lock: unable to open %s: %w", path, err)
	}
	if os.IsNotExist(statErr) {
		// any user must be able to take the lock later
		if err := os.Chmod(path, 0666); err != nil {
			logrus.Warnf("Unable to make %s writable by everyone: %v", path, err)
		}
	}
	logrus.Debugf("Creating lock with path: %s", path)

	return &Lock{Path: path, file: file}, nil
}

func (l *Lock) fd() int {
	return int(l.file.Fd())
}

// Acquire blocks until the lock is held by this process.
func (l *Lock) Acquire() error {
	if l.IsLocked() {
		logrus.Debugf("Lock file %s is already acquired, waiting", l.Path)
	}
	l.holder.Lock()

	logrus.Debugf("Acquiring lock file at %s", l.Path)
	for {
		err := unix.Flock(l.fd(), unix.LOCK_EX)
		if err == nil {
			break
		}
		if err != unix.EINTR {
			l.holder.Unlock()
			return fmt.Errorf("lock: flock %s: %w", l.Path, err)
		}
	}

	l.lock.Lock()
	l.owned = true
	l.lock.Unlock()
	return nil
}

// Release drops a lock taken with Acquire.
func (l *Lock) Release() error {
	l.lock.Lock()
	defer l.lock.Unlock()

	if !l.owned {
		return ErrNotOwner
	}
	logrus.Debugf("Releasing lock file at %s", l.Path)
	if err := unix.Flock(l.fd(), unix.LOCK_UN); err != nil {
		return fmt.Errorf("lock: unlock %s: %w", l.Path, err)
	}
	l.owned = false
	l.holder.Unlock()
	return nil
}

// IsLocked reports whether any process, this one included, holds the
// lock.
func (l *Lock) IsLocked() bool {
	l.lock.Lock()
	defer l.lock.Unlock()

	if l.owned {
		return true
	}
	err := unix.Flock(l.fd(), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		locked := err == unix.EWOULDBLOCK
		logrus.Debugf("Lock file at %s is locked: %v", l.Path, locked)
		return locked
	}
	unix.Flock(l.fd(), unix.LOCK_UN)
	return false
}

// IsOwned reports whether this process holds the lock.
func (l *Lock) IsOwned() bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.owned
}

// Do runs fn while holding the lock. The lock is released even when fn
// panics.
func (l *Lock) Do(fn func() error) error {
	if err := l.Acquire(); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

// Close releases the lock if needed and closes the lock file.
func (l *Lock) Close() error {
	if l.IsOwned() {
		l.Release()
	}
	return l.file.Close()
}
