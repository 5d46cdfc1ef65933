package lock

import (
	"fmt"
	"runtime/debug"
	"sync"
	"unsafe"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const pollTimeoutMs = 200

// Monitor watches a lock file with inotify. The open callback fires when
// a process opens the file to take the lock, the close callback when a
// process that had it open for writing closes it.
type Monitor struct {
	Path string

	lock    sync.RWMutex
	onOpen  func()
	onClose func()
	running bool

	askDone chan bool
	done    chan bool
	// set while the watcher goroutine runs a callback
	firing bool
}

func NewMonitor(path string) *Monitor {
	return &Monitor{Path: path}
}

// SetWhenOpened sets the open callback. It is picked up by the next Start.
func (m *Monitor) SetWhenOpened(f func()) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.onOpen = f
}

// SetWhenClosed sets the close callback. It is picked up by the next Start.
func (m *Monitor) SetWhenClosed(f func()) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.onClose = f
}

func (m *Monitor) IsRunning() bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.running
}

// Start (re)starts watching with the current callbacks. Nothing is watched
// while both callbacks are unset.
func (m *Monitor) Start() error {
	m.Stop()

	m.lock.Lock()
	defer m.lock.Unlock()

	var mask uint32
	if m.onOpen != nil {
		mask |= unix.IN_OPEN
	}
	if m.onClose != nil {
		mask |= unix.IN_CLOSE_WRITE
	}
	if mask == 0 {
		logrus.Debugf("No lock callback set, not watching %s", m.Path)
		return nil
	}

	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return fmt.Errorf("lock: inotify init: %w", err)
	}
	if _, err := unix.InotifyAddWatch(fd, m.Path, mask); err != nil {
		unix.Close(fd)
		return fmt.Errorf("lock: unable to watch %s: %w", m.Path, err)
	}

	m.running = true
	m.askDone = make(chan bool)
	m.done = make(chan bool)
	m.firing = false
	go m.watch(fd, m.onOpen, m.onClose, m.askDone, m.done)
	return nil
}

// Stop waits for the watcher goroutine to end. Called while a callback
// runs, it only asks the watcher to end once the callback returns, so a
// callback may stop or restart its own monitor.
func (m *Monitor) Stop() {
	m.lock.Lock()
	if !m.running {
		m.lock.Unlock()
		return
	}
	m.running = false
	askDone, done, firing := m.askDone, m.done, m.firing
	m.lock.Unlock()

	close(askDone)
	if !firing {
		<-done
	}
}

func (m *Monitor) watch(fd int, onOpen, onClose func(), askDone chan bool, done chan bool) {
	logrus.Debugf("Start watching %s", m.Path)
	buf := make([]byte, unix.SizeofInotifyEvent*4096)
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}

	for loop := true; loop; {
		if isDone(askDone) {
			loop = false
			continue
		}

		n, err := unix.Poll(fds, pollTimeoutMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			logrus.Warnf("Stop watching %s: %v", m.Path, err)
			<-askDone
			break
		}
		if n == 0 {
			continue
		}

		count, err := unix.Read(fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			logrus.Warnf("Stop watching %s: %v", m.Path, err)
			<-askDone
			break
		}

		for offset := 0; offset+unix.SizeofInotifyEvent <= count; {
			event := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
			offset += unix.SizeofInotifyEvent + int(event.Len)

			if event.Mask&unix.IN_OPEN != 0 && onOpen != nil && !isDone(askDone) {
				m.fire("open", onOpen, askDone)
			}
			if event.Mask&unix.IN_CLOSE_WRITE != 0 && onClose != nil && !isDone(askDone) {
				m.fire("close", onClose, askDone)
			}
		}
	}

	unix.Close(fd)
	logrus.Debugf("Stop watching %s", m.Path)
	close(done)
}

func isDone(askDone chan bool) bool {
	select {
	case <-askDone:
		return true
	default:
		return false
	}
}

func (m *Monitor) setFiring(askDone chan bool, firing bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	// a callback may have restarted the monitor, the new watcher is not firing
	if m.askDone == askDone {
		m.firing = firing
	}
}

func (m *Monitor) fire(name string, f func(), askDone chan bool) {
	m.setFiring(askDone, true)
	defer m.setFiring(askDone, false)
	defer func() {
		if rec := recover(); rec != nil {
			logrus.Warningf("recovered from panic in lock %s callback: [%v] - stack trace : \n [%s]", name, rec, debug.Stack())
		}
	}()
	f()
}
