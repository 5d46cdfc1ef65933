package ptdm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"
)

// fakeSocket answers each sent message with respond, and hands out
// published messages pushed with publish.
type fakeSocket struct {
	respond func(req string) (string, bool)

	lock   sync.Mutex
	sent   []string
	closed int

	inbox     chan zmq4.Msg
	done      chan struct{}
	closeOnce sync.Once
}

func newFakeSocket(respond func(string) (string, bool)) *fakeSocket {
	return &fakeSocket{
		respond: respond,
		inbox:   make(chan zmq4.Msg, 16),
		done:    make(chan struct{}),
	}
}

func (s *fakeSocket) Send(msg zmq4.Msg) error {
	raw := string(msg.Frames[0])
	s.lock.Lock()
	s.sent = append(s.sent, raw)
	s.lock.Unlock()
	if s.respond != nil {
		if resp, ok := s.respond(raw); ok {
			s.inbox <- zmq4.NewMsgString(resp)
		}
	}
	return nil
}

func (s *fakeSocket) Recv() (zmq4.Msg, error) {
	select {
	case m := <-s.inbox:
		return m, nil
	case <-s.done:
		return zmq4.Msg{}, errors.New("socket closed")
	}
}

func (s *fakeSocket) Close() error {
	s.lock.Lock()
	s.closed++
	s.lock.Unlock()
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func (s *fakeSocket) publish(raw string) {
	s.inbox <- zmq4.NewMsgString(raw)
}

func (s *fakeSocket) sentMessages() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string(nil), s.sent...)
}

func (s *fakeSocket) closeCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.closed
}

// fakeDialer hands out sockets built by newSocket and counts dials.
type fakeDialer struct {
	lock      sync.Mutex
	dials     int
	failFirst int
	sockets   []*fakeSocket
	newSocket func() *fakeSocket
}

func (d *fakeDialer) dial(_ context.Context, _ string, _ time.Duration) (Socket, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.dials++
	if d.dials <= d.failFirst {
		return nil, errors.New("connection refused")
	}
	s := d.newSocket()
	d.sockets = append(d.sockets, s)
	return s, nil
}

func (d *fakeDialer) last() *fakeSocket {
	d.lock.Lock()
	defer d.lock.Unlock()
	if len(d.sockets) == 0 {
		return nil
	}
	return d.sockets[len(d.sockets)-1]
}

func (d *fakeDialer) dialCount() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.dials
}
