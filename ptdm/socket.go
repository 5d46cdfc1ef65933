package ptdm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-zeromq/zmq4"
)

var (
	// ErrHub is returned when the hub reports an error or does not answer.
	ErrHub = errors.New("hub error")
	// ErrProtocolMismatch is an ErrHub for a response to another request.
	ErrProtocolMismatch = fmt.Errorf("%w: protocol mismatch", ErrHub)
	ErrInvalidArgument  = errors.New("invalid argument")
)

// Endpoints locates the hub daemon.
type Endpoints struct {
	Request   string        `yaml:"request"`
	Subscribe string        `yaml:"subscribe"`
	Timeout   time.Duration `yaml:"timeout"`
}

var DefaultEndpoints = Endpoints{
	Request:   "tcp://127.0.0.1:3782",
	Subscribe: "tcp://127.0.0.1:3781",
	Timeout:   time.Second,
}

func (e Endpoints) withDefaults() Endpoints {
	if e.Request == "" {
		e.Request = DefaultEndpoints.Request
	}
	if e.Subscribe == "" {
		e.Subscribe = DefaultEndpoints.Subscribe
	}
	if e.Timeout <= 0 {
		e.Timeout = DefaultEndpoints.Timeout
	}
	return e
}

// Socket is the part of a ZeroMQ socket the clients use.
type Socket interface {
	Send(msg zmq4.Msg) error
	Recv() (zmq4.Msg, error)
	Close() error
}

// Dialer connects a socket to an endpoint.
type Dialer func(ctx context.Context, endpoint string, timeout time.Duration) (Socket, error)

// DialRequest opens a REQ socket.
func DialRequest(ctx context.Context, endpoint string, timeout time.Duration) (Socket, error) {
	s := zmq4.NewReq(ctx, zmq4.WithDialerTimeout(timeout))
	if err := s.Dial(endpoint); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// DialSubscribe opens a SUB socket subscribed to every topic.
func DialSubscribe(ctx context.Context, endpoint string, timeout time.Duration) (Socket, error) {
	s := zmq4.NewSub(ctx, zmq4.WithDialerTimeout(timeout))
	if err := s.SetOption(zmq4.OptionSubscribe, ""); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.Dial(endpoint); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func frameString(msg zmq4.Msg) (string, bool) {
	if len(msg.Frames) == 0 {
		return "", false
	}
	return string(msg.Frames[0]), true
}
