package ptdm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/sirupsen/logrus"
)

// RequestClient sends requests to the hub. Used as is, every request opens
// and closes its own socket; between Open and Close the socket is shared.
type RequestClient struct {
	Endpoint string
	Timeout  time.Duration
	Dial     Dialer

	lock sync.Mutex
	sock Socket
}

func NewRequestClient(endpoints Endpoints) *RequestClient {
	endpoints = endpoints.withDefaults()
	return &RequestClient{
		Endpoint: endpoints.Request,
		Timeout:  endpoints.Timeout,
		Dial:     DialRequest,
	}
}

func (c *RequestClient) dial() (Socket, error) {
	sock, err := c.Dial(context.Background(), c.Endpoint, c.Timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to connect to %s: %v", ErrHub, c.Endpoint, err)
	}
	logrus.Debugf("Hub request client connected to %s", c.Endpoint)
	return sock, nil
}

// Open keeps a socket connected until Close.
func (c *RequestClient) Open() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.sock != nil {
		return nil
	}
	sock, err := c.dial()
	if err != nil {
		return err
	}
	c.sock = sock
	return nil
}

func (c *RequestClient) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.sock == nil {
		return nil
	}
	err := c.sock.Close()
	c.sock = nil
	return err
}

// SendRequest builds a request and waits for its response.
func (c *RequestClient) SendRequest(id MessageId, params ...interface{}) (Message, error) {
	m, err := NewMessage(id, params...)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return c.SendMessage(m)
}

// SendMessage exchanges m with the hub and checks the response: an error
// id gives ErrHub, any id other than the request id + 100 gives
// ErrProtocolMismatch.
func (c *RequestClient) SendMessage(m Message) (Message, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	sock := c.sock
	scoped := sock != nil
	if !scoped {
		var err error
		if sock, err = c.dial(); err != nil {
			return Message{}, err
		}
		defer sock.Close()
	}

	logrus.Debugf("Hub request: %s", m)
	raw, err := c.exchange(sock, m.Encode())
	if err != nil {
		if scoped {
			// a REQ socket that missed its reply cannot be reused
			c.sock.Close()
			c.sock = nil
		}
		return Message{}, err
	}

	resp, err := ParseMessage(raw)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrHub, err)
	}
	switch resp.Id {
	case RSP_ERR_SERVER, RSP_ERR_MALFORMED, RSP_ERR_UNSUPPORTED:
		return Message{}, fmt.Errorf("%w: hub reported %s", ErrHub, resp.Id)
	}
	if expected := m.Id + 100; resp.Id != expected {
		return Message{}, fmt.Errorf("%w: expected %s, actual %s", ErrProtocolMismatch, expected, resp.Id)
	}
	return resp, nil
}

func (c *RequestClient) exchange(sock Socket, raw string) (string, error) {
	type result struct {
		raw string
		err error
	}
	done := make(chan result, 1)
	go func() {
		if err := sock.Send(zmq4.NewMsgString(raw)); err != nil {
			done <- result{err: err}
			return
		}
		msg, err := sock.Recv()
		if err != nil {
			done <- result{err: err}
			return
		}
		s, ok := frameString(msg)
		if !ok {
			done <- result{err: fmt.Errorf("empty response")}
			return
		}
		done <- result{raw: s}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("%w: %v", ErrHub, r.err)
		}
		return r.raw, nil
	case <-time.After(c.Timeout):
		return "", fmt.Errorf("%w: no response from %s within %v", ErrHub, c.Endpoint, c.Timeout)
	}
}

// Ping checks that the hub answers.
func (c *RequestClient) Ping() error {
	_, err := c.SendRequest(REQ_PING)
	return err
}

// OLEDControl reports whether the host CPU drives the OLED.
func (c *RequestClient) OLEDControl() (bool, error) {
	resp, err := c.SendRequest(REQ_GET_OLED_CONTROL)
	if err != nil {
		return false, err
	}
	v, err := resp.IntParam(0)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrHub, err)
	}
	return v == 1, nil
}

// SetOLEDControl routes the OLED to the host CPU (pi) or to the hub.
func (c *RequestClient) SetOLEDControl(pi bool) error {
	mode := 0
	if pi {
		mode = 1
	}
	_, err := c.SendRequest(REQ_SET_OLED_CONTROL, mode)
	return err
}

func (c *RequestClient) OLEDSPIBus() (int, error) {
	resp, err := c.SendRequest(REQ_GET_OLED_SPI_BUS)
	if err != nil {
		return 0, err
	}
	bus, err := resp.IntParam(0)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrHub, err)
	}
	return bus, nil
}

func (c *RequestClient) SetOLEDSPIBus(bus int) error {
	if bus != 0 && bus != 1 {
		return fmt.Errorf("%w: SPI bus must be 0 or 1, got %d", ErrInvalidArgument, bus)
	}
	_, err := c.SendRequest(REQ_SET_OLED_SPI_BUS, bus)
	return err
}
