package ptdm

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Callback is a func() or a func([]string) receiving the message
// parameters.
type Callback interface{}

func adaptCallback(cb Callback) (func([]string), error) {
	switch f := cb.(type) {
	case func():
		return func([]string) { f() }, nil
	case func([]string):
		return f, nil
	}
	if cb != nil {
		if t := reflect.TypeOf(cb); t.Kind() == reflect.Func && t.NumIn() > 1 {
			return nil, fmt.Errorf("%w: callback should receive at most one argument, got %d", ErrInvalidArgument, t.NumIn())
		}
	}
	return nil, fmt.Errorf("%w: callback must be a func() or a func([]string), got %T", ErrInvalidArgument, cb)
}

// SubscribeClient listens to the hub publisher and calls the callback
// registered for each message id. Callbacks run one at a time on the
// listener goroutine.
type SubscribeClient struct {
	Endpoint string
	// RetryDelay separates two connection attempts while the hub is down.
	RetryDelay time.Duration
	Dial       Dialer

	lock      sync.RWMutex
	callbacks map[MessageId]func([]string)
	listening bool

	askDone chan bool
	done    chan bool
}

func NewSubscribeClient(endpoints Endpoints) *SubscribeClient {
	endpoints = endpoints.withDefaults()
	return &SubscribeClient{
		Endpoint:   endpoints.Subscribe,
		RetryDelay: endpoints.Timeout,
		Dial:       DialSubscribe,
		callbacks:  make(map[MessageId]func([]string)),
	}
}

// Initialise replaces the callback table. Nothing is registered when one
// of the callbacks is invalid.
func (c *SubscribeClient) Initialise(callbacks map[MessageId]Callback) error {
	adapted := make(map[MessageId]func([]string), len(callbacks))
	for id, cb := range callbacks {
		f, err := adaptCallback(cb)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		adapted[id] = f
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	c.callbacks = adapted
	return nil
}

// On registers the callback of a single message id. A nil callback removes
// it.
func (c *SubscribeClient) On(id MessageId, cb Callback) error {
	if cb == nil {
		c.lock.Lock()
		delete(c.callbacks, id)
		c.lock.Unlock()
		return nil
	}
	f, err := adaptCallback(cb)
	if err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	if c.callbacks == nil {
		c.callbacks = make(map[MessageId]func([]string))
	}
	c.callbacks[id] = f
	return nil
}

func (c *SubscribeClient) IsListening() bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.listening
}

// StartListening starts the listener goroutine. The connection is made
// from there and retried until the hub answers.
func (c *SubscribeClient) StartListening() {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.listening {
		return
	}
	c.listening = true
	c.askDone = make(chan bool)
	c.done = make(chan bool)
	go c.listen(c.askDone, c.done)
}

// StopListening stops the listener and closes the socket. Calling it again
// is a no-op.
func (c *SubscribeClient) StopListening() {
	c.lock.Lock()
	if !c.listening {
		c.lock.Unlock()
		return
	}
	c.listening = false
	askDone, done := c.askDone, c.done
	c.lock.Unlock()

	askDone <- true
	<-done
}

func (c *SubscribeClient) listen(askDone chan bool, done chan bool) {
	var sock Socket
	quit := make(chan struct{})
	msgs := make(chan string)
	failed := make(chan error, 1)

	for loop := true; loop; {
		if sock == nil {
			var err error
			sock, err = c.Dial(context.Background(), c.Endpoint, c.RetryDelay)
			if err != nil {
				logrus.Debugf("Hub subscribe client unable to connect to %s: %v", c.Endpoint, err)
				sock = nil
				select {
				case <-askDone:
					loop = false
				case <-time.After(c.RetryDelay):
				}
				continue
			}
			logrus.Debugf("Hub subscribe client connected to %s", c.Endpoint)
			go read(sock, msgs, failed, quit)
		}

		select {
		case raw := <-msgs:
			c.dispatch(raw)
		case err := <-failed:
			logrus.Warnf("Hub subscribe client lost its connection: %v", err)
			sock.Close()
			sock = nil
		case <-askDone:
			loop = false
		}
	}

	close(quit)
	if sock != nil {
		sock.Close()
	}
	done <- true
}

func read(sock Socket, msgs chan<- string, failed chan<- error, quit <-chan struct{}) {
	for {
		msg, err := sock.Recv()
		if err != nil {
			select {
			case failed <- err:
			case <-quit:
			}
			return
		}
		raw, ok := frameString(msg)
		if !ok {
			continue
		}
		select {
		case msgs <- raw:
		case <-quit:
			return
		}
	}
}

func (c *SubscribeClient) dispatch(raw string) {
	m, err := ParseMessage(raw)
	if err != nil {
		logrus.Warnf("Dropping hub message %q: %v", raw, err)
		return
	}

	c.lock.RLock()
	cb, ok := c.callbacks[m.Id]
	c.lock.RUnlock()
	if !ok {
		return
	}

	logrus.Debugf("Hub message: %s", m)
	defer func() {
		if rec := recover(); rec != nil {
			logrus.Warningf("recovered from panic in %s callback: [%v] - stack trace : \n [%s]", m.Id, rec, debug.Stack())
		}
	}()
	cb(m.Params)
}
