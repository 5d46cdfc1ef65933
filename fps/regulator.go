// Package fps paces frame transfers to a maximum frame rate.
package fps

import (
	"sync"
	"time"
)

// DefaultMaxFPS gives a frame slot of roughly 60ms.
const DefaultMaxFPS = 16.67

// Regulator enforces a minimum interval between two frames. StopTimer is
// called right before a transfer and StartTimer right after it, so the
// interval is measured display-to-display.
type Regulator struct {
	lock sync.Mutex

	interval time.Duration

	started      time.Time
	prev         time.Time
	transitStart time.Time

	frames       int64
	totalTransit time.Duration
}

func NewRegulator(maxFPS float64) *Regulator {
	r := &Regulator{}
	r.SetMaxFPS(maxFPS)
	return r
}

// SetMaxFPS sets the target frame rate. A value <= 0 disables pacing.
func (r *Regulator) SetMaxFPS(maxFPS float64) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.started = time.Time{}
	r.frames = 0
	r.totalTransit = 0
	if maxFPS <= 0 {
		r.interval = 0
		return
	}
	r.interval = time.Duration(float64(time.Second) / maxFPS)
}

// Interval returns the minimum time between two frames, 0 when disabled.
func (r *Regulator) Interval() time.Duration {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.interval
}

// StartTimer marks the end of a transfer.
func (r *Regulator) StartTimer() {
	r.lock.Lock()
	defer r.lock.Unlock()

	now := time.Now()
	if r.started.IsZero() {
		r.started = now
	}
	r.prev = now
	r.transitStart = now
}

// StopTimer blocks until the next frame slot is due.
func (r *Regulator) StopTimer() {
	r.lock.Lock()
	var wait time.Duration
	if !r.prev.IsZero() {
		now := time.Now()
		r.totalTransit += now.Sub(r.transitStart)
		r.frames++
		if r.interval > 0 {
			wait = r.interval - now.Sub(r.prev)
		}
	}
	r.lock.Unlock()

	if wait > 0 {
		time.Sleep(wait)
	}
}

// EffectiveFPS returns the number of frames paced per second since the
// first frame.
func (r *Regulator) EffectiveFPS() float64 {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.started.IsZero() {
		return 0
	}
	elapsed := time.Since(r.started).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(r.frames) / elapsed
}

// AverageTransitTime returns the mean time spent between StartTimer and
// StopTimer.
func (r *Regulator) AverageTransitTime() time.Duration {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.frames == 0 {
		return 0
	}
	return r.totalTransit / time.Duration(r.frames)
}
