package proctor

import "time"

// Clock abstracts wall-clock reads and ticker creation so the phase
// controller and the monitor pollers can run against a fake time source
// in tests.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker is the minimal surface of time.Ticker the engine needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// NewClock returns a Clock backed by the real time package.
func NewClock() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (rt *realTicker) C() <-chan time.Time { return rt.t.C }
func (rt *realTicker) Stop()               { rt.t.Stop() }
