package testutil

import (
	"sync"
	"time"
)

// Epoch is the fixed instant used by deterministic clocks.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// SteppingClock is a deterministic time source for tests.
//
// The first call to Now returns Epoch; every later call is one second after
// the previous one.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SteppingClock struct {
	mu    sync.Mutex
	calls int64
}

// NewSteppingClock creates a clock starting at Epoch.
func NewSteppingClock() *SteppingClock {
	return &SteppingClock{}
}

// Now returns the next instant.
func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Epoch.Add(time.Duration(c.calls) * time.Second)
	c.calls++
	return t
}
