// Package testutil provides deterministic clocks and id generators for
// tests and scenario replay.
package testutil

import (
	"sync"
	"time"
)

// Clock is a settable wall clock for tests.
//
// Now returns the current instant and then advances it by Step, so a
// sequence of actions gets strictly increasing timestamps without sleeping.
// A zero Step freezes the clock.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewFixedClock creates a clock frozen at now.
func NewFixedClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// NewSteppingClock creates a clock that starts at start and moves forward
// by step after every Now call.
func NewSteppingClock(start time.Time, step time.Duration) *Clock {
	return &Clock{now: start, step: step}
}

// Now returns the current instant and advances by the step.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

// Set moves the clock to t, e.g. to cross into the next day.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
