package testutil

import (
	"sync"

	"github.com/roach88/tally/internal/model"
)

// FixedClock is a model.Clock pinned to a settable date.
//
// Unlike model.SystemClock, FixedClock never moves on its own, so the
// default valid_from of rules added in a test is predictable.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu    sync.Mutex
	today model.Date
}

// NewFixedClock creates a clock that reports day until changed.
func NewFixedClock(day model.Date) *FixedClock {
	return &FixedClock{today: day}
}

// Today returns the pinned date.
func (c *FixedClock) Today() model.Date {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.today
}

// Set moves the clock to day.
func (c *FixedClock) Set(day model.Date) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.today = day
}

// Advance moves the clock forward by n days.
func (c *FixedClock) Advance(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.today = c.today.AddDays(n)
}
