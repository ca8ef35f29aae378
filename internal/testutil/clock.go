package testutil

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// SteppingClock is a clock.Clock whose reading advances by a fixed step on
// every Now call instead of following the wall.
//
// A plain clock.Mock pins every measured duration to zero, which cannot
// distinguish "the engine measured the run" from "the field was never set".
// With a stepping clock an interval bracketed by one Now call and one Since
// call comes out as exactly one step, so tests can assert the value itself.
//
// Thread-safety: Now is serialized by a mutex, so concurrent callers each
// observe a distinct instant.
type SteppingClock struct {
	*clock.Mock

	mu   sync.Mutex
	step time.Duration
}

// NewSteppingClock creates a SteppingClock reading start on its first Now
// call and advancing by step per call.
func NewSteppingClock(start time.Time, step time.Duration) *SteppingClock {
	m := clock.NewMock()
	m.Set(start)
	return &SteppingClock{Mock: m, step: step}
}

// Now returns the current instant, then advances the clock by one step.
//
// Methods promoted from the embedded mock, Since included, read the
// advanced time without stepping again.
func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.Mock.Now()
	c.Mock.Add(c.step)
	return now
}
