package schedule

import (
	"sync"
	"time"
)

const DefaultFrameInterval = 16 * time.Millisecond

// FrameClock runs a callback once at the next frame.
type FrameClock interface {
	AfterFrame(fn func())
}

// TickerClock approximates a display refresh with a fixed interval.
type TickerClock struct {
	Interval time.Duration
}

func (c TickerClock) AfterFrame(fn func()) {
	interval := c.Interval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	time.AfterFunc(interval, fn)
}

// ManualClock holds frame callbacks until Advance is called. Used by tests
// and by the one-shot render mode.
type ManualClock struct {
	mu      sync.Mutex
	pending []func()
}

func (c *ManualClock) AfterFrame(fn func()) {
	c.mu.Lock()
	c.pending = append(c.pending, fn)
	c.mu.Unlock()
}

// Pending reports the number of armed callbacks.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Advance runs the callbacks armed so far and returns how many ran.
// Callbacks armed while advancing wait for the next call.
func (c *ManualClock) Advance() int {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
	return len(pending)
}
