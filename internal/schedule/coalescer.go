// Package schedule coalesces bursts of triggers into a single deferred call.
package schedule

import (
	"sync"
	"time"
)

// Coalescer runs fn once, delay after the last Trigger. fn reads whatever
// state is current when it runs, so a burst of triggers costs one call.
type Coalescer struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	stopped bool
}

// NewCoalescer returns an idle coalescer.
func NewCoalescer(delay time.Duration, fn func()) *Coalescer {
	return &Coalescer{delay: delay, fn: fn}
}

// Trigger (re)arms the timer. It never calls fn synchronously, so callers
// may hold locks fn needs.
func (c *Coalescer) Trigger() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.pending = true
	c.timer = time.AfterFunc(c.delay, func() { c.fire(gen) })
}

func (c *Coalescer) fire(gen uint64) {
	c.mu.Lock()
	if c.stopped || gen != c.gen || !c.pending {
		c.mu.Unlock()
		return
	}
	c.pending = false
	c.mu.Unlock()
	c.fn()
}

// scheduled reports whether a call is pending.
func (c *Coalescer) scheduled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Flush runs a pending call now, on the caller's goroutine.
func (c *Coalescer) Flush() {
	c.mu.Lock()
	if c.stopped || !c.pending {
		c.mu.Unlock()
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	c.pending = false
	c.mu.Unlock()
	c.fn()
}

// Stop cancels any pending call. Later triggers are ignored.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.pending = false
	if c.timer != nil {
		c.timer.Stop()
	}
}
