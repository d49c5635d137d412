// Package schedule provides a cancellable deferred task for coalescing
// expensive writes.
package schedule

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Debouncer runs fn at most once per interval while it keeps being armed.
//
// Arm schedules a run if none is pending; further Arm calls before it fires
// are absorbed. fn reads whatever state is current when it fires, so the run
// always reflects the most recent change. Cancel drops a pending run and
// Flush replaces it with an immediate one.
type Debouncer struct {
	mu       sync.Mutex
	clock    clock.Clock
	interval time.Duration
	fn       func()
	timer    *clock.Timer
	gen      uint64
}

// NewDebouncer creates a debouncer. A nil clock uses wall time.
func NewDebouncer(c clock.Clock, interval time.Duration, fn func()) *Debouncer {
	if c == nil {
		c = clock.New()
	}
	return &Debouncer{clock: c, interval: interval, fn: fn}
}

// Interval returns the configured delay.
func (d *Debouncer) Interval() time.Duration {
	return d.interval
}

// Arm schedules fn after the interval unless a run is already pending.
func (d *Debouncer) Arm() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		return
	}
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.interval, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.gen++
	d.mu.Unlock()

	d.fn()
}

// Cancel drops a pending run. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	pending := d.timer != nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	return pending
}

// Flush cancels any pending run and calls fn now. It must not be called
// while holding a lock fn acquires.
func (d *Debouncer) Flush() {
	d.Cancel()
	d.fn()
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
