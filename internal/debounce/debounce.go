// Package debounce delays an action until its trigger has been quiet for a while.
package debounce

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

// Debouncer runs only the most recent triggered function, once the wait has
// elapsed without another trigger.
type Debouncer struct {
	clock quartz.Clock
	wait  time.Duration

	mu    sync.Mutex
	timer *quartz.Timer
}

// New creates a debouncer on the given clock
func New(clock quartz.Clock, wait time.Duration) *Debouncer {
	return &Debouncer{clock: clock, wait: wait}
}

// Trigger schedules fn, cancelling any function still pending
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.wait, fn, "debounce")
}

// Stop cancels the pending function. It reports whether one was pending.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	return stopped
}
