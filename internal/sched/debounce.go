package sched

import (
	"sync"
	"time"
)

// Debouncer runs fn once the trigger has been quiet for wait.
// Every Trigger call reschedules the pending run.
type Debouncer struct {
	clock Clock
	wait  time.Duration
	fn    func()

	mu    sync.Mutex
	timer Timer
}

func NewDebouncer(clock Clock, wait time.Duration, fn func()) *Debouncer {
	return &Debouncer{clock: clock, wait: wait, fn: fn}
}

func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.wait, d.fire)
}

// Stop cancels a pending run. It reports whether one was pending.
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

func (d *Debouncer) fire() {
	d.mu.Lock()
	d.timer = nil
	d.mu.Unlock()
	d.fn()
}
