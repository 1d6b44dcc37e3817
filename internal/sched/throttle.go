package sched

import (
	"sync"
	"time"
)

// Throttle is a FIFO queue that dispatches at most one job per interval.
// A queued job waits out the remainder of the interval since the previous dispatch.
type Throttle struct {
	clock    Clock
	interval time.Duration

	mu        sync.Mutex
	queue     []func()
	last      time.Time
	hasLast   bool
	scheduled bool
}

func NewThrottle(clock Clock, interval time.Duration) *Throttle {
	return &Throttle{clock: clock, interval: interval}
}

func (t *Throttle) Do(job func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queue = append(t.queue, job)
	if !t.scheduled {
		t.scheduleLocked()
	}
}

// Clear drops every job that has not been dispatched yet and returns how many were dropped.
func (t *Throttle) Clear() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.queue)
	t.queue = nil
	return n
}

func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

func (t *Throttle) scheduleLocked() {
	var wait time.Duration
	if t.hasLast {
		wait = t.interval - t.clock.Now().Sub(t.last)
		if wait < 0 {
			wait = 0
		}
	}
	t.scheduled = true
	t.clock.AfterFunc(wait, t.dispatch)
}

func (t *Throttle) dispatch() {
	t.mu.Lock()
	if len(t.queue) == 0 {
		t.scheduled = false
		t.mu.Unlock()
		return
	}
	job := t.queue[0]
	t.queue = t.queue[1:]
	t.last = t.clock.Now()
	t.hasLast = true
	if len(t.queue) > 0 {
		t.scheduleLocked()
	} else {
		t.scheduled = false
	}
	t.mu.Unlock()

	job()
}
