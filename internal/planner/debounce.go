package planner

import (
	"sync"
	"time"
)

// Debouncer is a single-slot deferred task. Scheduling a task cancels the
// pending one, so only the most recently scheduled task can run. The task
// receives the key it was scheduled with and should check that the key is
// still current before acting.
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
	key   string
	fn    func(key string)
	gen   uint64
}

// NewDebouncer returns a Debouncer that runs tasks delay after scheduling.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Schedule replaces any pending task with fn, to run after the delay.
func (d *Debouncer) Schedule(key string, fn func(key string)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.gen++
	gen := d.gen
	d.key, d.fn = key, fn
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Cancel drops the pending task. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	pending := d.fn != nil
	d.stopLocked()
	d.gen++
	return pending
}

// Flush runs the pending task now, on the calling goroutine. It reports
// whether a task ran.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	fn, key := d.fn, d.key
	d.stopLocked()
	d.gen++
	d.mu.Unlock()

	if fn == nil {
		return false
	}
	fn(key)
	return true
}

// Pending returns the key of the pending task, if any.
func (d *Debouncer) Pending() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.key, d.fn != nil
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.fn == nil {
		// Superseded after the timer had already fired.
		d.mu.Unlock()
		return
	}
	fn, key := d.fn, d.key
	d.fn, d.key, d.timer = nil, "", nil
	d.mu.Unlock()

	fn(key)
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.fn, d.key = nil, ""
}
