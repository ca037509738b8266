// Package watcher keeps a document's links rewritten while the document
// keeps changing.
package watcher

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers into a single callback run once the
// window passed without a new trigger
type Debouncer struct {
	mu       sync.Mutex
	pending  bool
	stopped  bool
	running  int
	idle     *sync.Cond
	gen      uint64
	timer    *time.Timer
	window   time.Duration
	callback func()
}

// NewDebouncer creates a new debouncer with the given time window and callback.
func NewDebouncer(window time.Duration, callback func()) *Debouncer {
	d := &Debouncer{
		window:   window,
		callback: callback,
	}
	d.idle = sync.NewCond(&d.mu)

	return d
}

// Trigger schedules the callback, replacing any schedule still pending.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
	gen := d.gen
	d.timer = time.AfterFunc(d.window, func() { d.fire(gen) })
}

// fire is called when the debounce window expires.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	// a later Trigger, a Flush or a Stop may have raced the timer
	if !d.pending || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	d.running++
	d.mu.Unlock()

	if d.callback != nil {
		d.callback()
	}

	d.mu.Lock()
	d.running--
	if d.running == 0 {
		d.idle.Broadcast()
	}
	d.mu.Unlock()
}

// Flush runs a pending callback immediately and blocks until it completes.
// A callback the timer already started is waited for instead.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	pending := d.pending
	d.pending = false
	d.mu.Unlock()

	if pending && d.callback != nil {
		d.callback()
	}

	d.mu.Lock()
	for d.running > 0 {
		d.idle.Wait()
	}
	d.mu.Unlock()
}

// Stop drops a pending callback and ignores later triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
