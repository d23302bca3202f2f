package client

import (
	"sync"
	"time"
)

// DebounceWait is the delay applied to change and input events.
const DebounceWait = 300 * time.Millisecond

// Debouncer delays calls per key. A new call for a pending key cancels the
// pending one and restarts the wait, so the last call wins.
type Debouncer struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewDebouncer creates an empty debouncer.
func NewDebouncer() *Debouncer {
	return &Debouncer{timers: make(map[string]*time.Timer)}
}

// Debounce runs fn after wait unless another call for key arrives first.
func (d *Debouncer) Debounce(key string, wait time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(wait, func() {
		d.mu.Lock()
		if d.timers[key] != t {
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
	d.timers[key] = t
}

// Clear cancels the pending call for key, if any.
func (d *Debouncer) Clear(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
		delete(d.timers, key)
	}
}

// Pending reports whether a call for key is waiting.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.timers[key]
	return ok
}

// Stop cancels every pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}
