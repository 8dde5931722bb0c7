// Package ui provides debouncing utilities for event handling
package ui

import (
	"sync"
	"time"
)

// Debouncer provides debouncing for rapid events like keystrokes
type Debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
}

// NewDebouncer creates a new debouncer with the specified duration
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		duration: duration,
	}
}

// Debounce executes the function after the debounce duration has elapsed
// without any new calls. Rapid successive calls reset the timer.
func (d *Debouncer) Debounce(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.duration, fn)
}

// Cancel cancels any pending debounced function call
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Immediate executes the function immediately and cancels any pending call
func (d *Debouncer) Immediate(fn func()) {
	d.Cancel()
	fn()
}

// QuantityDebouncer coalesces rapid +/- quantity keystrokes on a cart
// line so only the final value is sent to the backend. One pending edit
// is held at a time; moving to another line flushes the held edit
// instead of dropping it.
type QuantityDebouncer struct {
	debouncer *Debouncer
	mu        sync.Mutex
	itemID    int64
	pending   int
	active    bool
}

// NewQuantityDebouncer creates a debouncer for cart quantity edits
func NewQuantityDebouncer(duration time.Duration) *QuantityDebouncer {
	return &QuantityDebouncer{
		debouncer: NewDebouncer(duration),
	}
}

// Set debounces a quantity change. A pending edit on a different line
// is committed immediately so switching lines never loses input.
func (qd *QuantityDebouncer) Set(itemID int64, quantity int, handler func(int64, int)) {
	qd.mu.Lock()
	flush := qd.active && qd.itemID != itemID
	flushID, flushQty := qd.itemID, qd.pending
	qd.itemID = itemID
	qd.pending = quantity
	qd.active = true
	qd.mu.Unlock()

	if flush {
		qd.debouncer.Cancel()
		// Off the caller's goroutine; the handler may hit the network.
		go handler(flushID, flushQty)
	}

	qd.debouncer.Debounce(func() {
		qd.mu.Lock()
		id, qty := qd.itemID, qd.pending
		qd.active = false
		qd.mu.Unlock()

		handler(id, qty)
	})
}

// Pending returns the last requested item and quantity
func (qd *QuantityDebouncer) Pending() (itemID int64, quantity int) {
	qd.mu.Lock()
	defer qd.mu.Unlock()
	return qd.itemID, qd.pending
}

// Cancel cancels any pending quantity commit
func (qd *QuantityDebouncer) Cancel() {
	qd.mu.Lock()
	qd.active = false
	qd.mu.Unlock()
	qd.debouncer.Cancel()
}

// DefaultQuantityDuration is the recommended debounce for quantity keys
const DefaultQuantityDuration = 400 * time.Millisecond
