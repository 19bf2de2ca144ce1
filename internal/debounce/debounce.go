//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

// Package debounce provides a trailing-edge debouncer: a burst of
// calls collapses into one execution of the last submitted function
// after the window elapses.
package debounce

import (
	"sync"
	"time"
)

// Debouncer coalesces calls. Safe for concurrent use.
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// New creates a Debouncer with the given window. Windows <= 0 fall
// back to 1ms so Call still defers to another goroutine.
func New(window time.Duration) *Debouncer {
	if window <= 0 {
		window = time.Millisecond
	}
	return &Debouncer{window: window}
}

// Call schedules fn to run once the window elapses with no further
// calls. Only the last fn of a burst executes.
func (d *Debouncer) Call(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, fn)
}

// Stop cancels any pending execution and rejects further calls.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Flush runs a pending execution immediately, if one is scheduled.
// Intended for tests.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	t := d.timer
	d.timer = nil
	d.mu.Unlock()
	if t != nil && t.Stop() {
		// Timer had not fired yet; nothing else will run it.
		t.Reset(0)
	}
}
