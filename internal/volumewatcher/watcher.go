// Package volumewatcher implements the shared, callback-based polling
// primitive used to fire a one-shot notification once a filesystem path
// (interpreted as a volume root) becomes reachable.
package volumewatcher

import (
	"os"
	"sync"
	"time"

	"github.com/gitvfs/govfs/internal/govfslog"
)

// DefaultPollInterval is the constant polling period shared by the Volume
// Watcher and the Mount Supervisor (spec.md §6).
const DefaultPollInterval = 15 * time.Second

// PathExister abstracts the filesystem existence check so tests can fake
// volume appearance without touching the real filesystem.
type PathExister func(path string) bool

func osPathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Watcher polls a set of registered volume paths and fires every callback
// registered against a path the first time that path is observed to exist.
type Watcher struct {
	pollInterval time.Duration
	exists       PathExister
	logger       govfslog.Logger

	mu       sync.Mutex
	bindings map[string][]func()
	timer    *time.Timer
	disposed bool
}

// New builds a Watcher with the given poll interval. A nil logger discards
// log output; a nil exister defaults to os.Stat.
func New(pollInterval time.Duration, exister PathExister, logger govfslog.Logger) *Watcher {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if exister == nil {
		exister = osPathExists
	}
	if logger == nil {
		logger = govfslog.Discard
	}
	return &Watcher{
		pollInterval: pollInterval,
		exists:       exister,
		logger:       logger,
		bindings:     make(map[string][]func()),
	}
}

// Register appends callback to the binding for volumePath and starts the
// poll timer if it is not already running. Never fails. Duplicate
// registrations for the same path accumulate and all fire together, in the
// order they were registered.
func (w *Watcher) Register(volumePath string, callback func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.disposed {
		return
	}
	w.bindings[volumePath] = append(w.bindings[volumePath], callback)
	if w.timer == nil {
		w.armLocked()
	}
}

// Dispose stops the timer and releases resources. Pending callbacks are
// dropped silently; no callback fires after Dispose returns.
func (w *Watcher) Dispose() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.disposed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.bindings = make(map[string][]func())
}

// armLocked schedules the next tick. Caller must hold w.mu.
func (w *Watcher) armLocked() {
	w.timer = time.AfterFunc(w.pollInterval, w.tick)
}

// tick runs one sweep: for every currently registered path that now exists,
// fire its callbacks in registration order and drop the binding. Rearms
// itself only if bindings remain.
func (w *Watcher) tick() {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return
	}

	paths := make([]string, 0, len(w.bindings))
	for p := range w.bindings {
		paths = append(paths, p)
	}

	var fired []struct {
		path      string
		callbacks []func()
	}
	for _, p := range paths {
		if w.exists(p) {
			fired = append(fired, struct {
				path      string
				callbacks []func()
			}{path: p, callbacks: w.bindings[p]})
			delete(w.bindings, p)
		}
	}

	remaining := len(w.bindings) > 0
	if remaining {
		w.armLocked()
	} else {
		w.timer = nil
	}

	// Callbacks run with w.mu still held, so a concurrent Dispose waits for
	// this sweep to finish and no callback fires after Dispose returns.
	for _, f := range fired {
		w.runCallbacks(f.path, f.callbacks)
	}
	w.mu.Unlock()
}

// runCallbacks fires every callback for a single path, serially, in
// registration order. A panicking callback is caught and logged so sibling
// callbacks for the same volume still run — see SPEC_FULL.md's recorded
// decision on the open callback-throw question.
func (w *Watcher) runCallbacks(path string, callbacks []func()) {
	for _, cb := range callbacks {
		w.invokeOne(path, cb)
	}
}

func (w *Watcher) invokeOne(path string, cb func()) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Errorf(path, "volume watcher callback panicked: %v", r)
		}
	}()
	cb()
}
