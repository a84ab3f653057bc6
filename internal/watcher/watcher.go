// Package watcher notifies the board views when stored tasks may have
// changed. File-backed stores are watched with fsnotify; stores without a
// local file are polled.
package watcher

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces bursts of writes (a completion writes the parent,
// the successor and a history line) into a single notification.
const debounceDelay = 100 * time.Millisecond

// Option configures a Watcher.
type Option func(*Watcher)

// WithIgnore skips events for files with the given base names, such as the
// board lock and the logbook, which change on every command.
func WithIgnore(names ...string) Option {
	return func(w *Watcher) { w.ignore = append(w.ignore, names...) }
}

// WithDebounce overrides the debounce delay.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.delay = d }
}

// Watcher watches board paths and invokes a callback with debouncing.
type Watcher struct {
	fsw      *fsnotify.Watcher
	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	ignore   []string
	delay    time.Duration
}

// New creates a Watcher that monitors the given paths for changes.
func New(paths []string, callback func(), opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, p := range paths {
		if err := fsw.Add(p); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}

	w := &Watcher{fsw: fsw, callback: callback, delay: debounceDelay}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run starts the watch loop. It blocks until the context is canceled.
// Errors from the underlying watcher are passed to the optional errFn callback.
func (w *Watcher) Run(ctx context.Context, errFn func(error)) {
	defer w.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				w.debounce()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if errFn != nil {
				errFn(err)
			}
		}
	}
}

// relevant drops attribute-only changes, hidden files (the store's
// temporary files and its lock) and ignored names.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(event.Name)
	return !strings.HasPrefix(name, ".") && !slices.Contains(w.ignore, name)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) debounce() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.callback)
}

// Poll invokes callback every interval until ctx is canceled. It serves
// stores with no local file to watch.
func Poll(ctx context.Context, interval time.Duration, callback func()) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			callback()
		}
	}
}
