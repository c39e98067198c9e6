// Package watch calls back when watched files change.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"
)

// DefaultDebounce is how long a file must stay quiet before its change
// is reported. Editors often write a file in several steps.
const DefaultDebounce = 200 * time.Millisecond

const pollInterval = 100 * time.Millisecond

// source is the platform mechanism that detects changes. poll must not
// block.
type source interface {
	add(path string) error
	poll() ([]string, error)
	close() error
}

// Watcher reports changes to a set of files.
type Watcher struct {
	// Debounce may be changed before Run is called.
	Debounce time.Duration

	src      source
	onChange func(path string)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New returns a watcher that calls onChange with the absolute path of each
// changed file. onChange runs on its own goroutine.
func New(onChange func(path string)) (*Watcher, error) {
	src, err := newSource()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		Debounce: DefaultDebounce,
		src:      src,
		onChange: onChange,
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Add starts watching path.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return w.src.add(abs)
}

// Run delivers change notifications until ctx is done. Read errors from
// the platform source end the loop.
func (w *Watcher) Run(ctx context.Context) error {
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
		paths, err := w.src.poll()
		if err != nil {
			return err
		}
		for _, p := range paths {
			w.notify(p)
		}
	}
}

// notify (re)starts the quiet timer for path.
func (w *Watcher) notify(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.Debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.onChange(path)
	})
}

// Close stops pending notifications and releases the platform source.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
	w.mu.Unlock()
	return w.src.close()
}
