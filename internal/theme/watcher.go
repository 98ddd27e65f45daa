package theme

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports the first change in a directory and then stops.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	dir      string
	done     chan struct{}
	stopOnce sync.Once
	fired    atomic.Bool
}

// NewWatcher creates a one-shot watcher on dir.
func NewWatcher(dir string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	return &Watcher{
		watcher: fw,
		logger:  logger,
		dir:     dir,
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching. onChange runs at most once, after the watcher has
// stopped itself.
func (w *Watcher) Start(onChange func(fsnotify.Event)) {
	go w.watch(onChange)
}

func (w *Watcher) watch(onChange func(fsnotify.Event)) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.fired.CompareAndSwap(false, true) {
				return
			}
			w.logger.Debug("themes directory changed", "dir", w.dir, "event", event.Op.String(), "file", event.Name)
			w.Stop()
			if onChange != nil {
				onChange(event)
			}
			return

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("theme watcher error", "dir", w.dir, "error", err)

		case <-w.done:
			return
		}
	}
}

// Fired reports whether a change has been observed.
func (w *Watcher) Fired() bool {
	return w.fired.Load()
}

// Stop releases the watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		if err := w.watcher.Close(); err != nil {
			w.logger.Debug("closing theme watcher", "error", err)
		}
	})
}
