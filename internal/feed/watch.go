package feed

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/thruflo/taskdeck/internal/logging"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher calls a function whenever the feed file changes. The parent
// directory is watched rather than the file itself so that editors and
// publishers that replace the file by rename are still observed.
type Watcher struct {
	path     string
	onChange func()
	debounce time.Duration
	logger   *logging.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets how long the watcher waits for writes to settle.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithLogger sets the watcher's logger.
func WithLogger(l *logging.Logger) WatchOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// NewWatcher creates a watcher for the feed file at path.
func NewWatcher(path string, onChange func(), opts ...WatchOption) *Watcher {
	w := &Watcher{
		path:     path,
		onChange: onChange,
		debounce: defaultDebounce,
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	abs, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("failed to resolve feed path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(abs)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	name := filepath.Base(abs)
	w.logger.Debug("watching feed file", "path", abs)

	defer w.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("feed watcher error", "error", err)
		}
	}
}

func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
