package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"breslov-ai/internal/contextutil"
)

// DefaultDebounce is how long the watcher waits for a burst of events on the
// library directory to settle before reloading.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads books when their files change in the library directory.
type Watcher struct {
	pipeline *Pipeline
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

// NewWatcher creates a watcher on the pipeline's library directory.
func NewWatcher(p *Pipeline, debounce time.Duration) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{pipeline: p, watcher: w, debounce: debounce}, nil
}

// Run watches until ctx is cancelled or the watcher is closed. Created and
// written files are (re)loaded; removed or renamed files are unloaded.
func (w *Watcher) Run(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	if err := w.watcher.Add(w.pipeline.Dir()); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.pipeline.Dir(), err)
	}
	logger.InfoContext(ctx, "watching library directory", "dir", w.pipeline.Dir())

	// path -> true to load, false to unload
	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !IsSupportedFile(event.Name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				pending[event.Name] = true
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				pending[event.Name] = false
			default:
				continue
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			w.flush(ctx, pending)
			clear(pending)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.WarnContext(ctx, "file watcher error", "error", err)
		}
	}
}

func (w *Watcher) flush(ctx context.Context, pending map[string]bool) {
	logger := contextutil.LoggerFromContext(ctx)
	for path, load := range pending {
		if load {
			if _, err := w.pipeline.LoadFile(ctx, path); err != nil {
				logger.ErrorContext(ctx, "failed to reload book", "path", path, "error", err)
			}
			continue
		}
		if err := w.pipeline.RemoveFile(ctx, path); err != nil {
			logger.ErrorContext(ctx, "failed to unload book", "path", path, "error", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
