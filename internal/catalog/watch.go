package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// WatchedSource caches the rows of a CSV file and drops the cache whenever
// the file changes on disk. Run must be running for invalidation to happen.
type WatchedSource struct {
	file    *CSVFile
	watcher *fsnotify.Watcher

	mu         sync.RWMutex
	rows       []Row
	cached     bool
	generation uint64
}

// NewWatchedSource watches the directory holding path, since editors often
// replace files rather than write them in place
func NewWatchedSource(path string) (*WatchedSource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", path, err)
	}

	return &WatchedSource{
		file:    NewCSVFile(path),
		watcher: watcher,
	}, nil
}

// Rows returns the cached rows, loading the file when the cache is cold
func (w *WatchedSource) Rows(ctx context.Context) ([]Row, error) {
	w.mu.RLock()
	if w.cached {
		rows := w.rows
		w.mu.RUnlock()
		return rows, nil
	}
	generation := w.generation
	w.mu.RUnlock()

	rows, err := w.file.Rows(ctx)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	// An invalidation during the read means rows may already be stale
	if w.generation == generation {
		w.rows = rows
		w.cached = true
	}
	w.mu.Unlock()
	return rows, nil
}

// Invalidate drops the cached rows
func (w *WatchedSource) Invalidate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.generation++
	w.cached = false
	w.rows = nil
}

// Run processes file events until ctx is cancelled or the watcher is closed
func (w *WatchedSource) Run(ctx context.Context) error {
	target := filepath.Clean(w.file.Path())
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op == fsnotify.Chmod {
				continue
			}
			slog.Info("Catalog changed, dropping cache", "path", event.Name, "op", event.Op.String())
			w.Invalidate()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Catalog watcher error, dropping cache", "error", err)
			w.Invalidate()
		}
	}
}

// Close stops watching
func (w *WatchedSource) Close() error {
	return w.watcher.Close()
}
