package hazard

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"hazard_router/pkg/logging"
)

// DefaultQuietPeriod is how long the hazard file must stay unchanged before
// it is reloaded.
const DefaultQuietPeriod = 250 * time.Millisecond

// ReloadFunc receives each reloaded hazard set, or the error that prevented
// loading it.
type ReloadFunc func(LoadResult, error)

// Watcher reloads a hazard file whenever it changes.
type Watcher struct {
	path     string
	spreadKm float64
	quiet    time.Duration
	onReload ReloadFunc
	watcher  *fsnotify.Watcher
}

// NewWatcher watches path. The parent directory is watched so that files
// replaced by rename (as editors and sync tools do) are still seen.
func NewWatcher(path string, spreadKm float64, onReload ReloadFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{
		path:     abs,
		spreadKm: spreadKm,
		quiet:    DefaultQuietPeriod,
		onReload: onReload,
		watcher:  fw,
	}, nil
}

// SetQuietPeriod overrides the debounce interval. Call before Run.
func (w *Watcher) SetQuietPeriod(d time.Duration) { w.quiet = d }

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	timer := time.NewTimer(w.quiet)
	timer.Stop()

	logging.Info("watching hazard file", "path", w.path)
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				timer.Reset(w.quiet)
			}

		case <-timer.C:
			res, err := LoadFile(w.path, w.spreadKm)
			if err != nil {
				logging.Warn("hazard reload failed", "path", w.path, "error", err)
			}
			w.onReload(res, err)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("hazard watcher error", "error", err)
		}
	}
}
