package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the workspace must stay quiet before a
// re-index is triggered
const DefaultDebounce = 2 * time.Second

// Watcher observes workspace roots and invokes a trigger after file
// changes settle. Bursts of events collapse into a single trigger.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	trigger  func()
	logger   *slog.Logger
}

// New creates a Watcher over the given roots. Every existing
// subdirectory is watched; directories created later are added as they
// appear.
func New(roots []string, debounce time.Duration, trigger func(), logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		debounce: debounce,
		trigger:  trigger,
		logger:   logger,
	}

	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			logger.Warn("failed to watch root", "root", root, "error", err)
		}
	}

	return w, nil
}

// addTree registers root and all its subdirectories
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && ignoredDir(d.Name()) {
			return fs.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func ignoredDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor"
}

// Start runs the event loop until ctx is cancelled. The returned channel
// closes when the loop has stopped.
func (w *Watcher) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() { _ = w.fsw.Close() }()
		w.run(ctx)
	}()
	return done
}

func (w *Watcher) run(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}

			// New directories need their own watch
			if event.Op.Has(fsnotify.Create) {
				_ = w.addTree(event.Name)
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.logger.Debug("workspace changed, triggering re-index")
			w.trigger()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}
