package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Richard-Rogalski/PrisonLauncher/internal/domain/instance"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/paths"
)

// Reloader reloads the instance list
type Reloader interface {
	LoadAll(ctx context.Context) instance.LoadReport
}

// Watcher reloads the instance list when a child of the instance root is
// created, removed or renamed, when an instance's marker file changes, or
// when the group file changes. Other files inside instance directories are
// ignored. Bursts of filesystem events are collapsed into a single reload
// once no event arrived for the debounce interval.
type Watcher struct {
	fs        *fsnotify.Watcher
	root      string
	groupFile string
	marker    string
	reloader  Reloader
	debounce  time.Duration
	logger    *zap.Logger
}

// New creates a watcher for root. groupFile may live outside root; in that
// case its parent directory is watched as well.
func New(root, groupFile string, reloader Reloader, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		return nil, fmt.Errorf("debounce must be positive, got %s", debounce)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		fs:        fsw,
		root:      filepath.Clean(root),
		groupFile: filepath.Clean(groupFile),
		marker:    paths.MarkerFile,
		reloader:  reloader,
		debounce:  debounce,
		logger:    logger,
	}

	if err := fsw.Add(w.root); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", w.root, err)
	}
	if dir := filepath.Dir(w.groupFile); groupFile != "" && dir != w.root {
		if err := fsw.Add(dir); err != nil {
			logger.Warn("Cannot watch group file directory", zap.String("dir", dir), zap.Error(err))
		}
	}
	w.syncInstanceDirs()

	return w, nil
}

// WithMarker changes the marker file name watched inside instance directories
func (w *Watcher) WithMarker(name string) *Watcher {
	if name != "" {
		w.marker = name
	}
	return w
}

// Run delivers reloads until ctx is cancelled, then closes the watcher
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("Filesystem change",
				zap.String("path", event.Name),
				zap.String("op", event.Op.String()))

			if event.Has(fsnotify.Create) && filepath.Dir(event.Name) == w.root {
				w.addInstanceDir(event.Name)
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			report := w.reloader.LoadAll(ctx)
			w.logger.Info("Reloaded instances after filesystem change",
				zap.String("generation", report.Generation),
				zap.Int("loaded", report.Loaded))
			w.syncInstanceDirs()
		}
	}
}

// relevant reports whether event can change the loaded list
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	path := filepath.Clean(event.Name)
	if path == w.groupFile {
		return true
	}

	dir := filepath.Dir(path)
	switch {
	case dir == w.root:
		return event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
	case filepath.Dir(dir) == w.root:
		return filepath.Base(path) == w.marker
	default:
		return false
	}
}

func (w *Watcher) syncInstanceDirs() {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		w.logger.Warn("Cannot list instance root", zap.String("root", w.root), zap.Error(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			w.addInstanceDir(filepath.Join(w.root, entry.Name()))
		}
	}
}

func (w *Watcher) addInstanceDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.fs.Add(path); err != nil {
		w.logger.Debug("Cannot watch instance directory", zap.String("dir", path), zap.Error(err))
	}
}
