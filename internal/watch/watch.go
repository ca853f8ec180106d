package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"leafspec/internal/config"
	"leafspec/internal/inventory"
	"leafspec/internal/logging"
	"leafspec/internal/pipeline"
)

// TriggerFunc runs once the raw tree has settled after a burst of changes.
type TriggerFunc func(ctx context.Context) error

// Watcher monitors the raw tree for arriving header/cube files and invokes
// its trigger after changes settle for the configured debounce window.
type Watcher struct {
	cfg      *config.Config
	logger   *slog.Logger
	trigger  TriggerFunc
	debounce time.Duration
}

// NewWatcher wires a watcher over cfg's raw directory. The trigger typically
// rescans the inventory; it must tolerate being called repeatedly.
func NewWatcher(cfg *config.Config, logger *slog.Logger, trigger TriggerFunc) *Watcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	debounce := time.Duration(cfg.Workflow.WatchDebounceSeconds) * time.Second
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "watch"),
		trigger:  trigger,
		debounce: debounce,
	}
}

// Run blocks watching the raw tree until ctx is cancelled. Trigger failures
// are logged and the watch continues; only setup faults are returned.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return pipeline.Wrap(pipeline.ErrInfrastructure, "watch", "create watcher", "", err)
	}
	defer fw.Close()

	root := w.cfg.Paths.RawDir
	if err := addTree(fw, root); err != nil {
		return pipeline.Wrap(pipeline.ErrInfrastructure, "watch", "watch raw tree", root, err)
	}

	w.logger.Info("watching raw tree",
		logging.String("path", root),
		logging.Int("debounce_seconds", int(w.debounce/time.Second)))

	timer := time.NewTimer(w.debounce)
	defer timer.Stop()
	dirty := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.accept(fw, event) {
				continue
			}
			dirty = true
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error; continuing", logging.Error(err))
		case <-timer.C:
			if !dirty {
				continue
			}
			dirty = false
			w.fire(ctx)
		}
	}
}

// accept filters events down to raw artifacts, registering freshly created
// directories so cubes landing inside them keep generating events.
func (w *Watcher) accept(fw *fsnotify.Watcher, event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := addTree(fw, event.Name); err != nil {
				w.logger.Warn("watch add failed",
					logging.String("path", event.Name),
					logging.Error(err))
			}
			// A moved-in directory can carry cube pairs with it.
			return true
		}
	}
	return inventory.IsRawArtifact(event.Name)
}

func (w *Watcher) fire(ctx context.Context) {
	if w.trigger == nil {
		return
	}
	w.logger.Info("raw tree settled")
	if err := w.trigger(ctx); err != nil {
		w.logger.Warn("triggered pipeline failed; watching continues", logging.Error(err))
	}
}

func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return fw.Add(path)
	})
}
