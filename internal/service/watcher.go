package service

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// Ingester is the part of the service the watcher drives.
type Ingester interface {
	IngestDocuments(ctx context.Context, paths []string) (string, error)
}

// Watcher re-ingests the documentation roots after files under them change. Bursts of
// events within the debounce window trigger one re-index.
type Watcher struct {
	svc      Ingester
	roots    []string
	skipDirs []string
	logger   *zap.Logger
	debounce time.Duration
	watcher  *fsnotify.Watcher

	// OnReindex, when set, is called after every re-index attempt.
	OnReindex func(summary string, err error)
}

// NewWatcher registers every directory under roots except skipped ones.
func NewWatcher(svc Ingester, roots, skipDirs []string, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{
		svc:      svc,
		roots:    roots,
		skipDirs: skipDirs,
		logger:   logger,
		debounce: defaultDebounce,
		watcher:  fw,
	}
	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && slices.Contains(w.skipDirs, d.Name()) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		w.logger.Debug("watching directory", zap.String("path", path))
		return nil
	})
}

// Run processes events until ctx is cancelled, then closes the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("docs changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			pending = true
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			w.reindex(ctx)
		}
	}
}

// relevant filters out chmod events and starts watching new directories.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if slices.Contains(w.skipDirs, filepath.Base(event.Name)) {
				return false
			}
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
		}
	}
	return true
}

func (w *Watcher) reindex(ctx context.Context) {
	start := time.Now()
	summary, err := w.svc.IngestDocuments(ctx, w.roots)
	if err != nil {
		w.logger.Error("re-index failed", zap.Error(err))
	} else {
		w.logger.Info("re-indexed docs", zap.Duration("took", time.Since(start)))
	}
	if w.OnReindex != nil {
		w.OnReindex(summary, err)
	}
}
