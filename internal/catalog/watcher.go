package catalog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/tortoise/internal/storage"
)

// Event kinds reported by Watch.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// reconcileDelay debounces the reconciliation pass that follows renames.
const reconcileDelay = 200 * time.Millisecond

// EventCallback is called after a watcher-driven catalog change.
// kind is one of KindCreated, KindUpdated, KindDeleted.
type EventCallback func(kind string, name string)

// Watch starts an fsnotify watcher on the accounts directory and processes
// file change events until ctx is cancelled. It calls cb (if non-nil) after
// each successful catalog mutation.
//
// Rename events trigger a reconciliation pass that removes stale catalog
// entries whose files no longer exist on disk.
func Watch(ctx context.Context, db *DB, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	notify := func(kind, name string) {
		if cb != nil {
			cb(kind, name)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, logger, notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			name, isAccount := storage.NameFromPath(rel)
			if !isAccount {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if info, statErr := os.Stat(ev.Name); statErr != nil || info.IsDir() {
					continue
				}
				existed, _ := db.GetChecksum(name)
				data, readErr := store.Read(name)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("account", name), slog.String("error", readErr.Error()))
					continue
				}
				if existed == storage.Checksum(data) {
					continue
				}
				f := storage.FileInfo{Name: name, Path: rel, UpdatedAt: time.Now()}
				if err := Record(db, f, data); err != nil {
					logger.Warn("watcher: catalog failed", slog.String("account", name), slog.String("error", err.Error()))
					continue
				}
				kind := KindUpdated
				if existed == "" {
					kind = KindCreated
				}
				logger.Debug("watcher: catalogued", slog.String("account", name), slog.String("op", kind))
				notify(kind, name)

			case ev.Op&fsnotify.Remove != 0:
				if cs, _ := db.GetChecksum(name); cs == "" {
					continue
				}
				if err := db.Delete(name); err != nil {
					logger.Warn("watcher: delete failed", slog.String("account", name), slog.String("error", err.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("account", name))
				notify(KindDeleted, name)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify reports Rename on the old path only; the new path
				// arrives as a Create when it stays in the directory.
				if cs, _ := db.GetChecksum(name); cs == "" {
					scheduleReconcile()
					continue
				}
				if err := db.Delete(name); err != nil {
					logger.Warn("watcher: rename delete failed", slog.String("account", name), slog.String("error", err.Error()))
				} else {
					logger.Debug("watcher: rename old deleted", slog.String("account", name))
					notify(KindDeleted, name)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile removes catalog entries without a file on disk and catalogues
// files that are missing or stale.
func reconcile(db *DB, store storage.Provider, logger *slog.Logger, notify EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	files, err := store.List()
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]storage.FileInfo, len(files))
	for _, f := range files {
		disk[f.Name] = f
	}

	for name := range checksums {
		if _, ok := disk[name]; !ok {
			if err := db.Delete(name); err == nil {
				logger.Debug("reconcile: removed stale", slog.String("account", name))
				notify(KindDeleted, name)
			}
		}
	}

	for name, f := range disk {
		prev, known := checksums[name]
		if prev == f.Checksum {
			continue
		}
		data, err := store.Read(name)
		if err != nil {
			continue
		}
		if err := Record(db, f, data); err == nil {
			kind := KindCreated
			if known {
				kind = KindUpdated
			}
			logger.Debug("reconcile: catalogued", slog.String("account", name))
			notify(kind, name)
		}
	}
}
