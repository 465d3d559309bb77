package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called after a watcher-driven index change.
// op is "updated" or "deleted"; kind names the collection.
type EventCallback func(op, kind string)

const settleDelay = 150 * time.Millisecond

// Watch follows the data directory with fsnotify and reindexes a collection
// whenever its <kind>.json changes, whoever wrote it. Bursts of events for
// the same file are coalesced. Watch returns when ctx is cancelled.
func Watch(ctx context.Context, db *DB, src Source, dataDir string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dataDir); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("dir", dataDir))

	pending := make(map[string]struct{})
	var settle *time.Timer
	var settleCh <-chan time.Time

	schedule := func(kind string) {
		pending[kind] = struct{}{}
		if settle == nil {
			settle = time.NewTimer(settleDelay)
			settleCh = settle.C
		} else {
			settle.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settle != nil {
				settle.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			for kind := range pending {
				apply(db, src, dataDir, kind, logger, cb)
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			kind, ok := src.KindOfPath(ev.Name)
			if !ok {
				continue
			}
			schedule(kind)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// apply reindexes kind, or drops it when its file is gone.
func apply(db *DB, src Source, dataDir, kind string, logger *slog.Logger, cb EventCallback) {
	if _, err := os.Stat(filepath.Join(dataDir, kind+".json")); os.IsNotExist(err) {
		if err := db.DeleteKind(kind); err != nil {
			logger.Warn("watcher: delete failed", slog.String("kind", kind), slog.String("error", err.Error()))
			return
		}
		logger.Debug("watcher: dropped", slog.String("kind", kind))
		if cb != nil {
			cb("deleted", kind)
		}
		return
	}

	cs, err := src.Checksum(kind)
	if err != nil {
		logger.Warn("watcher: checksum failed", slog.String("kind", kind), slog.String("error", err.Error()))
		return
	}
	if prev, _ := db.KindChecksum(kind); prev != "" && prev == cs {
		return
	}
	if err := IndexKind(db, src, kind); err != nil {
		logger.Warn("watcher: index failed", slog.String("kind", kind), slog.String("error", err.Error()))
		return
	}
	logger.Debug("watcher: indexed", slog.String("kind", kind))
	if cb != nil {
		cb("updated", kind)
	}
}
