package inbox

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/tabula/internal/parser"
)

// Watch starts an fsnotify watcher on the inbox root and ingests created or
// rewritten files until ctx is cancelled. Events for a path are debounced
// so a file still being copied is read once it settles.
//
// New directories created at runtime are added to the watch list and
// picked up by a Sync pass. Removing or renaming a file never deletes the
// dataset ingested from it.
func (in *Inbox) Watch(ctx context.Context, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, in.root); err != nil {
		return err
	}

	in.logger.Info("inbox: watching", slog.String("root", in.root))

	pending := make(map[string]struct{})
	resync := false
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(in.debounce)
			timerCh = timer.C
		} else {
			timer.Reset(in.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			in.logger.Info("inbox: stopped")
			return nil

		case <-timerCh:
			if resync {
				resync = false
				if _, err := in.Sync(ctx, cb); err != nil {
					in.logger.Warn("inbox: sync failed", slog.String("error", err.Error()))
				}
			}
			for rel := range pending {
				delete(pending, rel)
				id, err := in.ingestPath(ctx, rel)
				if err != nil {
					in.logger.Warn("inbox: ingest failed", slog.String("path", rel), slog.String("error", err.Error()))
					continue
				}
				if id != "" && cb != nil {
					cb(rel, id)
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(abs); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, abs); addErr != nil {
						in.logger.Warn("inbox: add new dir failed",
							slog.String("path", abs),
							slog.String("error", addErr.Error()))
					}
					resync = true
					schedule()
					continue
				}
			}

			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(abs)
			if strings.HasPrefix(name, ".") || !parser.Supported(name) {
				continue
			}
			rel, relErr := filepath.Rel(in.root, abs)
			if relErr != nil {
				continue
			}
			pending[rel] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			in.logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
