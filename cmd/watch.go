package cmd

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/brogergvhs/siteci/internal/ui"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 500 * time.Millisecond

// watchDir calls run once, then again after every burst of changes below
// dir, until ctx is cancelled.
func watchDir(ctx context.Context, dir string, log *ui.Logger, run func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addTree(w, dir); err != nil {
		return err
	}

	run()
	log.Infof("Watching %s for changes. Press Ctrl+C to stop.", dir)

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			if ev.Op.Has(fsnotify.Create) {
				if err := addTree(w, ev.Name); err != nil {
					log.Debugf("watch %s: %v", ev.Name, err)
				}
			}
			log.Debugf("%s %s", ev.Op, ev.Name)
			timer.Reset(watchDebounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warnf("watcher: %v", err)

		case <-timer.C:
			log.Infof("Change detected, checking again...")
			run()
		}
	}
}

// addTree watches root and every directory below it. A plain file is
// ignored; its directory is already watched.
func addTree(w *fsnotify.Watcher, root string) error {
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
