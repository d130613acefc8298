// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package index

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Handler receives file changes from Watch.
type Handler interface {
	Changed(path string)
	Removed(path string)
}

// Watch reports changes to files with one of exts below root until ctx is
// done. Directories created while watching are watched too. Watch works on
// the OS file system only.
func Watch(ctx context.Context, root string, exts []string, h Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := addTree(w, root); err != nil {
		return err
	}
	logger.Debug("watching", "root", root)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addTree(w, ev.Name); err != nil {
						logger.Warn("watch directory", "path", ev.Name, "error", err)
					}
					continue
				}
			}
			if !HasExtension(ev.Name, exts) {
				continue
			}
			switch {
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				logger.Debug("file removed", "path", ev.Name)
				h.Removed(ev.Name)
			case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
				logger.Debug("file changed", "path", ev.Name)
				h.Changed(ev.Name)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if skipDirs[d.Name()] && p != root {
			return filepath.SkipDir
		}
		if err := w.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}
