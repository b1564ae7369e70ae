// Package watch turns filesystem activity under a directory tree into a
// debounced, paced stream of sync jobs.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/dt-pm-tools/jira-sync/internal/logging"
)

// Watcher reports created or written files with a given extension anywhere
// below root. Directories created later are watched as they appear.
type Watcher struct {
	fs     *fsnotify.Watcher
	root   string
	ext    string
	logger *slog.Logger
}

// NewWatcher starts watching root and every directory below it.
func NewWatcher(root, ext string, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	w := &Watcher{
		fs:     fw,
		root:   root,
		ext:    ext,
		logger: logging.NewComponentLogger(logger, "watcher"),
	}
	if err := w.addTree(root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// Run forwards matching paths to emit until ctx is cancelled or the watcher
// is closed.
func (w *Watcher) Run(ctx context.Context, emit func(path string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(event, emit)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", logging.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event, emit func(path string)) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	if event.Has(fsnotify.Create) {
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", slog.String(logging.FieldFile, event.Name), logging.Error(err))
			}
			// Files may have landed before the watch was added.
			files, _ := Walk(event.Name, w.ext)
			for _, f := range files {
				emit(f)
			}
			return
		}
	}

	if Matches(event.Name, w.ext) {
		emit(event.Name)
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path != root {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Walk lists every file below root with extension ext, in lexical order.
func Walk(root, ext string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path != root {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if Matches(path, ext) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// Matches reports whether path ends with ext, compared case-insensitively.
func Matches(path, ext string) bool {
	if ext == "" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(path), strings.ToLower(ext))
}

func skipDir(name string) bool {
	return name == ".git"
}
