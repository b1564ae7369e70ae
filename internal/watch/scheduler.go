package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/dt-pm-tools/jira-sync/internal/logging"
)

// Options configures a Scheduler.
type Options struct {
	Root     string
	Ext      string
	Debounce time.Duration
	Pace     time.Duration
	Logger   *slog.Logger
}

// Scheduler runs the initial scan and then watches for changes, feeding
// every path through the debouncer into the paced queue.
type Scheduler struct {
	handler Handler
	opts    Options
	logger  *slog.Logger
}

// NewScheduler returns a scheduler that hands each settled path to handler.
func NewScheduler(handler Handler, opts Options) *Scheduler {
	return &Scheduler{
		handler: handler,
		opts:    opts,
		logger:  logging.NewComponentLogger(opts.Logger, "jira-sync"),
	}
}

// Run blocks until ctx is cancelled. A missing root only logs a warning.
// On return pending debounce timers are cancelled and the in-flight job has
// finished.
func (s *Scheduler) Run(ctx context.Context) error {
	info, err := os.Stat(s.opts.Root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Warn("watch root does not exist; nothing to sync", "dir", s.opts.Root)
		<-ctx.Done()
		return nil
	case err != nil:
		return err
	case !info.IsDir():
		s.logger.Warn("watch root is not a directory; nothing to sync", "dir", s.opts.Root)
		<-ctx.Done()
		return nil
	}

	queue := NewQueue(ctx, s.opts.Pace, s.handler, s.opts.Logger)
	debouncer := NewDebouncer(s.opts.Debounce, func(path string) { queue.Enqueue(path) })
	defer func() {
		debouncer.Stop()
		queue.Wait()
	}()

	watcher, err := NewWatcher(s.opts.Root, s.opts.Ext, s.opts.Logger)
	if err != nil {
		return err
	}
	defer watcher.Close()

	files, err := Walk(s.opts.Root, s.opts.Ext)
	if err != nil {
		s.logger.Warn("initial scan failed", "dir", s.opts.Root, logging.Error(err))
	}
	s.logger.Info("watching", "dir", s.opts.Root, "ext", s.opts.Ext, "initial_files", len(files))
	for _, f := range files {
		debouncer.Trigger(f)
	}

	return watcher.Run(ctx, debouncer.Trigger)
}
