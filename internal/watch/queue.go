package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dt-pm-tools/jira-sync/internal/logging"
)

// Handler processes one file. It must not block forever; failures are the
// handler's to log.
type Handler func(ctx context.Context, path string)

// Job is one queued unit of work.
type Job struct {
	ID       string
	Path     string
	Enqueued time.Time
}

// Queue runs jobs strictly one at a time in FIFO order, sleeping pace
// between jobs.
type Queue struct {
	ctx     context.Context
	handler Handler
	pace    time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	jobs    []Job
	working bool
	wg      sync.WaitGroup
}

// NewQueue returns an idle queue. Jobs still queued when ctx is cancelled
// are dropped; the job in flight runs to completion.
func NewQueue(ctx context.Context, pace time.Duration, handler Handler, logger *slog.Logger) *Queue {
	return &Queue{
		ctx:     ctx,
		handler: handler,
		pace:    pace,
		logger:  logging.NewComponentLogger(logger, "queue"),
	}
}

// Enqueue appends path and starts the worker if it is idle. Calling it while
// the worker drains never starts a second worker.
func (q *Queue) Enqueue(path string) Job {
	job := Job{ID: uuid.NewString(), Path: path, Enqueued: time.Now()}

	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.wg.Add(1)
	start := !q.working
	q.working = true
	depth := len(q.jobs)
	q.mu.Unlock()

	q.logger.Debug("job queued", slog.String(logging.FieldJob, job.ID), slog.String(logging.FieldFile, path), "depth", depth)
	if start {
		go q.drain()
	}
	return job
}

// Len returns the number of jobs waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Wait blocks until every enqueued job has run or been dropped.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			q.working = false
			q.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs[0] = Job{}
		q.jobs = q.jobs[1:]
		q.mu.Unlock()

		if q.ctx.Err() != nil {
			q.logger.Debug("dropping job after shutdown", slog.String(logging.FieldJob, job.ID), slog.String(logging.FieldFile, job.Path))
			q.wg.Done()
			continue
		}

		q.run(job)
		q.wg.Done()

		if q.pace > 0 {
			timer := time.NewTimer(q.pace)
			select {
			case <-timer.C:
			case <-q.ctx.Done():
				timer.Stop()
			}
		}
	}
}

func (q *Queue) run(job Job) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("job panicked",
				slog.String(logging.FieldJob, job.ID),
				slog.String(logging.FieldFile, job.Path),
				slog.String("panic", fmt.Sprint(r)))
		}
	}()
	started := time.Now()
	q.handler(q.ctx, job.Path)
	q.logger.Debug("job done",
		slog.String(logging.FieldJob, job.ID),
		slog.String(logging.FieldFile, job.Path),
		"elapsed", time.Since(started).Round(time.Millisecond))
}
