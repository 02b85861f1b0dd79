// Package notify runs fire-and-forget side effects (login emails, admin alerts,
// lifecycle events) off the request path. A job's failure is logged and never
// reaches the code that submitted it.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one unit of background work.
type Job func(ctx context.Context) error

type task struct {
	name string
	job  Job
}

// Queue is a bounded job queue drained by a fixed set of workers.
type Queue struct {
	jobs       chan task
	jobTimeout time.Duration
	log        *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewQueue starts workers goroutines reading from a buffer of size jobs.
func NewQueue(workers, size int, jobTimeout time.Duration, log *zap.Logger) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 100
	}
	q := &Queue{
		jobs:       make(chan task, size),
		jobTimeout: jobTimeout,
		log:        log,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Submit enqueues a job without blocking. It reports false when the job was
// dropped because the queue is full or closed.
func (q *Queue) Submit(name string, job Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.log.Warn("notification dropped, queue closed", zap.String("job", name))
		return false
	}
	select {
	case q.jobs <- task{name: name, job: job}:
		return true
	default:
		q.log.Warn("notification dropped, queue full", zap.String("job", name))
		return false
	}
}

// Close stops accepting jobs and waits for queued ones to finish or ctx to end.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for t := range q.jobs {
		q.run(t)
	}
}

func (q *Queue) run(t task) {
	ctx := context.Background()
	if q.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.jobTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("notification job panicked", zap.String("job", t.name), zap.Any("panic", r))
		}
	}()
	if err := t.job(ctx); err != nil {
		q.log.Warn("notification job failed", zap.String("job", t.name), zap.Error(err))
	}
}
