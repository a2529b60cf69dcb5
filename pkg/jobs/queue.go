package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a rebuild request for derived planning data. An empty AcademicYearID
// is only meaningful for kinds that rebuild every year.
type Job struct {
	ID             string
	Kind           string
	AcademicYearID string
	Attempt        int
	Enqueued       time.Time
}

func (j Job) key() string {
	return j.Kind + ":" + j.AcademicYearID
}

// Handler processes a job.
type Handler func(context.Context, Job) error

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks a handler error that retrying cannot fix.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// QueueConfig configures the rebuild workers.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue runs rebuild jobs on background workers. A job already waiting for the
// same kind and academic year absorbs later requests, and failed jobs are
// retried after RetryDelay until MaxRetries is exhausted.
type Queue struct {
	name    string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	waiting map[string]struct{}
}

// NewQueue builds a queue dispatching to handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 16
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger.With(zap.String("queue", name)),
		jobs:       make(chan Job, cfg.BufferSize),
		waiting:    make(map[string]struct{}),
	}
}

// Start launches the workers. Later calls are ignored.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i + 1)
	}
	q.started = true
	q.logger.Info("rebuild workers started", zap.Int("workers", q.workers))
}

// Stop cancels the workers and waits for them. Jobs still waiting are dropped.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("rebuild workers stopped")
}

// Pending reports the number of jobs waiting for a worker.
func (q *Queue) Pending() int {
	return len(q.jobs)
}

// Enqueue submits a rebuild. It returns nil without queueing when the same
// rebuild is already waiting.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return fmt.Errorf("queue %s not started", q.name)
	}
	ctx := q.ctx
	key := job.key()
	if _, dup := q.waiting[key]; dup && job.Attempt == 0 {
		q.mu.Unlock()
		q.logger.Debug("rebuild already waiting", zap.String("kind", job.Kind), zap.String("academic_year_id", job.AcademicYearID))
		return nil
	}
	q.waiting[key] = struct{}{}
	q.mu.Unlock()

	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		q.forget(key)
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	default:
		q.forget(key)
		return fmt.Errorf("queue %s full: %d rebuilds waiting", q.name, cap(q.jobs))
	}
}

func (q *Queue) forget(key string) {
	q.mu.Lock()
	delete(q.waiting, key)
	q.mu.Unlock()
}

func (q *Queue) worker(workerID int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.forget(job.key())
			started := time.Now()
			if err := q.handler(q.ctx, job); err != nil {
				q.handleFailure(job, err)
				continue
			}
			q.logger.Info("rebuild finished",
				zap.Int("worker", workerID),
				zap.String("job_id", job.ID),
				zap.String("kind", job.Kind),
				zap.String("academic_year_id", job.AcademicYearID),
				zap.Duration("waited", started.Sub(job.Enqueued)),
				zap.Duration("took", time.Since(started)),
			)
		}
	}
}

func (q *Queue) handleFailure(job Job, err error) {
	log := q.logger.With(zap.String("job_id", job.ID), zap.String("kind", job.Kind), zap.String("academic_year_id", job.AcademicYearID))
	if IsPermanent(err) {
		log.Error("rebuild rejected", zap.Error(err))
		return
	}
	job.Attempt++
	if job.Attempt > q.maxRetries {
		log.Error("rebuild abandoned after retries", zap.Int("attempts", job.Attempt), zap.Error(err))
		return
	}
	log.Warn("rebuild failed, retrying", zap.Int("attempt", job.Attempt), zap.Duration("delay", q.retryDelay), zap.Error(err))

	go func(j Job) {
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
			if err := q.Enqueue(j); err != nil {
				log.Error("rebuild could not be requeued", zap.Error(err))
			}
		}
	}(job)
}
