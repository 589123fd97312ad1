package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job is a unit of background work identified by ID. Attempt counts failed runs so far.
type Job struct {
	ID       string
	Type     string
	Attempt  int
	Enqueued time.Time
}

// Handler runs one job. A returned error is retried up to MaxRetries times.
type Handler func(context.Context, Job) error

var (
	// ErrQueueStopped is returned by Enqueue before Start and after Stop.
	ErrQueueStopped = errors.New("queue stopped")
	// ErrQueueFull is returned by Enqueue when the buffer has no room.
	ErrQueueFull = errors.New("queue full")
)

// PanicError carries a value recovered from a panicking handler. Panics are never retried.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("job panicked: %v", e.Value)
}

// QueueConfig sizes the worker pool. Zero MaxRetries disables retries. OnAbandon, when set, is
// called for every job that will never run: jobs still buffered at Stop and retries that could
// not be requeued.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
	OnAbandon  func(Job)
}

// Stats is a point in time view of a queue.
type Stats struct {
	Pending  int
	Running  int
	Retrying int
}

// Queue dispatches jobs from a bounded buffer to a fixed pool of goroutines. Enqueue never
// blocks: a full buffer is reported as ErrQueueFull.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.SugaredLogger

	jobs chan Job

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	running  atomic.Int32
	retrying atomic.Int32
}

// NewQueue applies defaults: one worker, a buffer of four jobs per worker and a one second
// retry delay.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  cfg.Logger.Sugar().With("queue", name),
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Start launches the workers. Later calls are no-ops until Stop.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.group != nil {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.group = &errgroup.Group{}
	workerCtx := q.ctx
	for i := 0; i < q.cfg.Workers; i++ {
		q.group.Go(func() error { return q.work(workerCtx) })
	}
	q.logger.Infow("queue started", "workers", q.cfg.Workers, "buffer", q.cfg.BufferSize)
}

// Stop cancels in-flight handlers, waits for the workers to return and then drains the buffer,
// handing each leftover job to OnAbandon.
func (q *Queue) Stop() {
	q.mu.Lock()
	group, cancel := q.group, q.cancel
	q.group = nil
	q.mu.Unlock()
	if group == nil {
		return
	}
	cancel()
	_ = group.Wait()

	abandoned := 0
	for {
		select {
		case job := <-q.jobs:
			abandoned++
			q.abandon(job)
		default:
			q.logger.Infow("queue stopped", "abandoned", abandoned)
			return
		}
	}
}

func (q *Queue) abandon(job Job) {
	if q.cfg.OnAbandon != nil {
		q.cfg.OnAbandon(job)
	}
}

// Enqueue buffers job for the next free worker.
func (q *Queue) Enqueue(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.group == nil || q.ctx.Err() != nil {
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueStopped)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueFull)
	}
}

// Stats reports buffered, running and delayed-retry job counts.
func (q *Queue) Stats() Stats {
	return Stats{
		Pending:  len(q.jobs),
		Running:  int(q.running.Load()),
		Retrying: int(q.retrying.Load()),
	}
}

func (q *Queue) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-q.jobs:
			if ctx.Err() != nil {
				q.abandon(job)
				return nil
			}
			q.running.Add(1)
			err := q.invoke(ctx, job)
			q.running.Add(-1)
			if err != nil {
				q.retry(job, err)
			}
		}
	}
}

func (q *Queue) invoke(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return q.handler(ctx, job)
}

func (q *Queue) retry(job Job, cause error) {
	job.Attempt++
	var panicked *PanicError
	if errors.As(cause, &panicked) || job.Attempt > q.cfg.MaxRetries {
		q.logger.Errorw("job failed", "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "error", cause)
		return
	}
	q.logger.Warnw("job failed, retrying", "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "delay", q.cfg.RetryDelay, "error", cause)

	q.retrying.Add(1)
	time.AfterFunc(q.cfg.RetryDelay, func() {
		defer q.retrying.Add(-1)
		if err := q.Enqueue(job); err != nil {
			q.logger.Errorw("failed to requeue job", "job_id", job.ID, "error", err)
			q.abandon(job)
		}
	})
}
