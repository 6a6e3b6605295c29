// Package workerpool isolates CPU-bound codec work from the request path:
// a fixed set of workers drains a bounded FIFO queue, so at most poolsize
// conversions run concurrently and everything else waits its turn.
package workerpool

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for pool operations.
var (
	poolQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "docconv_pool_queue_depth",
		Help: "Number of tasks waiting in the worker pool queue",
	})

	poolActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "docconv_pool_active_workers",
		Help: "Number of workers currently running a task",
	})

	poolTasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docconv_pool_tasks_total",
		Help: "Total pool tasks by outcome",
	}, []string{"outcome"}) // "completed", "failed", "abandoned", "rejected"
)

// Errors returned by the pool.
var (
	// ErrTaskDeadline is returned when a task exceeds the per-task deadline.
	// The worker slot is freed and the running goroutine abandoned.
	ErrTaskDeadline = errors.New("task deadline exceeded")

	// ErrPoolClosed is returned for submissions after Close.
	ErrPoolClosed = errors.New("worker pool closed")
)

// Task is a unit of CPU-bound work.
type Task func(ctx context.Context) (any, error)

// Outcome is the result of a completed task.
type Outcome struct {
	Value any
	Err   error
}

// Config holds pool configuration.
type Config struct {
	// Workers is the number of parallel workers.
	// Default: max(1, NumCPU-1), leaving a core for the request path.
	Workers int

	// QueueDepth bounds the FIFO queue. Default: 4x workers.
	QueueDepth int

	// TaskTimeout is the per-task deadline. Default: 2 minutes.
	TaskTimeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	workers := runtime.NumCPU() - 1
	if workers < 1 {
		workers = 1
	}
	return Config{
		Workers:     workers,
		QueueDepth:  workers * 4,
		TaskTimeout: 2 * time.Minute,
	}
}

// Pool is a fixed-size worker pool with a bounded FIFO queue. It is created
// once at process start and shared by all requests.
type Pool struct {
	queue  chan submission
	config Config
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type submission struct {
	ctx    context.Context
	task   Task
	result chan Outcome
}

// New creates and starts a pool.
func New(config Config, logger zerolog.Logger) *Pool {
	defaults := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.QueueDepth <= 0 {
		config.QueueDepth = config.Workers * 4
	}
	if config.TaskTimeout <= 0 {
		config.TaskTimeout = defaults.TaskTimeout
	}

	p := &Pool{
		queue:  make(chan submission, config.QueueDepth),
		config: config,
		logger: logger,
	}

	for i := 0; i < config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	logger.Info().
		Int("workers", config.Workers).
		Int("queue_depth", config.QueueDepth).
		Dur("task_timeout", config.TaskTimeout).
		Msg("Worker pool started")

	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.config.Workers
}

// Submit enqueues a task and returns a channel that receives exactly one
// Outcome. When the queue is full, Submit blocks until space frees up or the
// caller's context is done.
func (p *Pool) Submit(ctx context.Context, task Task) <-chan Outcome {
	result := make(chan Outcome, 1)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		poolTasksTotal.WithLabelValues("rejected").Inc()
		result <- Outcome{Err: ErrPoolClosed}
		return result
	}

	select {
	case p.queue <- submission{ctx: ctx, task: task, result: result}:
		poolQueueDepth.Inc()
	case <-ctx.Done():
		poolTasksTotal.WithLabelValues("rejected").Inc()
		result <- Outcome{Err: ctx.Err()}
	}
	return result
}

// Close stops accepting tasks and waits for queued work to drain.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info().Msg("Worker pool stopped")
}

// worker drains the queue. A task failure affects only its own waiter; the
// worker moves straight on to the next submission.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for sub := range p.queue {
		poolQueueDepth.Dec()
		poolActiveWorkers.Inc()
		p.run(id, sub)
		poolActiveWorkers.Dec()
	}
}

// run executes one task under the per-task deadline. On expiry the slot is
// freed immediately; the task goroutine is abandoned and its eventual
// result discarded.
func (p *Pool) run(id int, sub submission) {
	taskCtx, cancel := context.WithTimeout(sub.ctx, p.config.TaskTimeout)
	defer cancel()

	done := make(chan Outcome, 1)
	go func() {
		value, err := sub.task(taskCtx)
		done <- Outcome{Value: value, Err: err}
	}()

	select {
	case out := <-done:
		if out.Err != nil {
			poolTasksTotal.WithLabelValues("failed").Inc()
		} else {
			poolTasksTotal.WithLabelValues("completed").Inc()
		}
		sub.result <- out
	case <-taskCtx.Done():
		err := taskCtx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			poolTasksTotal.WithLabelValues("abandoned").Inc()
			p.logger.Warn().
				Int("worker_id", id).
				Dur("task_timeout", p.config.TaskTimeout).
				Msg("Task abandoned after deadline")
			sub.result <- Outcome{Err: ErrTaskDeadline}
			return
		}
		poolTasksTotal.WithLabelValues("rejected").Inc()
		sub.result <- Outcome{Err: err}
	}
}
