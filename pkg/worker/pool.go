package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"trend-go/pkg/logger"
)

var (
	ErrQueueFull      = errors.New("task queue is full")
	ErrPoolStopped    = errors.New("worker pool is stopped")
	ErrPoolNotStarted = errors.New("worker pool not started")
)

// Task represents a unit of work to be executed
type Task struct {
	ID      string
	Fn      func(ctx context.Context) error
	Timeout time.Duration
	// OnDone is called exactly once for every accepted task: with the
	// task's result after it ran, or with ErrPoolStopped when the pool shut
	// down before a worker picked it up.
	OnDone func(err error)
}

func (t Task) done(err error) {
	if t.OnDone != nil {
		t.OnDone(err)
	}
}

// WorkerPoolConfig holds configuration for the worker pool
type WorkerPoolConfig struct {
	MaxWorkers      int           `mapstructure:"max_workers"`
	QueueSize       int           `mapstructure:"queue_size"`
	WorkerTimeout   time.Duration `mapstructure:"worker_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DefaultWorkerPoolConfig returns the configuration used for refresh tasks
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		MaxWorkers:      2,
		QueueSize:       16,
		WorkerTimeout:   10 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
	}
}

// WorkerPool runs tasks on a fixed set of goroutines fed by a bounded queue.
type WorkerPool struct {
	config    WorkerPoolConfig
	taskQueue chan Task
	workers   []*worker
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	log       *logger.Logger
	metrics   *PoolMetrics

	// mu orders Submit against the queue being closed by Stop
	mu      sync.RWMutex
	started atomic.Bool
	stopped atomic.Bool
}

// NewWorkerPool creates a new worker pool with the given configuration
func NewWorkerPool(config WorkerPoolConfig) *WorkerPool {
	defaults := DefaultWorkerPoolConfig()
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = defaults.MaxWorkers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.WorkerTimeout <= 0 {
		config.WorkerTimeout = defaults.WorkerTimeout
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		config:    config,
		taskQueue: make(chan Task, config.QueueSize),
		workers:   make([]*worker, 0, config.MaxWorkers),
		ctx:       ctx,
		cancel:    cancel,
		log:       logger.Component("worker_pool"),
		metrics:   newPoolMetrics(),
	}
}

// Start initializes and starts all workers
func (wp *WorkerPool) Start() error {
	if !wp.started.CompareAndSwap(false, true) {
		return errors.New("worker pool already started")
	}

	wp.log.WithField("max_workers", wp.config.MaxWorkers).Info("Starting worker pool")

	for i := 0; i < wp.config.MaxWorkers; i++ {
		w := newWorker(i, wp.taskQueue, wp.config.WorkerTimeout, wp.log)
		wp.workers = append(wp.workers, w)

		wp.wg.Add(1)
		go func(worker *worker) {
			defer wp.wg.Done()
			worker.start(wp.ctx, wp.metrics)
		}(w)
	}
	return nil
}

// Submit enqueues task without blocking. A rejected task's OnDone is not
// called; the error is the caller's signal.
func (wp *WorkerPool) Submit(task Task) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped.Load() {
		return ErrPoolStopped
	}
	if !wp.started.Load() {
		return ErrPoolNotStarted
	}
	if task.Timeout == 0 {
		task.Timeout = wp.config.WorkerTimeout
	}

	select {
	case wp.taskQueue <- task:
		wp.metrics.record(outcomeSubmitted)
		wp.metrics.queueDepth(wp.GetQueueSize())
		return nil
	default:
		wp.metrics.record(outcomeRejected)
		return ErrQueueFull
	}
}

// SubmitFunc is a convenience method to submit a function as a task
func (wp *WorkerPool) SubmitFunc(id string, fn func(ctx context.Context) error) error {
	return wp.Submit(Task{ID: id, Fn: fn})
}

// Stop cancels running tasks, waits for workers up to the shutdown timeout
// and completes queued tasks with ErrPoolStopped.
func (wp *WorkerPool) Stop() error {
	wp.mu.Lock()
	if !wp.stopped.CompareAndSwap(false, true) {
		wp.mu.Unlock()
		return nil
	}
	close(wp.taskQueue)
	wp.mu.Unlock()

	wp.log.Info("Stopping worker pool")
	wp.cancel()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.log.Info("Worker pool stopped gracefully")
	case <-time.After(wp.config.ShutdownTimeout):
		wp.log.WithField("active_workers", wp.GetActiveWorkers()).Warn("Worker pool shutdown timeout exceeded")
	}

	dropped := 0
	for task := range wp.taskQueue {
		wp.metrics.record(outcomeDropped)
		task.done(ErrPoolStopped)
		dropped++
	}
	wp.metrics.queueDepth(0)
	if dropped > 0 {
		wp.log.WithField("dropped", dropped).Warn("Queued tasks dropped at shutdown")
	}
	return nil
}

// GetMetrics returns a snapshot of pool metrics
func (wp *WorkerPool) GetMetrics() MetricsSnapshot {
	return wp.metrics.snapshot()
}

// GetQueueSize returns current queue size
func (wp *WorkerPool) GetQueueSize() int {
	return len(wp.taskQueue)
}

// GetActiveWorkers returns number of workers running a task
func (wp *WorkerPool) GetActiveWorkers() int {
	activeCount := 0
	for _, w := range wp.workers {
		if w.isActive() {
			activeCount++
		}
	}
	return activeCount
}
