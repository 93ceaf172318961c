package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"trend-go/pkg/logger"
)

// worker drains the shared queue one task at a time.
type worker struct {
	id      int
	queue   <-chan Task
	timeout time.Duration
	log     *logger.Logger
	busy    atomic.Bool
}

func newWorker(id int, queue <-chan Task, timeout time.Duration, log *logger.Logger) *worker {
	return &worker{
		id:      id,
		queue:   queue,
		timeout: timeout,
		log:     log.WithField("worker_id", id),
	}
}

// start runs tasks until the queue closes or ctx is cancelled. Tasks left in
// the queue after cancellation are completed by WorkerPool.Stop.
func (w *worker) start(ctx context.Context, metrics *PoolMetrics) {
	w.log.Debug("Worker started")
	defer w.log.Debug("Worker stopped")

	for ctx.Err() == nil {
		select {
		case task, ok := <-w.queue:
			if !ok {
				return
			}
			metrics.queueDepth(len(w.queue))
			w.run(ctx, task, metrics)
		case <-ctx.Done():
			return
		}
	}
}

// run executes task under its timeout and hands the result to OnDone.
func (w *worker) run(ctx context.Context, task Task, metrics *PoolMetrics) {
	w.busy.Store(true)
	defer w.busy.Store(false)

	timeout := task.Timeout
	if timeout <= 0 {
		timeout = w.timeout
	}
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log := w.log.WithField("task_id", task.ID)
	start := time.Now()
	err := w.call(taskCtx, task, log)
	elapsed := time.Since(start)

	metrics.finished(elapsed, err)
	task.done(err)

	log = log.WithField("duration", elapsed)
	if err != nil {
		log.WithError(err).Warn("Task failed")
		return
	}
	log.Debug("Task finished")
}

// call runs task.Fn and turns a panic into a *PanicError.
func (w *worker) call(ctx context.Context, task Task, log *logger.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Task panicked")
			err = &PanicError{Value: r}
		}
	}()
	return task.Fn(ctx)
}

func (w *worker) isActive() bool {
	return w.busy.Load()
}

// PanicError carries the value a task panicked with.
type PanicError struct {
	Value interface{}
}

func (pe *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", pe.Value)
}
