package worker

import (
	"sync/atomic"
	"time"

	"trend-go/pkg/metrics"
)

// Task outcomes counted by the pool.
const (
	outcomeSubmitted = "submitted"
	outcomeRejected  = "rejected"
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomePanicked  = "panicked"
	outcomeDropped   = "dropped"
)

// PoolMetrics counts task outcomes for one pool and mirrors them to the
// process-wide Prometheus collectors.
type PoolMetrics struct {
	submitted atomic.Uint64
	rejected  atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	panicked  atomic.Uint64
	dropped   atomic.Uint64

	busyNanos atomic.Int64
	longest   atomic.Int64
}

func newPoolMetrics() *PoolMetrics {
	return &PoolMetrics{}
}

func (pm *PoolMetrics) record(outcome string) {
	switch outcome {
	case outcomeSubmitted:
		pm.submitted.Add(1)
	case outcomeRejected:
		pm.rejected.Add(1)
	case outcomeCompleted:
		pm.completed.Add(1)
	case outcomeFailed:
		pm.failed.Add(1)
	case outcomePanicked:
		// a panic is also a failure
		pm.failed.Add(1)
		pm.panicked.Add(1)
	case outcomeDropped:
		pm.dropped.Add(1)
	}
	metrics.RecordPoolTask(outcome)
}

func (pm *PoolMetrics) queueDepth(n int) {
	metrics.SetPoolQueueDepth(n)
}

// finished records a task that ran for d with result err.
func (pm *PoolMetrics) finished(d time.Duration, err error) {
	switch err.(type) {
	case nil:
		pm.record(outcomeCompleted)
	case *PanicError:
		pm.record(outcomePanicked)
	default:
		pm.record(outcomeFailed)
	}

	pm.busyNanos.Add(int64(d))
	for {
		longest := pm.longest.Load()
		if int64(d) <= longest || pm.longest.CompareAndSwap(longest, int64(d)) {
			break
		}
	}
	metrics.RecordPoolTaskDuration(d.Seconds())
}

func (pm *PoolMetrics) snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		TasksSubmitted: pm.submitted.Load(),
		TasksRejected:  pm.rejected.Load(),
		TasksCompleted: pm.completed.Load(),
		TasksFailed:    pm.failed.Load(),
		TasksPanicked:  pm.panicked.Load(),
		TasksDropped:   pm.dropped.Load(),
		LongestTask:    time.Duration(pm.longest.Load()),
	}
	if ran := snap.TasksCompleted + snap.TasksFailed; ran > 0 {
		snap.AverageTask = time.Duration(pm.busyNanos.Load() / int64(ran))
	}
	return snap
}

// MetricsSnapshot is a point-in-time copy of PoolMetrics.
type MetricsSnapshot struct {
	TasksSubmitted uint64        `json:"tasks_submitted"`
	TasksRejected  uint64        `json:"tasks_rejected"`
	TasksCompleted uint64        `json:"tasks_completed"`
	TasksFailed    uint64        `json:"tasks_failed"`
	TasksPanicked  uint64        `json:"tasks_panicked"`
	TasksDropped   uint64        `json:"tasks_dropped"`
	AverageTask    time.Duration `json:"average_task"`
	LongestTask    time.Duration `json:"longest_task"`
}
