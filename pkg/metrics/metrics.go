// Package metrics provides Prometheus metrics for the trend service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "trend"

var (
	// TrendReads counts coordinator reads by category and answer state.
	TrendReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reads_total",
			Help:      "Total number of trend reads by answer state",
		},
		[]string{"category", "state"},
	)

	// RefreshTriggers counts refresh triggers and whether they were dispatched.
	RefreshTriggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_triggers_total",
			Help:      "Total number of refresh triggers by origin and outcome",
		},
		[]string{"origin", "outcome"},
	)

	// RefreshDuration measures one full refresh cycle.
	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of full refresh cycles in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// SourceFetches counts source fetches by source and status.
	SourceFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetches_total",
			Help:      "Total number of scraping source fetches",
		},
		[]string{"source", "status"},
	)

	// StoreErrors counts row store failures swallowed by the batch store.
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Total number of swallowed row store errors",
		},
		[]string{"operation"},
	)

	// AnalysisRequests counts analysis answers by outcome.
	AnalysisRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_requests_total",
			Help:      "Total number of analysis answers by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordRead records one coordinator read.
func RecordRead(category, state string) {
	TrendReads.WithLabelValues(category, state).Inc()
}

// RecordTrigger records a refresh trigger.
func RecordTrigger(origin, outcome string) {
	RefreshTriggers.WithLabelValues(origin, outcome).Inc()
}

// RecordRefresh records a finished refresh cycle.
func RecordRefresh(seconds float64) {
	RefreshDuration.Observe(seconds)
}

// RecordSourceFetch records one source fetch.
func RecordSourceFetch(source string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	SourceFetches.WithLabelValues(source, status).Inc()
}

// RecordStoreError records a swallowed store error.
func RecordStoreError(operation string) {
	StoreErrors.WithLabelValues(operation).Inc()
}

// RecordAnalysis records an analysis answer: hit, generated or degraded.
func RecordAnalysis(outcome string) {
	AnalysisRequests.WithLabelValues(outcome).Inc()
}

var (
	// PoolTasks counts refresh pool tasks by outcome.
	PoolTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "tasks_total",
			Help:      "Total number of worker pool tasks by outcome",
		},
		[]string{"outcome"},
	)

	// PoolTaskDuration measures how long pool tasks ran.
	PoolTaskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "task_duration_seconds",
			Help:      "Duration of worker pool tasks in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)

	// PoolQueueDepth is the number of refresh tasks waiting for a worker.
	PoolQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "queue_depth",
			Help:      "Number of worker pool tasks waiting in the queue",
		},
	)
)

// RecordPoolTask records one pool task outcome: submitted, rejected,
// completed, failed, panicked or dropped.
func RecordPoolTask(outcome string) {
	PoolTasks.WithLabelValues(outcome).Inc()
}

// RecordPoolTaskDuration records how long a pool task ran.
func RecordPoolTaskDuration(seconds float64) {
	PoolTaskDuration.Observe(seconds)
}

// SetPoolQueueDepth records how many tasks wait in the pool queue.
func SetPoolQueueDepth(n int) {
	PoolQueueDepth.Set(float64(n))
}
