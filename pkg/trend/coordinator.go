// Package trend decides whether stored trend batches are usable and keeps
// them fresh with background refresh cycles.
package trend

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"trend-go/pkg/logger"
	"trend-go/pkg/metrics"
	"trend-go/pkg/model"
	"trend-go/pkg/source"
	"trend-go/pkg/storage"
	"trend-go/pkg/worker"
)

// State tells a reader how much to trust an answer.
type State string

const (
	StateFresh     State = "fresh"
	StateStale     State = "stale"
	StateSynthetic State = "synthetic"
)

// Refresh trigger origins, used for logs and metrics only.
const (
	OriginEmptyRead = "empty_read"
	OriginStaleRead = "stale_read"
	OriginSchedule  = "schedule"
	OriginStartup   = "startup"
	OriginManual    = "manual"
)

// Store is the batch storage the coordinator reads and refreshes.
type Store interface {
	SaveTrends(ctx context.Context, category string, items []model.CollectedItem) (*model.TrendBatch, bool)
	GetLatestTrends(ctx context.Context, category string) *model.TrendBatch
}

// Collector produces the items of every requested category in one cycle.
type Collector interface {
	CollectCycle(ctx context.Context, categories []string) map[string][]model.CollectedItem
}

// Dispatcher runs refresh tasks off the read path.
type Dispatcher interface {
	Submit(task worker.Task) error
}

// Result is the answer to a read. Batch.CreatedAt is zero for synthetic
// answers.
type Result struct {
	Category string
	Batch    *model.TrendBatch
	State    State
}

// LastUpdated returns the batch stamp, or nil for synthetic answers.
func (r Result) LastUpdated() *time.Time {
	if r.State == StateSynthetic || r.Batch == nil || r.Batch.CreatedAt.IsZero() {
		return nil
	}
	t := r.Batch.CreatedAt
	return &t
}

type Config struct {
	StalenessThreshold time.Duration
	TaskTimeout        time.Duration
}

// Coordinator is the read-through layer in front of the batch store. Reads
// never wait for collection: empty and stale reads answer immediately and
// dispatch a refresh, at most one per category at a time.
type Coordinator struct {
	store     Store
	collector Collector
	pool      Dispatcher
	cache     *storage.EntryCache
	clock     clockwork.Clock
	config    Config
	log       *logger.Logger
}

func NewCoordinator(store Store, collector Collector, pool Dispatcher, cache *storage.EntryCache, clock clockwork.Clock, config Config) *Coordinator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.StalenessThreshold <= 0 {
		config.StalenessThreshold = time.Hour
	}
	if config.TaskTimeout <= 0 {
		config.TaskTimeout = 10 * time.Minute
	}
	return &Coordinator{
		store:     store,
		collector: collector,
		pool:      pool,
		cache:     cache,
		clock:     clock,
		config:    config,
		log:       logger.Component("coordinator"),
	}
}

// Read returns the best available answer for category without blocking on
// collection.
func (c *Coordinator) Read(ctx context.Context, category string) Result {
	if category == "" {
		category = model.CategoryAll
	}

	batch := c.cache.Observe(category, c.store.GetLatestTrends(ctx, category))
	if batch.Empty() {
		c.log.WithField("category", category).Info("No stored trends, serving synthetic fallback")
		c.trigger(OriginEmptyRead, model.RefreshKeys())
		metrics.RecordRead(category, string(StateSynthetic))
		return Result{Category: category, Batch: source.FallbackBatch(category), State: StateSynthetic}
	}

	age := c.clock.Since(batch.CreatedAt)
	if age <= c.config.StalenessThreshold {
		metrics.RecordRead(category, string(StateFresh))
		return Result{Category: category, Batch: batch, State: StateFresh}
	}

	c.log.WithFields(map[string]interface{}{
		"category":   category,
		"created_at": batch.CreatedAt,
		"age":        age.Round(time.Second).String(),
	}).Info("Stored trends are stale")
	if !c.cache.InFlight(category) {
		c.trigger(OriginStaleRead, model.RefreshKeys())
	}
	metrics.RecordRead(category, string(StateStale))
	return Result{Category: category, Batch: batch, State: StateStale}
}

// TriggerRefresh dispatches a full refresh cycle for every category that is
// not already being refreshed. It reports whether a cycle was dispatched.
func (c *Coordinator) TriggerRefresh(origin string) bool {
	return c.trigger(origin, model.RefreshKeys())
}

func (c *Coordinator) trigger(origin string, keys []string) bool {
	claimed := c.cache.TryBeginRefresh(keys...)
	if len(claimed) == 0 {
		metrics.RecordTrigger(origin, "deduplicated")
		c.log.WithField("origin", origin).Debug("Refresh already in flight")
		return false
	}

	cycleID := uuid.NewString()
	task := worker.Task{
		ID:      "refresh-" + cycleID,
		Timeout: c.config.TaskTimeout,
		Fn: func(ctx context.Context) error {
			c.refresh(ctx, cycleID, origin, claimed)
			return ctx.Err()
		},
		OnDone: func(error) {
			c.cache.EndRefresh(claimed...)
		},
	}

	if err := c.pool.Submit(task); err != nil {
		c.cache.EndRefresh(claimed...)
		metrics.RecordTrigger(origin, "rejected")
		c.log.WithError(err).WithField("origin", origin).Warn("Failed to dispatch refresh")
		return false
	}

	metrics.RecordTrigger(origin, "dispatched")
	c.log.WithFields(map[string]interface{}{
		"origin":   origin,
		"cycle_id": cycleID,
		"keys":     claimed,
	}).Info("Refresh dispatched")
	return true
}

// RunRefresh runs one full cycle on the calling goroutine and returns the
// batches it wrote. Categories already being refreshed are skipped.
func (c *Coordinator) RunRefresh(ctx context.Context) map[string]*model.TrendBatch {
	claimed := c.cache.TryBeginRefresh(model.RefreshKeys()...)
	defer c.cache.EndRefresh(claimed...)

	if len(claimed) == 0 {
		return nil
	}
	return c.refresh(ctx, uuid.NewString(), OriginManual, claimed)
}

// refresh collects every key once and saves each non-empty result. Named
// categories are written before the integrated view. A key whose sources all
// failed is left alone: the synthetic list is never stored, so a stale real
// batch keeps being served until a later cycle replaces it.
func (c *Coordinator) refresh(ctx context.Context, cycleID, origin string, keys []string) map[string]*model.TrendBatch {
	start := c.clock.Now()
	log := c.log.WithFields(map[string]interface{}{
		"cycle_id": cycleID,
		"origin":   origin,
	})
	log.WithField("keys", keys).Info("Refresh cycle started")

	collected := c.collector.CollectCycle(ctx, keys)

	saved := make(map[string]*model.TrendBatch, len(keys))
	failed, synthetic := 0, 0
	for _, key := range keys {
		items := collected[key]
		if len(items) == 0 {
			continue
		}
		if allSynthetic(items) {
			synthetic++
			continue
		}
		batch, ok := c.store.SaveTrends(ctx, key, items)
		if !ok {
			failed++
		}
		if batch != nil {
			// served from memory even when the write was dropped
			c.cache.Observe(key, batch)
			saved[key] = batch
		}
	}

	duration := c.clock.Since(start)
	metrics.RecordRefresh(duration.Seconds())
	log.WithFields(map[string]interface{}{
		"batches":      len(saved),
		"store_failed": failed,
		"synthetic":    synthetic,
		"cached_keys":  c.cache.Size(),
		"duration":     duration.String(),
	}).Info("Refresh cycle finished")
	return saved
}

func allSynthetic(items []model.CollectedItem) bool {
	for _, item := range items {
		if item.Source != model.SourceSynthetic {
			return false
		}
	}
	return true
}
