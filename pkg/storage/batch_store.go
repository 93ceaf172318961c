package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"trend-go/pkg/logger"
	"trend-go/pkg/metrics"
	"trend-go/pkg/model"
)

// DefaultOverRead is how many recent rows GetLatestTrends scans to find the
// newest batch of a category.
const DefaultOverRead = 100

// BatchStore turns a RowStore into batch-consistent trend storage. It never
// returns storage errors: failed writes are logged and dropped, failed reads
// look empty.
type BatchStore struct {
	rows     RowStore
	clock    clockwork.Clock
	overRead int
	log      *logger.Logger

	mu        sync.Mutex
	lastStamp map[string]time.Time
}

func NewBatchStore(rows RowStore, clock clockwork.Clock, overRead int) *BatchStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if overRead <= 0 {
		overRead = DefaultOverRead
	}
	return &BatchStore{
		rows:      rows,
		clock:     clock,
		overRead:  overRead,
		log:       logger.Component("batch_store"),
		lastStamp: make(map[string]time.Time),
	}
}

// SaveTrends writes items as one batch of category, ranked by position. The
// returned batch carries the stamp it was written with; ok is false when
// nothing was persisted.
func (bs *BatchStore) SaveTrends(ctx context.Context, category string, items []model.CollectedItem) (*model.TrendBatch, bool) {
	if len(items) == 0 {
		return nil, false
	}

	createdAt := bs.nextStamp(category)
	batch := &model.TrendBatch{
		Category:  category,
		Items:     make([]model.TrendItem, 0, len(items)),
		CreatedAt: createdAt,
	}
	rows := make([]TrendRow, 0, len(items))
	for i, item := range items {
		rank := i + 1
		batch.Items = append(batch.Items, model.TrendItem{
			Keyword: item.Keyword,
			Source:  item.Source,
			Rank:    rank,
		})
		rows = append(rows, TrendRow{
			Category:  category,
			Keyword:   item.Keyword,
			Source:    string(item.Source),
			Rank:      rank,
			CreatedAt: createdAt,
		})
	}

	if err := bs.rows.AppendTrends(ctx, rows); err != nil {
		metrics.RecordStoreError("save_trends")
		bs.log.WithError(err).WithFields(map[string]interface{}{
			"category": category,
			"items":    len(rows),
		}).Warn("Failed to save trend batch")
		return batch, false
	}

	bs.log.WithFields(map[string]interface{}{
		"category":   category,
		"items":      len(rows),
		"created_at": createdAt,
	}).Debug("Trend batch saved")
	return batch, true
}

// nextStamp returns a UTC microsecond timestamp strictly after the previous
// one issued for category.
func (bs *BatchStore) nextStamp(category string) time.Time {
	stamp := bs.clock.Now().UTC().Truncate(time.Microsecond)

	bs.mu.Lock()
	defer bs.mu.Unlock()

	if last, ok := bs.lastStamp[category]; ok && !stamp.After(last) {
		stamp = last.Add(time.Microsecond)
	}
	bs.lastStamp[category] = stamp
	return stamp
}

// GetLatestTrends returns the newest batch of category, or nil. Only rows
// sharing the newest created_at are returned, sorted by rank.
func (bs *BatchStore) GetLatestTrends(ctx context.Context, category string) *model.TrendBatch {
	rows, err := bs.rows.RecentTrends(ctx, category, bs.overRead)
	if err != nil {
		metrics.RecordStoreError("get_trends")
		bs.log.WithError(err).WithField("category", category).Warn("Failed to read trends")
		return nil
	}
	if len(rows) == 0 {
		return nil
	}

	latest := rows[0].CreatedAt
	for _, row := range rows[1:] {
		if row.CreatedAt.After(latest) {
			latest = row.CreatedAt
		}
	}

	batch := &model.TrendBatch{Category: category, CreatedAt: latest.UTC()}
	for _, row := range rows {
		if !row.CreatedAt.Equal(latest) {
			continue
		}
		batch.Items = append(batch.Items, model.TrendItem{
			Keyword: row.Keyword,
			Source:  model.Source(row.Source),
			Rank:    row.Rank,
		})
	}
	sort.SliceStable(batch.Items, func(i, j int) bool {
		return batch.Items[i].Rank < batch.Items[j].Rank
	})
	return batch
}

// SaveAnalysis upserts the explanation for keyword. It reports whether the
// write reached the store.
func (bs *BatchStore) SaveAnalysis(ctx context.Context, keyword, reason string) bool {
	row := AnalysisRow{
		Keyword:   keyword,
		Reason:    reason,
		UpdatedAt: bs.clock.Now().UTC().Truncate(time.Microsecond),
	}
	if err := bs.rows.UpsertAnalysis(ctx, row); err != nil {
		metrics.RecordStoreError("save_analysis")
		bs.log.WithError(err).WithField("keyword", keyword).Warn("Failed to save analysis")
		return false
	}
	return true
}

// GetAnalysis returns the stored explanation for keyword, or nil.
func (bs *BatchStore) GetAnalysis(ctx context.Context, keyword string) *model.AnalysisRecord {
	row, err := bs.rows.FindAnalysis(ctx, keyword)
	if err != nil {
		metrics.RecordStoreError("get_analysis")
		bs.log.WithError(err).WithField("keyword", keyword).Warn("Failed to read analysis")
		return nil
	}
	if row == nil {
		return nil
	}
	return &model.AnalysisRecord{
		Keyword:   row.Keyword,
		Reason:    row.Reason,
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func (bs *BatchStore) Close() error {
	return bs.rows.Close()
}
