package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryStorage is an in-process RowStore. It keeps every appended row, like
// the durable backends, so batch-consistent reads behave the same.
type MemoryStorage struct {
	mu       sync.RWMutex
	trends   map[string][]TrendRow
	analysis map[string]AnalysisRow
}

// NewMemoryStorage creates a new memory storage instance
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		trends:   make(map[string][]TrendRow),
		analysis: make(map[string]AnalysisRow),
	}
}

func (ms *MemoryStorage) AppendTrends(ctx context.Context, rows []TrendRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	for _, row := range rows {
		ms.trends[row.Category] = append(ms.trends[row.Category], row)
	}
	return nil
}

func (ms *MemoryStorage) RecentTrends(ctx context.Context, category string, limit int) ([]TrendRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ms.mu.RLock()
	rows := make([]TrendRow, len(ms.trends[category]))
	copy(rows, ms.trends[category])
	ms.mu.RUnlock()

	// newest first; insertion order breaks ties so the result is stable
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (ms *MemoryStorage) UpsertAnalysis(ctx context.Context, row AnalysisRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.analysis[row.Keyword] = row
	return nil
}

func (ms *MemoryStorage) FindAnalysis(ctx context.Context, keyword string) (*AnalysisRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	row, exists := ms.analysis[keyword]
	if !exists {
		return nil, nil
	}
	return &row, nil
}

func (ms *MemoryStorage) Close() error {
	return nil
}
