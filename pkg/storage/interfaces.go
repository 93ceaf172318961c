package storage

import (
	"context"
	"time"
)

// TrendRow is one persisted ranked keyword. Rows written by one SaveTrends
// call share CreatedAt.
type TrendRow struct {
	Category  string
	Keyword   string
	Source    string
	Rank      int
	CreatedAt time.Time
}

// AnalysisRow is the persisted explanation for one keyword.
type AnalysisRow struct {
	Keyword   string
	Reason    string
	UpdatedAt time.Time
}

// RowStore is the durable backend. Implementations report errors; the
// BatchStore above them decides that errors never reach callers.
type RowStore interface {
	// AppendTrends inserts rows as one unit where the backend allows it.
	AppendTrends(ctx context.Context, rows []TrendRow) error
	// RecentTrends returns at most limit rows for category, newest first.
	RecentTrends(ctx context.Context, category string, limit int) ([]TrendRow, error)
	// UpsertAnalysis inserts or replaces the row for row.Keyword.
	UpsertAnalysis(ctx context.Context, row AnalysisRow) error
	// FindAnalysis returns nil, nil when no row exists.
	FindAnalysis(ctx context.Context, keyword string) (*AnalysisRow, error)
	Close() error
}
