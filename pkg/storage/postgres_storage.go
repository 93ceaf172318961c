package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS trends (
	id         BIGSERIAL PRIMARY KEY,
	category   TEXT        NOT NULL,
	keyword    TEXT        NOT NULL,
	source     TEXT        NOT NULL,
	rank       INTEGER     NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trends_category_created ON trends (category, created_at DESC);
CREATE TABLE IF NOT EXISTS trend_analysis (
	keyword    TEXT PRIMARY KEY,
	reason     TEXT        NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);`

const (
	recentTrendsSQL = `SELECT category, keyword, source, rank, created_at FROM trends
WHERE category = $1 ORDER BY created_at DESC, rank ASC LIMIT $2`
	upsertAnalysisSQL = `INSERT INTO trend_analysis (keyword, reason, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (keyword) DO UPDATE SET reason = EXCLUDED.reason, updated_at = EXCLUDED.updated_at`
	findAnalysisSQL = `SELECT keyword, reason, updated_at FROM trend_analysis WHERE keyword = $1`
)

var trendColumns = []string{"category", "keyword", "source", "rank", "created_at"}

// PgxPool is the part of *pgxpool.Pool the store uses.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Close()
}

// PostgresStorage is a RowStore on PostgreSQL through pgx.
type PostgresStorage struct {
	pool PgxPool
}

// OpenPostgres connects to dsn and creates the schema when missing.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	store := NewPostgresStorage(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func NewPostgresStorage(pool PgxPool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

func (ps *PostgresStorage) Migrate(ctx context.Context) error {
	if _, err := ps.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (ps *PostgresStorage) AppendTrends(ctx context.Context, rows []TrendRow) error {
	if len(rows) == 0 {
		return nil
	}

	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, []any{row.Category, row.Keyword, row.Source, row.Rank, row.CreatedAt.UTC()})
	}

	n, err := ps.pool.CopyFrom(ctx, pgx.Identifier{"trends"}, trendColumns, pgx.CopyFromRows(values))
	if err != nil {
		return fmt.Errorf("copy trends: %w", err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copy trends: wrote %d of %d rows", n, len(rows))
	}
	return nil
}

func (ps *PostgresStorage) RecentTrends(ctx context.Context, category string, limit int) ([]TrendRow, error) {
	pgRows, err := ps.pool.Query(ctx, recentTrendsSQL, category, limit)
	if err != nil {
		return nil, fmt.Errorf("query trends: %w", err)
	}
	defer pgRows.Close()

	var rows []TrendRow
	for pgRows.Next() {
		var row TrendRow
		if err := pgRows.Scan(&row.Category, &row.Keyword, &row.Source, &row.Rank, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trend row: %w", err)
		}
		row.CreatedAt = row.CreatedAt.UTC()
		rows = append(rows, row)
	}
	return rows, pgRows.Err()
}

func (ps *PostgresStorage) UpsertAnalysis(ctx context.Context, row AnalysisRow) error {
	if _, err := ps.pool.Exec(ctx, upsertAnalysisSQL, row.Keyword, row.Reason, row.UpdatedAt.UTC()); err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}
	return nil
}

func (ps *PostgresStorage) FindAnalysis(ctx context.Context, keyword string) (*AnalysisRow, error) {
	var row AnalysisRow
	err := ps.pool.QueryRow(ctx, findAnalysisSQL, keyword).Scan(&row.Keyword, &row.Reason, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find analysis: %w", err)
	}
	row.UpdatedAt = row.UpdatedAt.UTC()
	return &row, nil
}

func (ps *PostgresStorage) Close() error {
	ps.pool.Close()
	return nil
}
