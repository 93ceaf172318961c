package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type trendRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Category  string    `gorm:"not null;index:idx_trends_category_created,priority:1"`
	Keyword   string    `gorm:"not null"`
	Source    string    `gorm:"not null"`
	Rank      int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false;index:idx_trends_category_created,priority:2"`
}

func (trendRecord) TableName() string { return "trends" }

type analysisRecord struct {
	Keyword   string    `gorm:"primaryKey"`
	Reason    string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:false"`
}

func (analysisRecord) TableName() string { return "trend_analysis" }

// GormStorage is a RowStore on SQLite through gorm.
type GormStorage struct {
	db *gorm.DB
}

// OpenSQLite opens (and migrates) the SQLite database at dsn. The parent
// directory of a file DSN is created when missing.
func OpenSQLite(dsn string) (*GormStorage, error) {
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	// one writer keeps SQLite away from "database is locked"
	sqlDB.SetMaxOpenConns(1)

	return NewGormStorage(db)
}

// NewGormStorage migrates the schema on an already opened gorm handle.
func NewGormStorage(db *gorm.DB) (*GormStorage, error) {
	if err := db.AutoMigrate(&trendRecord{}, &analysisRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &GormStorage{db: db}, nil
}

func (gs *GormStorage) AppendTrends(ctx context.Context, rows []TrendRow) error {
	if len(rows) == 0 {
		return nil
	}

	records := make([]trendRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, trendRecord{
			Category:  row.Category,
			Keyword:   row.Keyword,
			Source:    row.Source,
			Rank:      row.Rank,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}

	return gs.db.WithContext(ctx).Create(&records).Error
}

func (gs *GormStorage) RecentTrends(ctx context.Context, category string, limit int) ([]TrendRow, error) {
	var records []trendRecord
	err := gs.db.WithContext(ctx).
		Where("category = ?", category).
		Order("created_at DESC").
		Order("rank ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	rows := make([]TrendRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, TrendRow{
			Category:  r.Category,
			Keyword:   r.Keyword,
			Source:    r.Source,
			Rank:      r.Rank,
			CreatedAt: r.CreatedAt.UTC(),
		})
	}
	return rows, nil
}

func (gs *GormStorage) UpsertAnalysis(ctx context.Context, row AnalysisRow) error {
	record := analysisRecord{
		Keyword:   row.Keyword,
		Reason:    row.Reason,
		UpdatedAt: row.UpdatedAt.UTC(),
	}

	return gs.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "keyword"}},
		DoUpdates: clause.AssignmentColumns([]string{"reason", "updated_at"}),
	}).Create(&record).Error
}

func (gs *GormStorage) FindAnalysis(ctx context.Context, keyword string) (*AnalysisRow, error) {
	var record analysisRecord
	err := gs.db.WithContext(ctx).Where("keyword = ?", keyword).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &AnalysisRow{
		Keyword:   record.Keyword,
		Reason:    record.Reason,
		UpdatedAt: record.UpdatedAt.UTC(),
	}, nil
}

func (gs *GormStorage) Close() error {
	sqlDB, err := gs.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
