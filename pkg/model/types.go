// Package model holds the value types shared by the store, the source
// adapters and the freshness layer.
package model

import "time"

// CategoryAll is the integrated view that accepts items from every source.
const CategoryAll = "all"

// Categories lists the named categories a full refresh cycle collects, in
// the order they are refreshed. CategoryAll is refreshed after them.
var Categories = []string{"Fashion", "Digital", "Food", "Living"}

// RefreshKeys returns every key a full refresh cycle writes.
func RefreshKeys() []string {
	keys := make([]string, 0, len(Categories)+1)
	keys = append(keys, Categories...)
	return append(keys, CategoryAll)
}

// Source identifies where a trend item came from.
type Source string

const (
	SourceNaverShopping Source = "Naver Shopping"
	SourceYouTube       Source = "YouTube"
	SourceGoogleTrends  Source = "Google Trends"
	SourceSynthetic     Source = "Synthetic"
)

// ScrapedItem is what a scraping source reports for one keyword.
type ScrapedItem struct {
	Keyword  string `json:"keyword"`
	Category string `json:"category"`
}

// CollectedItem is a scraped item after aggregation, tagged with its source.
type CollectedItem struct {
	Keyword  string `json:"keyword"`
	Source   Source `json:"source"`
	Category string `json:"category"`
}

// TrendItem is one ranked entry of a batch. Ranks start at 1.
type TrendItem struct {
	Keyword string `json:"keyword"`
	Source  Source `json:"source"`
	Rank    int    `json:"rank"`
}

// TrendBatch is the atomic result of one collection cycle for one category.
// CreatedAt is the batch identity: every item was written with it.
type TrendBatch struct {
	Category  string      `json:"category"`
	Items     []TrendItem `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
}

// Empty reports whether the batch carries no items.
func (b *TrendBatch) Empty() bool {
	return b == nil || len(b.Items) == 0
}

// AnalysisRecord is the cached explanation for one keyword.
type AnalysisRecord struct {
	Keyword   string    `json:"keyword"`
	Reason    string    `json:"reason"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TimeSeriesPoint is one day of relative search volume.
type TimeSeriesPoint struct {
	Date  string  `json:"date"`
	Ratio float64 `json:"ratio"`
}
