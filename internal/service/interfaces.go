package service

import (
	"context"
	"time"

	"trend-go/pkg/analysis"
	"trend-go/pkg/model"
)

// TrendService is what the HTTP surface needs. Every operation answers with
// a value; failures show up as synthetic, stale or degraded content.
type TrendService interface {
	GetTrends(ctx context.Context, category string) TrendsResponse
	GetAnalysis(ctx context.Context, keyword string) analysis.Result
	GetTimeSeries(ctx context.Context, keyword, period string) TimeSeriesResponse
	TriggerRefresh(ctx context.Context) RefreshResponse
}

type TrendView struct {
	Rank     int          `json:"rank"`
	Keyword  string       `json:"keyword"`
	Reason   string       `json:"reason"`
	Source   model.Source `json:"source"`
	Category string       `json:"category"`
}

type TrendsResponse struct {
	Category    string      `json:"category"`
	State       string      `json:"state"`
	LastUpdated *time.Time  `json:"last_updated"`
	Trends      []TrendView `json:"trends"`
}

type TimeSeriesResponse struct {
	Keyword   string                  `json:"keyword"`
	Period    string                  `json:"period"`
	ChartData []model.TimeSeriesPoint `json:"chart_data"`
}

type RefreshResponse struct {
	Status     string `json:"status"`
	Dispatched bool   `json:"dispatched"`
}
