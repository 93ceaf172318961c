package service

import (
	"context"

	"trend-go/pkg/analysis"
	"trend-go/pkg/model"
	"trend-go/pkg/trend"
)

// PlaceholderReason is shown on list items until the keyword is analysed.
const PlaceholderReason = "AI 분석을 위해 클릭하세요"

// DefaultPeriod is used when no period is requested.
const DefaultPeriod = "1mo"

var periodDays = map[string]int{
	"1mo":  30,
	"30d":  30,
	"1yr":  365,
	"365d": 365,
}

// Reader answers category reads.
type Reader interface {
	Read(ctx context.Context, category string) trend.Result
	TriggerRefresh(origin string) bool
}

// Analyzer explains keywords and serves search volume.
type Analyzer interface {
	Analyze(ctx context.Context, keyword string) analysis.Result
	Series(ctx context.Context, keyword string, days int) []model.TimeSeriesPoint
}

type trendService struct {
	reader   Reader
	analyzer Analyzer
}

func NewTrendService(reader Reader, analyzer Analyzer) TrendService {
	return &trendService{reader: reader, analyzer: analyzer}
}

func (s *trendService) GetTrends(ctx context.Context, category string) TrendsResponse {
	if category == "" {
		category = model.CategoryAll
	}
	result := s.reader.Read(ctx, category)

	var items []model.TrendItem
	if result.Batch != nil {
		items = result.Batch.Items
	}
	views := make([]TrendView, 0, len(items))
	for _, item := range items {
		views = append(views, TrendView{
			Rank:     item.Rank,
			Keyword:  item.Keyword,
			Reason:   PlaceholderReason,
			Source:   item.Source,
			Category: category,
		})
	}

	return TrendsResponse{
		Category:    category,
		State:       string(result.State),
		LastUpdated: result.LastUpdated(),
		Trends:      views,
	}
}

func (s *trendService) GetAnalysis(ctx context.Context, keyword string) analysis.Result {
	return s.analyzer.Analyze(ctx, keyword)
}

// GetTimeSeries maps 1yr and 365d to a yearly window; anything else is the
// 30 day window.
func (s *trendService) GetTimeSeries(ctx context.Context, keyword, period string) TimeSeriesResponse {
	if period == "" {
		period = DefaultPeriod
	}
	days, ok := periodDays[period]
	if !ok {
		days = periodDays[DefaultPeriod]
	}

	return TimeSeriesResponse{
		Keyword:   keyword,
		Period:    period,
		ChartData: s.analyzer.Series(ctx, keyword, days),
	}
}

func (s *trendService) TriggerRefresh(_ context.Context) RefreshResponse {
	if s.reader.TriggerRefresh(trend.OriginManual) {
		return RefreshResponse{Status: "accepted", Dispatched: true}
	}
	return RefreshResponse{Status: "skipped", Dispatched: false}
}
