package service

import (
	"context"
	"testing"
	"time"

	"trend-go/pkg/analysis"
	"trend-go/pkg/model"
	"trend-go/pkg/source"
	"trend-go/pkg/trend"
)

type fakeReader struct {
	result    trend.Result
	category  string
	triggered []string
	dispatch  bool
}

func (r *fakeReader) Read(_ context.Context, category string) trend.Result {
	r.category = category
	result := r.result
	result.Category = category
	return result
}

func (r *fakeReader) TriggerRefresh(origin string) bool {
	r.triggered = append(r.triggered, origin)
	return r.dispatch
}

type fakeAnalyzer struct {
	days []int
}

func (a *fakeAnalyzer) Analyze(_ context.Context, keyword string) analysis.Result {
	return analysis.Result{Keyword: keyword, Reason: "reason", ChartData: []model.TimeSeriesPoint{}}
}

func (a *fakeAnalyzer) Series(_ context.Context, _ string, days int) []model.TimeSeriesPoint {
	a.days = append(a.days, days)
	return []model.TimeSeriesPoint{{Date: "2024-11-20", Ratio: 1}}
}

func TestGetTrends_Fresh(t *testing.T) {
	created := time.Date(2024, 11, 20, 9, 0, 0, 0, time.UTC)
	reader := &fakeReader{result: trend.Result{
		State: trend.StateFresh,
		Batch: &model.TrendBatch{
			Category: "Food",
			Items: []model.TrendItem{
				{Keyword: "A", Source: model.SourceNaverShopping, Rank: 1},
				{Keyword: "B", Source: model.SourceYouTube, Rank: 2},
			},
			CreatedAt: created,
		},
	}}
	svc := NewTrendService(reader, &fakeAnalyzer{})

	resp := svc.GetTrends(context.Background(), "Food")
	if resp.Category != "Food" || resp.State != "fresh" {
		t.Errorf("unexpected header %+v", resp)
	}
	if resp.LastUpdated == nil || !resp.LastUpdated.Equal(created) {
		t.Errorf("unexpected last updated %v", resp.LastUpdated)
	}
	if len(resp.Trends) != 2 {
		t.Fatalf("expected 2 trends, got %d", len(resp.Trends))
	}
	second := resp.Trends[1]
	if second.Rank != 2 || second.Keyword != "B" || second.Source != model.SourceYouTube {
		t.Errorf("unexpected item %+v", second)
	}
	if second.Reason != PlaceholderReason || second.Category != "Food" {
		t.Errorf("unexpected placeholder fields %+v", second)
	}
}

func TestGetTrends_SyntheticDefaultCategory(t *testing.T) {
	reader := &fakeReader{result: trend.Result{
		State: trend.StateSynthetic,
		Batch: source.FallbackBatch(model.CategoryAll),
	}}
	svc := NewTrendService(reader, &fakeAnalyzer{})

	resp := svc.GetTrends(context.Background(), "")
	if reader.category != model.CategoryAll || resp.Category != model.CategoryAll {
		t.Errorf("expected the default category, got %q", resp.Category)
	}
	if resp.LastUpdated != nil {
		t.Error("synthetic answers carry no timestamp")
	}
	for _, item := range resp.Trends {
		if item.Source != model.SourceSynthetic {
			t.Errorf("unexpected source %q", item.Source)
		}
	}
}

func TestGetTimeSeries_Periods(t *testing.T) {
	tests := []struct {
		period     string
		wantPeriod string
		wantDays   int
	}{
		{"1mo", "1mo", 30},
		{"30d", "30d", 30},
		{"1yr", "1yr", 365},
		{"365d", "365d", 365},
		{"", DefaultPeriod, 30},
		{"weird", "weird", 30},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			analyzer := &fakeAnalyzer{}
			svc := NewTrendService(&fakeReader{}, analyzer)

			resp := svc.GetTimeSeries(context.Background(), "롱패딩", tt.period)
			if resp.Period != tt.wantPeriod {
				t.Errorf("expected period %q, got %q", tt.wantPeriod, resp.Period)
			}
			if len(analyzer.days) != 1 || analyzer.days[0] != tt.wantDays {
				t.Errorf("expected %d days, got %v", tt.wantDays, analyzer.days)
			}
			if resp.Keyword != "롱패딩" || len(resp.ChartData) != 1 {
				t.Errorf("unexpected response %+v", resp)
			}
		})
	}
}

func TestTriggerRefresh(t *testing.T) {
	reader := &fakeReader{dispatch: true}
	svc := NewTrendService(reader, &fakeAnalyzer{})

	if resp := svc.TriggerRefresh(context.Background()); !resp.Dispatched || resp.Status != "accepted" {
		t.Errorf("unexpected response %+v", resp)
	}
	reader.dispatch = false
	if resp := svc.TriggerRefresh(context.Background()); resp.Dispatched || resp.Status != "skipped" {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(reader.triggered) != 2 || reader.triggered[0] != trend.OriginManual {
		t.Errorf("unexpected origins %v", reader.triggered)
	}
}
