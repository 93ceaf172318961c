package analysis

import (
	"errors"
	"testing"

	"trend-go/pkg/model"
)

func TestGrounding(t *testing.T) {
	points := []model.TimeSeriesPoint{
		{Date: "2024-01-01", Ratio: 12.5},
		{Date: "2024-06-01", Ratio: 100},
		{Date: "2024-07-01", Ratio: 100},
		{Date: "2024-12-31", Ratio: 40.25},
	}

	want := "네이버 검색량 추이 (1년): 2024-01-01~2024-12-31. 최고점: 2024-06-01 (100.0). 최근: 2024-12-31 (40.25)."
	if got := Grounding(points, nil); got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestGrounding_EmptyAndFailed(t *testing.T) {
	if got := Grounding(nil, nil); got != groundingEmpty {
		t.Errorf("expected empty text, got %q", got)
	}
	if got := Grounding(nil, errors.New("timeout")); got != groundingFailed {
		t.Errorf("expected failure text, got %q", got)
	}
}
