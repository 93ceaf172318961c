package source

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"trend-go/pkg/model"
)

type fakeSource struct {
	name  model.Source
	items []model.ScrapedItem
	err   error
	delay time.Duration
	calls int32
	panic bool
}

func (f *fakeSource) Name() model.Source { return f.name }

func (f *fakeSource) Fetch(ctx context.Context, _ string) ([]model.ScrapedItem, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.panic {
		panic("selector exploded")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.items, f.err
}

func scraped(category string, keywords ...string) []model.ScrapedItem {
	items := make([]model.ScrapedItem, 0, len(keywords))
	for _, kw := range keywords {
		items = append(items, model.ScrapedItem{Keyword: kw, Category: category})
	}
	return items
}

func keywordsOf(items []model.CollectedItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Keyword)
	}
	return out
}

func TestAggregator_CategoryFilter(t *testing.T) {
	naver := &fakeSource{
		name:  model.SourceNaverShopping,
		items: append(scraped("Food", "마라탕", "탕후루"), scraped("Digital", "맥북 프로")...),
	}
	youtube := &fakeSource{name: model.SourceYouTube, items: scraped(CategoryGeneral, "뮤직비디오")}
	agg := NewAggregator([]Source{naver, youtube}, 10, time.Second)

	food := agg.Collect(context.Background(), "Food")
	if got := keywordsOf(food); !reflect.DeepEqual(got, []string{"마라탕", "탕후루"}) {
		t.Errorf("Food: unexpected keywords %v", got)
	}
	for _, item := range food {
		if item.Source != model.SourceNaverShopping {
			t.Errorf("Food: unexpected source %q", item.Source)
		}
	}

	all := agg.Collect(context.Background(), model.CategoryAll)
	if got := keywordsOf(all); !reflect.DeepEqual(got, []string{"마라탕", "탕후루", "맥북 프로", "뮤직비디오"}) {
		t.Errorf("all: unexpected keywords %v", got)
	}
}

func TestAggregator_ConcatenatesDuplicates(t *testing.T) {
	a := &fakeSource{name: model.SourceNaverShopping, items: scraped("Food", "두바이 초콜릿")}
	b := &fakeSource{name: model.SourceGoogleTrends, items: scraped("Food", "두바이 초콜릿")}
	agg := NewAggregator([]Source{a, b}, 10, time.Second)

	items := agg.Collect(context.Background(), "Food")
	if len(items) != 2 {
		t.Fatalf("expected duplicates to coexist, got %+v", items)
	}
	if items[0].Source == items[1].Source {
		t.Error("expected one item per source")
	}
}

func TestAggregator_PerSourceCap(t *testing.T) {
	naver := &fakeSource{
		name:  model.SourceNaverShopping,
		items: append(scraped("Food", "a", "b", "c"), scraped("Living", "d", "e", "f")...),
	}
	agg := NewAggregator([]Source{naver}, 2, time.Second)

	if got := keywordsOf(agg.Collect(context.Background(), "Food")); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Food: expected cap of 2, got %v", got)
	}
	if got := keywordsOf(agg.Collect(context.Background(), model.CategoryAll)); !reflect.DeepEqual(got, []string{"a", "b", "d", "e"}) {
		t.Errorf("all: expected cap per reported category, got %v", got)
	}
}

func TestAggregator_IsolatesFailures(t *testing.T) {
	broken := &fakeSource{name: model.SourceYouTube, err: errors.New("selector timeout")}
	panicky := &fakeSource{name: model.SourceGoogleTrends, panic: true}
	slow := &fakeSource{name: "Slow", items: scraped("Food", "late"), delay: time.Second}
	good := &fakeSource{name: model.SourceNaverShopping, items: scraped("Food", "샤인머스캣")}
	agg := NewAggregator([]Source{broken, panicky, slow, good}, 10, 50*time.Millisecond)

	items := agg.Collect(context.Background(), "Food")
	if got := keywordsOf(items); !reflect.DeepEqual(got, []string{"샤인머스캣"}) {
		t.Errorf("expected only the healthy source, got %v", got)
	}
}

func TestAggregator_FallbackWhenEmpty(t *testing.T) {
	a := &fakeSource{name: model.SourceNaverShopping, err: errors.New("blocked")}
	b := &fakeSource{name: model.SourceYouTube, err: errors.New("blocked")}
	agg := NewAggregator([]Source{a, b}, 10, time.Second)

	items := agg.Collect(context.Background(), "Digital")
	if got := keywordsOf(items); !reflect.DeepEqual(got, FallbackKeywords("Digital")) {
		t.Errorf("expected Digital fallback, got %v", got)
	}
	for _, item := range items {
		if item.Source != model.SourceSynthetic {
			t.Errorf("fallback item not tagged Synthetic: %+v", item)
		}
	}

	// sources answering only for other categories still count as empty
	other := &fakeSource{name: model.SourceNaverShopping, items: scraped("Food", "마라탕")}
	agg = NewAggregator([]Source{other}, 10, time.Second)
	if items := agg.Collect(context.Background(), "Living"); items[0].Source != model.SourceSynthetic {
		t.Errorf("expected Living fallback, got %+v", items)
	}
}

func TestAggregator_CollectCycleFetchesOnce(t *testing.T) {
	naver := &fakeSource{
		name:  model.SourceNaverShopping,
		items: append(scraped("Fashion", "롱부츠"), scraped("Food", "마라탕")...),
	}
	youtube := &fakeSource{name: model.SourceYouTube, items: scraped(CategoryGeneral, "뮤직비디오")}
	agg := NewAggregator([]Source{naver, youtube}, 10, time.Second)

	cycle := agg.CollectCycle(context.Background(), model.RefreshKeys())

	if naver.calls != 1 || youtube.calls != 1 {
		t.Errorf("expected one fetch per source, got %d and %d", naver.calls, youtube.calls)
	}
	if len(cycle) != len(model.RefreshKeys()) {
		t.Fatalf("expected every key, got %d", len(cycle))
	}
	if got := keywordsOf(cycle["Fashion"]); !reflect.DeepEqual(got, []string{"롱부츠"}) {
		t.Errorf("Fashion: unexpected %v", got)
	}
	if cycle["Digital"][0].Source != model.SourceSynthetic {
		t.Errorf("Digital: expected fallback, got %+v", cycle["Digital"])
	}
	if got := len(cycle[model.CategoryAll]); got != 3 {
		t.Errorf("all: expected 3 items, got %d", got)
	}
}
