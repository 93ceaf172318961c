package storage

import (
	"sync"
	"testing"
	"time"

	"trend-go/pkg/model"
)

func batchAt(category string, at time.Time, keywords ...string) *model.TrendBatch {
	b := &model.TrendBatch{Category: category, CreatedAt: at}
	for i, kw := range keywords {
		b.Items = append(b.Items, model.TrendItem{Keyword: kw, Source: model.SourceNaverShopping, Rank: i + 1})
	}
	return b
}

func TestEntryCache_ObserveIsMonotonic(t *testing.T) {
	cache := NewEntryCache(8, time.Hour)
	base := time.Date(2024, 11, 20, 9, 0, 0, 0, time.UTC)

	newer := batchAt("Food", base.Add(time.Hour), "new")
	older := batchAt("Food", base, "old")

	if got := cache.Observe("Food", newer); got != newer {
		t.Fatalf("expected first observation to be served")
	}
	if got := cache.Observe("Food", older); got != newer {
		t.Errorf("an older batch must not replace a newer one, got %+v", got)
	}
	if got := cache.Observe("Food", nil); got != newer {
		t.Errorf("an empty read should serve the held batch, got %+v", got)
	}

	entry, ok := cache.Get("Food")
	if !ok {
		t.Fatal("expected entry")
	}
	if !entry.ExpiresAt.Equal(newer.CreatedAt.Add(time.Hour)) {
		t.Errorf("unexpected expiry %v", entry.ExpiresAt)
	}
}

func TestEntryCache_RefreshGuard(t *testing.T) {
	cache := NewEntryCache(8, time.Hour)

	claimed := cache.TryBeginRefresh("Food")
	if len(claimed) != 1 || !cache.InFlight("Food") {
		t.Fatalf("expected Food to be claimed, got %v", claimed)
	}
	if again := cache.TryBeginRefresh("Food"); len(again) != 0 {
		t.Errorf("second claim must be a no-op, got %v", again)
	}

	// a full claim only takes the free keys
	all := cache.TryBeginRefresh(model.RefreshKeys()...)
	if len(all) != len(model.RefreshKeys())-1 {
		t.Errorf("expected every key but Food, got %v", all)
	}
	for _, key := range all {
		if key == "Food" {
			t.Error("Food was claimed twice")
		}
	}

	cache.EndRefresh("Food")
	if cache.InFlight("Food") {
		t.Error("expected Food to be released")
	}
	if claimed := cache.TryBeginRefresh("Food"); len(claimed) != 1 {
		t.Error("expected Food to be claimable after release")
	}
}

func TestEntryCache_ConcurrentClaims(t *testing.T) {
	cache := NewEntryCache(8, time.Hour)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if len(cache.TryBeginRefresh("Digital")) == 1 {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d", wins)
	}
}

func TestEntryCache_EvictionKeepsInFlight(t *testing.T) {
	cache := NewEntryCache(2, time.Hour)

	cache.TryBeginRefresh("a")
	cache.Observe("b", nil)
	cache.Observe("c", nil)

	if !cache.InFlight("a") {
		t.Error("in-flight entry must survive eviction")
	}
	if _, ok := cache.Get("b"); ok {
		t.Error("expected least recently used idle entry to be evicted")
	}
	if cache.Size() != 2 {
		t.Errorf("expected size 2, got %d", cache.Size())
	}

	cache.Clear()
	if cache.Size() != 0 || cache.InFlight("a") {
		t.Error("expected empty cache after Clear")
	}
}
