package storage

import (
	"container/list"
	"sync"
	"time"

	"trend-go/pkg/model"
)

// CacheEntry is the coordinator's view of one category key.
type CacheEntry struct {
	Value           *model.TrendBatch
	ExpiresAt       time.Time
	RefreshInFlight bool
}

type cacheItem struct {
	key     string
	entry   CacheEntry
	element *list.Element
}

// EntryCache is an LRU of CacheEntry keyed by category. It remembers the
// newest batch seen per key so reads never go back in time, and it owns the
// refresh-in-flight flags. Entries with a refresh in flight are never evicted.
type EntryCache struct {
	maxSize int
	ttl     time.Duration
	items   map[string]*cacheItem
	lruList *list.List
	mu      sync.Mutex
}

// NewEntryCache creates a cache holding at most maxSize keys. ttl is the
// staleness threshold used to compute ExpiresAt.
func NewEntryCache(maxSize int, ttl time.Duration) *EntryCache {
	if maxSize <= 0 {
		maxSize = 64
	}
	return &EntryCache{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*cacheItem),
		lruList: list.New(),
	}
}

// Observe records batch as read from the store and returns the batch the
// caller should serve: the newer of batch and the one already held. A nil
// batch returns whatever is held.
func (ec *EntryCache) Observe(key string, batch *model.TrendBatch) *model.TrendBatch {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	item := ec.touch(key)
	held := item.entry.Value
	if batch.Empty() {
		return held
	}
	if !held.Empty() && held.CreatedAt.After(batch.CreatedAt) {
		return held
	}

	item.entry.Value = batch
	item.entry.ExpiresAt = batch.CreatedAt.Add(ec.ttl)
	return batch
}

// TryBeginRefresh marks every key that has no refresh in flight and returns
// those keys. Check and set happen under one lock.
func (ec *EntryCache) TryBeginRefresh(keys ...string) []string {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	claimed := make([]string, 0, len(keys))
	for _, key := range keys {
		item := ec.touch(key)
		if item.entry.RefreshInFlight {
			continue
		}
		item.entry.RefreshInFlight = true
		claimed = append(claimed, key)
	}
	return claimed
}

// EndRefresh clears the in-flight flag of keys.
func (ec *EntryCache) EndRefresh(keys ...string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	for _, key := range keys {
		if item, exists := ec.items[key]; exists {
			item.entry.RefreshInFlight = false
		}
	}
	ec.evict()
}

// InFlight reports whether key has a refresh in flight.
func (ec *EntryCache) InFlight(key string) bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	item, exists := ec.items[key]
	return exists && item.entry.RefreshInFlight
}

// Get returns a copy of the entry for key.
func (ec *EntryCache) Get(key string) (CacheEntry, bool) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	item, exists := ec.items[key]
	if !exists {
		return CacheEntry{}, false
	}
	ec.lruList.MoveToFront(item.element)
	return item.entry, true
}

// Size returns the current number of keys in the cache
func (ec *EntryCache) Size() int {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return len(ec.items)
}

// Clear drops every entry, including in-flight flags.
func (ec *EntryCache) Clear() {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	ec.items = make(map[string]*cacheItem)
	ec.lruList = list.New()
}

// touch returns the item for key, creating it at the front. Caller holds mu.
func (ec *EntryCache) touch(key string) *cacheItem {
	if item, exists := ec.items[key]; exists {
		ec.lruList.MoveToFront(item.element)
		return item
	}

	item := &cacheItem{key: key}
	item.element = ec.lruList.PushFront(item)
	ec.items[key] = item
	ec.evict()
	return item
}

// evict drops least recently used idle entries until the cache fits. The
// front entry is the one being touched and always stays.
func (ec *EntryCache) evict() {
	element := ec.lruList.Back()
	for len(ec.items) > ec.maxSize && element != nil && element != ec.lruList.Front() {
		prev := element.Prev()
		item := element.Value.(*cacheItem)
		if !item.entry.RefreshInFlight {
			delete(ec.items, item.key)
			ec.lruList.Remove(element)
		}
		element = prev
	}
}
