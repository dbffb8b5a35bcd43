package api

import (
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/lungcheck/internal/diagnosis"
)

// HistoryCache keeps recent history responses for a short TTL. A nil *HistoryCache
// is valid and caches nothing.
//
// Every Invalidate advances a generation. A response read from the store is only
// stored if no invalidation happened since the caller sampled Generation, so a
// query that raced an append cannot repopulate the cache with the older page.
type HistoryCache struct {
	cache *cache.Cache

	mu         sync.Mutex
	generation uint64
}

// NewHistoryCache returns a cache with the given TTL, or nil when ttl is not positive.
func NewHistoryCache(ttl time.Duration) *HistoryCache {
	if ttl <= 0 {
		return nil
	}
	return &HistoryCache{cache: cache.New(ttl, 2*ttl)}
}

func historyKey(limit int) string {
	return "history:" + strconv.Itoa(limit)
}

// Get returns the cached entries for limit.
func (h *HistoryCache) Get(limit int) ([]diagnosis.DTO, bool) {
	if h == nil {
		return nil, false
	}
	v, ok := h.cache.Get(historyKey(limit))
	if !ok {
		return nil, false
	}
	entries, ok := v.([]diagnosis.DTO)
	return entries, ok
}

// Generation returns the current invalidation generation. Sample it before
// querying the store and hand it to Set.
func (h *HistoryCache) Generation() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.generation
}

// Set stores entries for limit with the default TTL if the cache has not been
// invalidated since generation was sampled. It reports whether it stored.
func (h *HistoryCache) Set(limit int, entries []diagnosis.DTO, generation uint64) bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if generation != h.generation {
		return false
	}
	h.cache.SetDefault(historyKey(limit), entries)
	return true
}

// Invalidate drops every cached response. Its signature matches diagnosis.OnAppend.
func (h *HistoryCache) Invalidate(diagnosis.DTO) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.generation++
	h.cache.Flush()
}

// Len returns the number of cached responses.
func (h *HistoryCache) Len() int {
	if h == nil {
		return 0
	}
	return h.cache.ItemCount()
}
