package storage

import (
	"container/list"
	"context"
	"sync"

	"github.com/hyperjump/naan/pkg/models"
)

// CachedStore wraps a MetadataStore with an LRU cache for Get. Rows are immutable once
// inserted, so cached entries never go stale.
type CachedStore struct {
	MetadataStore

	capacity int
	cache    map[cacheKey]*list.Element
	lru      *list.List
	mu       sync.Mutex

	hits, misses int64
}

type cacheKey struct {
	ordinal       int64
	withEmbedding bool
}

type cacheEntry struct {
	key   cacheKey
	value *models.Row
}

// NewCachedStore returns store wrapped with a cache of the given capacity. A capacity of
// zero or less disables caching and returns a pass-through wrapper.
func NewCachedStore(store MetadataStore, capacity int) *CachedStore {
	return &CachedStore{
		MetadataStore: store,
		capacity:      capacity,
		cache:         make(map[cacheKey]*list.Element),
		lru:           list.New(),
	}
}

// Get returns the cached row for ordinal if present, otherwise loads and caches it.
// Callers must not modify the returned row.
func (c *CachedStore) Get(ctx context.Context, ordinal int64, withEmbedding bool) (*models.Row, error) {
	key := cacheKey{ordinal: ordinal, withEmbedding: withEmbedding}
	if row, ok := c.lookup(key); ok {
		return row, nil
	}
	row, err := c.MetadataStore.Get(ctx, ordinal, withEmbedding)
	if err != nil {
		return nil, err
	}
	c.set(key, row)
	return row, nil
}

func (c *CachedStore) lookup(key cacheKey) (*models.Row, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		c.hits++
		return elem.Value.(*cacheEntry).value, true
	}
	c.misses++
	return nil, false
}

func (c *CachedStore) set(key cacheKey, value *models.Row) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	entry := &cacheEntry{key: key, value: value}
	elem := c.lru.PushFront(entry)
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached rows.
func (c *CachedStore) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// HitRate returns cache hits and misses since creation.
func (c *CachedStore) HitRate() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
