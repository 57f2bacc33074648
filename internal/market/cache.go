package market

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

const shardCount = 32

// CacheStats is a snapshot of the cache's access counters.
type CacheStats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Writes  uint64 `json:"writes"`
	Entries int    `json:"entries"`
}

type cacheShard struct {
	mu      sync.RWMutex
	entries map[string]MarketEntry
}

// Cache is a sharded concurrent store of MarketEntry keyed by pool address.
// Reads and writes on different shards never contend; an entry is always
// observed whole, never as a partial update.
type Cache struct {
	shards [shardCount]*cacheShard

	hits   atomic.Uint64
	misses atomic.Uint64
	writes atomic.Uint64
}

// NewCache creates an empty market cache.
func NewCache() *Cache {
	c := &Cache{}
	for i := range c.shards {
		c.shards[i] = &cacheShard{entries: make(map[string]MarketEntry)}
	}
	return c
}

func (c *Cache) shardFor(poolAddress string) *cacheShard {
	h := fnv.New32a()
	h.Write([]byte(poolAddress))
	return c.shards[h.Sum32()%shardCount]
}

// Insert stores or replaces the entry for its pool address.
func (c *Cache) Insert(entry MarketEntry) {
	s := c.shardFor(entry.PoolAddress)
	s.mu.Lock()
	s.entries[entry.PoolAddress] = entry
	s.mu.Unlock()
	c.writes.Add(1)
}

// InsertBatch stores a slice of entries, grouping the lock acquisitions
// per shard.
func (c *Cache) InsertBatch(entries []MarketEntry) {
	for i := range entries {
		c.Insert(entries[i])
	}
}

// Get returns a copy of the entry for the pool address, if present.
func (c *Cache) Get(poolAddress string) (MarketEntry, bool) {
	s := c.shardFor(poolAddress)
	s.mu.RLock()
	entry, ok := s.entries[poolAddress]
	s.mu.RUnlock()
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return entry, ok
}

// Snapshot returns a copy of every entry currently in the cache. The
// result is consistent per shard, not across shards.
func (c *Cache) Snapshot() []MarketEntry {
	out := make([]MarketEntry, 0, c.Len())
	for _, s := range c.shards {
		s.mu.RLock()
		for _, entry := range s.entries {
			out = append(out, entry)
		}
		s.mu.RUnlock()
	}
	return out
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// Stats returns the current counter values.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Writes:  c.writes.Load(),
		Entries: c.Len(),
	}
}

// ResetStats zeroes the hit, miss and write counters.
func (c *Cache) ResetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.writes.Store(0)
}
