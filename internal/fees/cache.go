package fees

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/your-org/sol-arb-bot/pkg/logger"
)

// FeeSampler returns recent per-slot prioritization fees, in
// micro-lamports per compute unit.
type FeeSampler interface {
	RecentPrioritizationFees(ctx context.Context) ([]uint64, error)
}

// Cache memoizes fee percentiles with a TTL. A failed refresh serves the
// previous value; an empty cache serves the conservative default.
type Cache struct {
	sampler FeeSampler
	ttl     time.Duration

	mu   sync.Mutex
	data CachedFeeData
	ok   bool
}

// NewCache creates a fee cache over sampler.
func NewCache(sampler FeeSampler, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &Cache{sampler: sampler, ttl: ttl}
}

// Get returns the current fee data, refreshing when the cached value has
// expired.
func (c *Cache) Get(ctx context.Context) CachedFeeData {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ok && time.Since(c.data.FetchedAt) < c.ttl {
		return c.data
	}

	data, err := c.sample(ctx)
	if err != nil {
		if c.ok {
			logger.Warnf("Fee refresh failed, serving stale data: %v", err)
			return c.data
		}
		logger.Warnf("Fee refresh failed with empty cache, serving defaults: %v", err)
		return defaultFeeData()
	}
	c.data = data
	c.ok = true
	return c.data
}

// StartRefreshing refreshes the cache in the background at the TTL
// cadence so foreground callers rarely pay the sampling latency.
func (c *Cache) StartRefreshing(ctx context.Context) {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Get(ctx)
		}
	}
}

func (c *Cache) sample(ctx context.Context) (CachedFeeData, error) {
	fees, err := c.sampler.RecentPrioritizationFees(ctx)
	if err != nil {
		return CachedFeeData{}, err
	}
	if len(fees) == 0 {
		d := defaultFeeData()
		d.FetchedAt = time.Now()
		return d, nil
	}

	sorted := make([]uint64, len(fees))
	copy(sorted, fees)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return CachedFeeData{
		Base:      sorted[len(sorted)/2],
		P75:       percentile(sorted, 75),
		P90:       percentile(sorted, 90),
		P95:       percentile(sorted, 95),
		Max:       sorted[len(sorted)-1],
		FetchedAt: time.Now(),
	}, nil
}

// percentile picks the nearest-rank percentile from an ascending slice.
func percentile(sorted []uint64, pct int) uint64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct*len(sorted) + 99) / 100
	if idx > 0 {
		idx--
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
