package market

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/your-org/sol-arb-bot/pkg/logger"
)

// RefresherConfig controls the background refresh cadence.
type RefresherConfig struct {
	Interval time.Duration
	// RPS caps provider calls to avoid tripping upstream rate limits.
	RPS float64
}

// Refresher keeps a Cache populated from a PoolDataProvider. A failed
// iteration is logged and skipped; the cache keeps serving the previous
// snapshot.
type Refresher struct {
	cache    *Cache
	provider PoolDataProvider
	limiter  *rate.Limiter
	interval time.Duration
}

// NewRefresher creates a Refresher writing into cache.
func NewRefresher(cache *Cache, provider PoolDataProvider, cfg RefresherConfig) *Refresher {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 20
	}
	return &Refresher{
		cache:    cache,
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		interval: interval,
	}
}

// Start begins the periodic refresh loop. It blocks until ctx is done,
// so callers run it in its own goroutine.
func (r *Refresher) Start(ctx context.Context) {
	// Prime the cache before the first tick.
	if err := r.refreshAll(ctx); err != nil && ctx.Err() == nil {
		logger.Warnf("Initial market load failed: %v", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Market refresher stopped.")
			return
		case <-ticker.C:
			if err := r.refreshAll(ctx); err != nil && ctx.Err() == nil {
				logger.Warnf("Market refresh failed: %v", err)
			}
		}
	}
}

func (r *Refresher) refreshAll(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	entries, err := r.provider.LoadAll(ctx)
	if err != nil {
		return err
	}
	r.cache.InsertBatch(entries)
	logger.Debugf("Market refresh completed: %d pools", len(entries))
	return nil
}

// RefreshPools fetches fresh data for specific pools, bypassing the
// periodic cycle. Used right before execution to narrow the staleness
// window.
func (r *Refresher) RefreshPools(ctx context.Context, poolAddresses []string) error {
	if len(poolAddresses) == 0 {
		return nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	entries, err := r.provider.Refresh(ctx, poolAddresses)
	if err != nil {
		return err
	}
	r.cache.InsertBatch(entries)
	return nil
}
