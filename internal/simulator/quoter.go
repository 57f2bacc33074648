package simulator

import (
	"context"
	"fmt"

	"github.com/your-org/sol-arb-bot/internal/evaluator"
)

// MarketQuoter quotes hops against the in-memory market cache: the input
// is converted through the pool's mid price in the hop's direction, with
// the pool fee deducted first. Good enough for ranking paths; the
// execution modes do the real check.
type MarketQuoter struct {
	pools evaluator.PoolLookup
}

// NewMarketQuoter creates a quoter over the given pool lookup.
func NewMarketQuoter(pools evaluator.PoolLookup) *MarketQuoter {
	return &MarketQuoter{pools: pools}
}

func (q *MarketQuoter) Quote(_ context.Context, hop evaluator.Hop, amountIn uint64) (uint64, error) {
	entry, ok := q.pools.Get(hop.PoolAddress)
	if !ok {
		return 0, fmt.Errorf("simulator: pool %s not in cache", hop.PoolAddress)
	}
	if entry.FeeBps >= 10_000 {
		return 0, fmt.Errorf("simulator: pool %s has invalid fee %d bps", hop.PoolAddress, entry.FeeBps)
	}
	if entry.Price <= 0 {
		return 0, fmt.Errorf("simulator: pool %s has no price", hop.PoolAddress)
	}

	net := float64(amountIn) * float64(10_000-entry.FeeBps) / 10_000
	if hop.Side == evaluator.SideBuy {
		return uint64(net / entry.Price), nil
	}
	return uint64(net * entry.Price), nil
}
