// Package market holds the in-memory view of on-chain liquidity pools.
package market

import (
	"context"
	"time"
)

// Venue identifies the DEX protocol a pool belongs to.
type Venue string

const (
	VenueOrca           Venue = "Orca"
	VenueOrcaWhirlpools Venue = "OrcaWhirlpools"
	VenueRaydium        Venue = "Raydium"
	VenueRaydiumClmm    Venue = "RaydiumClmm"
	VenueMeteora        Venue = "Meteora"
)

// MarketEntry is a point-in-time snapshot of a single pool. Entries are
// treated as immutable values; the cache copies them on read and write.
type MarketEntry struct {
	PoolAddress string
	Venue       Venue
	Pair        PairID
	BaseMint    string
	QuoteMint   string
	// BaseVault and QuoteVault are the pool's token vault accounts.
	BaseVault  string
	QuoteVault string
	// Price is the quote-per-base mid price.
	Price float64
	// LiquidityUSD is the pool's total value locked in USD. Zero means
	// unknown, not empty.
	LiquidityUSD float64
	FeeBps       uint64
	UpdatedSlot  uint64
	UpdatedAt    time.Time
	// RawAccount is the venue-specific account payload, kept for quoting
	// collaborators that need fields the normalized entry does not carry.
	RawAccount []byte
}

// PoolDataProvider supplies pool snapshots from an external source
// (on-chain account fetcher, venue API, or a replay file).
type PoolDataProvider interface {
	// LoadAll returns a snapshot of every tracked pool.
	LoadAll(ctx context.Context) ([]MarketEntry, error)
	// Refresh returns fresh entries for the given pool addresses.
	Refresh(ctx context.Context, poolAddresses []string) ([]MarketEntry, error)
}
