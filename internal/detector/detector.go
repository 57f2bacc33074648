// Package detector scans the market cache for cross-venue price spreads
// worth executing.
package detector

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/your-org/sol-arb-bot/internal/market"
	"github.com/your-org/sol-arb-bot/pkg/logger"
)

// Opportunity is a single buy-low sell-high candidate across two venues.
type Opportunity struct {
	Pair      market.PairID
	BuyPool   string
	SellPool  string
	BuyVenue  market.Venue
	SellVenue market.Venue
	BuyPrice  float64
	SellPrice float64
	SpreadBps uint64
	SizeUSD   float64
	// NetProfitLamports is gross profit minus gas and tip, saturating
	// at zero.
	NetProfitLamports uint64
	DetectedAt        time.Time
}

// Config holds the detector thresholds.
type Config struct {
	MinSpreadBps     uint64
	MaxSlippageBps   uint64
	MinLiquidityUSD  float64
	MinNotionalUSD   float64
	BreakerThreshold uint32
	Deadline         time.Duration
	GasCostLamports  uint64
	TipLamports      uint64
	MaxOpportunities int
	// SolPriceUSD converts USD profit estimates into lamports.
	SolPriceUSD float64
}

// Detector runs detection cycles over market snapshots. A circuit
// breaker trips after consecutive failed cycles and stays open until
// Reset is called.
type Detector struct {
	cfg   Config
	sizer *PositionSizer

	consecutiveFailures atomic.Uint32
}

// New creates a Detector.
func New(cfg Config, sizer *PositionSizer) *Detector {
	if cfg.BreakerThreshold == 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = 50 * time.Millisecond
	}
	if cfg.MaxOpportunities <= 0 {
		cfg.MaxOpportunities = 20
	}
	if cfg.SolPriceUSD <= 0 {
		cfg.SolPriceUSD = 150
	}
	return &Detector{cfg: cfg, sizer: sizer}
}

// DetectCycle scans a market snapshot under the configured deadline.
// On timeout the in-flight scan is abandoned, not cancelled: it finishes
// into a buffered channel and the result is dropped.
func (d *Detector) DetectCycle(ctx context.Context, entries []market.MarketEntry) ([]Opportunity, error) {
	if d.consecutiveFailures.Load() >= d.cfg.BreakerThreshold {
		return nil, ErrCircuitOpen
	}

	resultCh := make(chan []Opportunity, 1)
	go func() {
		resultCh <- d.scan(entries)
	}()

	deadline := time.NewTimer(d.cfg.Deadline)
	defer deadline.Stop()

	select {
	case <-ctx.Done():
		d.RecordFailure()
		return nil, ctx.Err()
	case <-deadline.C:
		failures := d.RecordFailure()
		logger.Warnf("Detection cycle timed out after %s (%d consecutive failures)", d.cfg.Deadline, failures)
		return nil, &DetectionTimeoutError{Deadline: d.cfg.Deadline}
	case opps := <-resultCh:
		d.consecutiveFailures.Store(0)
		return opps, nil
	}
}

// RecordFailure bumps the breaker counter and returns the new value.
// Execution-side failures also feed this so a broken venue halts
// detection too.
func (d *Detector) RecordFailure() uint32 {
	return d.consecutiveFailures.Add(1)
}

// Reset closes the breaker.
func (d *Detector) Reset() {
	d.consecutiveFailures.Store(0)
	logger.Info("Detection circuit breaker reset.")
}

// BreakerOpen reports whether detection is currently held off.
func (d *Detector) BreakerOpen() bool {
	return d.consecutiveFailures.Load() >= d.cfg.BreakerThreshold
}

func (d *Detector) scan(entries []market.MarketEntry) []Opportunity {
	byPair := make(map[market.PairID][]market.MarketEntry)
	for _, e := range entries {
		if e.Price <= 0 || e.LiquidityUSD < d.cfg.MinLiquidityUSD {
			continue
		}
		byPair[e.Pair] = append(byPair[e.Pair], e)
	}

	now := time.Now()
	var out []Opportunity
	for pair, pools := range byPair {
		if len(pools) < 2 {
			continue
		}
		best, ok := d.bestForPair(pair, pools, now)
		if ok {
			out = append(out, best)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].NetProfitLamports > out[j].NetProfitLamports
	})
	if len(out) > d.cfg.MaxOpportunities {
		out = out[:d.cfg.MaxOpportunities]
	}
	return out
}

// bestForPair compares every venue pairing in both directions and keeps
// the single most profitable candidate.
func (d *Detector) bestForPair(pair market.PairID, pools []market.MarketEntry, now time.Time) (Opportunity, bool) {
	var best Opportunity
	found := false

	for i := 0; i < len(pools); i++ {
		for j := i + 1; j < len(pools); j++ {
			buy, sell := pools[i], pools[j]
			if buy.Price > sell.Price {
				buy, sell = sell, buy
			}
			if buy.Price == sell.Price {
				continue
			}

			spreadBps := uint64((sell.Price - buy.Price) / buy.Price * 10_000)
			if spreadBps < d.cfg.MinSpreadBps {
				continue
			}

			liquidity := buy.LiquidityUSD
			if sell.LiquidityUSD < liquidity {
				liquidity = sell.LiquidityUSD
			}
			size := d.sizer.Size(liquidity)
			if size <= 0 || size < d.cfg.MinNotionalUSD {
				continue
			}

			// Budget the slippage allowance out of the spread before
			// estimating profit.
			effectiveBps := spreadBps
			if effectiveBps <= d.cfg.MaxSlippageBps {
				continue
			}
			effectiveBps -= d.cfg.MaxSlippageBps

			grossUSD := size * float64(effectiveBps) / 10_000
			grossLamports := uint64(grossUSD / d.cfg.SolPriceUSD * 1e9)
			net := saturatingSub(grossLamports, d.cfg.GasCostLamports+d.cfg.TipLamports)
			if net == 0 {
				continue
			}

			opp := Opportunity{
				Pair:              pair,
				BuyPool:           buy.PoolAddress,
				SellPool:          sell.PoolAddress,
				BuyVenue:          buy.Venue,
				SellVenue:         sell.Venue,
				BuyPrice:          buy.Price,
				SellPrice:         sell.Price,
				SpreadBps:         spreadBps,
				SizeUSD:           size,
				NetProfitLamports: net,
				DetectedAt:        now,
			}
			if !found || opp.NetProfitLamports > best.NetProfitLamports {
				best = opp
				found = true
			}
		}
	}
	return best, found
}

func saturatingSub(a, b uint64) uint64 {
	if a <= b {
		return 0
	}
	return a - b
}
