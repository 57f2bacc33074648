// Package evaluator ranks candidate arbitrage routes by their expected
// chance of surviving simulation and execution.
package evaluator

import (
	"sync"

	"github.com/your-org/sol-arb-bot/internal/market"
)

// Side is the direction of a hop relative to the pool's base token.
type Side int

const (
	// SideBuy spends quote units to acquire base units.
	SideBuy Side = iota
	// SideSell spends base units to receive quote units.
	SideSell
)

// Hop is one pool traversal within a route.
type Hop struct {
	PoolAddress string
	Venue       market.Venue
	Pair        market.PairID
	Side        Side
}

// Path is an ordered route through one or more pools.
type Path struct {
	ID   string
	Hops []Hop
}

// Config holds the scoring heuristics. Seeds are deliberately optimistic
// so new pairs and venues get explored before real statistics exist.
type Config struct {
	MinLiquidityUSD        float64
	PairSuccessSeed        float64
	VenueSuccessSeed       float64
	SingleHopBonus         float64
	DoubleHopBonus         float64
	MultiHopPenalty        float64
	UnknownLiquidityFactor float64
	TopN                   int
}

// PoolLookup resolves a pool address to its current market entry.
// *market.Cache satisfies it.
type PoolLookup interface {
	Get(poolAddress string) (market.MarketEntry, bool)
}

// Evaluator scores paths. Success rates are updated concurrently by the
// statistics loop, so access goes through a read-write mutex.
type Evaluator struct {
	cfg Config

	mu         sync.RWMutex
	pairRates  map[market.PairID]float64
	venueRates map[market.Venue]float64
}

// New creates an Evaluator with empty success-rate tables.
func New(cfg Config) *Evaluator {
	if cfg.PairSuccessSeed <= 0 {
		cfg.PairSuccessSeed = 0.75
	}
	if cfg.VenueSuccessSeed <= 0 {
		cfg.VenueSuccessSeed = 0.8
	}
	if cfg.SingleHopBonus <= 0 {
		cfg.SingleHopBonus = 1.5
	}
	if cfg.DoubleHopBonus <= 0 {
		cfg.DoubleHopBonus = 1.2
	}
	if cfg.MultiHopPenalty <= 0 {
		cfg.MultiHopPenalty = 0.8
	}
	if cfg.UnknownLiquidityFactor <= 0 {
		cfg.UnknownLiquidityFactor = 0.75
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 10
	}
	if cfg.MinLiquidityUSD <= 0 {
		cfg.MinLiquidityUSD = 1_000
	}
	return &Evaluator{
		cfg:        cfg,
		pairRates:  make(map[market.PairID]float64),
		venueRates: make(map[market.Venue]float64),
	}
}

// SetPairSuccessRate overrides the seed for a pair.
func (e *Evaluator) SetPairSuccessRate(pair market.PairID, rate float64) {
	e.mu.Lock()
	e.pairRates[pair] = rate
	e.mu.Unlock()
}

// SetVenueSuccessRate overrides the seed for a venue.
func (e *Evaluator) SetVenueSuccessRate(venue market.Venue, rate float64) {
	e.mu.Lock()
	e.venueRates[venue] = rate
	e.mu.Unlock()
}

func (e *Evaluator) pairRate(pair market.PairID) float64 {
	if r, ok := e.pairRates[pair]; ok {
		return r
	}
	return e.cfg.PairSuccessSeed
}

func (e *Evaluator) venueRate(venue market.Venue) float64 {
	if r, ok := e.venueRates[venue]; ok {
		return r
	}
	return e.cfg.VenueSuccessSeed
}

// FilterPaths drops paths touching pools that are missing from the
// lookup or below the liquidity floor. The per-path check short-circuits
// on the first bad hop.
func (e *Evaluator) FilterPaths(paths []Path, pools PoolLookup) []Path {
	out := paths[:0:0]
	for _, p := range paths {
		if e.viable(p, pools) {
			out = append(out, p)
		}
	}
	return out
}

func (e *Evaluator) viable(p Path, pools PoolLookup) bool {
	if len(p.Hops) == 0 {
		return false
	}
	for _, hop := range p.Hops {
		entry, ok := pools.Get(hop.PoolAddress)
		if !ok || entry.LiquidityUSD < e.cfg.MinLiquidityUSD {
			return false
		}
	}
	return true
}

// Score computes the heuristic score of a path. Higher is better.
func (e *Evaluator) Score(p Path, pools PoolLookup) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	score := 1.0
	for _, hop := range p.Hops {
		score *= e.liquidityFactor(hop, pools)
		score *= e.venueRate(hop.Venue)
		score *= e.pairRate(hop.Pair)
	}

	switch len(p.Hops) {
	case 0:
		return 0
	case 1:
		score *= e.cfg.SingleHopBonus
	case 2:
		score *= e.cfg.DoubleHopBonus
	default:
		score *= e.cfg.MultiHopPenalty
	}
	return score
}

// liquidityFactor rewards deep pools and penalizes thin ones, measured
// against the liquidity floor and clamped to [0.5, 4.0]. Unknown
// liquidity gets a neutral factor.
func (e *Evaluator) liquidityFactor(hop Hop, pools PoolLookup) float64 {
	entry, ok := pools.Get(hop.PoolAddress)
	if !ok || entry.LiquidityUSD <= 0 {
		return e.cfg.UnknownLiquidityFactor
	}
	factor := entry.LiquidityUSD / e.cfg.MinLiquidityUSD
	if factor < 0.5 {
		return 0.5
	}
	if factor > 4.0 {
		return 4.0
	}
	return factor
}

// ScoredPath pairs a path with its score.
type ScoredPath struct {
	Path  Path
	Score float64
}

// TopN filters, scores and returns the best paths in descending score
// order, at most cfg.TopN of them.
func (e *Evaluator) TopN(paths []Path, pools PoolLookup) []ScoredPath {
	viable := e.FilterPaths(paths, pools)
	h := make(pathHeap, 0, len(viable))
	for _, p := range viable {
		h = append(h, ScoredPath{Path: p, Score: e.Score(p, pools)})
	}
	return h.take(e.cfg.TopN)
}
