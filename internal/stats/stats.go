// Package stats maintains execution success statistics and feeds them
// back into path scoring.
package stats

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/your-org/sol-arb-bot/internal/market"
	"github.com/your-org/sol-arb-bot/pkg/logger"
)

// TradeOutcome is one finished execution attempt.
type TradeOutcome struct {
	Pair           market.PairID
	Venues         []market.Venue
	Success        bool
	ProfitLamports int64
	At             time.Time
}

// PairStats aggregates outcomes for one token pair.
type PairStats struct {
	Attempts          uint64  `json:"attempts"`
	Successes         uint64  `json:"successes"`
	SuccessRate       float64 `json:"success_rate"`
	AvgProfitLamports float64 `json:"avg_profit_lamports"`
}

// VenueStats aggregates outcomes for one venue.
type VenueStats struct {
	Attempts    uint64  `json:"attempts"`
	Successes   uint64  `json:"successes"`
	SuccessRate float64 `json:"success_rate"`
}

// Snapshot is the persisted form of the aggregates. Map keys are the
// string forms so the snapshot round-trips through JSON.
type Snapshot struct {
	Pairs   map[string]PairStats  `json:"pairs"`
	Venues  map[string]VenueStats `json:"venues"`
	SavedAt time.Time             `json:"saved_at"`
}

// RateSink receives updated success rates. *evaluator.Evaluator
// satisfies it.
type RateSink interface {
	SetPairSuccessRate(pair market.PairID, rate float64)
	SetVenueSuccessRate(venue market.Venue, rate float64)
}

// Config holds the loop settings.
type Config struct {
	// Alpha is the EMA smoothing factor.
	Alpha        float64
	PairSeed     float64
	VenueSeed    float64
	QueueSize    int
	SaveInterval time.Duration
}

// Loop consumes trade outcomes on a bounded channel. A single goroutine
// owns the aggregates; Record never blocks the hot path, it drops when
// the queue is full.
type Loop struct {
	cfg   Config
	store Store
	sink  RateSink

	ch      chan TradeOutcome
	dropped atomic.Uint64

	mu     sync.RWMutex
	pairs  map[market.PairID]PairStats
	venues map[market.Venue]VenueStats
}

// NewLoop creates a Loop. store and sink may be nil.
func NewLoop(store Store, sink RateSink, cfg Config) *Loop {
	if cfg.Alpha <= 0 {
		cfg.Alpha = 0.1
	}
	if cfg.PairSeed <= 0 {
		cfg.PairSeed = 0.75
	}
	if cfg.VenueSeed <= 0 {
		cfg.VenueSeed = 0.8
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.SaveInterval <= 0 {
		cfg.SaveInterval = time.Minute
	}
	return &Loop{
		cfg:    cfg,
		store:  store,
		sink:   sink,
		ch:     make(chan TradeOutcome, cfg.QueueSize),
		pairs:  make(map[market.PairID]PairStats),
		venues: make(map[market.Venue]VenueStats),
	}
}

// Record enqueues an outcome without blocking. Dropped outcomes only
// cost statistical precision, never correctness.
func (l *Loop) Record(outcome TradeOutcome) {
	select {
	case l.ch <- outcome:
	default:
		if l.dropped.Add(1)%100 == 1 {
			logger.Warnf("Stats queue full, dropped %d outcomes so far", l.dropped.Load())
		}
	}
}

// Dropped reports how many outcomes were discarded.
func (l *Loop) Dropped() uint64 {
	return l.dropped.Load()
}

// Run consumes outcomes until ctx is done, saving periodically and once
// more on shutdown. A missing or corrupt saved snapshot is not fatal.
func (l *Loop) Run(ctx context.Context) {
	l.load(ctx)

	ticker := time.NewTicker(l.cfg.SaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.drain()
			l.Save(context.Background())
			logger.Info("Stats loop stopped.")
			return
		case outcome := <-l.ch:
			l.apply(outcome)
		case <-ticker.C:
			l.Save(ctx)
		}
	}
}

func (l *Loop) drain() {
	for {
		select {
		case outcome := <-l.ch:
			l.apply(outcome)
		default:
			return
		}
	}
}

func (l *Loop) apply(outcome TradeOutcome) {
	alpha := l.cfg.Alpha
	observed := 0.0
	if outcome.Success {
		observed = 1.0
	}

	l.mu.Lock()
	ps, ok := l.pairs[outcome.Pair]
	if !ok {
		ps.SuccessRate = l.cfg.PairSeed
	}
	ps.Attempts++
	if outcome.Success {
		ps.Successes++
	}
	ps.SuccessRate = alpha*observed + (1-alpha)*ps.SuccessRate
	ps.AvgProfitLamports = alpha*float64(outcome.ProfitLamports) + (1-alpha)*ps.AvgProfitLamports
	l.pairs[outcome.Pair] = ps
	pairRate := ps.SuccessRate

	venueRates := make(map[market.Venue]float64, len(outcome.Venues))
	for _, venue := range outcome.Venues {
		vs, ok := l.venues[venue]
		if !ok {
			vs.SuccessRate = l.cfg.VenueSeed
		}
		vs.Attempts++
		if outcome.Success {
			vs.Successes++
		}
		vs.SuccessRate = alpha*observed + (1-alpha)*vs.SuccessRate
		l.venues[venue] = vs
		venueRates[venue] = vs.SuccessRate
	}
	l.mu.Unlock()

	if l.sink != nil {
		l.sink.SetPairSuccessRate(outcome.Pair, pairRate)
		for venue, rate := range venueRates {
			l.sink.SetVenueSuccessRate(venue, rate)
		}
	}
}

// SnapshotNow returns a copy of the current aggregates.
func (l *Loop) SnapshotNow() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := Snapshot{
		Pairs:   make(map[string]PairStats, len(l.pairs)),
		Venues:  make(map[string]VenueStats, len(l.venues)),
		SavedAt: time.Now(),
	}
	for pair, ps := range l.pairs {
		snap.Pairs[pair.String()] = ps
	}
	for venue, vs := range l.venues {
		snap.Venues[string(venue)] = vs
	}
	return snap
}

// Save persists the current aggregates through the store.
func (l *Loop) Save(ctx context.Context) {
	if l.store == nil {
		return
	}
	if err := l.store.Save(ctx, l.SnapshotNow()); err != nil {
		logger.Errorf("Failed to save stats: %v", err)
	}
}

func (l *Loop) load(ctx context.Context) {
	if l.store == nil {
		return
	}
	snap, err := l.store.Load(ctx)
	if err != nil {
		logger.Warnf("No saved stats loaded, starting fresh: %v", err)
		return
	}

	l.mu.Lock()
	for key, ps := range snap.Pairs {
		pair, err := market.ParsePairID(key)
		if err != nil {
			logger.Warnf("Skipping bad pair key in saved stats: %v", err)
			continue
		}
		l.pairs[pair] = ps
	}
	for key, vs := range snap.Venues {
		l.venues[market.Venue(key)] = vs
	}
	l.mu.Unlock()

	l.ApplyToSink()
	logger.Infof("Loaded stats for %d pairs and %d venues", len(snap.Pairs), len(snap.Venues))
}

// ApplyToSink pushes every known success rate into the sink at once.
// Used after loading a snapshot so scoring starts from history instead
// of seeds.
func (l *Loop) ApplyToSink() {
	if l.sink == nil {
		return
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	for pair, ps := range l.pairs {
		l.sink.SetPairSuccessRate(pair, ps.SuccessRate)
	}
	for venue, vs := range l.venues {
		l.sink.SetVenueSuccessRate(venue, vs.SuccessRate)
	}
}
