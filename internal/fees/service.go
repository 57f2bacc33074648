package fees

import (
	"context"
	"time"
)

// Config holds the fee service settings.
type Config struct {
	StrategyName string
	CacheTTL     time.Duration
	MinFee       uint64
	MaxFee       uint64
	Strategy     StrategyConfig
}

// Service prices priority fees for opportunities. Each consumer receives
// an injected instance; there is no process-wide singleton.
type Service struct {
	cache    *Cache
	strategy Strategy
	minFee   uint64
	maxFee   uint64
}

// NewService builds a Service with the configured strategy.
func NewService(sampler FeeSampler, cfg Config) (*Service, error) {
	strategy, err := NewStrategy(cfg.StrategyName, cfg.Strategy)
	if err != nil {
		return nil, err
	}
	minFee, maxFee := cfg.MinFee, cfg.MaxFee
	if maxFee == 0 {
		maxFee = 10_000_000
	}
	if minFee == 0 {
		minFee = 10_000
	}
	return &Service{
		cache:    NewCache(sampler, cfg.CacheTTL),
		strategy: strategy,
		minFee:   minFee,
		maxFee:   maxFee,
	}, nil
}

// StartRefreshing runs the background cache refresh until ctx is done.
func (s *Service) StartRefreshing(ctx context.Context) {
	s.cache.StartRefreshing(ctx)
}

// PriorityFee returns the clamped fee bid for an opportunity with the
// given expected profit, plus the urgency tier it was classified into.
func (s *Service) PriorityFee(ctx context.Context, expectedProfitLamports uint64) (uint64, Urgency) {
	urgency := ClassifyUrgency(expectedProfitLamports)
	data := s.cache.Get(ctx)
	fee := s.strategy.ComputeFee(data, expectedProfitLamports, urgency)
	if fee < s.minFee {
		fee = s.minFee
	}
	if fee > s.maxFee {
		fee = s.maxFee
	}
	return fee, urgency
}

// StrategyName reports the active strategy, for logs and the stats
// endpoint.
func (s *Service) StrategyName() string {
	return s.strategy.Name()
}
