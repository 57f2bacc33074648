package fees

import "fmt"

// Strategy converts fee percentiles and an opportunity's profit into a
// priority fee bid, in micro-lamports per compute unit.
type Strategy interface {
	Name() string
	ComputeFee(data CachedFeeData, expectedProfitLamports uint64, urgency Urgency) uint64
}

// NewStrategy builds a strategy by config name.
func NewStrategy(name string, cfg StrategyConfig) (Strategy, error) {
	switch name {
	case "conservative":
		return &ConservativeStrategy{}, nil
	case "profit":
		return &ProfitBasedStrategy{cfg: cfg}, nil
	case "aggressive":
		return &AggressiveStrategy{}, nil
	}
	return nil, fmt.Errorf("fees: unknown strategy %q", name)
}

// StrategyConfig holds the tunables of the profit-based strategy.
type StrategyConfig struct {
	// BaseBps is the profit share bid at the mid tier; other tiers scale
	// off it.
	BaseBps uint64
	// HighMultiplierBps and CriticalMultiplierBps scale the bid for the
	// upper urgency tiers, in basis points (15_000 means 1.5x).
	HighMultiplierBps     uint64
	CriticalMultiplierBps uint64
}

// ConservativeStrategy bids slightly above the recent percentile that
// matches the urgency. Cheap, loses contested slots.
type ConservativeStrategy struct{}

func (s *ConservativeStrategy) Name() string { return "conservative" }

func (s *ConservativeStrategy) ComputeFee(data CachedFeeData, _ uint64, urgency Urgency) uint64 {
	var base uint64
	switch urgency {
	case UrgencyLow, UrgencyMedium:
		base = data.P75
	case UrgencyHigh:
		base = data.P90
	default:
		base = data.P95
	}
	return base * 12 / 10
}

// ProfitBasedStrategy bids a share of the expected profit. Small profits
// give up a larger share since the fixed costs dominate them anyway.
type ProfitBasedStrategy struct {
	cfg StrategyConfig
}

func (s *ProfitBasedStrategy) Name() string { return "profit" }

func (s *ProfitBasedStrategy) ComputeFee(data CachedFeeData, expectedProfitLamports uint64, urgency Urgency) uint64 {
	base := s.cfg.BaseBps
	if base == 0 {
		base = 50
	}
	var bps uint64
	switch {
	case expectedProfitLamports >= 10*lamportsPerSol:
		bps = base / 2 // 25 bps at the default
	case expectedProfitLamports >= lamportsPerSol:
		bps = base
	case expectedProfitLamports >= lamportsPerSol/10:
		bps = base * 2
	case expectedProfitLamports >= lamportsPerSol/100:
		bps = base * 3
	default:
		bps = base * 4
	}

	fee := expectedProfitLamports * bps / 10_000

	switch urgency {
	case UrgencyHigh:
		if m := s.cfg.HighMultiplierBps; m > 0 {
			fee = fee * m / 10_000
		} else {
			fee = fee * 3 / 2
		}
	case UrgencyCritical:
		if m := s.cfg.CriticalMultiplierBps; m > 0 {
			fee = fee * m / 10_000
		} else {
			fee = fee * 2
		}
	}

	// Never bid below what the network is actually paying.
	if fee < data.P75 {
		fee = data.P75
	}
	return fee
}

// AggressiveStrategy overbids the top percentiles to win contested
// opportunities. Expensive by design for the critical tier.
type AggressiveStrategy struct{}

func (s *AggressiveStrategy) Name() string { return "aggressive" }

func (s *AggressiveStrategy) ComputeFee(data CachedFeeData, _ uint64, urgency Urgency) uint64 {
	switch urgency {
	case UrgencyLow:
		return data.P90 * 3 / 2
	case UrgencyMedium:
		return data.P90 * 2
	case UrgencyHigh:
		return data.P95 * 5 / 2
	default:
		return data.Max * 3
	}
}
