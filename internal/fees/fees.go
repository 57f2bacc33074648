// Package fees prices Solana priority fees from recent network samples.
package fees

import "time"

const lamportsPerSol = 1_000_000_000

// Urgency buckets an opportunity by its expected profit. Bigger profits
// justify paying more to win the slot.
type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyMedium
	UrgencyHigh
	UrgencyCritical
)

func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyMedium:
		return "medium"
	case UrgencyHigh:
		return "high"
	case UrgencyCritical:
		return "critical"
	}
	return "unknown"
}

// ClassifyUrgency maps expected profit in lamports to an urgency tier.
func ClassifyUrgency(expectedProfitLamports uint64) Urgency {
	switch {
	case expectedProfitLamports < lamportsPerSol/10:
		return UrgencyLow
	case expectedProfitLamports < lamportsPerSol:
		return UrgencyMedium
	case expectedProfitLamports < 10*lamportsPerSol:
		return UrgencyHigh
	default:
		return UrgencyCritical
	}
}

// CachedFeeData holds percentile statistics over recently observed
// prioritization fees, in micro-lamports per compute unit.
type CachedFeeData struct {
	Base      uint64
	P75       uint64
	P90       uint64
	P95       uint64
	Max       uint64
	FetchedAt time.Time
}

// defaultFeeData is the conservative fallback used before the first
// successful sample, or when the network returns no fees at all.
func defaultFeeData() CachedFeeData {
	return CachedFeeData{
		Base: 10_000,
		P75:  10_000,
		P90:  25_000,
		P95:  50_000,
		Max:  100_000,
	}
}
