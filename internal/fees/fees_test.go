package fees

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSampler struct {
	fees  []uint64
	err   error
	calls atomic.Int32
}

func (f *fakeSampler) RecentPrioritizationFees(ctx context.Context) ([]uint64, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.fees, nil
}

func TestClassifyUrgency(t *testing.T) {
	tests := []struct {
		profit uint64
		want   Urgency
	}{
		{0, UrgencyLow},
		{99_999_999, UrgencyLow},
		{100_000_000, UrgencyMedium},
		{999_999_999, UrgencyMedium},
		{1_000_000_000, UrgencyHigh},
		{9_999_999_999, UrgencyHigh},
		{10_000_000_000, UrgencyCritical},
		{50_000_000_000, UrgencyCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyUrgency(tt.profit), "profit %d", tt.profit)
	}
}

func TestCache_TTLAndStaleServing(t *testing.T) {
	sampler := &fakeSampler{fees: []uint64{10_000, 20_000, 30_000, 40_000}}
	c := NewCache(sampler, 50*time.Millisecond)

	first := c.Get(context.Background())
	assert.Equal(t, uint64(40_000), first.Max)
	require.Equal(t, int32(1), sampler.calls.Load())

	// Within TTL: no new sample.
	c.Get(context.Background())
	assert.Equal(t, int32(1), sampler.calls.Load())

	time.Sleep(60 * time.Millisecond)
	sampler.err = errors.New("rpc down")
	stale := c.Get(context.Background())
	assert.Equal(t, first.Max, stale.Max, "stale data served on refresh failure")
	assert.Equal(t, int32(2), sampler.calls.Load())
}

func TestCache_DefaultsWhenEmpty(t *testing.T) {
	sampler := &fakeSampler{err: errors.New("rpc down")}
	c := NewCache(sampler, time.Second)

	data := c.Get(context.Background())
	assert.Equal(t, uint64(10_000), data.Base)
	assert.Equal(t, uint64(25_000), data.P90)
	assert.Equal(t, uint64(100_000), data.Max)
}

func TestCache_NoFeesFallsBackToDefaults(t *testing.T) {
	sampler := &fakeSampler{fees: nil}
	c := NewCache(sampler, time.Second)

	data := c.Get(context.Background())
	assert.Equal(t, uint64(50_000), data.P95)
	assert.False(t, data.FetchedAt.IsZero())
}

func testFeeData() CachedFeeData {
	return CachedFeeData{Base: 10_000, P75: 15_000, P90: 30_000, P95: 60_000, Max: 120_000}
}

func TestStrategies_FeeWithinServiceBounds(t *testing.T) {
	cfg := Config{
		StrategyName: "profit",
		MinFee:       10_000,
		MaxFee:       10_000_000,
		Strategy: StrategyConfig{
			BaseBps:               50,
			HighMultiplierBps:     15_000,
			CriticalMultiplierBps: 20_000,
		},
	}

	for _, name := range []string{"conservative", "profit", "aggressive"} {
		cfg.StrategyName = name
		sampler := &fakeSampler{fees: []uint64{10_000, 15_000, 30_000, 60_000, 120_000}}
		svc, err := NewService(sampler, cfg)
		require.NoError(t, err)

		profits := []uint64{0, 1_000, 50_000_000, 500_000_000, 5_000_000_000, 50_000_000_000}
		for _, p := range profits {
			fee, _ := svc.PriorityFee(context.Background(), p)
			assert.GreaterOrEqual(t, fee, cfg.MinFee, "%s profit=%d", name, p)
			assert.LessOrEqual(t, fee, cfg.MaxFee, "%s profit=%d", name, p)
		}
	}
}

func TestProfitBasedStrategy_TiersAndMultipliers(t *testing.T) {
	s := &ProfitBasedStrategy{cfg: StrategyConfig{
		BaseBps:               50,
		HighMultiplierBps:     15_000,
		CriticalMultiplierBps: 20_000,
	}}
	data := testFeeData()

	// 0.5 SOL at 100 bps is 5_000_000 lamports.
	fee := s.ComputeFee(data, 500_000_000, UrgencyMedium)
	assert.Equal(t, uint64(5_000_000), fee)

	// 5 SOL at 50 bps is 25_000_000, then the 1.5x high multiplier.
	fee = s.ComputeFee(data, 5_000_000_000, UrgencyHigh)
	assert.Equal(t, uint64(37_500_000), fee)

	// 20 SOL at 25 bps is 50_000_000, then the 2x critical multiplier.
	fee = s.ComputeFee(data, 20_000_000_000, UrgencyCritical)
	assert.Equal(t, uint64(100_000_000), fee)

	// Tiny profit still bids at least the P75 floor.
	fee = s.ComputeFee(data, 100, UrgencyLow)
	assert.Equal(t, data.P75, fee)
}

func TestConservativeStrategy_Percentiles(t *testing.T) {
	s := &ConservativeStrategy{}
	data := testFeeData()

	assert.Equal(t, data.P75*12/10, s.ComputeFee(data, 0, UrgencyLow))
	assert.Equal(t, data.P90*12/10, s.ComputeFee(data, 0, UrgencyHigh))
	assert.Equal(t, data.P95*12/10, s.ComputeFee(data, 0, UrgencyCritical))
}

func TestAggressiveStrategy_Scaling(t *testing.T) {
	s := &AggressiveStrategy{}
	data := testFeeData()

	low := s.ComputeFee(data, 0, UrgencyLow)
	crit := s.ComputeFee(data, 0, UrgencyCritical)
	assert.Equal(t, data.P90*3/2, low)
	assert.Equal(t, data.Max*3, crit)
	assert.Greater(t, crit, low)
}

func TestNewStrategy_Unknown(t *testing.T) {
	_, err := NewStrategy("yolo", StrategyConfig{})
	assert.Error(t, err)
}
