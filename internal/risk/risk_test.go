package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/your-org/sol-arb-bot/internal/detector"
	"github.com/your-org/sol-arb-bot/internal/market"
)

func opp(lower, higher uint32, profit uint64) detector.Opportunity {
	return detector.Opportunity{
		Pair:              market.NewPairID(lower, higher),
		NetProfitLamports: profit,
	}
}

func TestShouldExecute_RequiresProfit(t *testing.T) {
	e := NewEngine(Config{PortfolioValueUSD: 10_000, MaxDailyDrawdown: 0.05})

	assert.False(t, e.ShouldExecute(opp(0, 1, 0)))
	assert.True(t, e.ShouldExecute(opp(0, 1, 1_000_000)))
}

func TestShouldExecute_DailyDrawdownLimit(t *testing.T) {
	e := NewEngine(Config{PortfolioValueUSD: 10_000, MaxDailyDrawdown: 0.05})

	e.RecordLoss(400)
	assert.True(t, e.ShouldExecute(opp(0, 1, 1_000_000)))

	e.RecordLoss(100)
	assert.Equal(t, 500.0, e.DailyLossUSD())
	assert.False(t, e.ShouldExecute(opp(0, 1, 1_000_000)))

	e.ResetDailyLoss()
	assert.Zero(t, e.DailyLossUSD())
	assert.True(t, e.ShouldExecute(opp(0, 1, 1_000_000)))
}

func TestShouldExecute_Whitelist(t *testing.T) {
	e := NewEngine(Config{
		PortfolioValueUSD: 10_000,
		MaxDailyDrawdown:  0.05,
		TokenWhitelist:    []uint32{0, 1, 2},
	})

	assert.True(t, e.ShouldExecute(opp(0, 1, 1_000_000)))
	assert.True(t, e.ShouldExecute(opp(2, 1, 1_000_000)))
	assert.False(t, e.ShouldExecute(opp(0, 9, 1_000_000)))
}

func TestShouldExecute_EmptyWhitelistAllowsAll(t *testing.T) {
	e := NewEngine(Config{PortfolioValueUSD: 10_000, MaxDailyDrawdown: 0.05})
	assert.True(t, e.ShouldExecute(opp(7, 42, 1_000_000)))
}

func TestRecordLoss_IgnoresNonPositive(t *testing.T) {
	e := NewEngine(Config{})
	e.RecordLoss(0)
	e.RecordLoss(-50)
	assert.Zero(t, e.DailyLossUSD())
}
