package executor

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/sol-arb-bot/internal/detector"
	"github.com/your-org/sol-arb-bot/internal/market"
)

func paperOpp(profit uint64) detector.Opportunity {
	return detector.Opportunity{
		Pair:              market.NewPairID(0, 1),
		NetProfitLamports: profit,
	}
}

func TestLedger_SuccessfulFill(t *testing.T) {
	l, err := NewLedger(PaperConfig{
		StartingBalance: 10_000_000_000,
		SlippageFactor:  0.005,
		FailureRate:     0, // deterministic fills
	})
	require.NoError(t, err)

	trade := l.ExecuteTrade(paperOpp(1_000_000), 50_000)
	require.True(t, trade.Success)
	assert.Contains(t, trade.ID, "PAPER-")
	// 1_000_000 * 0.995 - 50_000
	assert.Equal(t, int64(945_000), trade.ProfitLamports)
	assert.Equal(t, uint64(10_000_945_000), l.Balance())
}

func TestLedger_ForcedFailurePaysFee(t *testing.T) {
	l, err := NewLedger(PaperConfig{
		StartingBalance: 10_000_000_000,
		FailureRate:     1.0, // always fail
	})
	require.NoError(t, err)

	trade := l.ExecuteTrade(paperOpp(1_000_000), 50_000)
	assert.False(t, trade.Success)
	assert.Equal(t, int64(-50_000), trade.ProfitLamports)
	assert.Equal(t, uint64(9_999_950_000), l.Balance())
}

func TestLedger_BalanceNeverUnderflows(t *testing.T) {
	l, err := NewLedger(PaperConfig{
		StartingBalance: 10_000,
		FailureRate:     1.0,
	})
	require.NoError(t, err)

	l.ExecuteTrade(paperOpp(1), 50_000)
	assert.Zero(t, l.Balance())
}

func TestLedger_ReloadIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")

	l1, err := NewLedger(PaperConfig{
		StatePath:       path,
		StartingBalance: 10_000_000_000,
		SlippageFactor:  0.005,
		FailureRate:     0,
	})
	require.NoError(t, err)
	l1.ExecuteTrade(paperOpp(1_000_000), 50_000)
	l1.ExecuteTrade(paperOpp(2_000_000), 50_000)
	balance := l1.Balance()

	// Reopening twice without trading changes nothing.
	for i := 0; i < 2; i++ {
		l2, err := NewLedger(PaperConfig{
			StatePath:       path,
			StartingBalance: 10_000_000_000,
			FailureRate:     0,
		})
		require.NoError(t, err)
		assert.Equal(t, balance, l2.Balance())

		report := l2.Report()
		assert.Equal(t, uint64(2), report.TotalTrades)
		assert.Equal(t, uint64(2), report.WinningTrades)
	}
}

func TestLedger_TradeHistoryBounded(t *testing.T) {
	l, err := NewLedger(PaperConfig{
		StartingBalance: 10_000_000_000,
		FailureRate:     0,
	})
	require.NoError(t, err)

	for i := 0; i < maxLedgerTrades+50; i++ {
		l.ExecuteTrade(paperOpp(10_000), 0)
	}
	assert.Len(t, l.state.Trades, maxLedgerTrades)
}

func TestLedger_Report(t *testing.T) {
	l, err := NewLedger(PaperConfig{
		StartingBalance: 10_000_000_000,
		SlippageFactor:  0.005,
		FailureRate:     0,
	})
	require.NoError(t, err)

	l.ExecuteTrade(paperOpp(1_000_000_000), 0) // +995_000_000
	report := l.Report()

	assert.Equal(t, uint64(1), report.TotalTrades)
	assert.Equal(t, "1", report.WinRate.String())
	// 0.995 SOL gained on 10 SOL is 9.95%.
	assert.Equal(t, "9.95", report.ROIPercent.String())
}

func TestPaperEngine_OutcomeMapping(t *testing.T) {
	l, err := NewLedger(PaperConfig{StartingBalance: 10_000_000_000, FailureRate: 0, SlippageFactor: 0.005})
	require.NoError(t, err)
	e := NewPaperEngine(l)

	out := e.Execute(context.Background(), request(1_000_000), 50_000)
	assert.True(t, out.Success)
	assert.Contains(t, out.ID, "PAPER-")
	assert.Equal(t, int64(945_000), out.ProfitLamports)
	assert.False(t, out.ExecutedAt.IsZero())
}
