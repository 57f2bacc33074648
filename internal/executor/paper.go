package executor

import (
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/your-org/sol-arb-bot/internal/detector"
	"github.com/your-org/sol-arb-bot/pkg/logger"
)

const maxLedgerTrades = 1000

// PaperConfig models the paper fill behavior.
type PaperConfig struct {
	StatePath       string
	StartingBalance uint64
	MaxPosition     uint64
	SlippageFactor  float64
	FailureRate     float64
}

// PaperTrade is one ledger entry.
type PaperTrade struct {
	ID             string    `json:"id"`
	Pair           string    `json:"pair"`
	Success        bool      `json:"success"`
	ProfitLamports int64     `json:"profit_lamports"`
	PriorityFee    uint64    `json:"priority_fee"`
	At             time.Time `json:"at"`
}

type ledgerState struct {
	BalanceLamports  uint64       `json:"balance_lamports"`
	StartingLamports uint64       `json:"starting_lamports"`
	TotalTrades      uint64       `json:"total_trades"`
	WinningTrades    uint64       `json:"winning_trades"`
	Trades           []PaperTrade `json:"trades"`
}

// Ledger is the persisted paper-trading account. State is reloaded from
// disk on construction, so restarting the bot continues the same run.
type Ledger struct {
	cfg PaperConfig

	mu    sync.Mutex
	state ledgerState
	rng   *rand.Rand
}

// NewLedger opens or creates the ledger at cfg.StatePath.
func NewLedger(cfg PaperConfig) (*Ledger, error) {
	if cfg.StartingBalance == 0 {
		cfg.StartingBalance = 10_000_000_000 // 10 SOL
	}
	if cfg.SlippageFactor <= 0 {
		cfg.SlippageFactor = 0.005
	}
	if cfg.FailureRate < 0 {
		cfg.FailureRate = 0.05
	}

	l := &Ledger{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		state: ledgerState{
			BalanceLamports:  cfg.StartingBalance,
			StartingLamports: cfg.StartingBalance,
		},
	}

	if cfg.StatePath != "" {
		data, err := os.ReadFile(cfg.StatePath)
		switch {
		case err == nil:
			var loaded ledgerState
			if jsonErr := json.Unmarshal(data, &loaded); jsonErr != nil {
				logger.Warnf("Corrupt paper ledger at %s, starting fresh: %v", cfg.StatePath, jsonErr)
			} else {
				l.state = loaded
				logger.Infof("Resumed paper ledger: balance %d lamports over %d trades",
					loaded.BalanceLamports, loaded.TotalTrades)
			}
		case os.IsNotExist(err):
			// First run.
		default:
			return nil, err
		}
	}
	return l, nil
}

// ExecuteTrade fills an opportunity against the ledger. Fills fail with
// the configured probability; successful fills pay the priority fee and
// lose the slippage haircut.
func (l *Ledger) ExecuteTrade(opp detector.Opportunity, priorityFee uint64) PaperTrade {
	l.mu.Lock()
	defer l.mu.Unlock()

	trade := PaperTrade{
		ID:          "PAPER-" + uuid.New().String(),
		Pair:        opp.Pair.String(),
		PriorityFee: priorityFee,
		At:          time.Now(),
	}

	if l.rng.Float64() < l.cfg.FailureRate {
		// Failed fills still pay the fee.
		trade.Success = false
		trade.ProfitLamports = -int64(priorityFee)
	} else {
		realized := float64(opp.NetProfitLamports) * (1 - l.cfg.SlippageFactor)
		trade.Success = true
		trade.ProfitLamports = int64(realized) - int64(priorityFee)
	}

	l.applyLocked(trade)
	if err := l.saveLocked(); err != nil {
		logger.Errorf("Failed to persist paper ledger: %v", err)
	}
	return trade
}

func (l *Ledger) applyLocked(trade PaperTrade) {
	l.state.TotalTrades++
	if trade.Success {
		l.state.WinningTrades++
	}

	if trade.ProfitLamports >= 0 {
		l.state.BalanceLamports += uint64(trade.ProfitLamports)
	} else {
		loss := uint64(-trade.ProfitLamports)
		if loss > l.state.BalanceLamports {
			l.state.BalanceLamports = 0
		} else {
			l.state.BalanceLamports -= loss
		}
	}

	l.state.Trades = append(l.state.Trades, trade)
	if len(l.state.Trades) > maxLedgerTrades {
		l.state.Trades = l.state.Trades[len(l.state.Trades)-maxLedgerTrades:]
	}
}

func (l *Ledger) saveLocked() error {
	if l.cfg.StatePath == "" {
		return nil
	}
	if dir := filepath.Dir(l.cfg.StatePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(l.state, "", "  ")
	if err != nil {
		return err
	}
	tmp := l.cfg.StatePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, l.cfg.StatePath)
}

// Balance returns the current balance in lamports.
func (l *Ledger) Balance() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.BalanceLamports
}

// Report summarizes the run so far.
type Report struct {
	BalanceLamports uint64          `json:"balance_lamports"`
	TotalTrades     uint64          `json:"total_trades"`
	WinningTrades   uint64          `json:"winning_trades"`
	WinRate         decimal.Decimal `json:"win_rate"`
	ROIPercent      decimal.Decimal `json:"roi_percent"`
}

// Report computes win rate and return on the starting balance.
func (l *Ledger) Report() Report {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := Report{
		BalanceLamports: l.state.BalanceLamports,
		TotalTrades:     l.state.TotalTrades,
		WinningTrades:   l.state.WinningTrades,
	}
	if l.state.TotalTrades > 0 {
		r.WinRate = decimal.NewFromInt(int64(l.state.WinningTrades)).
			Div(decimal.NewFromInt(int64(l.state.TotalTrades))).
			Round(4)
	}
	if l.state.StartingLamports > 0 {
		balance := decimal.NewFromInt(int64(l.state.BalanceLamports))
		start := decimal.NewFromInt(int64(l.state.StartingLamports))
		r.ROIPercent = balance.Sub(start).Div(start).Mul(decimal.NewFromInt(100)).Round(4)
	}
	return r
}
