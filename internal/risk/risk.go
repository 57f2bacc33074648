// Package risk gates executions behind portfolio-level limits.
package risk

import (
	"sync"

	"github.com/your-org/sol-arb-bot/internal/detector"
	"github.com/your-org/sol-arb-bot/pkg/logger"
)

// Config holds the engine limits. An empty whitelist allows every pair.
type Config struct {
	PortfolioValueUSD float64
	MaxDailyDrawdown  float64
	TokenWhitelist    []uint32
}

// Engine decides whether an opportunity may be executed. It keeps a
// running daily loss total; callers feed realized losses back through
// RecordLoss and reset the day through ResetDailyLoss on whatever
// schedule they own.
type Engine struct {
	cfg       Config
	whitelist map[uint32]bool

	mu           sync.Mutex
	dailyLossUSD float64
}

// NewEngine creates an Engine.
func NewEngine(cfg Config) *Engine {
	var wl map[uint32]bool
	if len(cfg.TokenWhitelist) > 0 {
		wl = make(map[uint32]bool, len(cfg.TokenWhitelist))
		for _, t := range cfg.TokenWhitelist {
			wl[t] = true
		}
	}
	return &Engine{cfg: cfg, whitelist: wl}
}

// ShouldExecute applies the risk checks in order: positive profit, daily
// drawdown headroom, token whitelist. Rejections are logged, not errors.
func (e *Engine) ShouldExecute(opp detector.Opportunity) bool {
	if opp.NetProfitLamports == 0 {
		logger.Debugf("Risk rejected %s: no net profit", opp.Pair)
		return false
	}

	limit := e.cfg.PortfolioValueUSD * e.cfg.MaxDailyDrawdown
	e.mu.Lock()
	loss := e.dailyLossUSD
	e.mu.Unlock()
	if limit > 0 && loss >= limit {
		logger.Warnf("Risk rejected %s: daily loss %.2f USD at limit %.2f", opp.Pair, loss, limit)
		return false
	}

	if e.whitelist != nil {
		if !e.whitelist[opp.Pair.Lower] || !e.whitelist[opp.Pair.Higher] {
			logger.Debugf("Risk rejected %s: token not whitelisted", opp.Pair)
			return false
		}
	}
	return true
}

// RecordLoss adds a realized loss to the daily total. Profits do not
// offset it; the limit is on gross losses.
func (e *Engine) RecordLoss(lossUSD float64) {
	if lossUSD <= 0 {
		return
	}
	e.mu.Lock()
	e.dailyLossUSD += lossUSD
	e.mu.Unlock()
}

// DailyLossUSD returns the current loss total.
func (e *Engine) DailyLossUSD() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dailyLossUSD
}

// ResetDailyLoss zeroes the loss total. The caller owns the rollover
// schedule.
func (e *Engine) ResetDailyLoss() {
	e.mu.Lock()
	e.dailyLossUSD = 0
	e.mu.Unlock()
	logger.Info("Daily loss counter reset.")
}
