// Package main is the entry point of the Solana arbitrage bot.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/your-org/sol-arb-bot/internal/config"
	"github.com/your-org/sol-arb-bot/internal/dbwriter"
	"github.com/your-org/sol-arb-bot/internal/detector"
	"github.com/your-org/sol-arb-bot/internal/evaluator"
	"github.com/your-org/sol-arb-bot/internal/executor"
	"github.com/your-org/sol-arb-bot/internal/fees"
	"github.com/your-org/sol-arb-bot/internal/http/handler"
	"github.com/your-org/sol-arb-bot/internal/market"
	"github.com/your-org/sol-arb-bot/internal/risk"
	"github.com/your-org/sol-arb-bot/internal/simulator"
	"github.com/your-org/sol-arb-bot/internal/slotclock"
	"github.com/your-org/sol-arb-bot/internal/solana"
	"github.com/your-org/sol-arb-bot/internal/stats"
	"github.com/your-org/sol-arb-bot/pkg/logger"
)

func main() {
	// --- Configuration ---
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	logger.SetGlobalLogLevel(cfg.LogLevel)
	logger.Info("Solana arbitrage bot starting...")
	logger.Infof("Loaded configuration from: %s", *configPath)
	logger.Infof("Execution mode: %s", cfg.ExecutionMode)

	// --- TimescaleDB Writer (Optional) ---
	var dbWriter *dbwriter.Writer
	if cfg.DBWriter.BatchSize > 0 {
		var zapLogger *zap.Logger
		var zapErr error
		if cfg.LogLevel == "debug" {
			zapLogger, zapErr = zap.NewDevelopment()
		} else {
			zapLogger, zapErr = zap.NewProduction()
		}
		if zapErr != nil {
			logger.Fatalf("Failed to initialize Zap logger for DBWriter: %v", zapErr)
		}
		defer func() {
			_ = zapLogger.Sync()
		}()

		pool, poolErr := pgxpool.New(ctx, cfg.Database.ConnString())
		if poolErr != nil {
			logger.Fatalf("Failed to connect to TimescaleDB: %v", poolErr)
		}
		dbWriter = dbwriter.NewWriter(pool, dbwriter.Config{
			BatchSize:            cfg.DBWriter.BatchSize,
			WriteIntervalSeconds: cfg.DBWriter.WriteIntervalSeconds,
		}, zapLogger)
		defer dbWriter.Close()
		logger.Info("TimescaleDB writer initialized successfully.")
	}

	// --- RPC client and slot clock ---
	var rpcClient *solana.Client
	if cfg.RPCURL != "" {
		rpcClient = solana.NewClient(cfg.RPCURL)
	}

	clock := slotclock.NewClock(rpcClient, slotclock.Config{
		PollInterval:    time.Duration(cfg.SlotClock.PollIntervalMs) * time.Millisecond,
		DefaultSlotTime: time.Duration(cfg.SlotClock.DefaultSlotMs) * time.Millisecond,
	})
	if rpcClient != nil {
		go clock.Start(ctx)
	}
	if cfg.WSRPCURL != "" {
		sub := solana.NewSlotSubscriber(cfg.WSRPCURL, clock.Observe)
		go sub.Run(ctx)
	}

	// --- Market cache ---
	cache := market.NewCache()
	provider := market.NewFileProvider(cfg.Market.DataFile)
	refresher := market.NewRefresher(cache, provider, market.RefresherConfig{
		Interval: time.Duration(cfg.Market.RefreshIntervalMs) * time.Millisecond,
		RPS:      cfg.Market.RefreshRPS,
	})
	go refresher.Start(ctx)

	// --- Fee service ---
	var sampler fees.FeeSampler = staticFeeSampler{}
	if rpcClient != nil {
		sampler = rpcClient
	}
	feeService, err := fees.NewService(sampler, fees.Config{
		StrategyName: cfg.Fees.Strategy,
		CacheTTL:     time.Duration(cfg.Fees.CacheTTLSeconds) * time.Second,
		MinFee:       cfg.Fees.MinFee,
		MaxFee:       cfg.Fees.MaxFee,
		Strategy: fees.StrategyConfig{
			BaseBps:               cfg.Fees.ProfitPercentageBps,
			HighMultiplierBps:     cfg.Fees.HighUrgencyMultiplierBps,
			CriticalMultiplierBps: cfg.Fees.CriticalUrgencyMultiplierBps,
		},
	})
	if err != nil {
		logger.Fatalf("Failed to initialize fee service: %v", err)
	}
	go feeService.StartRefreshing(ctx)
	logger.Infof("Fee strategy: %s", feeService.StrategyName())

	// --- Detection, scoring and simulation ---
	sizer := detector.NewPositionSizer(detector.SizerConfig{
		MaxPositionUSD:         cfg.Position.MaxPositionUSD,
		MaxPercentOfLiquidity:  cfg.Position.MaxPercentOfLiquidity,
		KellyFraction:          cfg.Position.KellyFraction,
		HistoricalWinRate:      cfg.Position.HistoricalWinRate,
		HistoricalWinLossRatio: cfg.Position.HistoricalWinLossRatio,
	})
	det := detector.New(detector.Config{
		MinSpreadBps:     cfg.Arbitrage.MinSpreadBps,
		MaxSlippageBps:   cfg.Arbitrage.MaxSlippageBps,
		MinLiquidityUSD:  cfg.Arbitrage.MinLiquidityUSD,
		MinNotionalUSD:   cfg.Arbitrage.MinNotionalUSD,
		BreakerThreshold: cfg.Arbitrage.BreakerThreshold,
		Deadline:         time.Duration(cfg.Arbitrage.DetectionTimeoutMs) * time.Millisecond,
		GasCostLamports:  cfg.Arbitrage.GasCostLamports,
		TipLamports:      cfg.Arbitrage.TipLamports,
		MaxOpportunities: cfg.Arbitrage.MaxOpportunities,
		SolPriceUSD:      cfg.SolPriceUSD,
	}, sizer)

	scorer := evaluator.New(evaluator.Config{
		MinLiquidityUSD:        cfg.Evaluator.MinLiquidityUSD,
		PairSuccessSeed:        cfg.Evaluator.PairSuccessSeed,
		VenueSuccessSeed:       cfg.Evaluator.VenueSuccessSeed,
		SingleHopBonus:         cfg.Evaluator.SingleHopBonus,
		DoubleHopBonus:         cfg.Evaluator.DoubleHopBonus,
		MultiHopPenalty:        cfg.Evaluator.MultiHopPenalty,
		UnknownLiquidityFactor: cfg.Evaluator.UnknownLiquidityFactor,
		TopN:                   cfg.Evaluator.TopN,
	})

	var simSink simulator.ResultSink
	if dbWriter != nil {
		simSink = dbwriter.NewSimulationSink(dbWriter)
	}
	sim := simulator.New(simulator.NewMarketQuoter(cache), simSink, simulator.Config{
		BatchSize:      cfg.Simulator.BatchSize,
		MaxConcurrency: cfg.Simulator.MaxConcurrency,
		FlushEvery:     cfg.Simulator.FlushEvery,
		QuoteRPS:       cfg.Simulator.QuoteRPS,
	})

	// --- Risk engine and statistics ---
	riskEngine := risk.NewEngine(risk.Config{
		PortfolioValueUSD: cfg.PortfolioUSD,
		MaxDailyDrawdown:  cfg.Risk.MaxDailyDrawdown,
		TokenWhitelist:    parseWhitelist(cfg.Risk.TokenWhitelist),
	})

	statsLoop := stats.NewLoop(stats.NewFileStore(cfg.Stats.FilePath), scorer, stats.Config{
		SaveInterval: time.Duration(cfg.Stats.SaveIntervalSeconds) * time.Second,
	})
	go statsLoop.Run(ctx)
	go scheduleDailyReset(ctx, riskEngine)

	// --- Execution engine ---
	engine, ledger, err := buildEngine(cfg, rpcClient)
	if err != nil {
		logger.Fatalf("Failed to initialize execution engine: %v", err)
	}

	solPrice := cfg.SolPriceUSD
	onOutcome := func(out executor.Outcome) {
		opp := out.Request.Opportunity
		statsLoop.Record(stats.TradeOutcome{
			Pair:           opp.Pair,
			Venues:         []market.Venue{opp.BuyVenue, opp.SellVenue},
			Success:        out.Success,
			ProfitLamports: out.ProfitLamports,
			At:             out.ExecutedAt,
		})
		if out.ProfitLamports < 0 {
			riskEngine.RecordLoss(float64(-out.ProfitLamports) / 1e9 * solPrice)
		}
		if !out.Success {
			det.RecordFailure()
		}
		if dbWriter != nil {
			dbWriter.SaveTrade(dbwriter.TradeRecord{
				Time:           out.ExecutedAt,
				ExecutionID:    out.ID,
				Pair:           opp.Pair.String(),
				BuyVenue:       string(opp.BuyVenue),
				SellVenue:      string(opp.SellVenue),
				Mode:           cfg.ExecutionMode,
				Success:        out.Success,
				ProfitLamports: out.ProfitLamports,
				PriorityFee:    int64(out.PriorityFee),
			})
		}
	}

	exec := executor.New(engine, feeService, executor.Config{
		QueueSize: cfg.Executor.QueueSize,
	}, onOutcome)
	go exec.Run(ctx)

	// --- Health check and stats server ---
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", handler.HealthCheckHandler)
		mux.Handle("/stats", &handler.StatsHandler{Clock: clock, Cache: cache, Executor: exec})
		logger.Info("Health check server starting on :8080")
		if err := http.ListenAndServe(":8080", mux); err != nil {
			logger.Fatalf("Health check server failed: %v", err)
		}
	}()

	// --- Main detection loop ---
	go runPipeline(ctx, pipeline{
		cfg:               cfg,
		cache:             cache,
		clock:             clock,
		detector:          det,
		evaluator:         scorer,
		simulator:         sim,
		risk:              riskEngine,
		executor:          exec,
		minProfitLamports: profitFloor(cfg.ExecutionMode, cfg.Executor.MinProfitLamports),
	})

	// --- Graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Infof("Received signal %s, shutting down...", sig)

	cancel()
	sim.Flush(context.Background())
	if ledger != nil {
		report := ledger.Report()
		logger.Infof("Paper run: %d trades, win rate %s, ROI %s%%, balance %d lamports",
			report.TotalTrades, report.WinRate, report.ROIPercent, report.BalanceLamports)
	}
	// Give background loops a moment to finish their final saves.
	time.Sleep(500 * time.Millisecond)
	logger.Info("Shutdown complete.")
}

// buildEngine picks the execution engine for the configured mode. The
// paper ledger is returned so the shutdown path can print its report.
func buildEngine(cfg *config.Config, rpcClient *solana.Client) (executor.Engine, *executor.Ledger, error) {
	switch cfg.ExecutionMode {
	case config.ModeLive:
		if rpcClient == nil {
			return nil, nil, fmt.Errorf("live mode requires rpc_url")
		}
		return executor.NewLiveEngine(rpcSubmitter{client: rpcClient}), nil, nil
	case config.ModeSimulate:
		if rpcClient == nil {
			return nil, nil, fmt.Errorf("simulate mode requires rpc_url")
		}
		return executor.NewSimulateEngine(rpcClient), nil, nil
	case config.ModePaper:
		ledger, err := executor.NewLedger(executor.PaperConfig{
			StatePath:       cfg.Executor.PaperStateFile,
			StartingBalance: cfg.Executor.PaperStartingBalance,
			MaxPosition:     cfg.Executor.PaperMaxPosition,
			SlippageFactor:  cfg.Executor.PaperSlippageFactor,
			FailureRate:     cfg.Executor.PaperFailureRate,
		})
		if err != nil {
			return nil, nil, err
		}
		return executor.NewPaperEngine(ledger), ledger, nil
	}
	return nil, nil, fmt.Errorf("unknown execution mode %q", cfg.ExecutionMode)
}

// rpcSubmitter adapts the RPC client to the executor's submitter
// interface. The priority fee is already baked into the payload by the
// transaction builder, so it is only logged here.
type rpcSubmitter struct {
	client *solana.Client
}

func (s rpcSubmitter) Submit(ctx context.Context, txBase64 string, priorityFee uint64) (string, error) {
	logger.Debugf("Submitting transaction with priority fee %d", priorityFee)
	return s.client.SendTransaction(ctx, txBase64)
}

type pipeline struct {
	cfg       *config.Config
	cache     *market.Cache
	clock     *slotclock.Clock
	detector  *detector.Detector
	evaluator *evaluator.Evaluator
	simulator *simulator.Simulator
	risk      *risk.Engine
	executor  *executor.Executor
	// minProfitLamports is the caller-side submission floor; the queue
	// itself carries no business rules.
	minProfitLamports uint64
}

// profitFloor picks the submission threshold for a mode. Paper mode
// records every fill so the ledger and statistics see the full
// distribution.
func profitFloor(mode string, configured uint64) uint64 {
	if mode == config.ModePaper {
		return 0
	}
	return configured
}

// runPipeline drives detection cycles. Each cycle snapshots the market,
// detects spreads, ranks the candidate routes, simulates the survivors
// and hands profitable ones to the executor.
func runPipeline(ctx context.Context, p pipeline) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	minWindow := 100 * time.Millisecond
	for {
		select {
		case <-ctx.Done():
			logger.Info("Detection pipeline stopped.")
			return
		case <-ticker.C:
		}

		// Slot 0 means no slot source is wired (paper runs); skip the
		// window check rather than stalling forever.
		if p.clock.Current().Slot > 0 && !p.clock.HasExecutionWindow(minWindow) {
			continue
		}

		snapshot := p.cache.Snapshot()
		if len(snapshot) == 0 {
			continue
		}

		opps, err := p.detector.DetectCycle(ctx, snapshot)
		if err != nil {
			logger.Debugf("Detection cycle skipped: %v", err)
			continue
		}
		if len(opps) == 0 {
			continue
		}

		p.simulator.ClearMemo()
		paths := make([]evaluator.Path, 0, len(opps))
		byPath := make(map[string]detector.Opportunity, len(opps))
		for _, opp := range opps {
			path := evaluator.Path{
				ID: opp.BuyPool + ">" + opp.SellPool,
				Hops: []evaluator.Hop{
					{PoolAddress: opp.BuyPool, Venue: opp.BuyVenue, Pair: opp.Pair, Side: evaluator.SideBuy},
					{PoolAddress: opp.SellPool, Venue: opp.SellVenue, Pair: opp.Pair, Side: evaluator.SideSell},
				},
			}
			paths = append(paths, path)
			byPath[path.ID] = opp
		}

		top := p.evaluator.TopN(paths, p.cache)
		ranked := make([]evaluator.Path, 0, len(top))
		for _, sp := range top {
			ranked = append(ranked, sp.Path)
		}

		results, err := p.simulator.SimulateAll(ctx, ranked, p.cfg.SimulationAmount)
		if err != nil {
			logger.Warnf("Simulation pass failed: %v", err)
			continue
		}

		for _, result := range results {
			if result.Failed() || result.ProfitLamports <= 0 {
				continue
			}
			opp, ok := byPath[result.Path.ID]
			if !ok {
				continue
			}
			if !p.risk.ShouldExecute(opp) {
				continue
			}
			if opp.NetProfitLamports < p.minProfitLamports {
				continue
			}
			p.executor.Submit(executor.Request{Opportunity: opp})
		}
	}
}

// scheduleDailyReset clears the risk engine's loss counter at UTC
// midnight. The engine itself has no rollover policy on purpose.
func scheduleDailyReset(ctx context.Context, engine *risk.Engine) {
	for {
		now := time.Now().UTC()
		next := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
			engine.ResetDailyLoss()
		}
	}
}

func parseWhitelist(tokens []string) []uint32 {
	out := make([]uint32, 0, len(tokens))
	for _, t := range tokens {
		var v uint32
		if _, err := fmt.Sscanf(t, "%d", &v); err != nil {
			logger.Warnf("Ignoring invalid whitelist token %q", t)
			continue
		}
		out = append(out, v)
	}
	return out
}

// staticFeeSampler serves no samples so the fee cache falls back to its
// conservative defaults. Used when no RPC endpoint is configured.
type staticFeeSampler struct{}

func (staticFeeSampler) RecentPrioritizationFees(context.Context) ([]uint64, error) {
	return nil, nil
}
