// Package config handles application configuration.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Execution mode constants.
const (
	ModeLive     = "Live"
	ModePaper    = "Paper"
	ModeSimulate = "Simulate"
)

// Config defines the structure for all application configuration.
type Config struct {
	RPCURL           string  `yaml:"rpc_url"`
	WSRPCURL         string  `yaml:"ws_rpc_url"`
	ExecutionMode    string  `yaml:"execution_mode"` // Live, Paper or Simulate
	SimulationAmount uint64  `yaml:"simulation_amount"`
	PortfolioUSD     float64 `yaml:"portfolio_value_usd"`
	// SolPriceUSD converts between USD estimates and lamports. A price
	// feed can replace it later; detection and loss accounting read it
	// from here.
	SolPriceUSD float64 `yaml:"sol_price_usd"`

	Arbitrage ArbitrageConfig `yaml:"arbitrage"`
	Position  PositionConfig  `yaml:"position"`
	Risk      RiskConfig      `yaml:"risk"`
	Fees      FeeConfig       `yaml:"fees"`
	Evaluator EvaluatorConfig `yaml:"evaluator"`
	Simulator SimulatorConfig `yaml:"simulator"`
	Executor  ExecutorConfig  `yaml:"executor"`
	Stats     StatsConfig     `yaml:"stats"`
	SlotClock SlotClockConfig `yaml:"slot_clock"`
	Market    MarketConfig    `yaml:"market"`
	Database  DatabaseConfig  `yaml:"-"` // Loaded from env
	DBWriter  DBWriterConfig  `yaml:"db_writer"`

	LogLevel string `yaml:"-"` // Loaded from env or defaults
}

// ArbitrageConfig holds the opportunity detector settings.
type ArbitrageConfig struct {
	MinSpreadBps       uint64  `yaml:"min_spread_bps"`
	MinNotionalUSD     float64 `yaml:"min_notional_usd"`
	MaxSlippageBps     uint64  `yaml:"max_slippage_bps"`
	BreakerThreshold   uint32  `yaml:"breaker_threshold"`
	DetectionTimeoutMs uint64  `yaml:"detection_timeout_ms"`
	GasCostLamports    uint64  `yaml:"gas_cost_lamports"`
	TipLamports        uint64  `yaml:"tip_lamports"`
	MinLiquidityUSD    float64 `yaml:"min_liquidity_usd"`
	MaxOpportunities   int     `yaml:"max_opportunities"`
}

// PositionConfig holds position sizing parameters.
type PositionConfig struct {
	MaxPositionUSD         float64 `yaml:"max_position_usd"`
	MaxPercentOfLiquidity  float64 `yaml:"max_percent_of_liquidity"`
	KellyFraction          float64 `yaml:"kelly_fraction"`
	HistoricalWinRate      float64 `yaml:"historical_win_rate"`
	HistoricalWinLossRatio float64 `yaml:"historical_win_loss_ratio"`
}

// RiskConfig holds the risk engine settings.
type RiskConfig struct {
	MaxDailyDrawdown float64  `yaml:"max_daily_drawdown"`
	TokenWhitelist   []string `yaml:"token_whitelist"`
}

// FeeConfig holds the priority fee service settings.
type FeeConfig struct {
	Strategy                     string `yaml:"strategy"` // conservative, profit or aggressive
	CacheTTLSeconds              int    `yaml:"cache_ttl_seconds"`
	MinFee                       uint64 `yaml:"min_fee"`
	MaxFee                       uint64 `yaml:"max_fee"`
	ProfitPercentageBps          uint64 `yaml:"profit_percentage_bps"`
	HighUrgencyMultiplierBps     uint64 `yaml:"high_urgency_multiplier_bps"`
	CriticalUrgencyMultiplierBps uint64 `yaml:"critical_urgency_multiplier_bps"`
}

// EvaluatorConfig holds the path scoring heuristics. The seed and multiplier
// values are empirically chosen defaults, kept configurable on purpose.
type EvaluatorConfig struct {
	MinLiquidityUSD        float64 `yaml:"min_liquidity_usd"`
	PairSuccessSeed        float64 `yaml:"pair_success_seed"`
	VenueSuccessSeed       float64 `yaml:"venue_success_seed"`
	SingleHopBonus         float64 `yaml:"single_hop_bonus"`
	DoubleHopBonus         float64 `yaml:"double_hop_bonus"`
	MultiHopPenalty        float64 `yaml:"multi_hop_penalty"`
	UnknownLiquidityFactor float64 `yaml:"unknown_liquidity_factor"`
	TopN                   int     `yaml:"top_n"`
}

// SimulatorConfig holds the simulation orchestrator settings.
type SimulatorConfig struct {
	BatchSize      int     `yaml:"batch_size"`
	MaxConcurrency int64   `yaml:"max_concurrency"`
	FlushEvery     int     `yaml:"flush_every"`
	QuoteRPS       float64 `yaml:"quote_rps"`
}

// ExecutorConfig holds the execution queue settings.
type ExecutorConfig struct {
	QueueSize            int     `yaml:"queue_size"`
	MinProfitLamports    uint64  `yaml:"min_profit_lamports"`
	PaperStateFile       string  `yaml:"paper_state_file"`
	PaperStartingBalance uint64  `yaml:"paper_starting_balance"`
	PaperMaxPosition     uint64  `yaml:"paper_max_position"`
	PaperSlippageFactor  float64 `yaml:"paper_slippage_factor"`
	PaperFailureRate     float64 `yaml:"paper_failure_rate"`
}

// StatsConfig holds the statistics feedback loop settings.
type StatsConfig struct {
	FilePath            string `yaml:"file_path"`
	SaveIntervalSeconds int    `yaml:"save_interval_seconds"`
}

// SlotClockConfig holds the slot tracking settings.
type SlotClockConfig struct {
	PollIntervalMs int `yaml:"poll_interval_ms"`
	DefaultSlotMs  int `yaml:"default_slot_ms"`
}

// MarketConfig holds the market data source and refresh settings.
type MarketConfig struct {
	// DataFile is the JSON pool snapshot consumed by the file provider.
	DataFile          string  `yaml:"data_file"`
	RefreshIntervalMs int     `yaml:"refresh_interval_ms"`
	RefreshRPS        float64 `yaml:"refresh_rps"`
}

// DatabaseConfig holds the optional TimescaleDB connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// DBWriterConfig holds the batch writer settings. BatchSize == 0 disables
// the database writer entirely.
type DBWriterConfig struct {
	BatchSize            int `yaml:"batch_size"`
	WriteIntervalSeconds int `yaml:"write_interval_seconds"`
}

// ConnString assembles a pgx connection string from the env-provided parts.
func (d DatabaseConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", d.User, d.Password, d.Host, d.Port, d.Name)
}

// LoadConfig loads configuration from the specified YAML file path
// and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	// A missing .env file is fine; real deployments use actual env vars.
	_ = godotenv.Load()

	cfg := defaultConfig()

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, err
	}

	// Load sensitive data and overrides from environment variables
	if rpcURL := os.Getenv("SOLANA_RPC_URL"); rpcURL != "" {
		cfg.RPCURL = rpcURL
	}
	if wsURL := os.Getenv("SOLANA_WS_URL"); wsURL != "" {
		cfg.WSRPCURL = wsURL
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if mode := os.Getenv("EXECUTION_MODE"); mode != "" {
		cfg.ExecutionMode = mode
	}
	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DB_PORT"); dbPort != "" {
		cfg.Database.Port = dbPort
	}
	if dbUser := os.Getenv("DB_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPassword := os.Getenv("DB_PASSWORD"); dbPassword != "" {
		cfg.Database.Password = dbPassword
	}
	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		cfg.Database.Name = dbName
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		ExecutionMode:    ModeSimulate,
		SimulationAmount: 1_000_000_000, // 1 SOL
		PortfolioUSD:     10_000,
		SolPriceUSD:      150,
		LogLevel:         "info",
		Arbitrage: ArbitrageConfig{
			MinSpreadBps:       10,
			MinNotionalUSD:     10,
			MaxSlippageBps:     30,
			BreakerThreshold:   5,
			DetectionTimeoutMs: 50,
			GasCostLamports:    15_000,
			TipLamports:        100_000,
			MinLiquidityUSD:    1_000,
			MaxOpportunities:   20,
		},
		Position: PositionConfig{
			MaxPositionUSD:         10_000,
			MaxPercentOfLiquidity:  0.02,
			KellyFraction:          0.25,
			HistoricalWinRate:      0.45,
			HistoricalWinLossRatio: 1.3,
		},
		Risk: RiskConfig{
			MaxDailyDrawdown: 0.05,
		},
		Fees: FeeConfig{
			Strategy:                     "profit",
			CacheTTLSeconds:              2,
			MinFee:                       10_000,
			MaxFee:                       10_000_000,
			ProfitPercentageBps:          50,
			HighUrgencyMultiplierBps:     15_000,
			CriticalUrgencyMultiplierBps: 20_000,
		},
		Evaluator: EvaluatorConfig{
			MinLiquidityUSD:        1_000,
			PairSuccessSeed:        0.75,
			VenueSuccessSeed:       0.8,
			SingleHopBonus:         1.5,
			DoubleHopBonus:         1.2,
			MultiHopPenalty:        0.8,
			UnknownLiquidityFactor: 0.75,
			TopN:                   10,
		},
		Simulator: SimulatorConfig{
			BatchSize:      16,
			MaxConcurrency: 4,
			FlushEvery:     100,
			QuoteRPS:       50,
		},
		Executor: ExecutorConfig{
			QueueSize:            100,
			MinProfitLamports:    1_000_000, // 0.001 SOL
			PaperStateFile:       "paper_trading_state.json",
			PaperStartingBalance: 10_000_000_000, // 10 SOL
			PaperMaxPosition:     5_000_000_000,
			PaperSlippageFactor:  0.005,
			PaperFailureRate:     0.05,
		},
		Stats: StatsConfig{
			FilePath:            "data/path_stats.json",
			SaveIntervalSeconds: 60,
		},
		SlotClock: SlotClockConfig{
			PollIntervalMs: 100,
			DefaultSlotMs:  400,
		},
		Market: MarketConfig{
			DataFile:          "data/markets.json",
			RefreshIntervalMs: 500,
			RefreshRPS:        20,
		},
		DBWriter: DBWriterConfig{
			BatchSize:            0,
			WriteIntervalSeconds: 1,
		},
	}
}

func (c *Config) validate() error {
	switch c.ExecutionMode {
	case ModeLive, ModePaper, ModeSimulate:
	default:
		return fmt.Errorf("config: unknown execution mode %q", c.ExecutionMode)
	}
	if c.ExecutionMode != ModePaper && c.RPCURL == "" {
		return fmt.Errorf("config: rpc_url is required in %s mode", c.ExecutionMode)
	}
	if c.SolPriceUSD <= 0 {
		return fmt.Errorf("config: sol_price_usd must be positive")
	}
	if c.Arbitrage.BreakerThreshold == 0 {
		return fmt.Errorf("config: arbitrage.breaker_threshold must be positive")
	}
	if c.Fees.MinFee > c.Fees.MaxFee {
		return fmt.Errorf("config: fees.min_fee exceeds fees.max_fee")
	}
	if c.Simulator.MaxConcurrency <= 0 {
		return fmt.Errorf("config: simulator.max_concurrency must be positive")
	}
	return nil
}
