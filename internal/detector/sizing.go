package detector

// SizerConfig holds the Kelly sizing parameters. Win rate and win/loss
// ratio come from historical fills until the stats loop has enough data.
type SizerConfig struct {
	MaxPositionUSD         float64
	MaxPercentOfLiquidity  float64
	KellyFraction          float64
	HistoricalWinRate      float64
	HistoricalWinLossRatio float64
}

// PositionSizer sizes positions with a fractional Kelly criterion capped
// by pool liquidity.
type PositionSizer struct {
	cfg SizerConfig
}

// NewPositionSizer validates nothing; zero-value fields simply size to
// zero, which the detector treats as no opportunity.
func NewPositionSizer(cfg SizerConfig) *PositionSizer {
	return &PositionSizer{cfg: cfg}
}

// Size returns the position size in USD for a pool with the given
// liquidity. It returns zero when the Kelly expectancy is not positive.
func (s *PositionSizer) Size(liquidityUSD float64) float64 {
	b := s.cfg.HistoricalWinLossRatio
	if b <= 0 {
		return 0
	}
	edge := s.cfg.HistoricalWinRate*(b+1) - 1
	if edge <= 0 {
		return 0
	}

	kellyPct := edge / b * s.cfg.KellyFraction
	size := s.cfg.MaxPositionUSD * kellyPct

	if limit := liquidityUSD * s.cfg.MaxPercentOfLiquidity; size > limit {
		size = limit
	}
	if size > s.cfg.MaxPositionUSD {
		size = s.cfg.MaxPositionUSD
	}
	if size < 0 {
		return 0
	}
	return size
}
