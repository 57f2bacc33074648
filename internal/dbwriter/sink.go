package dbwriter

import (
	"context"
	"time"

	"github.com/your-org/sol-arb-bot/internal/simulator"
)

// SimulationSink adapts the Writer to the simulator's flush interface.
type SimulationSink struct {
	writer *Writer
}

// NewSimulationSink wraps writer.
func NewSimulationSink(writer *Writer) *SimulationSink {
	return &SimulationSink{writer: writer}
}

// FlushResults converts path results into simulation records.
func (s *SimulationSink) FlushResults(_ context.Context, results []simulator.PathResult) {
	now := time.Now()
	for _, r := range results {
		s.writer.SaveSimulation(SimulationRecord{
			Time:           now,
			PathID:         r.Path.ID,
			HopCount:       len(r.Path.Hops),
			Completed:      !r.Failed(),
			AmountIn:       int64(r.AmountIn),
			ProfitLamports: r.ProfitLamports,
		})
	}
}
