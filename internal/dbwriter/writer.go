// Package dbwriter batches execution and simulation records into
// TimescaleDB. The writer is optional: with a nil pool it becomes a
// no-op so Paper and Simulate runs need no database.
package dbwriter

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// TradeRecord is one finished execution attempt.
type TradeRecord struct {
	Time           time.Time `db:"time"`
	ExecutionID    string    `db:"execution_id"`
	Pair           string    `db:"pair"`
	BuyVenue       string    `db:"buy_venue"`
	SellVenue      string    `db:"sell_venue"`
	Mode           string    `db:"mode"`
	Success        bool      `db:"success"`
	ProfitLamports int64     `db:"profit_lamports"`
	PriorityFee    int64     `db:"priority_fee"`
}

// SimulationRecord is one simulated path outcome.
type SimulationRecord struct {
	Time           time.Time `db:"time"`
	PathID         string    `db:"path_id"`
	HopCount       int       `db:"hop_count"`
	Completed      bool      `db:"completed"`
	AmountIn       int64     `db:"amount_in"`
	ProfitLamports int64     `db:"profit_lamports"`
}

// Pool is an interface that abstracts the pgxpool.Pool for testability.
type Pool interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Close()
}

// Config controls the flush behavior.
type Config struct {
	BatchSize            int
	WriteIntervalSeconds int
}

// Writer accumulates records and flushes them with CopyFrom, either when
// a buffer reaches the batch size or on the ticker.
type Writer struct {
	pool         Pool
	logger       *zap.Logger
	config       Config
	tradeBuffer  []TradeRecord
	simBuffer    []SimulationRecord
	bufferMutex  sync.Mutex
	flushTicker  *time.Ticker
	shutdownChan chan struct{}
}

// NewWriter creates a Writer over an externally provided pool. A nil
// pool yields a dummy writer whose saves are no-ops.
func NewWriter(pool Pool, cfg Config, logger *zap.Logger) *Writer {
	if pool == nil {
		logger.Info("pgxpool.Pool is nil, creating dummy DB writer.")
		return &Writer{
			pool:         nil,
			logger:       logger,
			shutdownChan: make(chan struct{}),
		}
	}

	if cfg.WriteIntervalSeconds <= 0 {
		logger.Warn("WriteIntervalSeconds is zero or negative, defaulting to 1s.",
			zap.Int("originalValue", cfg.WriteIntervalSeconds))
		cfg.WriteIntervalSeconds = 1
	}
	if cfg.BatchSize <= 0 {
		logger.Warn("BatchSize is zero or negative, defaulting to 100.",
			zap.Int("originalValue", cfg.BatchSize))
		cfg.BatchSize = 100
	}

	w := &Writer{
		pool:         pool,
		logger:       logger,
		config:       cfg,
		tradeBuffer:  make([]TradeRecord, 0, cfg.BatchSize),
		simBuffer:    make([]SimulationRecord, 0, cfg.BatchSize),
		flushTicker:  time.NewTicker(time.Duration(cfg.WriteIntervalSeconds) * time.Second),
		shutdownChan: make(chan struct{}),
	}
	go w.run()
	logger.Info("Started TimescaleDB batch writer")
	return w
}

// Close flushes remaining records and closes the pool.
func (w *Writer) Close() {
	if w.pool == nil {
		w.logger.Info("Closing dummy DB writer.")
		return
	}

	w.logger.Info("Closing TimescaleDB writer...")
	close(w.shutdownChan)
	w.flushTicker.Stop()
	w.flushBuffers()
	w.pool.Close()
	w.logger.Info("TimescaleDB connection pool closed")
}

func (w *Writer) run() {
	for {
		select {
		case <-w.flushTicker.C:
			w.flushBuffers()
		case <-w.shutdownChan:
			return
		}
	}
}

// SaveTrade buffers a trade record.
func (w *Writer) SaveTrade(record TradeRecord) {
	if w.pool == nil {
		return
	}

	w.bufferMutex.Lock()
	w.tradeBuffer = append(w.tradeBuffer, record)
	shouldFlush := len(w.tradeBuffer) >= w.config.BatchSize
	w.bufferMutex.Unlock()

	if shouldFlush {
		w.flushBuffers()
	}
}

// SaveSimulation buffers a simulation record.
func (w *Writer) SaveSimulation(record SimulationRecord) {
	if w.pool == nil {
		return
	}

	w.bufferMutex.Lock()
	w.simBuffer = append(w.simBuffer, record)
	shouldFlush := len(w.simBuffer) >= w.config.BatchSize
	w.bufferMutex.Unlock()

	if shouldFlush {
		w.flushBuffers()
	}
}

func (w *Writer) flushBuffers() {
	if w.pool == nil {
		return
	}
	w.bufferMutex.Lock()
	defer w.bufferMutex.Unlock()

	if len(w.tradeBuffer) > 0 {
		w.batchInsertTrades(context.Background(), w.tradeBuffer)
		w.tradeBuffer = w.tradeBuffer[:0]
	}

	if len(w.simBuffer) > 0 {
		w.batchInsertSimulations(context.Background(), w.simBuffer)
		w.simBuffer = w.simBuffer[:0]
	}
}

func (w *Writer) batchInsertTrades(ctx context.Context, records []TradeRecord) {
	w.logger.Debug("Flushing trade records", zap.Int("count", len(records)))
	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"arb_trades"},
		[]string{"time", "execution_id", "pair", "buy_venue", "sell_venue", "mode", "success", "profit_lamports", "priority_fee"},
		pgx.CopyFromRows(toTradeInterfaces(records)),
	)
	if err != nil {
		w.logger.Error("Failed to batch insert trade records", zap.Error(err))
	}
}

func (w *Writer) batchInsertSimulations(ctx context.Context, records []SimulationRecord) {
	w.logger.Debug("Flushing simulation records", zap.Int("count", len(records)))
	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"arb_simulations"},
		[]string{"time", "path_id", "hop_count", "completed", "amount_in", "profit_lamports"},
		pgx.CopyFromRows(toSimulationInterfaces(records)),
	)
	if err != nil {
		w.logger.Error("Failed to batch insert simulation records", zap.Error(err))
	}
}

func toTradeInterfaces(records []TradeRecord) [][]interface{} {
	rows := make([][]interface{}, len(records))
	for i, r := range records {
		rows[i] = []interface{}{r.Time, r.ExecutionID, r.Pair, r.BuyVenue, r.SellVenue, r.Mode, r.Success, r.ProfitLamports, r.PriorityFee}
	}
	return rows
}

func toSimulationInterfaces(records []SimulationRecord) [][]interface{} {
	rows := make([][]interface{}, len(records))
	for i, r := range records {
		rows[i] = []interface{}{r.Time, r.PathID, r.HopCount, r.Completed, r.AmountIn, r.ProfitLamports}
	}
	return rows
}
