package dbwriter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/sol-arb-bot/internal/evaluator"
	"github.com/your-org/sol-arb-bot/internal/simulator"
)

type copyCall struct {
	table   pgx.Identifier
	columns []string
	rows    int
}

type fakePool struct {
	mu     sync.Mutex
	copies []copyCall
	closed bool
}

func (f *fakePool) CopyFrom(_ context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	rows := 0
	for src.Next() {
		if _, err := src.Values(); err != nil {
			return int64(rows), err
		}
		rows++
	}
	f.mu.Lock()
	f.copies = append(f.copies, copyCall{table: table, columns: columns, rows: rows})
	f.mu.Unlock()
	return int64(rows), nil
}

func (f *fakePool) Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (f *fakePool) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakePool) callsFor(table string) []copyCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []copyCall
	for _, c := range f.copies {
		if len(c.table) > 0 && c.table[0] == table {
			out = append(out, c)
		}
	}
	return out
}

func TestWriter_FlushOnBatchSize(t *testing.T) {
	pool := &fakePool{}
	w := NewWriter(pool, Config{BatchSize: 2, WriteIntervalSeconds: 3600}, zap.NewNop())

	w.SaveTrade(TradeRecord{Time: time.Now(), ExecutionID: "sig-1", Pair: "0-1", Success: true})
	assert.Empty(t, pool.callsFor("arb_trades"), "below the batch size")

	w.SaveTrade(TradeRecord{Time: time.Now(), ExecutionID: "sig-2", Pair: "0-1"})
	calls := pool.callsFor("arb_trades")
	require.Len(t, calls, 1)
	assert.Equal(t, 2, calls[0].rows)
	assert.Contains(t, calls[0].columns, "profit_lamports")

	w.Close()
	assert.True(t, pool.closed)
}

func TestWriter_CloseFlushesRemainder(t *testing.T) {
	pool := &fakePool{}
	w := NewWriter(pool, Config{BatchSize: 100, WriteIntervalSeconds: 3600}, zap.NewNop())

	w.SaveSimulation(SimulationRecord{Time: time.Now(), PathID: "route-1", HopCount: 2, Completed: true})
	assert.Empty(t, pool.callsFor("arb_simulations"))

	w.Close()
	calls := pool.callsFor("arb_simulations")
	require.Len(t, calls, 1)
	assert.Equal(t, 1, calls[0].rows)
}

func TestWriter_DummyModeIsNoOp(t *testing.T) {
	w := NewWriter(nil, Config{}, zap.NewNop())
	w.SaveTrade(TradeRecord{})
	w.SaveSimulation(SimulationRecord{})
	w.Close()
}

func TestSimulationSink_ConvertsResults(t *testing.T) {
	pool := &fakePool{}
	w := NewWriter(pool, Config{BatchSize: 1, WriteIntervalSeconds: 3600}, zap.NewNop())
	sink := NewSimulationSink(w)

	path := evaluator.Path{ID: "route-1", Hops: []evaluator.Hop{{PoolAddress: "a"}, {PoolAddress: "b"}}}
	sink.FlushResults(context.Background(), []simulator.PathResult{
		{Path: path, AmountIn: 1_000_000, Hops: []simulator.HopResult{{}, {}}, ProfitLamports: 42},
		{Path: path, AmountIn: 1_000_000, Hops: []simulator.HopResult{{}}}, // failed midway
	})

	calls := pool.callsFor("arb_simulations")
	require.Len(t, calls, 2, "batch size 1 flushes per record")
	w.Close()
}
