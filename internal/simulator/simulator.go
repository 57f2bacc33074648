// Package simulator estimates route outcomes by chaining per-hop quotes
// before anything is signed or sent.
package simulator

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/your-org/sol-arb-bot/internal/evaluator"
	"github.com/your-org/sol-arb-bot/pkg/logger"
)

// QuoteProvider returns the output amount of swapping amountIn through a
// single pool.
type QuoteProvider interface {
	Quote(ctx context.Context, hop evaluator.Hop, amountIn uint64) (uint64, error)
}

// ResultSink receives accumulated results in batches. The database
// writer and the stats loop sit behind it.
type ResultSink interface {
	FlushResults(ctx context.Context, results []PathResult)
}

// HopResult is the outcome of one hop within a simulated path.
type HopResult struct {
	Hop       evaluator.Hop
	AmountIn  uint64
	AmountOut uint64
}

// PathResult is the outcome of simulating a whole path. A result with
// fewer hop entries than the path has hops failed partway through.
type PathResult struct {
	Path     evaluator.Path
	AmountIn uint64
	Hops     []HopResult
	// ProfitLamports is final output minus initial input. Only
	// meaningful for complete results.
	ProfitLamports int64
	Err            error
}

// Failed reports whether the simulation completed every hop.
func (r PathResult) Failed() bool {
	return len(r.Hops) < len(r.Path.Hops)
}

// Config controls batching, concurrency and flush cadence.
type Config struct {
	BatchSize      int
	MaxConcurrency int64
	FlushEvery     int
	QuoteRPS       float64
}

// Simulator runs paths through a QuoteProvider in bounded batches.
// Identical route prefixes at the same input amount are quoted once and
// memoized.
type Simulator struct {
	provider QuoteProvider
	sink     ResultSink
	cfg      Config
	sem      *semaphore.Weighted
	limiter  *rate.Limiter

	memoMu sync.Mutex
	memo   map[string]uint64

	pendingMu sync.Mutex
	pending   []PathResult
}

// New creates a Simulator flushing into sink. sink may be nil when no
// one consumes raw results.
func New(provider QuoteProvider, sink ResultSink, cfg Config) *Simulator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = 100
	}
	if cfg.QuoteRPS <= 0 {
		cfg.QuoteRPS = 50
	}
	return &Simulator{
		provider: provider,
		sink:     sink,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(cfg.MaxConcurrency),
		limiter:  rate.NewLimiter(rate.Limit(cfg.QuoteRPS), int(cfg.MaxConcurrency)),
		memo:     make(map[string]uint64),
	}
}

// SimulateAll runs every path with the given input amount and returns
// the results in input order. One failing path never poisons its batch.
func (s *Simulator) SimulateAll(ctx context.Context, paths []evaluator.Path, amountIn uint64) ([]PathResult, error) {
	results := make([]PathResult, len(paths))

	for start := 0; start < len(paths); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(paths) {
			end = len(paths)
		}
		if err := s.runBatch(ctx, paths[start:end], amountIn, results[start:end]); err != nil {
			return nil, err
		}
	}

	s.accumulate(ctx, results)
	return results, nil
}

// runBatch fans the batch out under the semaphore. Each worker reads the
// shared memo before quoting and collects its own discoveries, which are
// merged back once the whole batch is done.
func (s *Simulator) runBatch(ctx context.Context, paths []evaluator.Path, amountIn uint64, out []PathResult) error {
	batchMemo := make(map[string]uint64)
	var batchMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i := range paths {
		i := i
		if err := s.sem.Acquire(gctx, 1); err != nil {
			return err
		}
		g.Go(func() error {
			defer s.sem.Release(1)
			out[i] = s.simulatePath(gctx, paths[i], amountIn, batchMemo, &batchMu)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.memoMu.Lock()
	for k, v := range batchMemo {
		s.memo[k] = v
	}
	s.memoMu.Unlock()
	return nil
}

func (s *Simulator) simulatePath(ctx context.Context, path evaluator.Path, amountIn uint64, batchMemo map[string]uint64, batchMu *sync.Mutex) PathResult {
	result := PathResult{Path: path, AmountIn: amountIn}
	amount := amountIn

	for i, hop := range path.Hops {
		key := prefixKey(path, i+1, amountIn)

		if cached, ok := s.lookup(key, batchMemo, batchMu); ok {
			result.Hops = append(result.Hops, HopResult{Hop: hop, AmountIn: amount, AmountOut: cached})
			amount = cached
			continue
		}

		if err := s.limiter.Wait(ctx); err != nil {
			result.Err = err
			return result
		}
		out, err := s.provider.Quote(ctx, hop, amount)
		if err != nil {
			logger.Debugf("Quote failed on hop %d of path %s: %v", i, path.ID, err)
			result.Err = err
			return result
		}

		batchMu.Lock()
		batchMemo[key] = out
		batchMu.Unlock()

		result.Hops = append(result.Hops, HopResult{Hop: hop, AmountIn: amount, AmountOut: out})
		amount = out
	}

	result.ProfitLamports = int64(amount) - int64(amountIn)
	return result
}

// lookup checks the batch-local memo first, then the shared one.
func (s *Simulator) lookup(key string, batchMemo map[string]uint64, batchMu *sync.Mutex) (uint64, bool) {
	batchMu.Lock()
	v, ok := batchMemo[key]
	batchMu.Unlock()
	if ok {
		return v, true
	}
	s.memoMu.Lock()
	v, ok = s.memo[key]
	s.memoMu.Unlock()
	return v, ok
}

// prefixKey identifies the first n hops of a path at a given input
// amount. Paths sharing a prefix share quotes.
func prefixKey(path evaluator.Path, n int, amountIn uint64) string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(amountIn, 10))
	for i := 0; i < n && i < len(path.Hops); i++ {
		b.WriteByte('|')
		b.WriteString(path.Hops[i].PoolAddress)
	}
	return b.String()
}

// accumulate buffers results and flushes them to the sink every
// FlushEvery paths.
func (s *Simulator) accumulate(ctx context.Context, results []PathResult) {
	if s.sink == nil {
		return
	}
	s.pendingMu.Lock()
	s.pending = append(s.pending, results...)
	shouldFlush := len(s.pending) >= s.cfg.FlushEvery
	var toFlush []PathResult
	if shouldFlush {
		toFlush = s.pending
		s.pending = nil
	}
	s.pendingMu.Unlock()

	if shouldFlush {
		s.sink.FlushResults(ctx, toFlush)
	}
}

// Flush pushes any buffered results to the sink regardless of count.
// Called on shutdown.
func (s *Simulator) Flush(ctx context.Context) {
	if s.sink == nil {
		return
	}
	s.pendingMu.Lock()
	toFlush := s.pending
	s.pending = nil
	s.pendingMu.Unlock()
	if len(toFlush) > 0 {
		s.sink.FlushResults(ctx, toFlush)
	}
}

// MemoSize reports the number of memoized prefixes, for the stats
// endpoint.
func (s *Simulator) MemoSize() int {
	s.memoMu.Lock()
	defer s.memoMu.Unlock()
	return len(s.memo)
}

// ClearMemo drops all memoized quotes. Called at the start of each
// detection cycle since quotes go stale with the market.
func (s *Simulator) ClearMemo() {
	s.memoMu.Lock()
	s.memo = make(map[string]uint64)
	s.memoMu.Unlock()
}
