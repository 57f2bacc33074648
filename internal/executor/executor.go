// Package executor turns approved opportunities into submitted, paper or
// simulated trades.
package executor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/your-org/sol-arb-bot/internal/detector"
	"github.com/your-org/sol-arb-bot/internal/fees"
	"github.com/your-org/sol-arb-bot/pkg/logger"
)

// Request is an opportunity handed to the execution queue. Payload is
// the base64 transaction for the Live and Simulate modes; the Paper mode
// ignores it.
type Request struct {
	Opportunity detector.Opportunity
	Payload     string
}

// Outcome is the result of one execution attempt.
type Outcome struct {
	ID             string
	Request        Request
	Success        bool
	ProfitLamports int64
	PriorityFee    uint64
	ExecutedAt     time.Time
	Err            error
}

// TransactionSubmitter sends a signed transaction to the network.
type TransactionSubmitter interface {
	Submit(ctx context.Context, txBase64 string, priorityFee uint64) (signature string, err error)
}

// Engine executes one request in a specific mode. Implementations never
// panic across the boundary; the queue still guards with a recover.
type Engine interface {
	Mode() string
	Execute(ctx context.Context, req Request, priorityFee uint64) Outcome
}

// MetricsSnapshot is a point-in-time copy of the execution counters.
type MetricsSnapshot struct {
	Submitted uint64 `json:"submitted"`
	Executed  uint64 `json:"executed"`
	Succeeded uint64 `json:"succeeded"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}

type metrics struct {
	submitted atomic.Uint64
	executed  atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

func (m *metrics) snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Submitted: m.submitted.Load(),
		Executed:  m.executed.Load(),
		Succeeded: m.succeeded.Load(),
		Failed:    m.failed.Load(),
		Dropped:   m.dropped.Load(),
	}
}

// Config holds the queue settings.
type Config struct {
	QueueSize int
}

// Executor owns the bounded execution queue. A single consumer preserves
// submission order; Submit never blocks the detection path.
type Executor struct {
	engine  Engine
	fees    *fees.Service
	cfg     Config
	queue   chan Request
	metrics metrics
	// onOutcome receives every finished attempt. Wired to the stats
	// loop and the risk engine.
	onOutcome func(Outcome)
}

// New creates an Executor. onOutcome may be nil.
func New(engine Engine, feeService *fees.Service, cfg Config, onOutcome func(Outcome)) *Executor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	return &Executor{
		engine:    engine,
		fees:      feeService,
		cfg:       cfg,
		queue:     make(chan Request, cfg.QueueSize),
		onOutcome: onOutcome,
	}
}

// Submit enqueues a request. It returns false when the queue is full; a
// full queue is a signal the bot is already saturated, not an error.
// Profit thresholds are the caller's concern, the queue holds no
// business rules.
func (e *Executor) Submit(req Request) bool {
	select {
	case e.queue <- req:
		e.metrics.submitted.Add(1)
		return true
	default:
		e.metrics.dropped.Add(1)
		logger.Warnf("Execution queue full, dropping opportunity on %s", req.Opportunity.Pair)
		return false
	}
}

// Run consumes the queue until ctx is done. One misbehaving request
// never takes the consumer down.
func (e *Executor) Run(ctx context.Context) {
	logger.Infof("Executor running in %s mode", e.engine.Mode())
	for {
		select {
		case <-ctx.Done():
			logger.Info("Executor stopped.")
			return
		case req := <-e.queue:
			e.handle(ctx, req)
		}
	}
}

func (e *Executor) handle(ctx context.Context, req Request) {
	defer func() {
		if r := recover(); r != nil {
			e.metrics.failed.Add(1)
			logger.Errorf("Execution panic on %s: %v", req.Opportunity.Pair, r)
		}
	}()

	var fee uint64
	var urgency fees.Urgency
	if e.fees != nil {
		fee, urgency = e.fees.PriorityFee(ctx, req.Opportunity.NetProfitLamports)
	}

	outcome := e.engine.Execute(ctx, req, fee)
	outcome.PriorityFee = fee
	if outcome.ExecutedAt.IsZero() {
		outcome.ExecutedAt = time.Now()
	}

	e.metrics.executed.Add(1)
	if outcome.Success {
		e.metrics.succeeded.Add(1)
		logger.Infof("Executed %s on %s: profit %d lamports (fee %d, urgency %s)",
			outcome.ID, req.Opportunity.Pair, outcome.ProfitLamports, fee, urgency)
	} else {
		e.metrics.failed.Add(1)
		logger.Warnf("Execution %s on %s failed: %v", outcome.ID, req.Opportunity.Pair, outcome.Err)
	}

	if e.onOutcome != nil {
		e.onOutcome(outcome)
	}
}

// Metrics returns the current counter values.
func (e *Executor) Metrics() MetricsSnapshot {
	return e.metrics.snapshot()
}

// QueueDepth reports how many requests are waiting.
func (e *Executor) QueueDepth() int {
	return len(e.queue)
}

// Mode reports the active engine mode.
func (e *Executor) Mode() string {
	return e.engine.Mode()
}
