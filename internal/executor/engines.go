package executor

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/your-org/sol-arb-bot/internal/solana"
)

// LiveEngine submits real transactions through a TransactionSubmitter.
type LiveEngine struct {
	submitter TransactionSubmitter
}

// NewLiveEngine creates a LiveEngine.
func NewLiveEngine(submitter TransactionSubmitter) *LiveEngine {
	return &LiveEngine{submitter: submitter}
}

func (e *LiveEngine) Mode() string { return "Live" }

func (e *LiveEngine) Execute(ctx context.Context, req Request, priorityFee uint64) Outcome {
	signature, err := e.submitter.Submit(ctx, req.Payload, priorityFee)
	if err != nil {
		return Outcome{ID: signature, Request: req, Err: err}
	}
	return Outcome{
		ID:             signature,
		Request:        req,
		Success:        true,
		ProfitLamports: int64(req.Opportunity.NetProfitLamports),
	}
}

// TransactionSimulator dry-runs a transaction. *solana.Client satisfies
// it.
type TransactionSimulator interface {
	SimulateTransaction(ctx context.Context, txBase64 string) (solana.SimulationResult, error)
}

// SimulateEngine dry-runs transactions against the node without ever
// broadcasting them.
type SimulateEngine struct {
	simulator TransactionSimulator
}

// NewSimulateEngine creates a SimulateEngine.
func NewSimulateEngine(simulator TransactionSimulator) *SimulateEngine {
	return &SimulateEngine{simulator: simulator}
}

func (e *SimulateEngine) Mode() string { return "Simulate" }

func (e *SimulateEngine) Execute(ctx context.Context, req Request, _ uint64) Outcome {
	id := "SIM-" + uuid.New().String()
	result, err := e.simulator.SimulateTransaction(ctx, req.Payload)
	if err != nil {
		return Outcome{ID: id, Request: req, Err: err}
	}
	if result.Failed() {
		return Outcome{ID: id, Request: req, Err: fmt.Errorf("executor: simulation failed: %v", result.Err)}
	}
	return Outcome{
		ID:             id,
		Request:        req,
		Success:        true,
		ProfitLamports: int64(req.Opportunity.NetProfitLamports),
	}
}

// PaperEngine fills trades against the local ledger with a probabilistic
// failure and slippage model.
type PaperEngine struct {
	ledger *Ledger
}

// NewPaperEngine creates a PaperEngine over ledger.
func NewPaperEngine(ledger *Ledger) *PaperEngine {
	return &PaperEngine{ledger: ledger}
}

func (e *PaperEngine) Mode() string { return "Paper" }

func (e *PaperEngine) Execute(_ context.Context, req Request, priorityFee uint64) Outcome {
	trade := e.ledger.ExecuteTrade(req.Opportunity, priorityFee)
	out := Outcome{
		ID:             trade.ID,
		Request:        req,
		Success:        trade.Success,
		ProfitLamports: trade.ProfitLamports,
		ExecutedAt:     trade.At,
	}
	if !trade.Success {
		out.Err = errPaperFill
	}
	return out
}

var errPaperFill = fmt.Errorf("executor: paper fill failed")
