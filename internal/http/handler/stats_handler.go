package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/your-org/sol-arb-bot/internal/executor"
	"github.com/your-org/sol-arb-bot/internal/market"
	"github.com/your-org/sol-arb-bot/internal/slotclock"
	"github.com/your-org/sol-arb-bot/pkg/logger"
)

// StatsHandler exposes runtime counters for dashboards and debugging.
type StatsHandler struct {
	Clock    *slotclock.Clock
	Cache    *market.Cache
	Executor *executor.Executor
}

type statsResponse struct {
	Slot            uint64                   `json:"slot"`
	TimeRemainingMs int64                    `json:"time_remaining_ms"`
	SlotDurationMs  int64                    `json:"slot_duration_ms"`
	Cache           market.CacheStats        `json:"cache"`
	ExecutionMode   string                   `json:"execution_mode"`
	Execution       executor.MetricsSnapshot `json:"execution"`
	QueueDepth      int                      `json:"queue_depth"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := statsResponse{}
	if h.Clock != nil {
		timing := h.Clock.Current()
		resp.Slot = timing.Slot
		resp.TimeRemainingMs = timing.TimeRemaining(time.Now()).Milliseconds()
		resp.SlotDurationMs = timing.EstimatedDuration.Milliseconds()
	}
	if h.Cache != nil {
		resp.Cache = h.Cache.Stats()
	}
	if h.Executor != nil {
		resp.ExecutionMode = h.Executor.Mode()
		resp.Execution = h.Executor.Metrics()
		resp.QueueDepth = h.Executor.QueueDepth()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Errorf("Failed to encode stats response: %v", err)
	}
}
