package handler

import (
	"encoding/json"
	"net/http"
	"time"
)

var processStart = time.Now()

// HealthCheckHandler reports process liveness for container probes and
// load balancers.
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(processStart).Seconds()),
	})
}
