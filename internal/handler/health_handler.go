package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Health returns basic health check
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Checker checks one dependency
type Checker func(ctx context.Context) error

// ErrDisabled marks an optional dependency that is not configured
var ErrDisabled = errors.New("disabled")

// Ready runs every check in parallel. Disabled dependencies do not fail readiness.
func Ready(checks map[string]Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		results := make([]HealthCheckResult, len(names))

		var g errgroup.Group
		for i, name := range names {
			g.Go(func() error {
				results[i] = runCheck(ctx, checks[name])
				return nil
			})
		}
		_ = g.Wait()

		ready := true
		report := make(map[string]HealthCheckResult, len(names))
		for i, name := range names {
			report[name] = results[i]
			if results[i].Status == "down" {
				ready = false
			}
		}

		response := map[string]any{
			"timestamp": time.Now().Format(time.RFC3339),
			"checks":    report,
		}

		status := http.StatusOK
		if ready {
			response["status"] = "ready"
		} else {
			response["status"] = "not_ready"
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, response)
	}
}

func runCheck(ctx context.Context, check Checker) HealthCheckResult {
	start := time.Now()
	err := check(ctx)
	latency := time.Since(start).Milliseconds()

	switch {
	case err == nil:
		return HealthCheckResult{Status: "up", LatencyMs: latency}
	case errors.Is(err, ErrDisabled):
		return HealthCheckResult{Status: "disabled"}
	default:
		return HealthCheckResult{Status: "down", LatencyMs: latency, Error: err.Error()}
	}
}
