// Package health provides liveness and readiness endpoints for platoon processes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CheckFunc reports whether one dependency of the process is usable.
type CheckFunc func(ctx context.Context) error

// HealthCheck manages health check functionality.
type HealthCheck struct {
	logger        *zap.Logger
	checks        map[string]CheckFunc
	checkInterval time.Duration
	checkTimeout  time.Duration

	mu        sync.RWMutex
	results   map[string]error
	lastCheck time.Time
}

// NewHealthCheck creates a new HealthCheck instance. The process is ready once every check passes.
func NewHealthCheck(checks map[string]CheckFunc, interval time.Duration, logger *zap.Logger) *HealthCheck {
	if checks == nil {
		checks = map[string]CheckFunc{}
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &HealthCheck{
		logger:        logger,
		checks:        checks,
		checkInterval: interval,
		checkTimeout:  interval,
		results:       make(map[string]error),
	}
}

// LivenessResponse represents the response for the liveness check.
type LivenessResponse struct {
	Status string `json:"status"`
}

// ReadinessResponse represents the response for the readiness check.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// LivenessHandler handles GET /health requests.
// Returns 200 OK if the process is running.
func (hc *HealthCheck) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{Status: "healthy"})
}

// ReadinessHandler handles GET /ready requests.
func (hc *HealthCheck) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if !hc.IsReady() {
		// Perform a fresh check if not ready
		ctx, cancel := context.WithTimeout(r.Context(), hc.checkTimeout)
		hc.RunChecks(ctx)
		cancel()
	}

	hc.mu.RLock()
	resp := ReadinessResponse{Status: "ready", Checks: make(map[string]string, len(hc.checks))}
	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		err, seen := hc.results[name]
		switch {
		case !seen:
			resp.Status = "not_ready"
			resp.Checks[name] = "unknown"
		case err != nil:
			resp.Status = "not_ready"
			resp.Checks[name] = "unhealthy"
			resp.Error = err.Error()
		default:
			resp.Checks[name] = "healthy"
		}
	}
	hc.mu.RUnlock()

	if resp.Status != "ready" {
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// RunChecks evaluates every check once.
func (hc *HealthCheck) RunChecks(ctx context.Context) {
	results := make(map[string]error, len(hc.checks))
	for name, check := range hc.checks {
		results[name] = check(ctx)
	}

	hc.mu.Lock()
	defer hc.mu.Unlock()
	for name, err := range results {
		if err != nil && hc.results[name] == nil {
			hc.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
		}
		hc.results[name] = err
	}
	hc.lastCheck = time.Now()
}

// Start performs periodic health checks until ctx is cancelled.
func (hc *HealthCheck) Start(ctx context.Context) {
	ticker := time.NewTicker(hc.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, hc.checkTimeout)
			hc.RunChecks(checkCtx)
			cancel()
		}
	}
}

// IsReady returns the current readiness status.
func (hc *HealthCheck) IsReady() bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	for name := range hc.checks {
		if err, seen := hc.results[name]; !seen || err != nil {
			return false
		}
	}
	return true
}

// LastCheck returns when the checks last ran.
func (hc *HealthCheck) LastCheck() time.Time {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.lastCheck
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
