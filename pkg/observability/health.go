package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthChecker reports the health of a single dependency
type HealthChecker func(ctx context.Context) error

// HealthHandler serves liveness and readiness endpoints
type HealthHandler struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	timeout  time.Duration
}

// NewHealthHandler creates a health handler with a per-check timeout
func NewHealthHandler(timeout time.Duration) *HealthHandler {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HealthHandler{
		checkers: make(map[string]HealthChecker),
		timeout:  timeout,
	}
}

// Register adds a named dependency check
func (h *HealthHandler) Register(name string, checker HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// Liveness always reports the process as alive
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Readiness runs every registered check and reports 503 when any fails
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.mu.RLock()
	checkers := make(map[string]HealthChecker, len(h.checkers))
	for name, fn := range h.checkers {
		checkers[name] = fn
	}
	h.mu.RUnlock()

	status := http.StatusOK
	results := make(map[string]string, len(checkers))
	for name, fn := range checkers {
		if err := fn(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
		} else {
			results[name] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": http.StatusText(status),
		"checks": results,
	})
}
