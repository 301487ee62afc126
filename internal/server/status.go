package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status is the JSON body served on /health.
type Status struct {
	Status    string    `json:"status"`
	Phase     string    `json:"phase,omitempty"`
	Percent   float64   `json:"percent"`
	Message   string    `json:"message,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// StatusHandler serves /health from the latest run state and /metrics from
// the given Prometheus handler.
type StatusHandler struct {
	metrics http.Handler

	mu     sync.RWMutex
	status Status
}

// NewStatusHandler creates a [StatusHandler]. A nil metrics handler disables /metrics.
func NewStatusHandler(metrics http.Handler) *StatusHandler {
	return &StatusHandler{
		metrics: metrics,
		status:  Status{Status: "ok", StartedAt: time.Now()},
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *StatusHandler) Routes() []string {
	return []string{"/health", "/metrics"}
}

// Set records the current phase, percent and message.
func (h *StatusHandler) Set(phase string, percent float64, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status.Phase = phase
	h.status.Percent = percent
	h.status.Message = message
}

// Snapshot returns the current status.
func (h *StatusHandler) Snapshot() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Path {
	case "/metrics":
		if h.metrics == nil {
			http.NotFound(w, r)
			return
		}
		h.metrics.ServeHTTP(w, r)
	default:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(h.Snapshot())
	}
}
