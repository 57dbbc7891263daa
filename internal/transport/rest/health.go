package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
)

// Pinger is a dependency whose reachability gates readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// pingTimeout bounds each dependency check.
const pingTimeout = 3 * time.Second

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	checks  map[string]Pinger
	version string
	clock   clockwork.Clock
}

// NewHealthHandler creates a HealthHandler. checks maps component names
// (e.g. "database") to their pingers.
func NewHealthHandler(checks map[string]Pinger, version string, clock clockwork.Clock) *HealthHandler {
	return &HealthHandler{checks: checks, version: version, clock: clock}
}

// HealthResponse is the JSON response for /health and /ready.
type HealthResponse struct {
	Status     string                `json:"status"`
	Version    string                `json:"version,omitempty"`
	Components map[string]CompStatus `json:"components,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
}

// CompStatus is the status of an individual component.
type CompStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Live is the liveness probe. Always returns 200.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: h.clock.Now(),
	})
}

// Ready is the readiness probe: 200 when every component answers, 503 otherwise.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	components := h.probe(r.Context())
	status, code := overall(components)
	writeJSON(w, code, HealthResponse{
		Status:    status,
		Timestamp: h.clock.Now(),
	})
}

// Health is the full health check with per-component latency and version.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	components := h.probe(r.Context())
	status, code := overall(components)
	writeJSON(w, code, HealthResponse{
		Status:     status,
		Version:    h.version,
		Components: components,
		Timestamp:  h.clock.Now(),
	})
}

func (h *HealthHandler) probe(ctx context.Context) map[string]CompStatus {
	components := make(map[string]CompStatus, len(h.checks))
	for name, check := range h.checks {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		start := h.clock.Now()
		err := check.Ping(pctx)
		latency := h.clock.Since(start)
		cancel()

		if err != nil {
			components[name] = CompStatus{Status: "down", Error: err.Error()}
			continue
		}
		components[name] = CompStatus{Status: "ok", Latency: latency.String()}
	}
	return components
}

func overall(components map[string]CompStatus) (string, int) {
	for _, c := range components {
		if c.Status != "ok" {
			return "down", http.StatusServiceUnavailable
		}
	}
	return "ok", http.StatusOK
}
