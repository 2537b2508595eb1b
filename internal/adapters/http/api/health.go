package api

import (
	"net/http"

	"github.com/okian/matchtrack/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthHandler serves the metrics registry and a readiness probe.
type HealthHandler struct {
	metrics http.Handler
	ready   func() bool
}

// NewHealthHandler creates a new health handler. ready reports whether
// the broadcast transport is reachable.
func NewHealthHandler(ready func() bool) *HealthHandler {
	return &HealthHandler{
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
		ready:   ready,
	}
}

// HandleHealth handles GET /healthz with the Prometheus registry.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// HandleReady handles GET /readyz.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, _ *http.Request) {
	if h.ready != nil && !h.ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "offline"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
