package handler

import (
	"net/http"
)

// MetricsHandler serves the metrics exposition endpoint.
type MetricsHandler struct {
	exposition http.Handler
}

// NewMetricsHandler creates a new MetricsHandler. A nil exposition handler
// means metrics are disabled.
func NewMetricsHandler(exposition http.Handler) *MetricsHandler {
	return &MetricsHandler{exposition: exposition}
}

// Metrics returns metrics in Prometheus exposition format.
//
// GET /metrics
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.exposition == nil {
		writeError(w, http.StatusServiceUnavailable, "METRICS_DISABLED", "Metrics are disabled")
		return
	}
	h.exposition.ServeHTTP(w, r)
}
