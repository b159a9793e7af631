package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/hotroute/internal/core/domain"
	"github.com/yndnr/hotroute/internal/infra/buildinfo"
)

// handleHealth handles GET /_hotroute/health. It answers 503 while the
// server is not running.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := h.src.State()
	resp := HealthResponse{
		Status:   "healthy",
		State:    state.String(),
		Modules:  len(h.src.Modules()),
		Handlers: len(h.src.Routes()),
		Refresh:  h.src.Refresh(),
		Version:  buildinfo.Get().Version,
		Time:     time.Now().UTC().Format(time.RFC3339),
	}

	status := http.StatusOK
	if state != domain.StateRunning {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, r, status, resp)
}
