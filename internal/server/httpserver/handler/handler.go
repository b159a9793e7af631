package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yndnr/hotroute/internal/core/domain"
	"github.com/yndnr/hotroute/internal/infra/fswatch"
	"github.com/yndnr/hotroute/internal/routing"
	"github.com/yndnr/hotroute/internal/telemetry/logger"
)

// Prefix is the path prefix every introspection endpoint is served under.
const Prefix = "/_hotroute/"

// Introspector exposes the server state the endpoints report.
type Introspector interface {
	State() domain.State
	Refresh() bool
	Modules() []*domain.RouteModule
	Routes() []routing.Route
	WatchGroups() []fswatch.GroupInfo
}

// Handler serves the introspection endpoints.
type Handler struct {
	src    Introspector
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates a Handler reporting on src.
func New(src Introspector, logger *slog.Logger) *Handler {
	h := &Handler{
		src:    src,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET "+Prefix+"health", h.handleHealth)
	h.mux.HandleFunc("GET "+Prefix+"routes", h.handleRoutes)
	h.mux.HandleFunc(Prefix, func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, http.StatusNotFound, domain.ErrNotFound.Code, "unknown endpoint "+r.URL.Path)
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	WriteJSON(w, status, NewResponse(logger.RequestIDFromContext(r.Context()), data), h.logger)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("X-Error-Code", code)
	WriteJSON(w, status, NewErrorResponse(logger.RequestIDFromContext(r.Context()), code, message, nil), h.logger)
}

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any, log *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && log != nil {
		log.Error("failed to encode response", "error", err)
	}
}

// WriteError writes an error envelope for err, using its domain code when
// it has one.
func WriteError(w http.ResponseWriter, r *http.Request, status int, err error) {
	code := domain.GetErrorCode(err)
	if code == "" {
		code = domain.ErrInternalServer.Code
	}
	w.Header().Set("X-Error-Code", code)
	WriteJSON(w, status, NewErrorResponse(logger.RequestIDFromContext(r.Context()), code, err.Error(), nil), nil)
}
