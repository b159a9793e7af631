package handler

import (
	"time"

	"github.com/yndnr/hotroute/internal/core/domain"
	"github.com/yndnr/hotroute/internal/infra/fswatch"
)

// Response is the standard response envelope of the introspection API.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// HealthResponse is the body of GET /_hotroute/health.
type HealthResponse struct {
	Status   string `json:"status"`
	State    string `json:"state"`
	Modules  int    `json:"modules"`
	Handlers int    `json:"handlers"`
	Refresh  bool   `json:"refresh"`
	Version  string `json:"version"`
	Time     string `json:"time"`
}

// RouteInfo describes one entry of the handler list.
type RouteInfo struct {
	Index   int    `json:"index"`
	Method  string `json:"method"`
	Pattern string `json:"pattern"`
}

// ModuleInfo describes one loaded route module.
type ModuleInfo struct {
	domain.RouteModule
	Routes []RouteInfo `json:"routes"`
}

// RoutesResponse is the body of GET /_hotroute/routes.
type RoutesResponse struct {
	Handlers int                 `json:"handlers"`
	Modules  []ModuleInfo        `json:"modules"`
	Watch    []fswatch.GroupInfo `json:"watch"`
}
