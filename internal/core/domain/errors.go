// Package domain defines the core domain models for hotroute.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
// Codes follow the format HR-<AREA>-<NNNN>.
type DomainError struct {
	Code    string // Error code (e.g., "HR-ROUTE-4000")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Route module errors (ROUTE)
// ============================================================================

var (
	// ErrInvalidRouteFile indicates a route module could not be decoded or validated.
	ErrInvalidRouteFile = NewDomainError("HR-ROUTE-4000", "invalid route file")

	// ErrInvalidCondition indicates a route condition expression failed to compile.
	ErrInvalidCondition = NewDomainError("HR-ROUTE-4001", "invalid route condition")

	// ErrIncludeCycle indicates route modules include each other.
	ErrIncludeCycle = NewDomainError("HR-ROUTE-4002", "include cycle")

	// ErrRouteFileNotFound indicates a route module or one of its dependencies is missing.
	ErrRouteFileNotFound = NewDomainError("HR-ROUTE-4040", "route file not found")

	// ErrRegistration indicates a registration function returned an error.
	ErrRegistration = NewDomainError("HR-ROUTE-5000", "route registration failed")
)

// ============================================================================
// Reload errors (RELOAD)
// ============================================================================

var (
	// ErrReloadFailed indicates a hot reload could not re-execute a route module.
	// The module's routes are absent after this error.
	ErrReloadFailed = NewDomainError("HR-RELOAD-5000", "reload failed")

	// ErrRangeOutOfBounds indicates a range does not fit the handler list.
	ErrRangeOutOfBounds = NewDomainError("HR-RELOAD-5001", "range out of bounds")
)

// ============================================================================
// Server errors (SRV)
// ============================================================================

var (
	// ErrTLSMaterial indicates TLS certificate, key or CA material could not be loaded.
	ErrTLSMaterial = NewDomainError("HR-SRV-5001", "tls material unavailable")

	// ErrInvalidState indicates a lifecycle operation was called in the wrong state.
	ErrInvalidState = NewDomainError("HR-SRV-4090", "invalid server state")

	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("HR-SYS-5000", "internal server error")

	// ErrNotFound indicates that no route matched the request.
	ErrNotFound = NewDomainError("HR-SYS-4040", "not found")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("HR-SYS-4290", "too many requests")
)
