package apierr

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/onnwee/paperscape-layout/internal/logger"
)

// ErrorCode represents a structured error code
type ErrorCode string

// Error code constants organized by category
const (
	// LAYOUT_ - date-range selection and iteration errors
	ErrLayoutInvalidRange ErrorCode = "LAYOUT_INVALID_RANGE"
	ErrLayoutDegenerate   ErrorCode = "LAYOUT_DEGENERATE"
	ErrLayoutOverflow     ErrorCode = "LAYOUT_OVERFLOW"
	ErrLayoutNotSelected  ErrorCode = "LAYOUT_NOT_SELECTED"

	// STORE_ - paper/keyword persistence errors
	ErrStoreTimeout     ErrorCode = "STORE_TIMEOUT"
	ErrStoreQueryFailed ErrorCode = "STORE_QUERY_FAILED"
	ErrStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"

	// SYSTEM_ - System and server errors
	ErrSystemInternal    ErrorCode = "SYSTEM_INTERNAL"
	ErrSystemDatabase    ErrorCode = "SYSTEM_DATABASE"
	ErrSystemUnavailable ErrorCode = "SYSTEM_UNAVAILABLE"
	ErrSystemTimeout     ErrorCode = "SYSTEM_TIMEOUT"

	// VALIDATION_ - Request validation errors
	ErrValidationInvalidJSON   ErrorCode = "VALIDATION_INVALID_JSON"
	ErrValidationInvalidFormat ErrorCode = "VALIDATION_INVALID_FORMAT"
	ErrValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"
	ErrValidationInvalidValue  ErrorCode = "VALIDATION_INVALID_VALUE"

	// RESOURCE_ - Resource errors
	ErrResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	ErrResourceConflict ErrorCode = "RESOURCE_CONFLICT"

	// RATE_LIMIT_ - Rate limiting errors
	ErrRateLimitGlobal ErrorCode = "RATE_LIMIT_GLOBAL"
	ErrRateLimitIP     ErrorCode = "RATE_LIMIT_IP"
)

// Error represents a structured API error
type Error struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	status    int                    // HTTP status code (not serialized)
}

// ErrorResponse is the top-level error response wrapper
type ErrorResponse struct {
	Error *Error `json:"error"`
}

// New creates a new API error
func New(code ErrorCode, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		status:  status,
	}
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// WithRequestID adds a request ID to the error
func (e *Error) WithRequestID(requestID string) *Error {
	e.RequestID = requestID
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Status returns the HTTP status code
func (e *Error) Status() int {
	return e.status
}

// WriteError writes a structured error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status())
	json.NewEncoder(w).Encode(ErrorResponse{Error: err})
}

// Helper functions for common errors

// LayoutInvalidRange creates an invalid date-range error (errs.InvalidRange).
func LayoutInvalidRange(message string) *Error {
	if message == "" {
		message = "No papers fall within the requested id range"
	}
	return New(ErrLayoutInvalidRange, message, http.StatusBadRequest)
}

// LayoutDegenerate creates a degenerate-graph error (errs.Degenerate).
func LayoutDegenerate(message string) *Error {
	if message == "" {
		message = "Selected range produced a degenerate graph"
	}
	return New(ErrLayoutDegenerate, message, http.StatusUnprocessableEntity)
}

// LayoutOverflow creates a resource-overflow error (errs.Overflow).
func LayoutOverflow(message string) *Error {
	if message == "" {
		message = "Selected range exceeds the configured maximum node count"
	}
	return New(ErrLayoutOverflow, message, http.StatusRequestEntityTooLarge)
}

// LayoutNotSelected creates an error for iterate/coarsen/etc. called
// before any SelectDateRange has succeeded.
func LayoutNotSelected() *Error {
	return New(ErrLayoutNotSelected, "No date range has been selected yet", http.StatusConflict)
}

// StoreTimeout creates a paper-store fetch timeout error.
func StoreTimeout(message string) *Error {
	if message == "" {
		message = "Paper store query timeout"
	}
	return New(ErrStoreTimeout, message, http.StatusRequestTimeout)
}

// StoreQueryFailed creates a paper-store query failed error.
func StoreQueryFailed(message string) *Error {
	if message == "" {
		message = "Paper store query failed"
	}
	return New(ErrStoreQueryFailed, message, http.StatusInternalServerError)
}

// StoreUnavailable creates a paper-store unavailable error.
func StoreUnavailable(message string) *Error {
	if message == "" {
		message = "Paper store unavailable"
	}
	return New(ErrStoreUnavailable, message, http.StatusServiceUnavailable)
}

// SystemInternal creates an internal server error
func SystemInternal(message string) *Error {
	if message == "" {
		message = "Internal server error"
	}
	return New(ErrSystemInternal, message, http.StatusInternalServerError)
}

// SystemDatabase creates a database error
func SystemDatabase(message string) *Error {
	if message == "" {
		message = "Database error"
	}
	return New(ErrSystemDatabase, message, http.StatusInternalServerError)
}

// SystemUnavailable creates a service unavailable error
func SystemUnavailable(message string) *Error {
	if message == "" {
		message = "Service unavailable"
	}
	return New(ErrSystemUnavailable, message, http.StatusServiceUnavailable)
}

// SystemTimeout creates a system timeout error
func SystemTimeout(message string) *Error {
	if message == "" {
		message = "Request timeout"
	}
	return New(ErrSystemTimeout, message, http.StatusRequestTimeout)
}

// ValidationInvalidJSON creates an invalid JSON error
func ValidationInvalidJSON() *Error {
	return New(ErrValidationInvalidJSON, "Invalid JSON request body", http.StatusBadRequest)
}

// ValidationInvalidFormat creates an invalid format error
func ValidationInvalidFormat(message string) *Error {
	if message == "" {
		message = "Invalid request format"
	}
	return New(ErrValidationInvalidFormat, message, http.StatusBadRequest)
}

// ValidationMissingField creates a missing field error
func ValidationMissingField(field string) *Error {
	return New(ErrValidationMissingField, "Missing required field: "+field, http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": field})
}

// ValidationInvalidValue creates an invalid value error
func ValidationInvalidValue(field string, message string) *Error {
	if message == "" {
		message = "Invalid value for field: " + field
	}
	return New(ErrValidationInvalidValue, message, http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": field})
}

// ResourceNotFound creates a resource not found error
func ResourceNotFound(resourceType string) *Error {
	return New(ErrResourceNotFound, resourceType+" not found", http.StatusNotFound).
		WithDetails(map[string]interface{}{"resource_type": resourceType})
}

// ResourceConflict creates a resource conflict error
func ResourceConflict(message string) *Error {
	if message == "" {
		message = "Resource conflict"
	}
	return New(ErrResourceConflict, message, http.StatusConflict)
}

// RateLimitGlobal creates a global rate limit error
func RateLimitGlobal() *Error {
	return New(ErrRateLimitGlobal, "Rate limit exceeded - too many requests globally", http.StatusTooManyRequests)
}

// RateLimitIP creates an IP rate limit error
func RateLimitIP() *Error {
	return New(ErrRateLimitIP, "Rate limit exceeded - too many requests from your IP", http.StatusTooManyRequests)
}

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		return reqID
	}
	return ""
}

// WriteErrorWithContext writes a structured error response with request ID from context
func WriteErrorWithContext(w http.ResponseWriter, r *http.Request, err *Error) {
	if reqID := GetRequestID(r.Context()); reqID != "" {
		err = err.WithRequestID(reqID)
	}
	WriteError(w, err)
}
