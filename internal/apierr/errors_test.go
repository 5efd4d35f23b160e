package apierr

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrLayoutInvalidRange, "timeout occurred", http.StatusRequestTimeout)
	if err.Code != ErrLayoutInvalidRange {
		t.Errorf("expected code %s, got %s", ErrLayoutInvalidRange, err.Code)
	}
	if err.Message != "timeout occurred" {
		t.Errorf("expected message 'timeout occurred', got '%s'", err.Message)
	}
	if err.Status() != http.StatusRequestTimeout {
		t.Errorf("expected status %d, got %d", http.StatusRequestTimeout, err.Status())
	}
}

func TestWithDetails(t *testing.T) {
	err := New(ErrValidationInvalidValue, "invalid field", http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": "id_start"})

	if err.Details == nil {
		t.Fatal("expected details to be set")
	}
	if field, ok := err.Details["field"]; !ok || field != "id_start" {
		t.Errorf("expected field 'id_start', got %v", field)
	}
}

func TestWithRequestID(t *testing.T) {
	requestID := "test-request-123"
	err := New(ErrSystemInternal, "internal error", http.StatusInternalServerError).
		WithRequestID(requestID)

	if err.RequestID != requestID {
		t.Errorf("expected request ID %s, got %s", requestID, err.RequestID)
	}
}

func TestErrorInterface(t *testing.T) {
	err := New(ErrLayoutInvalidRange, "no papers in range", http.StatusBadRequest)
	expected := "LAYOUT_INVALID_RANGE: no papers in range"
	if err.Error() != expected {
		t.Errorf("expected error string %s, got %s", expected, err.Error())
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	err := New(ErrLayoutInvalidRange, "timeout", http.StatusRequestTimeout).
		WithRequestID("req-123")

	WriteError(w, err)

	if w.Code != http.StatusRequestTimeout {
		t.Errorf("expected status %d, got %d", http.StatusRequestTimeout, w.Code)
	}

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Error == nil {
		t.Fatal("expected error in response")
	}
	if resp.Error.Code != ErrLayoutInvalidRange {
		t.Errorf("expected code %s, got %s", ErrLayoutInvalidRange, resp.Error.Code)
	}
	if resp.Error.Message != "timeout" {
		t.Errorf("expected message 'timeout', got '%s'", resp.Error.Message)
	}
	if resp.Error.RequestID != "req-123" {
		t.Errorf("expected request ID 'req-123', got '%s'", resp.Error.RequestID)
	}
}

func TestHelperFunctions(t *testing.T) {
	tests := []struct {
		name       string
		createErr  func() *Error
		wantCode   ErrorCode
		wantStatus int
	}{
		{"LayoutInvalidRange", func() *Error { return LayoutInvalidRange("") }, ErrLayoutInvalidRange, http.StatusBadRequest},
		{"LayoutDegenerate", func() *Error { return LayoutDegenerate("") }, ErrLayoutDegenerate, http.StatusUnprocessableEntity},
		{"LayoutOverflow", func() *Error { return LayoutOverflow("") }, ErrLayoutOverflow, http.StatusRequestEntityTooLarge},
		{"LayoutNotSelected", func() *Error { return LayoutNotSelected() }, ErrLayoutNotSelected, http.StatusConflict},
		{"StoreTimeout", func() *Error { return StoreTimeout("") }, ErrStoreTimeout, http.StatusRequestTimeout},
		{"StoreQueryFailed", func() *Error { return StoreQueryFailed("") }, ErrStoreQueryFailed, http.StatusInternalServerError},
		{"StoreUnavailable", func() *Error { return StoreUnavailable("") }, ErrStoreUnavailable, http.StatusServiceUnavailable},
		{"SystemInternal", func() *Error { return SystemInternal("") }, ErrSystemInternal, http.StatusInternalServerError},
		{"SystemDatabase", func() *Error { return SystemDatabase("") }, ErrSystemDatabase, http.StatusInternalServerError},
		{"SystemUnavailable", func() *Error { return SystemUnavailable("") }, ErrSystemUnavailable, http.StatusServiceUnavailable},
		{"SystemTimeout", func() *Error { return SystemTimeout("") }, ErrSystemTimeout, http.StatusRequestTimeout},
		{"ValidationInvalidJSON", func() *Error { return ValidationInvalidJSON() }, ErrValidationInvalidJSON, http.StatusBadRequest},
		{"ValidationInvalidFormat", func() *Error { return ValidationInvalidFormat("") }, ErrValidationInvalidFormat, http.StatusBadRequest},
		{"ValidationMissingField", func() *Error { return ValidationMissingField("id_start") }, ErrValidationMissingField, http.StatusBadRequest},
		{"ValidationInvalidValue", func() *Error { return ValidationInvalidValue("id_end", "") }, ErrValidationInvalidValue, http.StatusBadRequest},
		{"ResourceNotFound", func() *Error { return ResourceNotFound("paper") }, ErrResourceNotFound, http.StatusNotFound},
		{"ResourceConflict", func() *Error { return ResourceConflict("") }, ErrResourceConflict, http.StatusConflict},
		{"RateLimitGlobal", func() *Error { return RateLimitGlobal() }, ErrRateLimitGlobal, http.StatusTooManyRequests},
		{"RateLimitIP", func() *Error { return RateLimitIP() }, ErrRateLimitIP, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.createErr()
			if err.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, err.Code)
			}
			if err.Status() != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, err.Status())
			}
			if err.Message == "" {
				t.Error("expected non-empty message")
			}
		})
	}
}

func TestValidationMissingFieldDetails(t *testing.T) {
	err := ValidationMissingField("id_start")
	if err.Details == nil {
		t.Fatal("expected details to be set")
	}
	if field, ok := err.Details["field"]; !ok || field != "id_start" {
		t.Errorf("expected field 'id_start', got %v", field)
	}
}

func TestResourceNotFoundDetails(t *testing.T) {
	err := ResourceNotFound("paper")
	if err.Details == nil {
		t.Fatal("expected details to be set")
	}
	if rt, ok := err.Details["resource_type"]; !ok || rt != "paper" {
		t.Errorf("expected resource_type 'paper', got %v", rt)
	}
}
