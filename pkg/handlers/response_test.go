package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auditrail-io/auditrail-engine/pkg/apperrors"
)

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		errorCode  string
		message    string
	}{
		{"bad request", http.StatusBadRequest, "bad_request", "invalid input"},
		{"not found", http.StatusNotFound, "not_found", "resource not found"},
		{"internal error", http.StatusInternalServerError, "internal_error", "something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			err := ErrorResponse(w, tt.statusCode, tt.errorCode, tt.message)
			if err != nil {
				t.Fatalf("ErrorResponse returned error: %v", err)
			}

			resp := w.Result()
			defer resp.Body.Close()

			if resp.StatusCode != tt.statusCode {
				t.Errorf("status code = %d, want %d", resp.StatusCode, tt.statusCode)
			}

			ct := resp.Header.Get("Content-Type")
			if ct != "application/json" {
				t.Errorf("Content-Type = %q, want %q", ct, "application/json")
			}

			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response body: %v", err)
			}

			if body["error"] != tt.errorCode {
				t.Errorf("body[error] = %q, want %q", body["error"], tt.errorCode)
			}
			if body["message"] != tt.message {
				t.Errorf("body[message] = %q, want %q", body["message"], tt.message)
			}
		})
	}
}

func TestWriteJSON_Status200(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"key": "value"}

	err := WriteJSON(w, http.StatusOK, data)
	if err != nil {
		t.Fatalf("WriteJSON returned error: %v", err)
	}

	resp := w.Result()
	defer resp.Body.Close()

	// Status 200 is the default for ResponseRecorder, WriteJSON should not call WriteHeader
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body["key"] != "value" {
		t.Errorf("body[key] = %q, want %q", body["key"], "value")
	}
}

func TestWriteJSON_NonOKStatus(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]int{"count": 5}

	err := WriteJSON(w, http.StatusCreated, data)
	if err != nil {
		t.Fatalf("WriteJSON returned error: %v", err)
	}

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
}

func TestWriteJSON_UnencodableData(t *testing.T) {
	w := httptest.NewRecorder()
	data := make(chan int) // channels cannot be JSON-encoded

	err := WriteJSON(w, http.StatusOK, data)
	if err == nil {
		t.Error("expected error for unencodable data, got nil")
	}
}

func TestEngineErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "not found",
			err:        fmt.Errorf("delivery_fees with key 9: %w", apperrors.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "invalid change set",
			err:        fmt.Errorf("%w: member 0 is nil", apperrors.ErrInvalidChangeSet),
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_change_set",
		},
		{
			name:       "invalid action",
			err:        fmt.Errorf("%w: %q", apperrors.ErrInvalidAction, "upsert"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_change_set",
		},
		{
			name:       "unknown table",
			err:        fmt.Errorf("%w: %q", apperrors.ErrUnknownTable, "invoices"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_change_set",
		},
		{
			name:       "unsupported key",
			err:        fmt.Errorf("%w: composite", apperrors.ErrUnsupportedKey),
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_change_set",
		},
		{
			name:       "misconfigured",
			err:        fmt.Errorf("%w: no actor bound", apperrors.ErrMisconfigured),
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthorized",
		},
		{
			name:       "unknown error",
			err:        fmt.Errorf("connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			if err := EngineErrorResponse(w, tt.err); err != nil {
				t.Fatalf("EngineErrorResponse returned error: %v", err)
			}

			resp := w.Result()
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status code = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response body: %v", err)
			}
			if body["error"] != tt.wantCode {
				t.Errorf("body[error] = %q, want %q", body["error"], tt.wantCode)
			}
		})
	}
}
