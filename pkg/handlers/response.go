package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/auditrail-io/auditrail-engine/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// EngineErrorResponse maps engine sentinel errors to HTTP error responses.
// Unrecognized errors become a generic 500 without leaking internals.
func EngineErrorResponse(w http.ResponseWriter, err error) error {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return ErrorResponse(w, http.StatusNotFound, "not_found", "Resource not found")
	case errors.Is(err, apperrors.ErrInvalidChangeSet),
		errors.Is(err, apperrors.ErrInvalidAction),
		errors.Is(err, apperrors.ErrUnknownTable),
		errors.Is(err, apperrors.ErrUnsupportedKey):
		return ErrorResponse(w, http.StatusBadRequest, "invalid_change_set", err.Error())
	case errors.Is(err, apperrors.ErrMisconfigured):
		return ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "No actor bound to request")
	default:
		return ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
