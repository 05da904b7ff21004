package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ParseCorrelationID extracts and validates the correlation ID from the
// request path. Returns the parsed UUID and true on success, or uuid.Nil and
// false on error (after writing an error response).
// Expects path parameter: cid
func ParseCorrelationID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "cid", "invalid_correlation_id", "Invalid correlation ID format", logger)
}

// ParseActorID extracts and validates the actor ID from the request path.
// Returns the parsed UUID and true on success, or uuid.Nil and false on error
// (after writing an error response).
// Expects path parameter: aid
func ParseActorID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "aid", "invalid_actor_id", "Invalid actor ID format", logger)
}

// ParseLimit reads the optional limit query parameter. Returns 0 when absent
// so the service applies its default; a malformed value is a client error.
func ParseLimit(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_limit", "Limit must be an integer"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return 0, false
	}
	return limit, true
}

// parseUUID is the internal helper that does the actual parsing work.
func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (uuid.UUID, bool) {
	idStr := r.PathValue(pathParam)
	id, err := uuid.Parse(idStr)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, errorCode, errorMessage); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}
