package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/auditrail-io/auditrail-engine/pkg/auth"
	"github.com/auditrail-io/auditrail-engine/pkg/models"
	"github.com/auditrail-io/auditrail-engine/pkg/services"
)

// AuditHandler serves the read-only audit trail API. Writes happen only
// through the engine; this surface exposes what was recorded.
type AuditHandler struct {
	queryService services.AuditQueryService
	logger       *zap.Logger
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(queryService services.AuditQueryService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		queryService: queryService,
		logger:       logger,
	}
}

// RegisterRoutes registers the audit handler's routes on the given mux.
func (h *AuditHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	base := "/api/audit"

	mux.HandleFunc("GET "+base+"/correlations/{cid}",
		authMiddleware.RequireAuth(h.GetByCorrelation))
	mux.HandleFunc("GET "+base+"/records/{table}/{pk}",
		authMiddleware.RequireAuth(h.GetByRecord))
	mux.HandleFunc("GET "+base+"/actors/{aid}",
		authMiddleware.RequireAuth(h.GetByActor))
}

// AuditEntriesResponse wraps a list of audit entries.
type AuditEntriesResponse struct {
	Entries []models.AuditEntry `json:"entries"`
	Total   int                 `json:"total"`
}

// GetByCorrelation handles GET /api/audit/correlations/{cid}.
// Returns every entry written by one change-set run, oldest first. An
// unknown correlation ID yields an empty list, not an error.
func (h *AuditHandler) GetByCorrelation(w http.ResponseWriter, r *http.Request) {
	correlationID, ok := ParseCorrelationID(w, r, h.logger)
	if !ok {
		return
	}

	entries, err := h.queryService.GetByCorrelation(r.Context(), correlationID)
	if err != nil {
		h.logger.Error("Failed to get audit entries by correlation",
			zap.String("correlation_id", correlationID.String()),
			zap.Error(err))
		if err := EngineErrorResponse(w, err); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	h.writeEntries(w, entries)
}

// GetByRecord handles GET /api/audit/records/{table}/{pk}.
// Returns the most recent entries for one record, newest first.
func (h *AuditHandler) GetByRecord(w http.ResponseWriter, r *http.Request) {
	tableName := r.PathValue("table")
	primaryKey := r.PathValue("pk")

	limit, ok := ParseLimit(w, r, h.logger)
	if !ok {
		return
	}

	entries, err := h.queryService.GetByRecord(r.Context(), tableName, primaryKey, limit)
	if err != nil {
		h.logger.Error("Failed to get audit entries by record",
			zap.String("table_name", tableName),
			zap.String("primary_key", primaryKey),
			zap.Error(err))
		if err := EngineErrorResponse(w, err); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	h.writeEntries(w, entries)
}

// GetByActor handles GET /api/audit/actors/{aid}.
// Returns the most recent entries attributed to one actor, newest first.
func (h *AuditHandler) GetByActor(w http.ResponseWriter, r *http.Request) {
	actorID, ok := ParseActorID(w, r, h.logger)
	if !ok {
		return
	}

	limit, ok := ParseLimit(w, r, h.logger)
	if !ok {
		return
	}

	entries, err := h.queryService.GetByActor(r.Context(), actorID, limit)
	if err != nil {
		h.logger.Error("Failed to get audit entries by actor",
			zap.String("actor_id", actorID.String()),
			zap.Error(err))
		if err := EngineErrorResponse(w, err); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	h.writeEntries(w, entries)
}

func (h *AuditHandler) writeEntries(w http.ResponseWriter, entries []models.AuditEntry) {
	if entries == nil {
		entries = []models.AuditEntry{}
	}

	response := AuditEntriesResponse{
		Entries: entries,
		Total:   len(entries),
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
