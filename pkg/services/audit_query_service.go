package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/auditrail-io/auditrail-engine/pkg/models"
	"github.com/auditrail-io/auditrail-engine/pkg/repositories"
)

// AuditQueryService provides read access to the audit trail. The engine is
// the only writer; this service never mutates entries.
type AuditQueryService interface {
	// GetByCorrelation returns every entry written by one change-set run,
	// oldest first.
	GetByCorrelation(ctx context.Context, correlationID uuid.UUID) ([]models.AuditEntry, error)

	// GetByRecord returns the most recent entries for one record.
	GetByRecord(ctx context.Context, tableName, primaryKey string, limit int) ([]models.AuditEntry, error)

	// GetByActor returns the most recent entries attributed to one actor.
	GetByActor(ctx context.Context, actorID uuid.UUID, limit int) ([]models.AuditEntry, error)
}

type auditQueryService struct {
	repo   repositories.AuditRepository
	logger *zap.Logger
}

// NewAuditQueryService creates a new AuditQueryService.
func NewAuditQueryService(repo repositories.AuditRepository, logger *zap.Logger) AuditQueryService {
	return &auditQueryService{
		repo:   repo,
		logger: logger.Named("audit-query-service"),
	}
}

var _ AuditQueryService = (*auditQueryService)(nil)

func (s *auditQueryService) GetByCorrelation(ctx context.Context, correlationID uuid.UUID) ([]models.AuditEntry, error) {
	entries, err := s.repo.GetByCorrelation(ctx, correlationID)
	if err != nil {
		s.logger.Error("Failed to get audit entries by correlation",
			zap.String("correlation_id", correlationID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("get audit entries by correlation: %w", err)
	}
	return entries, nil
}

func (s *auditQueryService) GetByRecord(ctx context.Context, tableName, primaryKey string, limit int) ([]models.AuditEntry, error) {
	limit = clampLimit(limit)

	entries, err := s.repo.GetByRecord(ctx, tableName, primaryKey, limit)
	if err != nil {
		s.logger.Error("Failed to get audit entries by record",
			zap.String("table_name", tableName),
			zap.String("primary_key", primaryKey),
			zap.Error(err))
		return nil, fmt.Errorf("get audit entries by record: %w", err)
	}
	return entries, nil
}

func (s *auditQueryService) GetByActor(ctx context.Context, actorID uuid.UUID, limit int) ([]models.AuditEntry, error) {
	limit = clampLimit(limit)

	entries, err := s.repo.GetByActor(ctx, actorID, limit)
	if err != nil {
		s.logger.Error("Failed to get audit entries by actor",
			zap.String("actor_id", actorID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("get audit entries by actor: %w", err)
	}
	return entries, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50 // Default limit
	}
	if limit > 500 {
		return 500
	}
	return limit
}
