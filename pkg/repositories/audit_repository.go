package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/auditrail-io/auditrail-engine/pkg/database"
	"github.com/auditrail-io/auditrail-engine/pkg/models"
)

// AuditRepository is the append-only persistence target for audit entries,
// plus the read side used to inspect the trail.
type AuditRepository interface {
	// AppendAll inserts entries through q, which is the executor's
	// transaction during engine runs. Entries are never updated or
	// deleted afterwards.
	AppendAll(ctx context.Context, q database.Querier, entries []models.AuditEntry) error

	// GetByCorrelation returns every entry of one logical action, oldest
	// first.
	GetByCorrelation(ctx context.Context, correlationID uuid.UUID) ([]models.AuditEntry, error)

	// GetByRecord returns the change history of a single row, newest first.
	GetByRecord(ctx context.Context, tableName, primaryKey string, limit int) ([]models.AuditEntry, error)

	// GetByActor returns recent entries attributed to one actor, newest first.
	GetByActor(ctx context.Context, actorID uuid.UUID, limit int) ([]models.AuditEntry, error)
}

type auditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *database.DB) AuditRepository {
	return &auditRepository{db: db}
}

var _ AuditRepository = (*auditRepository)(nil)

func (r *auditRepository) AppendAll(ctx context.Context, q database.Querier, entries []models.AuditEntry) error {
	query := `
		INSERT INTO audit_entries (
			id, table_name, field_name, primary_key, action,
			old_value, new_value, old_label, new_label,
			correlation_id, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	for _, entry := range entries {
		oldJSON, err := marshalValue(entry.OldValue)
		if err != nil {
			return fmt.Errorf("failed to marshal old value: %w", err)
		}
		newJSON, err := marshalValue(entry.NewValue)
		if err != nil {
			return fmt.Errorf("failed to marshal new value: %w", err)
		}

		if _, err := q.Exec(ctx, query,
			entry.ID,
			entry.TableName,
			entry.FieldName,
			entry.PrimaryKey,
			entry.Action,
			oldJSON,
			newJSON,
			entry.OldLabel,
			entry.NewLabel,
			entry.CorrelationID,
			entry.ActorID,
			entry.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}
	}

	return nil
}

func (r *auditRepository) GetByCorrelation(ctx context.Context, correlationID uuid.UUID) ([]models.AuditEntry, error) {
	query := `
		SELECT id, table_name, field_name, primary_key, action,
		       old_value, new_value, old_label, new_label,
		       correlation_id, actor_id, created_at
		FROM audit_entries
		WHERE correlation_id = $1
		ORDER BY created_at ASC, id`

	rows, err := r.db.Query(ctx, query, correlationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries by correlation: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

func (r *auditRepository) GetByRecord(ctx context.Context, tableName, primaryKey string, limit int) ([]models.AuditEntry, error) {
	query := `
		SELECT id, table_name, field_name, primary_key, action,
		       old_value, new_value, old_label, new_label,
		       correlation_id, actor_id, created_at
		FROM audit_entries
		WHERE table_name = $1 AND primary_key = $2
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, tableName, primaryKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries by record: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

func (r *auditRepository) GetByActor(ctx context.Context, actorID uuid.UUID, limit int) ([]models.AuditEntry, error) {
	query := `
		SELECT id, table_name, field_name, primary_key, action,
		       old_value, new_value, old_label, new_label,
		       correlation_id, actor_id, created_at
		FROM audit_entries
		WHERE actor_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, actorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries by actor: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

func collectEntries(rows pgx.Rows) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}
	return entries, nil
}

func scanAuditEntry(row pgx.Row) (models.AuditEntry, error) {
	var entry models.AuditEntry
	var oldJSON, newJSON []byte

	err := row.Scan(
		&entry.ID,
		&entry.TableName,
		&entry.FieldName,
		&entry.PrimaryKey,
		&entry.Action,
		&oldJSON,
		&newJSON,
		&entry.OldLabel,
		&entry.NewLabel,
		&entry.CorrelationID,
		&entry.ActorID,
		&entry.CreatedAt,
	)
	if err != nil {
		return models.AuditEntry{}, fmt.Errorf("failed to scan audit entry: %w", err)
	}

	if entry.OldValue, err = unmarshalValue(oldJSON); err != nil {
		return models.AuditEntry{}, fmt.Errorf("failed to unmarshal old value: %w", err)
	}
	if entry.NewValue, err = unmarshalValue(newJSON); err != nil {
		return models.AuditEntry{}, fmt.Errorf("failed to unmarshal new value: %w", err)
	}

	return entry, nil
}

// marshalValue renders a raw value as JSONB, mapping Go nil to SQL NULL so
// the stored column distinguishes "no value" from JSON null.
func marshalValue(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalValue(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
