package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/auditrail-io/auditrail-engine/pkg/models"
)

// Builder assembles audit entries from diffed records. It never writes;
// persisting the entries is the executor's job.
type Builder struct {
	resolver *Resolver
}

// NewBuilder creates a Builder using the given label resolver.
func NewBuilder(resolver *Resolver) *Builder {
	return &Builder{resolver: resolver}
}

// UpdateEntries emits one entry per dirty field of a pre-existing record,
// in sorted field order. Labels for old and new values are resolved
// independently; one may resolve while the other does not.
func (b *Builder) UpdateEntries(rec models.Record, changes map[string]models.FieldChange, correlationID, actorID uuid.UUID) []models.AuditEntry {
	key, _ := rec.PrimaryKey()
	now := time.Now().UTC()

	entries := make([]models.AuditEntry, 0, len(changes))
	for _, field := range DirtyFields(changes) {
		change := changes[field]
		entries = append(entries, models.AuditEntry{
			ID:            uuid.New(),
			TableName:     rec.TableName(),
			FieldName:     &field,
			PrimaryKey:    key,
			Action:        models.ActionUpdate,
			OldValue:      change.Old,
			NewValue:      change.New,
			OldLabel:      b.resolver.Field(rec, field, change.Old),
			NewLabel:      b.resolver.Field(rec, field, change.New),
			CorrelationID: correlationID,
			ActorID:       actorID,
			CreatedAt:     now,
		})
	}
	return entries
}

// CreateEntry emits the single whole-record entry for an insert. rec is the
// record as persisted, including any storage-assigned key; proto is the
// registered prototype, consulted for the whole-record label when the
// persisted record was hydrated generically.
func (b *Builder) CreateEntry(rec models.Record, proto any, correlationID, actorID uuid.UUID) models.AuditEntry {
	row := rec.Attributes()
	key, _ := rec.PrimaryKey()

	label := b.resolver.Record(rec, row)
	if label == nil && proto != nil {
		label = b.resolver.Record(proto, row)
	}

	return models.AuditEntry{
		ID:            uuid.New(),
		TableName:     rec.TableName(),
		PrimaryKey:    key,
		Action:        models.ActionCreate,
		OldValue:      nil,
		NewValue:      row,
		NewLabel:      label,
		CorrelationID: correlationID,
		ActorID:       actorID,
		CreatedAt:     time.Now().UTC(),
	}
}

// DeleteEntry emits the single whole-record entry for a removal. The old
// value is the full pre-delete snapshot.
func (b *Builder) DeleteEntry(rec models.Record, correlationID, actorID uuid.UUID) models.AuditEntry {
	snapshot := rec.Snapshot()
	if snapshot == nil {
		snapshot = rec.Attributes()
	}
	key, _ := rec.PrimaryKey()

	return models.AuditEntry{
		ID:            uuid.New(),
		TableName:     rec.TableName(),
		PrimaryKey:    key,
		Action:        models.ActionDelete,
		OldValue:      snapshot,
		NewValue:      nil,
		OldLabel:      b.resolver.Record(rec, snapshot),
		CorrelationID: correlationID,
		ActorID:       actorID,
		CreatedAt:     time.Now().UTC(),
	}
}
