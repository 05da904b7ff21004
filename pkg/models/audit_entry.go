package models

import (
	"time"

	"github.com/google/uuid"
)

// Action represents the kind of mutation being audited.
type Action string

// Audit action constants.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// String returns the string representation of an Action.
func (a Action) String() string {
	return string(a)
}

// IsValid returns true if the action is one the engine supports.
func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	default:
		return false
	}
}

// AuditEntry is one row in the audit trail. An UPDATE produces one entry per
// changed field (FieldName set, scalar old/new values); CREATE and DELETE
// produce a single whole-record entry (FieldName nil, the full attribute set
// as the value). Stored in the audit_entries table, append-only.
type AuditEntry struct {
	ID         uuid.UUID `json:"id"`
	TableName  string    `json:"table_name"`
	FieldName  *string   `json:"field_name,omitempty"` // nil for whole-record create/delete rows
	PrimaryKey string    `json:"primary_key"`          // string-encoded scalar key
	Action     Action    `json:"action"`

	// Raw values as persisted; old is nil for CREATE, new is nil for DELETE.
	OldValue any `json:"old_value,omitempty"`
	NewValue any `json:"new_value,omitempty"`

	// Human-readable renderings cached at audit time. Nil when the record
	// type carries no label capability for the field.
	OldLabel *string `json:"old_label,omitempty"`
	NewLabel *string `json:"new_label,omitempty"`

	// CorrelationID ties together every entry produced from one change-set.
	CorrelationID uuid.UUID `json:"correlation_id"`
	ActorID       uuid.UUID `json:"actor_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// FieldChange represents the old and new values for a changed field.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}
