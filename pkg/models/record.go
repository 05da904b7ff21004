package models

import "fmt"

// Record is the contract a row must satisfy to be auditable. Host
// applications implement it on their persisted types; the engine never
// inspects anything beyond these methods.
type Record interface {
	// TableName returns the storage table this record belongs to.
	TableName() string

	// PrimaryKey returns the string-encoded scalar key and true once the
	// row has been persisted. Records awaiting insert return false.
	PrimaryKey() (string, bool)

	// Attributes returns the current in-memory field values.
	Attributes() map[string]any

	// Snapshot returns the field values as last loaded from storage, or
	// nil for a record that has never been persisted. Dirty fields are
	// those whose Attributes value differs from the Snapshot value.
	Snapshot() map[string]any
}

// LabelProvider is an optional capability: record types that can translate a
// raw field value into a human-readable label implement it. Returning false
// means no label exists for that field/value, which is normal, not an error.
type LabelProvider interface {
	AuditLabel(field string, value any) (string, bool)
}

// RecordLabelProvider is an optional capability for whole-record audit rows
// (CREATE/DELETE): it renders a one-line label for the full attribute set.
type RecordLabelProvider interface {
	AuditRecordLabel(row map[string]any) (string, bool)
}

// NewRecord is a pending insert: it has a table identity and attributes but
// no primary key until storage assigns one.
type NewRecord struct {
	Table string
	Attrs map[string]any
}

func (r NewRecord) TableName() string          { return r.Table }
func (r NewRecord) PrimaryKey() (string, bool) { return "", false }
func (r NewRecord) Attributes() map[string]any { return r.Attrs }
func (r NewRecord) Snapshot() map[string]any   { return nil }

// StoredRecord is a generic Record backed by a column/value map, used for
// rows hydrated straight from storage (e.g. the outcome of a CREATE).
type StoredRecord struct {
	Table string
	Key   string
	Row   map[string]any
}

func (r StoredRecord) TableName() string          { return r.Table }
func (r StoredRecord) PrimaryKey() (string, bool) { return r.Key, r.Key != "" }
func (r StoredRecord) Attributes() map[string]any { return r.Row }
func (r StoredRecord) Snapshot() map[string]any   { return r.Row }

var (
	_ Record = NewRecord{}
	_ Record = StoredRecord{}
)

// EncodeKey renders a primary-key value read from storage in the canonical
// string form used throughout the audit trail.
func EncodeKey(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}
