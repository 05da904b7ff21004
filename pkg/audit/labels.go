package audit

import (
	"github.com/auditrail-io/auditrail-engine/pkg/labels"
	"github.com/auditrail-io/auditrail-engine/pkg/models"
)

// Resolver translates raw field values into human-readable labels. It asks
// the record type's own capability first and falls back to the file-based
// catalog. Resolution is pure: same (type, field, value) in, same label out,
// and the record is never touched beyond the capability call.
type Resolver struct {
	catalog *labels.Catalog
}

// NewResolver creates a Resolver. catalog may be nil when no catalog file is
// configured; records then rely solely on their own label capability.
func NewResolver(catalog *labels.Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Field resolves the label for one raw value of a record field. Returns nil
// when neither the record type nor the catalog knows a label; absence is a
// normal outcome, never an error.
func (r *Resolver) Field(rec models.Record, field string, value any) *string {
	if provider, ok := rec.(models.LabelProvider); ok {
		if label, found := provider.AuditLabel(field, value); found {
			return &label
		}
	}
	if label, found := r.catalog.Field(rec.TableName(), field, value); found {
		return &label
	}
	return nil
}

// Record resolves the whole-record label used on CREATE and DELETE rows.
// carrier is whatever may hold the capability: the record itself, or the
// registered prototype when the record was hydrated generically.
func (r *Resolver) Record(carrier any, row map[string]any) *string {
	if provider, ok := carrier.(models.RecordLabelProvider); ok {
		if label, found := provider.AuditRecordLabel(row); found {
			return &label
		}
	}
	return nil
}
