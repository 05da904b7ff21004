// Package audit implements the change-set audit engine: it validates a
// batch of record mutations, computes per-field deltas, and persists the
// mutation together with its audit entries in one transaction.
package audit

import (
	"reflect"
	"sort"

	"github.com/auditrail-io/auditrail-engine/pkg/models"
)

// Diff returns the dirty fields of a record: every attribute whose current
// value differs from the record's last-persisted snapshot, mapped to its
// (old, new) pair. Values are compared and carried verbatim, no coercion.
//
// A record without a snapshot has no persisted baseline, so nothing is
// reported dirty. A record with zero dirty fields simply contributes no
// entries; that is a no-op, not an error.
func Diff(rec models.Record) map[string]models.FieldChange {
	snapshot := rec.Snapshot()
	if snapshot == nil {
		return nil
	}

	changes := make(map[string]models.FieldChange)
	for field, current := range rec.Attributes() {
		previous, existed := snapshot[field]
		if existed && reflect.DeepEqual(previous, current) {
			continue
		}
		changes[field] = models.FieldChange{Old: previous, New: current}
	}
	if len(changes) == 0 {
		return nil
	}
	return changes
}

// DirtyFields returns the dirty field names in sorted order. Sorting keeps
// the emitted audit rows deterministic across runs.
func DirtyFields(changes map[string]models.FieldChange) []string {
	if len(changes) == 0 {
		return nil
	}
	fields := make([]string, 0, len(changes))
	for field := range changes {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
