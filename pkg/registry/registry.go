// Package registry holds the table-keyed map of record types the audit
// engine recognizes. Registration happens once at startup; lookups after
// that are read-only, so a Registry is safe for concurrent use.
package registry

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"

	"github.com/auditrail-io/auditrail-engine/pkg/models"
)

// TableNamer provides a custom table name for a registered type.
type TableNamer interface {
	TableName() string
}

// Registration describes one auditable table.
type Registration struct {
	// Table is the storage table name. Derived from Prototype when empty.
	Table string

	// KeyColumns lists the primary-key column(s). The engine supports
	// exactly one; registrations with more are accepted but rejected at
	// validation time as composite keys.
	KeyColumns []string

	// Columns is the closed set of attribute columns. Only identifiers
	// from this set (plus the key columns) ever reach generated SQL.
	Columns []string

	// Prototype is an optional instance of the record type, used for
	// table-name derivation and for label capabilities on CREATE rows.
	Prototype any

	// Hydrate builds a typed record from a persisted row. Optional; the
	// engine falls back to models.StoredRecord when nil.
	Hydrate func(row map[string]any) models.Record
}

// KeyColumn returns the single key column, or "" when the registration has
// none or is composite.
func (r Registration) KeyColumn() string {
	if len(r.KeyColumns) != 1 {
		return ""
	}
	return r.KeyColumns[0]
}

// Composite reports whether the registration's key spans multiple columns.
func (r Registration) Composite() bool {
	return len(r.KeyColumns) > 1
}

// HasColumn reports whether name is a registered attribute or key column.
func (r Registration) HasColumn(name string) bool {
	for _, c := range r.Columns {
		if c == name {
			return true
		}
	}
	for _, c := range r.KeyColumns {
		if c == name {
			return true
		}
	}
	return false
}

// Registry maps table names to registrations.
type Registry struct {
	tables map[string]Registration
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{tables: make(map[string]Registration)}
}

// Register adds a registration, deriving the table name from the prototype
// when not set explicitly. Returns an error for incomplete registrations or
// duplicate tables.
func (r *Registry) Register(reg Registration) error {
	if reg.Table == "" {
		if reg.Prototype == nil {
			return fmt.Errorf("registration needs a table name or a prototype to derive one from")
		}
		name, err := TableNameOf(reg.Prototype)
		if err != nil {
			return fmt.Errorf("failed to derive table name: %w", err)
		}
		reg.Table = name
	}
	if len(reg.KeyColumns) == 0 {
		return fmt.Errorf("registration for %q has no key columns", reg.Table)
	}
	if len(reg.Columns) == 0 {
		return fmt.Errorf("registration for %q has no attribute columns", reg.Table)
	}
	if _, exists := r.tables[reg.Table]; exists {
		return fmt.Errorf("table %q is already registered", reg.Table)
	}
	r.tables[reg.Table] = reg
	return nil
}

// MustRegister is Register for startup wiring; it panics on error.
func (r *Registry) MustRegister(reg Registration) {
	if err := r.Register(reg); err != nil {
		panic(err)
	}
}

// Lookup returns the registration for a table.
func (r *Registry) Lookup(table string) (Registration, bool) {
	reg, ok := r.tables[table]
	return reg, ok
}

// Tables returns the registered table names, sorted.
func (r *Registry) Tables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var tableNamerType = reflect.TypeOf((*TableNamer)(nil)).Elem()

// TableNameOf derives the storage table name for a record type: a TableNamer
// implementation wins, otherwise the pluralized snake_case of the Go type
// name (DeliveryFee -> delivery_fees).
func TableNameOf(target any) (string, error) {
	if target == nil {
		return "", fmt.Errorf("nil table target")
	}
	if s, ok := target.(string); ok {
		name := strings.TrimSpace(s)
		if name == "" {
			return "", fmt.Errorf("empty table name")
		}
		return name, nil
	}
	if namer, ok := target.(TableNamer); ok {
		name := strings.TrimSpace(namer.TableName())
		if name == "" {
			return "", fmt.Errorf("TableName returned empty string for %T", target)
		}
		return name, nil
	}

	typ := reflect.TypeOf(target)
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return "", fmt.Errorf("cannot derive table name for %T", target)
	}
	if reflect.PointerTo(typ).Implements(tableNamerType) {
		if namer, ok := reflect.New(typ).Interface().(TableNamer); ok {
			name := strings.TrimSpace(namer.TableName())
			if name != "" {
				return name, nil
			}
		}
	}
	if typ.Name() == "" {
		return "", fmt.Errorf("cannot derive table name for anonymous struct %v", typ)
	}
	return inflection.Plural(toSnakeCase(typ.Name())), nil
}

func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
