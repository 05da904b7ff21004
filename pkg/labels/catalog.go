// Package labels provides a file-based label catalog: a YAML mapping from
// table, field, and raw value to the human-readable string shown in audit
// trails. It gives label support to record types that do not implement the
// label capability in code.
package labels

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is an immutable value-to-label lookup, safe for concurrent use
// once loaded.
type Catalog struct {
	tables map[string]map[string]map[string]string
}

type catalogFile struct {
	Tables map[string]map[string]map[string]string `yaml:"tables"`
}

// LoadCatalog reads a catalog from a YAML file.
//
// Example:
//
//	tables:
//	  delivery_profiles:
//	    offer_delivery_trade_in:
//	      "0": "No"
//	      "1": "Yes"
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open label catalog: %w", err)
	}
	defer f.Close()

	c, err := ParseCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse label catalog %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes a catalog from YAML.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode catalog yaml: %w", err)
	}
	if file.Tables == nil {
		file.Tables = make(map[string]map[string]map[string]string)
	}
	return &Catalog{tables: file.Tables}, nil
}

// Field returns the label for a raw value of table.field. Raw values are
// matched against the catalog keys in Go's default string rendering, so an
// integer 1 matches the key "1". A nil catalog resolves nothing.
func (c *Catalog) Field(table, field string, value any) (string, bool) {
	if c == nil || value == nil {
		return "", false
	}
	fields, ok := c.tables[table]
	if !ok {
		return "", false
	}
	values, ok := fields[field]
	if !ok {
		return "", false
	}
	label, ok := values[formatValue(value)]
	return label, ok
}

// Len returns the number of tables with catalog entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.tables)
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
