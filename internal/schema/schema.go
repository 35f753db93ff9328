// Package schema implements the typed description of one index: ordered
// columns, a primary-key column, per-column capability modifiers, and the
// derived lookups the write and read paths need.
//
// The declared column order defines each column's ordinal, which is its
// permanent identifier inside the index. Schemas are immutable after
// construction.
package schema

import (
	"errors"
	"fmt"
)

// ColumnType is the closed set of value types a column can hold.
type ColumnType string

const (
	TypeBool     ColumnType = "bool"
	TypeU64      ColumnType = "u64"
	TypeI64      ColumnType = "i64"
	TypeF64      ColumnType = "f64"
	TypeDateTime ColumnType = "datetime"
	TypeString   ColumnType = "string"
	TypeBytes    ColumnType = "bytes"
	TypeTree     ColumnType = "tree"
)

// Valid reports whether t is one of the eight known column types.
func (t ColumnType) Valid() bool {
	switch t {
	case TypeBool, TypeU64, TypeI64, TypeF64, TypeDateTime, TypeString, TypeBytes, TypeTree:
		return true
	}
	return false
}

// Modifier is a per-column capability flag. Modifiers are independent of
// each other; a column carries a set of them.
type Modifier string

const (
	ModID           Modifier = "id"
	ModEquals       Modifier = "equals"
	ModFastSortable Modifier = "fast_sortable"
	ModFullText     Modifier = "full_text"
	ModNullable     Modifier = "nullable"
)

// Valid reports whether m is a known modifier.
func (m Modifier) Valid() bool {
	switch m {
	case ModID, ModEquals, ModFastSortable, ModFullText, ModNullable:
		return true
	}
	return false
}

// Column is one named, typed column with its modifier set.
type Column struct {
	Name      string     `json:"name"`
	Type      ColumnType `json:"type"`
	Modifiers []Modifier `json:"modifiers"`
}

// Has reports whether the column carries the given modifier.
func (c Column) Has(m Modifier) bool {
	for _, have := range c.Modifiers {
		if have == m {
			return true
		}
	}
	return false
}

func (c Column) IsID() bool         { return c.Has(ModID) }
func (c Column) Nullable() bool     { return c.Has(ModNullable) }
func (c Column) FastSortable() bool { return c.Has(ModFastSortable) }
func (c Column) FullText() bool     { return c.Has(ModFullText) }

// Equals reports whether the column is indexed for equality lookup. The ID
// column always is, regardless of its declared modifiers: upsert needs
// term-addressable IDs.
func (c Column) Equals() bool { return c.Has(ModEquals) || c.IsID() }

// Schema is an immutable index description plus derived lookup structures.
type Schema struct {
	Name    string   `json:"name"`
	Version uint32   `json:"version"`
	Columns []Column `json:"columns"`

	ordinalByName    map[string]int
	idOrdinal        int
	fullTextOrdinals []int
}

// ErrUnknownColumn is wrapped by lookups for names not in the schema.
var ErrUnknownColumn = errors.New("unknown column")

// SchemaError reports a declaration that violates the schema invariants.
type SchemaError struct {
	msg string
}

func (e *SchemaError) Error() string { return e.msg }

func schemaErrorf(format string, args ...interface{}) *SchemaError {
	return &SchemaError{msg: fmt.Sprintf(format, args...)}
}

// New validates a declaration and builds the derived lookups.
//
// It rejects: zero or multiple id columns, an id column whose type is not
// string or i64, full_text on a non-string column, unknown types or
// modifiers, and duplicate column names. An id column may carry any other
// modifier; id implies equality indexing on its own.
func New(name string, version uint32, columns []Column) (*Schema, error) {
	if name == "" {
		return nil, schemaErrorf("schema name is required")
	}
	if len(columns) == 0 {
		return nil, schemaErrorf("schema %q has no columns", name)
	}

	s := &Schema{
		Name:          name,
		Version:       version,
		Columns:       columns,
		ordinalByName: make(map[string]int, len(columns)),
		idOrdinal:     -1,
	}

	for ord, col := range columns {
		if col.Name == "" {
			return nil, schemaErrorf("column %d has no name", ord)
		}
		if !col.Type.Valid() {
			return nil, schemaErrorf("column %q has unknown type %q", col.Name, col.Type)
		}
		for _, m := range col.Modifiers {
			if !m.Valid() {
				return nil, schemaErrorf("column %q has unknown modifier %q", col.Name, m)
			}
		}
		if _, dup := s.ordinalByName[col.Name]; dup {
			return nil, schemaErrorf("duplicate column name %q", col.Name)
		}
		s.ordinalByName[col.Name] = ord

		if col.IsID() {
			if s.idOrdinal >= 0 {
				return nil, schemaErrorf("schema %q has more than one id column (%q and %q)",
					name, columns[s.idOrdinal].Name, col.Name)
			}
			if col.Type != TypeString && col.Type != TypeI64 {
				return nil, schemaErrorf("id column %q must be string or i64, got %q", col.Name, col.Type)
			}
			s.idOrdinal = ord
		}
		if col.FullText() && col.Type != TypeString {
			return nil, schemaErrorf("full_text column %q must be string, got %q", col.Name, col.Type)
		}
		if col.FullText() {
			s.fullTextOrdinals = append(s.fullTextOrdinals, ord)
		}
	}

	if s.idOrdinal < 0 {
		return nil, schemaErrorf("schema %q has no id column", name)
	}

	return s, nil
}

// Ordinal returns the position of the named column.
func (s *Schema) Ordinal(name string) (int, error) {
	ord, ok := s.ordinalByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return ord, nil
}

// ColumnOf returns the named column.
func (s *Schema) ColumnOf(name string) (Column, error) {
	ord, err := s.Ordinal(name)
	if err != nil {
		return Column{}, err
	}
	return s.Columns[ord], nil
}

// PrimaryKey returns the id column.
func (s *Schema) PrimaryKey() Column {
	return s.Columns[s.idOrdinal]
}

// FullTextOrdinals returns the ordinals of full_text columns, in declared
// order.
func (s *Schema) FullTextOrdinals() []int {
	out := make([]int, len(s.fullTextOrdinals))
	copy(out, s.fullTextOrdinals)
	return out
}

// FullTextNames returns the names of full_text columns, in declared order.
func (s *Schema) FullTextNames() []string {
	out := make([]string, 0, len(s.fullTextOrdinals))
	for _, ord := range s.fullTextOrdinals {
		out = append(out, s.Columns[ord].Name)
	}
	return out
}

// ColumnNames returns all column names in declared order.
func (s *Schema) ColumnNames() []string {
	out := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		out[i] = col.Name
	}
	return out
}
