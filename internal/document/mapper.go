package document

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/lanternhq/lantern/internal/schema"
)

// ToIndexFields converts an external document into the engine's field map,
// enforcing column resolution, exact type matching, and required-field
// coverage. tree values expand to one term per path prefix so hierarchical
// filters match on any ancestor.
func ToIndexFields(s *schema.Schema, doc Document) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(doc.Fields))
	written := make(map[string]bool, len(doc.Fields))

	for _, field := range doc.Fields {
		col, err := s.ColumnOf(field.Name)
		if err != nil {
			return nil, err
		}
		if field.Value == nil {
			// Absence. Legality is decided by the required-field sweep below.
			continue
		}
		if field.Value.Type != col.Type {
			return nil, &TypeMismatchError{Field: field.Name, Expected: col.Type, Got: field.Value.Type}
		}

		val, err := engineValue(col, field.Name, *field.Value)
		if err != nil {
			return nil, err
		}
		out[col.Name] = val
		written[col.Name] = true
	}

	for _, col := range s.Columns {
		if !col.Nullable() && !written[col.Name] {
			return nil, &MissingRequiredFieldError{Name: col.Name}
		}
	}

	return out, nil
}

// engineValue converts one tagged value into the representation the engine
// indexes and stores for the column's type.
func engineValue(col schema.Column, fieldName string, v FieldValue) (interface{}, error) {
	switch v.Type {
	case schema.TypeBool:
		return v.Bool, nil
	case schema.TypeU64:
		return float64(v.U64), nil
	case schema.TypeI64:
		return float64(v.I64), nil
	case schema.TypeF64:
		return v.F64, nil
	case schema.TypeDateTime:
		t, err := ParseDateTime(v.DateTime)
		if err != nil {
			return nil, &InvalidDateTimeError{Field: fieldName, Input: v.DateTime, Err: err}
		}
		return t, nil
	case schema.TypeString:
		return v.Str, nil
	case schema.TypeBytes:
		return base64.StdEncoding.EncodeToString(v.Bytes), nil
	case schema.TypeTree:
		prefixes, err := TreePrefixes(v.Tree)
		if err != nil {
			return nil, &InvalidTreePathError{Field: fieldName, Path: v.Tree}
		}
		return prefixes, nil
	}
	return nil, fmt.Errorf("unknown value type %q", v.Type)
}

// ParseDateTime parses an ISO-8601 instant.
func ParseDateTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// TreePrefixes expands a rooted facet path into every ancestor prefix,
// shortest first: "/a/b/c" -> ["/a", "/a/b", "/a/b/c"]. The full path is
// always the last element, which is what projection reads back.
func TreePrefixes(path string) ([]string, error) {
	if !strings.HasPrefix(path, "/") || path == "/" {
		return nil, fmt.Errorf("tree path must be rooted and non-empty: %q", path)
	}
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	prefixes := make([]string, 0, len(segments))
	var b strings.Builder
	for _, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("tree path has an empty segment: %q", path)
		}
		b.WriteByte('/')
		b.WriteString(seg)
		prefixes = append(prefixes, b.String())
	}
	return prefixes, nil
}
