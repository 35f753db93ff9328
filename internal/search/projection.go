package search

import (
	"encoding/base64"
	"time"

	"github.com/lanternhq/lantern/internal/schema"
)

// expandSelect resolves a select list into columns. The wildcard expands to
// all schema columns in declared order; mixing it with explicit names
// dedupes order-preservingly. An empty list means the wildcard.
func expandSelect(s *schema.Schema, sel []string) ([]schema.Column, error) {
	if len(sel) == 0 {
		sel = []string{Wildcard}
	}

	cols := make([]schema.Column, 0, len(s.Columns))
	seen := make(map[string]bool, len(s.Columns))

	add := func(col schema.Column) {
		if !seen[col.Name] {
			seen[col.Name] = true
			cols = append(cols, col)
		}
	}

	for _, name := range sel {
		if name == Wildcard {
			for _, col := range s.Columns {
				add(col)
			}
			continue
		}
		col, err := s.ColumnOf(name)
		if err != nil {
			return nil, err
		}
		add(col)
	}
	return cols, nil
}

func columnNames(cols []schema.Column) []string {
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}
	return names
}

// cellValue converts one stored engine value back into the API value for
// the column's type. A nil raw value is an explicit typed null when the
// column is nullable and a corrupted document otherwise.
func cellValue(col schema.Column, raw interface{}, docID string) (interface{}, error) {
	if raw == nil {
		if col.Nullable() {
			return nil, nil
		}
		return nil, &InternalInconsistencyError{Column: col.Name, DocID: docID}
	}

	corrupt := func() (interface{}, error) {
		return nil, &InternalInconsistencyError{Column: col.Name, DocID: docID}
	}

	switch col.Type {
	case schema.TypeBool:
		v, ok := raw.(bool)
		if !ok {
			return corrupt()
		}
		return v, nil

	case schema.TypeU64:
		v, ok := raw.(float64)
		if !ok {
			return corrupt()
		}
		return uint64(v), nil

	case schema.TypeI64:
		v, ok := raw.(float64)
		if !ok {
			return corrupt()
		}
		return int64(v), nil

	case schema.TypeF64:
		v, ok := raw.(float64)
		if !ok {
			return corrupt()
		}
		return v, nil

	case schema.TypeDateTime:
		// The engine hands stored datetimes back as RFC 3339 strings, which
		// is the API format already.
		switch v := raw.(type) {
		case string:
			return v, nil
		case time.Time:
			return v.UTC().Format(time.RFC3339Nano), nil
		}
		return corrupt()

	case schema.TypeString:
		v, ok := raw.(string)
		if !ok {
			return corrupt()
		}
		return v, nil

	case schema.TypeBytes:
		v, ok := raw.(string)
		if !ok {
			return corrupt()
		}
		decoded, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return corrupt()
		}
		return decoded, nil

	case schema.TypeTree:
		// Stored as every path prefix; the longest one is the full path.
		switch v := raw.(type) {
		case string:
			return v, nil
		case []interface{}:
			longest := ""
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return corrupt()
				}
				if len(s) > len(longest) {
					longest = s
				}
			}
			if longest == "" {
				return corrupt()
			}
			return longest, nil
		}
		return corrupt()
	}
	return corrupt()
}
