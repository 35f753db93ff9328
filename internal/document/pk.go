package document

import (
	"strconv"

	"github.com/lanternhq/lantern/internal/schema"
)

// PrimaryKey is a resolved primary-key term, suitable for addressing the
// document inside the engine. String IDs address directly; i64 IDs address
// by their decimal rendering, which is injective, so upsert-by-term
// semantics hold.
type PrimaryKey struct {
	Column schema.Column
	Str    string
	I64    int64
}

// DocID returns the engine document ID for this key.
func (k PrimaryKey) DocID() string {
	if k.Column.Type == schema.TypeI64 {
		return strconv.FormatInt(k.I64, 10)
	}
	return k.Str
}

// ExtractPrimaryKey resolves the document's ID field against the schema's
// primary-key column.
func ExtractPrimaryKey(s *schema.Schema, doc Document) (PrimaryKey, error) {
	idCol := s.PrimaryKey()

	field, ok := doc.Get(idCol.Name)
	if !ok {
		return PrimaryKey{}, ErrMissingPrimaryKey
	}
	if field.Value == nil {
		return PrimaryKey{}, ErrNullPrimaryKey
	}

	switch field.Value.Type {
	case schema.TypeString:
		if idCol.Type != schema.TypeString {
			return PrimaryKey{}, &BadPrimaryKeyTypeError{Got: field.Value.Type}
		}
		return PrimaryKey{Column: idCol, Str: field.Value.Str}, nil
	case schema.TypeI64:
		if idCol.Type != schema.TypeI64 {
			return PrimaryKey{}, &BadPrimaryKeyTypeError{Got: field.Value.Type}
		}
		return PrimaryKey{Column: idCol, I64: field.Value.I64}, nil
	default:
		return PrimaryKey{}, &BadPrimaryKeyTypeError{Got: field.Value.Type}
	}
}
