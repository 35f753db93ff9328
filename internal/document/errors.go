package document

import (
	"errors"
	"fmt"

	"github.com/lanternhq/lantern/internal/schema"
)

// TypeMismatchError reports a field whose value tag does not match the
// column type.
type TypeMismatchError struct {
	Field    string
	Expected schema.ColumnType
	Got      schema.ColumnType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("field %q: expected %s, got %s", e.Field, e.Expected, e.Got)
}

// InvalidDateTimeError reports a datetime value that failed ISO-8601 parsing.
type InvalidDateTimeError struct {
	Field string
	Input string
	Err   error
}

func (e *InvalidDateTimeError) Error() string {
	return fmt.Sprintf("field %q: invalid datetime %q: %v", e.Field, e.Input, e.Err)
}

func (e *InvalidDateTimeError) Unwrap() error { return e.Err }

// MissingRequiredFieldError reports a non-nullable column absent from a
// document.
type MissingRequiredFieldError struct {
	Name string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Name)
}

// InvalidTreePathError reports a tree value that is not a rooted
// slash-delimited path.
type InvalidTreePathError struct {
	Field string
	Path  string
}

func (e *InvalidTreePathError) Error() string {
	return fmt.Sprintf("field %q: invalid tree path %q", e.Field, e.Path)
}

// Primary-key resolution errors.
var (
	ErrMissingPrimaryKey = errors.New("document has no primary-key field")
	ErrNullPrimaryKey    = errors.New("primary-key field is null")
)

// BadPrimaryKeyTypeError reports a primary-key value whose tag is neither
// string nor i64.
type BadPrimaryKeyTypeError struct {
	Got schema.ColumnType
}

func (e *BadPrimaryKeyTypeError) Error() string {
	return fmt.Sprintf("unsupported primary-key type %s", e.Got)
}
