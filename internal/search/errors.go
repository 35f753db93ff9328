package search

import (
	"errors"
	"fmt"

	"github.com/lanternhq/lantern/internal/schema"
)

// ErrUnknownIndex is returned when the requested schema name is not in the
// registry.
var ErrUnknownIndex = errors.New("unknown index")

// InvalidFilterError reports a filter string the query parser rejected.
type InvalidFilterError struct {
	Filter string
	Err    error
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid filter %q: %v", e.Filter, e.Err)
}

func (e *InvalidFilterError) Unwrap() error { return e.Err }

// InvalidSortError reports a sort or function expression that failed to
// parse or compile. Raised before the index is touched.
type InvalidSortError struct {
	Expr string
	Err  error
}

func (e *InvalidSortError) Error() string {
	return fmt.Sprintf("invalid sort expression %q: %v", e.Expr, e.Err)
}

func (e *InvalidSortError) Unwrap() error { return e.Err }

// UnsupportedVirtualSortTypeError reports a sort variable bound to a column
// that is not a fast-sortable datetime, f64, or bool.
type UnsupportedVirtualSortTypeError struct {
	Column string
	Type   schema.ColumnType
}

func (e *UnsupportedVirtualSortTypeError) Error() string {
	return fmt.Sprintf("column %q (%s) cannot drive a virtual sort: need a fast_sortable datetime, f64, or bool",
		e.Column, e.Type)
}

// EvalError reports a runtime failure evaluating a compiled program against
// the index, including missing fast-field data. It aborts the whole search,
// not just one row: a server-side error, since it indicates a bug or a
// corrupt document.
type EvalError struct {
	msg string
	err error
}

func (e *EvalError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("scoring evaluation failed: %s: %v", e.msg, e.err)
	}
	return fmt.Sprintf("scoring evaluation failed: %s", e.msg)
}

func (e *EvalError) Unwrap() error { return e.err }

func evalErrorf(err error, format string, args ...interface{}) *EvalError {
	return &EvalError{msg: fmt.Sprintf(format, args...), err: err}
}

// ReaderError wraps an engine failure on the read path.
type ReaderError struct {
	Err error
}

func (e *ReaderError) Error() string { return fmt.Sprintf("reader: %v", e.Err) }
func (e *ReaderError) Unwrap() error { return e.Err }

// InternalInconsistencyError reports a non-nullable column with no stored
// value during projection: a corrupted document.
type InternalInconsistencyError struct {
	Column string
	DocID  string
}

func (e *InternalInconsistencyError) Error() string {
	return fmt.Sprintf("document %q has no stored value for non-nullable column %q", e.DocID, e.Column)
}
