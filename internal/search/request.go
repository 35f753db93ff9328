// Package search implements the query executor: filter parsing, the two
// rank modes (relevance top-K and virtual scoring expressions), derived
// output columns, and per-hit projection with typed nulls.
package search

import (
	"github.com/lanternhq/lantern/internal/schema"
)

// DefaultLimit applies when a request does not set a limit.
const DefaultLimit = 10

// Wildcard in a select list expands to all schema columns in declared order.
const Wildcard = "*"

// Request is the search contract.
type Request struct {
	From      string   `json:"from" cbor:"from"`
	Select    []string `json:"select" cbor:"select"`
	Filter    string   `json:"filter" cbor:"filter"`
	Sort      string   `json:"sort,omitempty" cbor:"sort,omitempty"`
	Offset    int      `json:"offset" cbor:"offset"`
	Limit     int      `json:"limit" cbor:"limit"`
	Functions []string `json:"functions,omitempty" cbor:"functions,omitempty"`
}

func (r Request) limit() int {
	if r.Limit > 0 {
		return r.Limit
	}
	return DefaultLimit
}

func (r Request) offset() int {
	if r.Offset > 0 {
		return r.Offset
	}
	return 0
}

// Cell is one projected value: the column name, the column type, and the
// value. A nil value is the explicit typed null a nullable column projects
// to when the document stored nothing for it.
type Cell struct {
	Name  string            `json:"name" cbor:"name"`
	Type  schema.ColumnType `json:"type" cbor:"type"`
	Value interface{}       `json:"value" cbor:"value"`
}

// Row is one hit, its cells in projection order.
type Row struct {
	Fields []Cell `json:"fields" cbor:"fields"`
}

// Response is an ordered list of rows.
type Response struct {
	Rows []Row `json:"rows" cbor:"rows"`
}
