package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/lanternhq/lantern/internal/registry"
	"github.com/lanternhq/lantern/internal/schema"
	"github.com/lanternhq/lantern/internal/scoring"
)

// Execute runs one search request against the registry.
//
// All request validation (filter parse, sort and function compilation,
// column resolution) happens before the index is touched, so a malformed
// request never costs a search. The searcher snapshot taken by the engine is
// consistent for the lifetime of the call.
func Execute(ctx context.Context, reg *registry.Registry, req Request) (*Response, error) {
	st, ok := reg.Get(req.From)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownIndex, req.From)
	}
	s := st.Schema

	projCols, err := expandSelect(s, req.Select)
	if err != nil {
		return nil, err
	}

	var vsort *virtualSort
	if req.Sort != "" {
		prog, err := scoring.Compile(req.Sort)
		if err != nil {
			return nil, &InvalidSortError{Expr: req.Sort, Err: err}
		}
		cols, err := fastColumns(s, prog.Env)
		if err != nil {
			return nil, err
		}
		vsort = newVirtualSort(prog, cols)
	}

	fns := make([]compiledFn, 0, len(req.Functions))
	for _, src := range req.Functions {
		prog, err := scoring.Compile(src)
		if err != nil {
			return nil, &InvalidSortError{Expr: src, Err: err}
		}
		cols, err := fastColumns(s, prog.Env)
		if err != nil {
			return nil, err
		}
		fns = append(fns, compiledFn{src: src, prog: prog, cols: cols})
	}

	var q query.Query
	if strings.TrimSpace(req.Filter) == "" {
		q = bleve.NewMatchAllQuery()
	} else {
		qs := bleve.NewQueryStringQuery(req.Filter)
		if _, err := qs.Parse(); err != nil {
			return nil, &InvalidFilterError{Filter: req.Filter, Err: err}
		}
		q = qs
	}

	sr := bleve.NewSearchRequestOptions(q, req.limit(), req.offset(), false)
	sr.Fields = columnNames(projCols)
	if vsort != nil {
		// Deterministic tie-break: equal sort keys resolve by document ID.
		sr.SortByCustom(search.SortOrder{vsort, &search.SortDocID{}})
	}

	res, err := st.Engine().SearchInContext(ctx, sr)
	if err != nil {
		return nil, &ReaderError{Err: err}
	}
	if vsort != nil {
		if err := vsort.Err(); err != nil {
			return nil, err
		}
	}

	var fnValues [][]float32
	if len(fns) > 0 {
		fnValues, err = evalFunctions(st.Engine(), res.Hits, fns)
		if err != nil {
			return nil, err
		}
	}

	rows := make([]Row, 0, len(res.Hits))
	for hi, hit := range res.Hits {
		row := Row{Fields: make([]Cell, 0, len(projCols)+len(fns))}
		for _, col := range projCols {
			value, err := cellValue(col, hit.Fields[col.Name], hit.ID)
			if err != nil {
				return nil, err
			}
			row.Fields = append(row.Fields, Cell{Name: col.Name, Type: col.Type, Value: value})
		}
		for fi, fn := range fns {
			row.Fields = append(row.Fields, Cell{
				Name:  fn.src,
				Type:  schema.TypeF64,
				Value: float64(fnValues[hi][fi]),
			})
		}
		rows = append(rows, row)
	}

	return &Response{Rows: rows}, nil
}
