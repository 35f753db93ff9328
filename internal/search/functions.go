package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/lanternhq/lantern/internal/schema"
	"github.com/lanternhq/lantern/internal/scoring"
)

// compiledFn is one derived output column: a compiled expression plus the
// fast-field columns its environment binds to.
type compiledFn struct {
	src  string
	prog *scoring.Program
	cols []schema.Column
}

// evalFunctions computes every derived column for every hit, reading
// fast-field values through one doc-value reader materialized once for the
// batch. Derived columns are output-only: they never influence ordering, and
// the first evaluation failure aborts the search so clients get consistent
// outputs.
func evalFunctions(engine bleve.Index, hits []*search.DocumentMatch, fns []compiledFn) ([][]float32, error) {
	advanced, err := engine.Advanced()
	if err != nil {
		return nil, &ReaderError{Err: err}
	}
	reader, err := advanced.Reader()
	if err != nil {
		return nil, &ReaderError{Err: err}
	}
	defer reader.Close()

	// Union of every function's environment, with the column that decodes
	// each field.
	colByField := make(map[string]schema.Column)
	fields := make([]string, 0, 4)
	for _, fn := range fns {
		for i, name := range fn.prog.Env {
			if _, ok := colByField[name]; !ok {
				colByField[name] = fn.cols[i]
				fields = append(fields, name)
			}
		}
	}

	dvReader, err := reader.DocValueReader(fields)
	if err != nil {
		return nil, &ReaderError{Err: err}
	}

	out := make([][]float32, len(hits))
	values := make(map[string]float32, len(fields))

	for hi, hit := range hits {
		for k := range values {
			delete(values, k)
		}

		internalID, err := reader.InternalID(hit.ID)
		if err != nil {
			return nil, &ReaderError{Err: err}
		}
		err = dvReader.VisitDocValues(internalID, func(field string, term []byte) {
			col, ok := colByField[field]
			if !ok {
				return
			}
			if v, ok := decodeFastTerm(col, term); ok {
				values[field] = v
			}
		})
		if err != nil {
			return nil, &ReaderError{Err: err}
		}

		out[hi] = make([]float32, len(fns))
		for fi, fn := range fns {
			ctx := make([]float32, len(fn.prog.Env))
			for i, name := range fn.prog.Env {
				v, ok := values[name]
				if !ok {
					return nil, evalErrorf(nil, "document %q has no fast-field value for %q", hit.ID, name)
				}
				ctx[i] = v
			}
			score, err := fn.prog.Eval(ctx)
			if err != nil {
				return nil, evalErrorf(err, "function %q failed on document %q", fn.src, hit.ID)
			}
			out[hi][fi] = score
		}
	}

	return out, nil
}
