package search

import (
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2/numeric"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/lanternhq/lantern/internal/schema"
	"github.com/lanternhq/lantern/internal/scoring"
)

// fastColumns resolves a program environment against the schema, enforcing
// the virtual-sort type restriction: every variable must be a fast_sortable
// column of type datetime, f64, or bool. The returned slice is aligned with
// env.
func fastColumns(s *schema.Schema, env []string) ([]schema.Column, error) {
	cols := make([]schema.Column, len(env))
	for i, name := range env {
		col, err := s.ColumnOf(name)
		if err != nil {
			return nil, err
		}
		supported := col.Type == schema.TypeDateTime || col.Type == schema.TypeF64 || col.Type == schema.TypeBool
		if !supported || !col.FastSortable() {
			return nil, &UnsupportedVirtualSortTypeError{Column: name, Type: col.Type}
		}
		cols[i] = col
	}
	return cols, nil
}

// decodeFastTerm turns one doc-value term into the uniform f32 the program
// consumes: datetime as epoch milliseconds, f64 as itself, bool as 1/0.
// Numeric fields carry terms at several precision shifts; only the
// full-precision term counts.
func decodeFastTerm(col schema.Column, term []byte) (float32, bool) {
	switch col.Type {
	case schema.TypeBool:
		if len(term) == 1 {
			if term[0] == 'T' {
				return 1, true
			}
			if term[0] == 'F' {
				return 0, true
			}
		}
		return 0, false
	case schema.TypeDateTime:
		pc := numeric.PrefixCoded(term)
		if shift, err := pc.Shift(); err != nil || shift != 0 {
			return 0, false
		}
		nanos, err := pc.Int64()
		if err != nil {
			return 0, false
		}
		return float32(nanos / int64(time.Millisecond)), true
	case schema.TypeF64:
		pc := numeric.PrefixCoded(term)
		if shift, err := pc.Shift(); err != nil || shift != 0 {
			return 0, false
		}
		bits, err := pc.Int64()
		if err != nil {
			return 0, false
		}
		return float32(numeric.Int64ToFloat64(bits)), true
	default:
		return 0, false
	}
}

// failBox carries the first evaluation failure out of the sort hot path.
// Shared across copies of the sort so the executor sees failures from any
// of them.
type failBox struct {
	mu  sync.Mutex
	err error
}

func (b *failBox) set(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
	}
}

func (b *failBox) get() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// virtualSort ranks hits by a compiled scoring program evaluated over
// fast-field columns. It implements the engine's sort hook: the collector
// feeds doc-value terms for the required fields through UpdateVisitor, then
// asks Value for the document's sort key.
//
// Keys are the program result's sortable-int64 bits, prefix-coded, so
// lexicographic key order equals numeric order (NaN ordering is the
// deterministic bit order). The executor surfaces best-value-first;
// negating the expression is the idiom for the other direction.
type virtualSort struct {
	prog *scoring.Program
	cols []schema.Column // aligned with prog.Env
	desc bool

	ctx  []float32
	seen []bool
	fail *failBox
}

func newVirtualSort(prog *scoring.Program, cols []schema.Column) *virtualSort {
	return &virtualSort{
		prog: prog,
		cols: cols,
		desc: true,
		ctx:  make([]float32, len(prog.Env)),
		seen: make([]bool, len(prog.Env)),
		fail: &failBox{},
	}
}

// UpdateVisitor receives one doc-value term for the current document.
func (s *virtualSort) UpdateVisitor(field string, term []byte) {
	for i, name := range s.prog.Env {
		if name != field {
			continue
		}
		if v, ok := decodeFastTerm(s.cols[i], term); ok {
			s.ctx[i] = v
			s.seen[i] = true
		}
	}
}

// Value computes the document's sort key and resets per-document state.
// Missing fast-field data or a program failure poisons the whole search;
// the executor checks the fail box after the engine returns.
func (s *virtualSort) Value(a *search.DocumentMatch) string {
	for i, seen := range s.seen {
		if !seen {
			s.fail.set(evalErrorf(nil, "document %q has no fast-field value for %q", a.ID, s.prog.Env[i]))
		}
	}

	score, err := s.prog.Eval(s.ctx)
	if err != nil {
		s.fail.set(evalErrorf(err, "program failed on document %q", a.ID))
	}

	for i := range s.seen {
		s.seen[i] = false
		s.ctx[i] = 0
	}

	return string(numeric.MustNewPrefixCodedInt64(numeric.Float64ToInt64(float64(score)), 0))
}

func (s *virtualSort) Descending() bool         { return s.desc }
func (s *virtualSort) RequiresDocID() bool      { return false }
func (s *virtualSort) RequiresScoring() bool    { return false }
func (s *virtualSort) RequiresFields() []string { return s.prog.Env }

func (s *virtualSort) Reverse() { s.desc = !s.desc }

// Copy gives the engine an independent per-worker instance; the fail box
// stays shared.
func (s *virtualSort) Copy() search.SearchSort {
	return &virtualSort{
		prog: s.prog,
		cols: s.cols,
		desc: s.desc,
		ctx:  make([]float32, len(s.prog.Env)),
		seen: make([]bool, len(s.prog.Env)),
		fail: s.fail,
	}
}

// Err returns the first failure recorded during collection.
func (s *virtualSort) Err() error {
	return s.fail.get()
}
