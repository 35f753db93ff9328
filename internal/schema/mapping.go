package schema

import (
	"errors"
	"fmt"

	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// ErrSchemaMismatch is wrapped when the manifest disagrees with the engine's
// persisted field metadata at open time. It is fatal for that index.
var ErrSchemaMismatch = errors.New("schema mismatch")

// IndexMapping builds the engine mapping for this schema.
//
// Every column is stored (projection reads stored values). Equality columns
// use the keyword analyzer so the whole value is one term; full_text columns
// use the standard analyzer with positions and feed the _all field, which is
// what makes them the query parser's default columns. fast_sortable columns
// get doc values for per-document random access.
func (s *Schema) IndexMapping() (mapping.IndexMapping, error) {
	doc := mapping.NewDocumentStaticMapping()

	for _, col := range s.Columns {
		var fm *mapping.FieldMapping
		switch col.Type {
		case TypeString:
			fm = mapping.NewTextFieldMapping()
			if col.FullText() {
				fm.Analyzer = standard.Name
				fm.IncludeTermVectors = true
				fm.IncludeInAll = true
			} else {
				fm.Analyzer = keyword.Name
				fm.IncludeTermVectors = false
				fm.IncludeInAll = false
			}
		case TypeBytes, TypeTree:
			fm = mapping.NewTextFieldMapping()
			fm.Analyzer = keyword.Name
			fm.IncludeTermVectors = false
			fm.IncludeInAll = false
		case TypeU64, TypeI64, TypeF64:
			fm = mapping.NewNumericFieldMapping()
			fm.IncludeInAll = false
		case TypeDateTime:
			fm = mapping.NewDateTimeFieldMapping()
			fm.IncludeInAll = false
		case TypeBool:
			fm = mapping.NewBooleanFieldMapping()
			fm.IncludeInAll = false
		default:
			return nil, schemaErrorf("column %q has unknown type %q", col.Name, col.Type)
		}
		fm.Store = true
		fm.Index = true
		fm.DocValues = col.FastSortable()
		doc.AddFieldMappingsAt(col.Name, fm)
	}

	im := mapping.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name
	im.DefaultMapping = doc
	im.StoreDynamic = false
	im.IndexDynamic = false
	im.DocValuesDynamic = false
	return im, nil
}

// engineType maps a column type to the engine's field-mapping type tag.
func engineType(t ColumnType) string {
	switch t {
	case TypeString, TypeBytes, TypeTree:
		return "text"
	case TypeU64, TypeI64, TypeF64:
		return "number"
	case TypeDateTime:
		return "datetime"
	case TypeBool:
		return "boolean"
	}
	return ""
}

// VerifyMapping cross-checks the manifest against the mapping the engine
// persisted inside the index. A column missing from the engine mapping, or
// mapped to a different field type, wraps ErrSchemaMismatch.
func (s *Schema) VerifyMapping(im mapping.IndexMapping) error {
	impl, ok := im.(*mapping.IndexMappingImpl)
	if !ok || impl.DefaultMapping == nil {
		return fmt.Errorf("%w: engine mapping is not inspectable", ErrSchemaMismatch)
	}

	for _, col := range s.Columns {
		sub, ok := impl.DefaultMapping.Properties[col.Name]
		if !ok || len(sub.Fields) == 0 {
			return fmt.Errorf("%w: column %q missing from engine mapping", ErrSchemaMismatch, col.Name)
		}
		want := engineType(col.Type)
		got := sub.Fields[0].Type
		if got != want {
			return fmt.Errorf("%w: column %q is %q in the engine, manifest says %q (%s)",
				ErrSchemaMismatch, col.Name, got, want, col.Type)
		}
	}
	return nil
}
