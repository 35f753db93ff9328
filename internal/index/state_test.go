package index

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanternhq/lantern/internal/document"
	"github.com/lanternhq/lantern/internal/schema"
)

func productSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New("p", 1, []schema.Column{
		{Name: "id", Type: schema.TypeString, Modifiers: []schema.Modifier{schema.ModID}},
		{Name: "title", Type: schema.TypeString, Modifiers: []schema.Modifier{schema.ModFullText}},
		{Name: "price", Type: schema.TypeF64, Modifiers: []schema.Modifier{schema.ModFastSortable}},
	})
	require.NoError(t, err)
	return s
}

func val(v document.FieldValue) *document.FieldValue { return &v }

func productDoc(id, title string, price float64) document.Document {
	return document.Document{Fields: []document.Field{
		{Name: "id", Value: val(document.StringValue(id))},
		{Name: "title", Value: val(document.StringValue(title))},
		{Name: "price", Value: val(document.F64Value(price))},
	}}
}

// Long interval keeps the background loop out of the way; tests drive
// visibility through Flush, never through the interval.
var testOpts = Options{CommitInterval: time.Hour}

func TestCreateAddFlush(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "p")
	st, err := Create(dir, productSchema(t), testOpts)
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.AddDocument(productDoc("a", "macbook pro", 1999)))

	// Not visible before commit.
	n, err := st.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)

	require.NoError(t, st.Flush())
	n, err = st.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	// The manifest landed next to the engine directory.
	_, err = os.Stat(filepath.Join(dir, schema.ManifestFile))
	require.NoError(t, err)
}

func TestCreateRejectsNonEmptyDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "p")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leftover"), []byte("x"), 0o644))

	_, err := Create(dir, productSchema(t), testOpts)
	require.Error(t, err)
}

func TestUpsertKeepsOneDocPerKey(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "p")
	st, err := Create(dir, productSchema(t), testOpts)
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.AddDocument(productDoc("a", "macbook pro", 1999)))
	require.NoError(t, st.AddDocument(productDoc("a", "macbook air", 1099)))
	require.NoError(t, st.AddDocument(productDoc("b", "thinkpad", 899)))
	require.NoError(t, st.Flush())

	n, err := st.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n, "colliding keys collapse to one document")

	// The surviving document for "a" is still addressable by its key. That it
	// carries the last write is checked through search in TestUpsertThenSearch.
	doc, err := st.Engine().Document("a")
	require.NoError(t, err)
	require.NotNil(t, doc)

	// Upsert across separate commits behaves the same.
	require.NoError(t, st.AddDocument(productDoc("a", "macbook air m3", 1299)))
	require.NoError(t, st.Flush())
	n, err = st.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestRejectedWriteLeavesIndexUnchanged(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "p")
	st, err := Create(dir, productSchema(t), testOpts)
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.AddDocument(productDoc("a", "macbook", 1999)))

	// Missing non-nullable price.
	err = st.AddDocument(document.Document{Fields: []document.Field{
		{Name: "id", Value: val(document.StringValue("b"))},
		{Name: "title", Value: val(document.StringValue("broken"))},
	}})
	var mr *document.MissingRequiredFieldError
	require.ErrorAs(t, err, &mr)

	// Empty document: primary-key resolution fails first.
	err = st.AddDocument(document.Document{})
	assert.ErrorIs(t, err, document.ErrMissingPrimaryKey)

	require.NoError(t, st.Flush())
	n, err := st.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n, "rejected writes must not reach the index")
}

func TestOpenRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "p")
	st, err := Create(dir, productSchema(t), testOpts)
	require.NoError(t, err)
	require.NoError(t, st.AddDocument(productDoc("a", "macbook", 1999)))
	require.NoError(t, st.Flush())
	require.NoError(t, st.Close())

	reopened, err := Open(dir, testOpts)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, "p", reopened.Schema.Name)
	n, err := reopened.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestOpenDetectsManifestMismatch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "p")
	st, err := Create(dir, productSchema(t), testOpts)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	// Rewrite the manifest with a column the engine does not know.
	wider, err := schema.New("p", 1, []schema.Column{
		{Name: "id", Type: schema.TypeString, Modifiers: []schema.Modifier{schema.ModID}},
		{Name: "title", Type: schema.TypeString, Modifiers: []schema.Modifier{schema.ModFullText}},
		{Name: "price", Type: schema.TypeF64, Modifiers: []schema.Modifier{schema.ModFastSortable}},
		{Name: "stock", Type: schema.TypeU64},
	})
	require.NoError(t, err)
	require.NoError(t, schema.SaveManifest(dir, wider))

	_, err = Open(dir, testOpts)
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrSchemaMismatch)
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "p")
	st, err := Create(dir, productSchema(t), testOpts)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	ro, err := Open(dir, Options{ReadOnly: true})
	require.NoError(t, err)
	defer ro.Close()

	assert.True(t, ro.ReadOnly())
	err = ro.AddDocument(productDoc("a", "x", 1))
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, ro.Flush(), ErrReadOnly)
}

func TestCloseCommitsPendingWrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "p")
	st, err := Create(dir, productSchema(t), testOpts)
	require.NoError(t, err)

	require.NoError(t, st.AddDocument(productDoc("a", "macbook", 1999)))
	require.NoError(t, st.Close())

	reopened, err := Open(dir, testOpts)
	require.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n, "shutdown performs a final commit")
}
