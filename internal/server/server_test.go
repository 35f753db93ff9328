package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanternhq/lantern/internal/index"
	"github.com/lanternhq/lantern/internal/registry"
	"github.com/lanternhq/lantern/internal/search"
)

var testOpts = index.Options{CommitInterval: time.Hour}

func newIndexerServer(t *testing.T) *Server {
	t.Helper()
	reg, err := registry.LoadRoot(t.TempDir(), testOpts)
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	return NewIndexer(reg, "127.0.0.1:0", testOpts)
}

const productManifest = `{
	"name": "p",
	"version": 1,
	"columns": [
		{"name": "id", "type": "string", "modifiers": ["id"]},
		{"name": "title", "type": "string", "modifiers": ["full_text"]},
		{"name": "price", "type": "f64", "modifiers": ["fast_sortable"]}
	]
}`

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var er ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &er))
	return er.Code
}

func TestCreateGetSchema(t *testing.T) {
	s := newIndexerServer(t)

	rec := do(t, s.Handler(), http.MethodPut, "/schema", productManifest, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Creating the same name again conflicts.
	rec = do(t, s.Handler(), http.MethodPut, "/schema", productManifest, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_exists", errCode(t, rec))

	// The manifest reads back with column order preserved.
	rec = do(t, s.Handler(), http.MethodGet, "/schema/p", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var m manifestPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, "p", m.Name)
	require.Len(t, m.Columns, 3)
	assert.Equal(t, "id", m.Columns[0].Name)
	assert.Equal(t, "price", m.Columns[2].Name)

	rec = do(t, s.Handler(), http.MethodGet, "/schema/ghost", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "unknown_index", errCode(t, rec))
}

func TestCreateSchemaRejectsBadDeclarations(t *testing.T) {
	s := newIndexerServer(t)

	rec := do(t, s.Handler(), http.MethodPut, "/schema",
		`{"name":"x","version":1,"columns":[{"name":"a","type":"string","modifiers":[]}]}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "schema_error", errCode(t, rec))
}

func TestAddDocumentAndErrors(t *testing.T) {
	s := newIndexerServer(t)
	rec := do(t, s.Handler(), http.MethodPut, "/schema", productManifest, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	okDoc := `{"fields":[
		{"name":"id","value":{"type":"string","value":"a"}},
		{"name":"title","value":{"type":"string","value":"macbook"}},
		{"name":"price","value":{"type":"f64","value":1999.0}}
	]}`
	rec = do(t, s.Handler(), http.MethodPost, "/doc/p", okDoc, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	tests := []struct {
		name string
		body string
		code string
	}{
		{
			name: "missing primary key",
			body: `{"fields":[]}`,
			code: "missing_primary_key",
		},
		{
			name: "null primary key",
			body: `{"fields":[{"name":"id","value":null}]}`,
			code: "null_primary_key",
		},
		{
			name: "type mismatch",
			body: `{"fields":[
				{"name":"id","value":{"type":"string","value":"a"}},
				{"name":"title","value":{"type":"string","value":"x"}},
				{"name":"price","value":{"type":"i64","value":5}}
			]}`,
			code: "type_mismatch",
		},
		{
			name: "missing required field",
			body: `{"fields":[
				{"name":"id","value":{"type":"string","value":"a"}},
				{"name":"title","value":{"type":"string","value":"x"}}
			]}`,
			code: "missing_required_field",
		},
		{
			name: "unknown column",
			body: `{"fields":[
				{"name":"id","value":{"type":"string","value":"a"}},
				{"name":"nope","value":{"type":"string","value":"x"}}
			]}`,
			code: "unknown_column",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s.Handler(), http.MethodPost, "/doc/p", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, errCode(t, rec))
		})
	}

	rec = do(t, s.Handler(), http.MethodPost, "/doc/ghost", okDoc, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIndexerSearcherEndToEnd(t *testing.T) {
	root := t.TempDir()
	reg, err := registry.LoadRoot(root, testOpts)
	require.NoError(t, err)
	defer reg.Close()

	indexer := NewIndexer(reg, "127.0.0.1:0", testOpts)
	searcher := NewSearcher(reg, "127.0.0.1:0")

	rec := do(t, indexer.Handler(), http.MethodPut, "/schema", productManifest, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	for _, doc := range []string{
		`{"fields":[
			{"name":"id","value":{"type":"string","value":"a"}},
			{"name":"title","value":{"type":"string","value":"macbook pro"}},
			{"name":"price","value":{"type":"f64","value":1999.0}}
		]}`,
		`{"fields":[
			{"name":"id","value":{"type":"string","value":"a"}},
			{"name":"title","value":{"type":"string","value":"macbook air"}},
			{"name":"price","value":{"type":"f64","value":1099.0}}
		]}`,
	} {
		rec = do(t, indexer.Handler(), http.MethodPost, "/doc/p", doc, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec = do(t, indexer.Handler(), http.MethodPost, "/flush/p", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, searcher.Handler(), http.MethodPost, "/search",
		`{"from":"p","filter":"macbook","select":["*"]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res search.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Rows, 1)

	byName := map[string]interface{}{}
	for _, c := range res.Rows[0].Fields {
		byName[c.Name] = c.Value
	}
	assert.Equal(t, "macbook air", byName["title"])
	assert.Equal(t, 1099.0, byName["price"])
}

func TestSearchErrorMapping(t *testing.T) {
	reg, err := registry.LoadRoot(t.TempDir(), testOpts)
	require.NoError(t, err)
	defer reg.Close()
	searcher := NewSearcher(reg, "127.0.0.1:0")

	rec := do(t, searcher.Handler(), http.MethodPost, "/search",
		`{"from":"ghost","filter":"x"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "unknown_index", errCode(t, rec))

	rec = do(t, searcher.Handler(), http.MethodPost, "/search", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", errCode(t, rec))

	rec = do(t, searcher.Handler(), http.MethodPost, "/search", `{}`,
		map[string]string{"Content-Type": "application/msgpack"})
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestCBORNegotiation(t *testing.T) {
	s := newIndexerServer(t)

	payload, err := cbor.Marshal(map[string]interface{}{
		"name":    "c",
		"version": 1,
		"columns": []map[string]interface{}{
			{"name": "id", "type": "string", "modifiers": []string{"id"}},
			{"name": "body", "type": "string", "modifiers": []string{"full_text"}},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/schema", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/cbor")
	req.Header.Set("Accept", "application/cbor")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/cbor", rec.Header().Get("Content-Type"))

	// Read the schema back as CBOR.
	req = httptest.NewRequest(http.MethodGet, "/schema/c", nil)
	req.Header.Set("Accept", "application/cbor")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var m manifestPayload
	require.NoError(t, cbor.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, "c", m.Name)
	require.Len(t, m.Columns, 2)
	assert.Equal(t, "id", m.Columns[0].Name)
}
