package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/lanternhq/lantern/internal/debug"
	"github.com/lanternhq/lantern/internal/document"
	"github.com/lanternhq/lantern/internal/index"
	"github.com/lanternhq/lantern/internal/registry"
	"github.com/lanternhq/lantern/internal/schema"
	"github.com/lanternhq/lantern/internal/search"
	"github.com/lanternhq/lantern/internal/telemetry"
)

// Server hosts either daemon's HTTP surface over a shared registry.
type Server struct {
	reg  *registry.Registry
	opts index.Options // used by schema creation on the indexer

	mux        *http.ServeMux
	httpServer *http.Server
	listener   net.Listener
	addr       string
	mu         sync.RWMutex
}

// NewIndexer builds the write-side surface: schema creation, document
// writes, admin flush.
func NewIndexer(reg *registry.Registry, addr string, opts index.Options) *Server {
	s := &Server{reg: reg, opts: opts, addr: addr, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("PUT /schema", s.handleCreateSchema)
	s.mux.HandleFunc("GET /schema/{name}", s.handleGetSchema)
	s.mux.HandleFunc("POST /doc/{schema}", s.handleAddDocument)
	s.mux.HandleFunc("POST /flush/{schema}", s.handleFlush)
	return s
}

// NewSearcher builds the read-side surface.
func NewSearcher(reg *registry.Registry, addr string) *Server {
	s := &Server{reg: reg, addr: addr, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /schema/{name}", s.handleGetSchema)
	s.mux.HandleFunc("POST /search", s.handleSearch)
	return s
}

// Start listens and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}()

	debug.Logf("server: listening on %s", listener.Addr())
	if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Addr returns the bound address once Start has listened.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Handler exposes the mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writePayload(w, r, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"indexes": s.reg.Names(),
	})
}

// manifestPayload is the wire form of a schema manifest.
type manifestPayload struct {
	Name    string          `json:"name" cbor:"name"`
	Version uint32          `json:"version" cbor:"version"`
	Columns []schema.Column `json:"columns" cbor:"columns"`
}

func (s *Server) handleCreateSchema(w http.ResponseWriter, r *http.Request) {
	var payload manifestPayload
	if err := decodeBody(r, &payload); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	sch, err := schema.New(payload.Name, payload.Version, payload.Columns)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, taken := s.reg.Get(sch.Name); taken {
		writeError(w, r, registry.ErrAlreadyExists)
		return
	}

	st, err := index.Create(s.reg.Dir(sch.Name), sch, s.opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.reg.Insert(sch.Name, st); err != nil {
		st.Close()
		writeError(w, r, err)
		return
	}

	telemetry.SchemasCreated.Add(r.Context(), 1)
	debug.Logf("server: created schema %q", sch.Name)
	writePayload(w, r, http.StatusCreated, struct{}{})
}

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	st, ok := s.reg.Get(r.PathValue("name"))
	if !ok {
		writeError(w, r, search.ErrUnknownIndex)
		return
	}
	writePayload(w, r, http.StatusOK, manifestPayload{
		Name:    st.Schema.Name,
		Version: st.Schema.Version,
		Columns: st.Schema.Columns,
	})
}

func (s *Server) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	st, ok := s.reg.Get(r.PathValue("schema"))
	if !ok {
		writeError(w, r, search.ErrUnknownIndex)
		return
	}

	var doc document.Document
	if err := decodeBody(r, &doc); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	if err := st.AddDocument(doc); err != nil {
		writeError(w, r, err)
		return
	}

	telemetry.DocumentsIndexed.Add(r.Context(), 1)
	writePayload(w, r, http.StatusOK, struct{}{})
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	st, ok := s.reg.Get(r.PathValue("schema"))
	if !ok {
		writeError(w, r, search.ErrUnknownIndex)
		return
	}
	if err := st.Flush(); err != nil {
		writeError(w, r, err)
		return
	}
	writePayload(w, r, http.StatusOK, struct{}{})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	start := time.Now()
	res, err := search.Execute(r.Context(), s.reg, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	telemetry.SearchesTotal.Add(r.Context(), 1)
	telemetry.SearchLatency.Record(r.Context(), time.Since(start).Seconds())
	writePayload(w, r, http.StatusOK, res)
}
