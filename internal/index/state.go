// Package index owns one opened index: the exclusive writer with its
// pending batch, the background commit loop, and primary-key upsert.
package index

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/lanternhq/lantern/internal/debug"
	"github.com/lanternhq/lantern/internal/document"
	"github.com/lanternhq/lantern/internal/schema"
)

// EngineDir is the subdirectory of a schema directory that holds the engine's
// files. It is opaque to everything outside this package.
const EngineDir = "index"

// DefaultCommitInterval paces the background commit loop when the
// configuration does not say otherwise.
const DefaultCommitInterval = 30 * time.Second

// DefaultWriterArenaBytes bounds how much pending batch data accumulates
// before the commit loop is kicked ahead of its tick. Advisory, not a
// contract.
const DefaultWriterArenaBytes = 1 << 30

// ErrReadOnly is returned for writes against a searcher-mode state.
var ErrReadOnly = errors.New("index is open read-only")

// ErrExists is returned by Create when the target directory already holds
// something. Racing creators for the same schema serialize here: the
// filesystem admits exactly one.
var ErrExists = errors.New("index directory is not empty")

// WriterError wraps an engine failure on the write path.
type WriterError struct {
	Err error
}

func (e *WriterError) Error() string { return fmt.Sprintf("writer: %v", e.Err) }
func (e *WriterError) Unwrap() error { return e.Err }

// Options configures how a State is opened.
type Options struct {
	// ReadOnly opens the index for searching only: no writer, no commit
	// loop.
	ReadOnly bool

	// CommitInterval paces the background commit loop. Zero means
	// DefaultCommitInterval.
	CommitInterval time.Duration

	// WriterArenaBytes is the advisory in-memory budget for the pending
	// batch. Zero means DefaultWriterArenaBytes.
	WriterArenaBytes uint64
}

func (o Options) commitInterval() time.Duration {
	if o.CommitInterval > 0 {
		return o.CommitInterval
	}
	return DefaultCommitInterval
}

func (o Options) arenaBytes() uint64 {
	if o.WriterArenaBytes > 0 {
		return o.WriterArenaBytes
	}
	return DefaultWriterArenaBytes
}

// State is one opened index. It is shared by reference and safe for
// concurrent use; the only mutable parts are the pending batch behind the
// writer mutex and the commit-loop lifecycle.
type State struct {
	Dir    string
	Schema *schema.Schema

	engine bleve.Index

	mu    sync.Mutex // writer: guards batch; add-document and commit serialize here
	batch *bleve.Batch

	readOnly bool
	arena    uint64

	kick chan struct{} // wakes the commit loop early when the arena fills
	stop chan struct{}
	done chan struct{}
}

// Create initializes a new index directory for the schema: the manifest, the
// engine files, and a running State. It fails if dir already exists and is
// non-empty.
func Create(dir string, s *schema.Schema, opts Options) (*State, error) {
	if opts.ReadOnly {
		return nil, fmt.Errorf("create %s: %w", dir, ErrReadOnly)
	}
	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrExists, dir)
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat index directory %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index directory %s: %w", dir, err)
	}

	if err := schema.SaveManifest(dir, s); err != nil {
		return nil, err
	}

	im, err := s.IndexMapping()
	if err != nil {
		return nil, err
	}
	engine, err := bleve.New(filepath.Join(dir, EngineDir), im)
	if err != nil {
		return nil, fmt.Errorf("create index %s: %w", dir, err)
	}

	return newState(dir, s, engine, opts), nil
}

// Open loads an existing index directory: manifest first, then the engine,
// then the manifest/engine cross-check. A mismatch is fatal for this index.
func Open(dir string, opts Options) (*State, error) {
	s, err := schema.LoadManifest(dir)
	if err != nil {
		return nil, err
	}

	enginePath := filepath.Join(dir, EngineDir)
	var engine bleve.Index
	if opts.ReadOnly {
		engine, err = bleve.OpenUsing(enginePath, map[string]interface{}{"read_only": true})
	} else {
		engine, err = bleve.Open(enginePath)
	}
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", enginePath, err)
	}

	if err := s.VerifyMapping(engine.Mapping()); err != nil {
		engine.Close()
		return nil, fmt.Errorf("index %s: %w", dir, err)
	}

	return newState(dir, s, engine, opts), nil
}

func newState(dir string, s *schema.Schema, engine bleve.Index, opts Options) *State {
	st := &State{
		Dir:      dir,
		Schema:   s,
		engine:   engine,
		readOnly: opts.ReadOnly,
		arena:    opts.arenaBytes(),
	}
	if !opts.ReadOnly {
		st.batch = engine.NewBatch()
		st.kick = make(chan struct{}, 1)
		st.stop = make(chan struct{})
		st.done = make(chan struct{})
		go st.commitLoop(opts.commitInterval())
	}
	return st
}

// Engine exposes the underlying engine handle to the read path. Searches
// take their own snapshot per call; they never touch the writer.
func (st *State) Engine() bleve.Index {
	return st.engine
}

// ReadOnly reports whether this state rejects writes.
func (st *State) ReadOnly() bool {
	return st.readOnly
}

// AddDocument upserts one document by primary key. The delete+add pair is a
// single batched replace on the engine document ID, so the next commit makes
// the upsert visible atomically. The commit itself always happens on the
// background loop (or an explicit Flush), never here.
func (st *State) AddDocument(doc document.Document) error {
	if st.readOnly {
		return ErrReadOnly
	}

	pk, err := document.ExtractPrimaryKey(st.Schema, doc)
	if err != nil {
		return err
	}
	fields, err := document.ToIndexFields(st.Schema, doc)
	if err != nil {
		return err
	}

	st.mu.Lock()
	err = st.batch.Index(pk.DocID(), fields)
	pending := st.batch.TotalDocsSize()
	st.mu.Unlock()
	if err != nil {
		return &WriterError{Err: err}
	}

	if pending > st.arena {
		select {
		case st.kick <- struct{}{}:
		default:
		}
	}
	return nil
}

// Flush commits the pending batch now. This is the explicit admin
// operation; the write path itself never commits synchronously.
func (st *State) Flush() error {
	if st.readOnly {
		return ErrReadOnly
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.commitLocked()
}

// commitLocked executes the pending batch. On failure the batch is kept so
// the next tick retries it.
func (st *State) commitLocked() error {
	if st.batch.Size() == 0 {
		return nil
	}
	if err := st.engine.Batch(st.batch); err != nil {
		return &WriterError{Err: err}
	}
	st.batch = st.engine.NewBatch()
	return nil
}

// commitLoop periodically acquires the writer and commits. Errors are
// logged and retried on the next tick; they never reach writers. The loop
// stops only at Close, after a final best-effort commit.
func (st *State) commitLoop(interval time.Duration) {
	defer close(st.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	commit := func() {
		st.mu.Lock()
		err := st.commitLocked()
		st.mu.Unlock()
		if err != nil {
			debug.Errorf("index %s: background commit failed (will retry): %v", st.Schema.Name, err)
		} else {
			debug.Logf("index %s: committed", st.Schema.Name)
		}
	}

	for {
		select {
		case <-ticker.C:
			commit()
		case <-st.kick:
			commit()
		case <-st.stop:
			commit()
			return
		}
	}
}

// DocCount returns the number of documents visible to readers.
func (st *State) DocCount() (uint64, error) {
	return st.engine.DocCount()
}

// Close stops the commit loop (with a final best-effort commit) and closes
// the engine.
func (st *State) Close() error {
	if !st.readOnly {
		close(st.stop)
		<-st.done
	}
	return st.engine.Close()
}
