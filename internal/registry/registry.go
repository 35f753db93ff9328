// Package registry provides the process-wide mapping from schema name to
// opened index state. It is the ownership root: indexes are loaded from a
// root directory at startup, inserted at runtime by schema creation, and
// never evicted.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/lanternhq/lantern/internal/debug"
	"github.com/lanternhq/lantern/internal/index"
)

// ErrAlreadyExists is returned by Insert when the name is taken. Exactly one
// of several concurrent creators for the same name wins.
var ErrAlreadyExists = errors.New("index already exists")

// Registry maps schema names to index states.
type Registry struct {
	root string
	opts index.Options

	mu      sync.RWMutex
	indexes map[string]*index.State
}

// LoadRoot scans the immediate subdirectories of root and opens each as an
// index. Per-index failures are logged and skipped so one broken index does
// not deny service for the rest.
func LoadRoot(root string, opts index.Options) (*Registry, error) {
	entries, err := os.ReadDir(root)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("scan registry root %s: %w", root, err)
	}

	r := &Registry{
		root:    root,
		opts:    opts,
		indexes: make(map[string]*index.State),
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		st, err := index.Open(filepath.Join(root, name), opts)
		if err != nil {
			debug.Errorf("registry: skipping index %q: %v", name, err)
			continue
		}
		if st.Schema.Name != name {
			debug.Errorf("registry: skipping index %q: manifest names it %q", name, st.Schema.Name)
			st.Close()
			continue
		}
		r.indexes[name] = st
	}

	return r, nil
}

// Root returns the registry root directory.
func (r *Registry) Root() string {
	return r.root
}

// Dir returns the directory an index with the given name lives in.
func (r *Registry) Dir(name string) string {
	return filepath.Join(r.root, name)
}

// Get returns the index state for name, if loaded.
func (r *Registry) Get(name string) (*index.State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.indexes[name]
	return st, ok
}

// Insert registers a new index state under name. Insertion is atomic:
// concurrent inserts for the same name resolve to exactly one winner, the
// rest get ErrAlreadyExists.
func (r *Registry) Insert(name string, st *index.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.indexes[name]; taken {
		return fmt.Errorf("%w: %q", ErrAlreadyExists, name)
	}
	r.indexes[name] = st
	return nil
}

// Names returns the loaded schema names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.indexes))
	for name := range r.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every loaded index. Used at process shutdown only; the
// registry never evicts at runtime.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for name, st := range r.indexes {
		if err := st.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close index %q: %w", name, err)
		}
	}
	return firstErr
}
