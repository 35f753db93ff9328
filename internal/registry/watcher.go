package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/lanternhq/lantern/internal/debug"
	"github.com/lanternhq/lantern/internal/index"
)

// Watch hot-loads indexes that appear under the root after startup. The
// searcher runs this so schemas created by the indexer become searchable
// without a restart. Blocks until ctx is cancelled.
//
// A freshly created directory is usually still being populated by the
// indexer (manifest, engine files), so each open is retried with
// exponential backoff before giving up.
func (r *Registry) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return err
	}
	if err := w.Add(r.root); err != nil {
		return err
	}
	debug.Logf("registry: watching %s", r.root)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Op.Has(fsnotify.Create) {
				continue
			}
			info, err := os.Stat(ev.Name)
			if err != nil || !info.IsDir() {
				continue
			}
			go r.loadWithRetry(ctx, filepath.Base(ev.Name))

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			debug.Errorf("registry: watch error: %v", err)
		}
	}
}

func (r *Registry) loadWithRetry(ctx context.Context, name string) {
	if _, loaded := r.Get(name); loaded {
		return
	}

	open := func() error {
		if _, loaded := r.Get(name); loaded {
			return nil
		}
		st, err := index.Open(r.Dir(name), r.opts)
		if err != nil {
			return err
		}
		if err := r.Insert(name, st); err != nil {
			st.Close()
			if errors.Is(err, ErrAlreadyExists) {
				return nil
			}
			return backoff.Permanent(err)
		}
		debug.Logf("registry: hot-loaded index %q", name)
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(open, backoff.WithContext(bo, ctx)); err != nil {
		debug.Errorf("registry: giving up on index %q: %v", name, err)
	}
}
