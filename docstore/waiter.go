package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.lsp.dev/uri"
)

// ErrDependencyUnavailable is returned when a dependency did not become resident
// before the wait timed out.
var ErrDependencyUnavailable = errors.New("dependency unavailable")

type future struct {
	done chan struct{}
}

// Waiter suspends requests until dependency documents are resident. There is at
// most one pending future per file; concurrent waiters share it.
type Waiter struct {
	store   *Store
	mu      sync.Mutex
	pending map[uri.URI]*future
	cancel  func()
}

// NewWaiter creates a waiter fed by the store's events.
func NewWaiter(store *Store) *Waiter {
	w := &Waiter{store: store, pending: make(map[uri.URI]*future)}
	w.cancel = store.Subscribe(func(ev Event) {
		if ev.Kind == Loaded || ev.Kind == Changed {
			w.resolve(ev.URI)
		}
	})
	return w
}

// Close detaches the waiter from the store.
func (w *Waiter) Close() {
	w.cancel()
}

func (w *Waiter) futureFor(u uri.URI) *future {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.pending[u]
	if !ok {
		f = &future{done: make(chan struct{})}
		w.pending[u] = f
	}
	return f
}

func (w *Waiter) resolve(u uri.URI) {
	w.mu.Lock()
	f, ok := w.pending[u]
	if ok {
		delete(w.pending, u)
	}
	w.mu.Unlock()
	if ok {
		close(f.done)
	}
}

// Pending returns the number of files some request is still waiting for.
func (w *Waiter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Await blocks until every document in uris is resident. It fails with an error
// wrapping ErrDependencyUnavailable after timeout, or with ctx.Err() when the
// request is canceled. A timeout <= 0 does not wait at all.
func (w *Waiter) Await(ctx context.Context, uris []uri.URI, timeout time.Duration) error {
	type waiting struct {
		uri uri.URI
		f   *future
	}
	var missing []waiting
	for _, u := range uris {
		// Register before checking residency so a concurrent load cannot slip
		// between the check and the wait.
		f := w.futureFor(u)
		if _, ok := w.store.Get(u); ok {
			w.resolve(u)
			continue
		}
		missing = append(missing, waiting{uri: u, f: f})
	}
	if len(missing) == 0 {
		return nil
	}

	unavailable := func(from int) error {
		var names []string
		for _, m := range missing[from:] {
			if _, ok := w.store.Get(m.uri); !ok {
				names = append(names, string(m.uri))
			}
		}
		if len(names) == 0 {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrDependencyUnavailable, strings.Join(names, ", "))
	}

	if timeout <= 0 {
		return unavailable(0)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for i, m := range missing {
		select {
		case <-m.f.done:
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return unavailable(i)
		}
	}
	return nil
}
