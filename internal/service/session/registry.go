package session

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const restoreTimeout = 5 * time.Second

type entry struct {
	store  *Store
	mirror *Mirror
	// ready is closed once the store has been restored.
	ready chan struct{}
}

func (e *entry) wait(ctx context.Context) {
	select {
	case <-e.ready:
	case <-ctx.Done():
	}
}

// Registry maps client IDs to their stores. Stores are created and restored
// on first access and evicted after the idle timeout.
type Registry struct {
	deps    Deps
	mu      sync.Mutex
	entries *cache.Cache
}

func NewRegistry(deps Deps, idle time.Duration) *Registry {
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	r := &Registry{
		deps:    deps,
		entries: cache.New(idle, idle/2),
	}
	r.entries.OnEvicted(func(_ string, v interface{}) {
		if e, ok := v.(*entry); ok {
			e.mirror.Close()
		}
	})
	return r
}

// Get returns the store for clientID, restoring it from storage if it is not
// loaded yet.
func (r *Registry) Get(ctx context.Context, clientID string) *Store {
	return r.load(ctx, clientID).store
}

// Mirror returns the mirror attached to clientID's store.
func (r *Registry) Mirror(ctx context.Context, clientID string) *Mirror {
	return r.load(ctx, clientID).mirror
}

// load returns clientID's entry. The first caller restores the store outside
// the registry lock; concurrent callers for the same client wait for that
// restore or for their own context to end, whichever comes first.
func (r *Registry) load(ctx context.Context, clientID string) *entry {
	r.mu.Lock()
	if v, ok := r.entries.Get(clientID); ok {
		e := v.(*entry)
		r.entries.SetDefault(clientID, e)
		r.mu.Unlock()
		e.wait(ctx)
		return e
	}

	store := NewStore(clientID, r.deps)
	e := &entry{store: store, mirror: NewMirror(store), ready: make(chan struct{})}
	r.entries.SetDefault(clientID, e)
	r.mu.Unlock()

	defer close(e.ready)
	restoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
	defer cancel()
	store.RestoreSession(restoreCtx)
	return e
}

// Forget drops the loaded store for clientID. Persisted state is untouched.
func (r *Registry) Forget(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries.Delete(clientID)
}

// Len returns the number of loaded stores.
func (r *Registry) Len() int {
	return r.entries.ItemCount()
}
