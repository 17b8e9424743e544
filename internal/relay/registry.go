package relay

import (
	"sync"

	"github.com/walletwire/walletwire/internal/models"
)

// Handle is a live capability to push events to one identity's transport.
// Implementations must not block: a transport that cannot accept an event
// right now returns an error and the relay decides what to do with it.
// Handles are compared by interface identity, so implementations must be
// pointer types.
type Handle interface {
	DeliverMessage(msg models.Message) error
	DeliverPresence(p models.Presence) error
	Close() error
}

// Registry is the authoritative source of "who is online now". It maps an
// identity to its single live handle. All mutation goes through the registry's
// lock; nothing else may touch the map.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Handle)}
}

// Register installs h as the live handle for identity, replacing any prior
// handle for the same identity. The replaced handle is returned (nil when the
// identity was offline); its lifecycle remains the caller's responsibility.
func (r *Registry) Register(identity string, h Handle) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.conns[identity]
	r.conns[identity] = h
	return prev
}

// Unregister removes identity's handle only if h is still the one on record.
// A stale disconnect for an already-replaced handle is a no-op. Returns true
// when removal actually occurred.
func (r *Registry) Unregister(identity string, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.conns[identity]; ok && cur == h {
		delete(r.conns, identity)
		return true
	}
	return false
}

// Lookup returns the live handle for identity, if any.
func (r *Registry) Lookup(identity string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.conns[identity]
	return h, ok
}

// Snapshot returns all currently online identities.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	return out
}

// Len returns the number of online identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
