package ws

import (
	"sync"
	"time"

	"github.com/zoq/relay/internal/auth"
)

// Registry is the bidirectional mapping between live connection handles and
// authenticated user identities. It is the only shared mutable state in the
// relay; every component gets it by reference so tests can run isolated
// instances.
//
// Invariant: every handle in conns with a non-empty user id appears in the
// users entry for that id, and every handle in a users entry maps back to
// that id in conns.
type Registry struct {
	verifier auth.Verifier
	metrics  *Metrics

	mu    sync.RWMutex
	conns map[*Client]string
	users map[string]map[*Client]struct{}
}

func NewRegistry(verifier auth.Verifier, metrics *Metrics) *Registry {
	return &Registry{
		verifier: verifier,
		metrics:  metrics,
		conns:    make(map[*Client]string),
		users:    make(map[string]map[*Client]struct{}),
	}
}

// Register admits a new, unauthenticated connection.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c]; ok {
		return
	}
	r.conns[c] = ""
	r.metrics.connections.Inc()
}

// Authenticate verifies the credential and, on success, binds the handle to
// the verified identity in both indices. A failure leaves the handle
// registered but unbound. Re-authenticating an already bound handle rebinds
// it; authenticating a handle that was concurrently unregistered verifies but
// binds nothing.
func (r *Registry) Authenticate(c *Client, credential string) (string, error) {
	// The verifier is an external dependency; keep it outside the lock.
	userID, err := r.verifier.Verify(credential)
	if err != nil {
		r.metrics.authFailures.Inc()
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.conns[c]
	if !ok {
		return userID, nil
	}
	if old != "" {
		r.removeInverse(old, c)
	}

	r.conns[c] = userID
	handles, ok := r.users[userID]
	if !ok {
		handles = make(map[*Client]struct{})
		r.users[userID] = handles
	}
	handles[c] = struct{}{}
	c.authenticatedAt = time.Now()

	r.metrics.authenticatedUsers.Set(float64(len(r.users)))
	return userID, nil
}

// Unregister removes the handle from both indices and closes its send side.
// Safe on handles that were never registered or already removed.
func (r *Registry) Unregister(c *Client) {
	r.mu.Lock()
	userID, ok := r.conns[c]
	if ok {
		delete(r.conns, c)
		if userID != "" {
			r.removeInverse(userID, c)
		}
		r.metrics.connections.Dec()
		r.metrics.authenticatedUsers.Set(float64(len(r.users)))
	}
	r.mu.Unlock()

	c.closeSend()
}

// HandlesFor returns a snapshot of the live handles bound to the user.
func (r *Registry) HandlesFor(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handles := r.users[userID]
	out := make([]*Client, 0, len(handles))
	for c := range handles {
		out = append(out, c)
	}
	return out
}

// UserID returns the identity bound to the handle, if any.
func (r *Registry) UserID(c *Client) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID := r.conns[c]
	return userID, userID != ""
}

// removeInverse must be called with the write lock held.
func (r *Registry) removeInverse(userID string, c *Client) {
	handles, ok := r.users[userID]
	if !ok {
		return
	}
	delete(handles, c)
	if len(handles) == 0 {
		delete(r.users, userID)
	}
}
