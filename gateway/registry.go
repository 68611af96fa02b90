package gateway

import "sync"

// Registry is the connection-registry keyed by userId, replacing the
// teacher's global `sendToUser`-over-all-sockets helper with explicit
// add/remove on accept/close (spec §9 Design Notes, "No global mutable
// maps").
type Registry struct {
	mu     sync.RWMutex
	byUser map[string][]*Connection
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string][]*Connection)}
}

// Add registers conn under userID. Anonymous connections (empty userID)
// are never added: there is nothing to fan out to.
func (r *Registry) Add(userID string, conn *Connection) {
	if userID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[userID] = append(r.byUser[userID], conn)
}

// Remove deregisters conn from userID's connection list.
func (r *Registry) Remove(userID string, conn *Connection) {
	if userID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	conns := r.byUser[userID]
	for i, c := range conns {
		if c == conn {
			r.byUser[userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(r.byUser[userID]) == 0 {
		delete(r.byUser, userID)
	}
}

// ConnectionsFor returns a snapshot of userID's open connections.
func (r *Registry) ConnectionsFor(userID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]*Connection, len(r.byUser[userID]))
	copy(conns, r.byUser[userID])
	return conns
}

// SendToUser enqueues frame on every open connection for userID. Each
// connection's single WritePump, fed through Connection.Enqueue, prevents
// frame interleaving with its own turn replies.
func (r *Registry) SendToUser(userID string, frame []byte) {
	for _, c := range r.ConnectionsFor(userID) {
		c.Enqueue(frame)
	}
}

// Count returns the number of distinct users with at least one open
// connection, for diagnostics.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
