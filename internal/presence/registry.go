package presence

import (
	"fmt"
	"sync"

	"github.com/nfrund/chatrooms/internal/domain"
)

type registryEntry struct {
	conn    Conn
	binding *domain.Binding
}

// Registry is the authoritative mapping from connection ID to its binding.
// It also indexes bound connections by room so fan-out never scans every
// connection.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry  // connID -> entry
	rooms   map[string]map[string]Conn // room -> connID -> conn
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*registryEntry),
		rooms:   make(map[string]map[string]Conn),
	}
}

// Add registers a live connection with no binding. Re-adding a known ID
// replaces the connection but keeps its binding.
func (r *Registry) Add(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[conn.ID()]; ok {
		entry.conn = conn
		if entry.binding != nil {
			r.rooms[entry.binding.Room][conn.ID()] = conn
		}
		return
	}
	r.entries[conn.ID()] = &registryEntry{conn: conn}
}

// Remove forgets a connection entirely and returns the binding it held, if any.
func (r *Registry) Remove(connID string) (domain.Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prior, had := r.unbindLocked(connID)
	delete(r.entries, connID)
	return prior, had
}

// Bind associates a connection with a user and room. Binding to a different
// room while already bound fails with domain.ErrAlreadyBound; the caller has
// to unbind first (or use Rebind).
func (r *Registry) Bind(connID, user, room string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[connID]
	if !ok {
		return fmt.Errorf("bind %q: %w", connID, domain.ErrConnNotFound)
	}
	if entry.binding != nil && entry.binding.Room != room {
		return fmt.Errorf("bind %q to %q: %w", connID, room, domain.ErrAlreadyBound)
	}
	r.bindLocked(entry, connID, user, room)
	return nil
}

// Rebind drops any current binding and binds the connection to room under a
// single lock, so a connection can never hold two bindings at once.
func (r *Registry) Rebind(connID, user, room string) (domain.Binding, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[connID]
	if !ok {
		return domain.Binding{}, false, fmt.Errorf("rebind %q: %w", connID, domain.ErrConnNotFound)
	}
	prior, had := r.unbindLocked(connID)
	r.bindLocked(entry, connID, user, room)
	return prior, had, nil
}

// Unbind removes and returns the connection's binding. It is idempotent.
func (r *Registry) Unbind(connID string) (domain.Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unbindLocked(connID)
}

// Lookup returns the connection's current binding.
func (r *Registry) Lookup(connID string) (domain.Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[connID]
	if !ok || entry.binding == nil {
		return domain.Binding{}, false
	}
	return *entry.binding, true
}

// Members returns the connections currently bound to room.
func (r *Registry) Members(room string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]Conn, 0, len(r.rooms[room]))
	for _, conn := range r.rooms[room] {
		members = append(members, conn)
	}
	return members
}

// All returns every live connection, bound or not.
func (r *Registry) All() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Conn, 0, len(r.entries))
	for _, entry := range r.entries {
		all = append(all, entry.conn)
	}
	return all
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) bindLocked(entry *registryEntry, connID, user, room string) {
	entry.binding = &domain.Binding{ConnID: connID, User: user, Room: room}
	if r.rooms[room] == nil {
		r.rooms[room] = make(map[string]Conn)
	}
	r.rooms[room][connID] = entry.conn
}

// unbindLocked must be called with r.mu held.
func (r *Registry) unbindLocked(connID string) (domain.Binding, bool) {
	entry, ok := r.entries[connID]
	if !ok || entry.binding == nil {
		return domain.Binding{}, false
	}
	prior := *entry.binding
	entry.binding = nil

	if members, ok := r.rooms[prior.Room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.rooms, prior.Room)
		}
	}
	return prior, true
}

// Get returns the live connection registered under connID.
func (r *Registry) Get(connID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[connID]
	if !ok {
		return nil, false
	}
	return entry.conn, true
}
