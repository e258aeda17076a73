package presence

import (
	"sort"
	"sync"

	"github.com/go-monolith/mono/pkg/types"
)

// EventOnlineUsers is the roster event broadcast on every bind and unbind.
const EventOnlineUsers = "onlineUsers"

// Envelope is the frame pushed to a connection.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Conn is a live duplex channel owned by exactly one user.
//
// Send must not block: implementations enqueue the envelope and return false
// when the frame could not be accepted.
type Conn interface {
	ID() string
	Send(env Envelope) bool
	Close() error
}

// Registry maps a user id to at most one live connection.
// All operations are serialized by a single mutex.
type Registry struct {
	mu     sync.Mutex
	conns  map[string]Conn // userID -> Conn
	logger types.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger types.Logger) *Registry {
	return &Registry{
		conns:  make(map[string]Conn),
		logger: logger,
	}
}

// Bind registers conn for userID, replacing any prior binding.
//
// The superseded connection, if any, is returned and is no longer reachable
// through the registry. Closing it is the caller's job.
func (r *Registry) Bind(userID string, conn Conn) Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.conns[userID]
	r.conns[userID] = conn
	r.logger.Debug("Connection bound", "user_id", userID, "conn_id", conn.ID())
	r.broadcastRosterLocked()

	if prev == nil || prev.ID() == conn.ID() {
		return nil
	}
	r.logger.Info("Connection superseded", "user_id", userID, "old_conn_id", prev.ID(), "conn_id", conn.ID())
	return prev
}

// Unbind removes the binding for userID only if it still points at connID.
// It reports whether a binding was removed.
func (r *Registry) Unbind(userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.conns[userID]
	if !ok || current.ID() != connID {
		r.logger.Debug("Stale unbind ignored", "user_id", userID, "conn_id", connID)
		return false
	}
	delete(r.conns, userID)
	r.logger.Debug("Connection unbound", "user_id", userID, "conn_id", connID)
	r.broadcastRosterLocked()
	return true
}

// Evict removes whatever connection is bound to userID and closes it.
// It reports whether the user was bound.
func (r *Registry) Evict(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[userID]
	if !ok {
		return false
	}
	delete(r.conns, userID)
	if err := conn.Close(); err != nil {
		r.logger.Debug("Failed to close connection", "user_id", userID, "error", err)
	}
	r.logger.Info("Connection evicted", "user_id", userID, "conn_id", conn.ID())
	r.broadcastRosterLocked()
	return true
}

// Resolve returns the connection id currently bound to userID.
func (r *Registry) Resolve(userID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[userID]
	if !ok {
		return "", false
	}
	return conn.ID(), true
}

// Deliver resolves userID and hands env to its connection in one step.
// It returns false when the user is unreachable or the frame was dropped.
func (r *Registry) Deliver(userID string, env Envelope) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[userID]
	if !ok {
		return false
	}
	return conn.Send(env)
}

// Broadcast sends env to every bound connection and returns how many
// accepted it.
func (r *Registry) Broadcast(env Envelope) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.broadcastLocked(env)
}

// Online returns the sorted ids of reachable users.
func (r *Registry) Online() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.onlineLocked()
}

// Count returns the number of bound connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// CloseAll closes every bound connection and empties the registry.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.conns)
	for userID, conn := range r.conns {
		if err := conn.Close(); err != nil {
			r.logger.Debug("Failed to close connection", "user_id", userID, "error", err)
		}
	}
	r.conns = make(map[string]Conn)
	return n
}

func (r *Registry) onlineLocked() []string {
	ids := make([]string, 0, len(r.conns))
	for userID := range r.conns {
		ids = append(ids, userID)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) broadcastRosterLocked() {
	r.broadcastLocked(Envelope{Event: EventOnlineUsers, Payload: r.onlineLocked()})
}

func (r *Registry) broadcastLocked(env Envelope) int {
	sent := 0
	for userID, conn := range r.conns {
		if conn.Send(env) {
			sent++
			continue
		}
		r.logger.Debug("Broadcast frame dropped", "user_id", userID, "event", env.Event)
	}
	return sent
}
