package registry

import (
	"sync"

	"github.com/flashtalk/flashtalk/services/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registry tracks live connection handles by session id and by user.
// A session owns at most one handle; a user may hold several across
// sessions (one per device or tab).
type Registry struct {
	mu        sync.RWMutex
	bySession map[string]*Conn
	byUser    map[uuid.UUID]map[string]*Conn
	logger    *logging.Service
}

func New(logger *logging.Service) *Registry {
	return &Registry{
		bySession: make(map[string]*Conn),
		byUser:    make(map[uuid.UUID]map[string]*Conn),
		logger:    logger,
	}
}

// GetOrCreate returns the session's handle, creating one in the
// connecting state if none is live. A registered handle that already
// reached the disconnected state counts as absent and is replaced.
// The second result reports whether a new handle was created.
func (r *Registry) GetOrCreate(sessionID string, userID uuid.UUID, username string) (*Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.bySession[sessionID]; ok {
		if conn.State() != StateDisconnected {
			return conn, false
		}
		r.detach(conn)
	}

	conn := newConn(sessionID, userID, username, r.logger)
	r.bySession[sessionID] = conn
	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[string]*Conn)
	}
	r.byUser[userID][sessionID] = conn

	if r.logger != nil {
		r.logger.Debug("connection handle created",
			zap.String("connection_id", conn.ID),
			zap.String("session_id", sessionID),
			zap.String("user_id", userID.String()))
	}
	return conn, true
}

func (r *Registry) Get(sessionID string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.bySession[sessionID]
	return conn, ok
}

// IsConnected reports whether the session holds a registered handle.
func (r *Registry) IsConnected(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bySession[sessionID]
	return ok
}

// IsUserConnected reports presence: true while any of the user's
// sessions holds a handle.
func (r *Registry) IsUserConnected(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// ConnectionsByUser snapshots the user's live handles. The slice is
// safe to iterate without holding the registry lock.
func (r *Registry) ConnectionsByUser(userID uuid.UUID) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Conn, 0, len(r.byUser[userID]))
	for _, conn := range r.byUser[userID] {
		conns = append(conns, conn)
	}
	return conns
}

// Stop closes the session's handle and drops it from both indexes.
// Returns false for unknown sessions without side effects.
func (r *Registry) Stop(sessionID string) bool {
	r.mu.Lock()
	conn, ok := r.bySession[sessionID]
	if ok {
		r.detach(conn)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	conn.Stop()
	return true
}

// StopConn closes one specific handle. It is dropped from the indexes
// only while it is still the session's registered handle: a stale
// handle whose session already reconnected closes without touching
// the replacement.
func (r *Registry) StopConn(conn *Conn) bool {
	r.mu.Lock()
	owned := r.bySession[conn.SessionID] == conn
	if owned {
		r.detach(conn)
	}
	r.mu.Unlock()

	conn.Stop()
	return owned
}

// Remove drops the handle from the indexes without touching the
// transport. The gateway uses it when the read pump already observed
// the socket closing.
func (r *Registry) Remove(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.bySession[sessionID]
	if !ok {
		return false
	}
	r.detach(conn)
	return true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySession)
}

// detach must run under the write lock.
func (r *Registry) detach(conn *Conn) {
	delete(r.bySession, conn.SessionID)
	if sessions := r.byUser[conn.UserID]; sessions != nil {
		delete(sessions, conn.SessionID)
		if len(sessions) == 0 {
			delete(r.byUser, conn.UserID)
		}
	}
}
