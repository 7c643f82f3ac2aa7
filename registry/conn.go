package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/flashtalk/flashtalk/services/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotStarted      = errors.New("connection not started")
	ErrStillConnecting = errors.New("connection still connecting")
)

type State int

const (
	StateConnecting State = iota
	StateConnected
	StateReconnecting
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Transport is the write side of a live socket. The gateway hands the
// registry a gorilla websocket connection; tests hand it fakes.
type Transport interface {
	WriteJSON(v any) error
	Close() error
}

// Conn is the registry's handle for one session's socket. A handle is
// created in the connecting state and can push only once Start has
// attached a transport.
type Conn struct {
	ID        string
	SessionID string
	UserID    uuid.UUID
	Username  string
	CreatedAt time.Time

	mu        sync.Mutex
	state     State
	transport Transport
	logger    *logging.Service
}

func newConn(sessionID string, userID uuid.UUID, username string, logger *logging.Service) *Conn {
	return &Conn{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		UserID:    userID,
		Username:  username,
		CreatedAt: time.Now(),
		state:     StateConnecting,
		logger:    logger,
	}
}

func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start attaches the transport and moves the handle to connected.
// Starting an already stopped handle fails.
func (c *Conn) Start(transport Transport) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDisconnected {
		return ErrNotStarted
	}
	c.transport = transport
	c.state = StateConnected
	return nil
}

// Push writes one frame to the socket. Pushing before Start reports
// the handle's phase so callers can tell an unstarted handle from one
// mid-handshake.
func (c *Conn) Push(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateConnecting, StateReconnecting:
		return ErrStillConnecting
	case StateDisconnected:
		return ErrNotStarted
	}
	if c.transport == nil {
		return ErrNotStarted
	}
	return c.transport.WriteJSON(v)
}

// Stop closes the transport and marks the handle disconnected. Close
// failures are logged and swallowed: a socket that will not close
// cleanly is already gone for our purposes.
func (c *Conn) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDisconnected {
		return
	}
	c.state = StateDisconnected

	if c.transport != nil {
		if err := c.transport.Close(); err != nil {
			if c.logger != nil {
				c.logger.Warn("failed to close connection transport",
					zap.String("connection_id", c.ID),
					zap.String("session_id", c.SessionID),
					zap.Error(err))
			}
		}
		c.transport = nil
	}
}
