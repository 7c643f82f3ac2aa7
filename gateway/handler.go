package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/flashtalk/flashtalk/apierr"
	"github.com/flashtalk/flashtalk/config"
	"github.com/flashtalk/flashtalk/registry"
	"github.com/flashtalk/flashtalk/services/connections"
	"github.com/flashtalk/flashtalk/services/events"
	"github.com/flashtalk/flashtalk/services/logging"
	"github.com/flashtalk/flashtalk/services/tokens"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Handler upgrades /api/chat requests and runs the socket lifecycle:
// handshake authentication, registration, the read pump and keepalive
// pings, then teardown.
type Handler struct {
	config      *config.GatewayConfig
	tokens      *tokens.Service
	registry    *registry.Registry
	connections *connections.Service
	service     *Service
	events      *events.Service
	logger      *logging.Service
	upgrader    websocket.Upgrader
}

func NewHandler(cfg *config.Config, tokensSvc *tokens.Service, reg *registry.Registry, connsSvc *connections.Service, svc *Service, eventsSvc *events.Service, logger *logging.Service) *Handler {
	return &Handler{
		config:      &cfg.Gateway,
		tokens:      tokensSvc,
		registry:    reg,
		connections: connsSvc,
		service:     svc,
		events:      eventsSvc,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   cfg.Gateway.ReadBufferSize,
			WriteBufferSize:  cfg.Gateway.WriteBufferSize,
			HandshakeTimeout: cfg.Gateway.HandshakeTimeout,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Serve is the GET /api/chat endpoint. The client authenticates during
// the handshake with an access token and its session id; both may
// arrive as query parameters since browser websockets cannot set
// headers.
func (h *Handler) Serve(c echo.Context) error {
	token := bearerToken(c)
	if token == "" {
		return apierr.Unauthorized("missing access token")
	}
	sessionID := sessionID(c)
	if sessionID == "" {
		return apierr.Unauthorized("missing session id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.config.HandshakeTimeout)
	defer cancel()

	claims, err := h.tokens.Validate(ctx, token)
	if err != nil {
		switch err {
		case tokens.ErrExpiredToken:
			return apierr.ExpiredToken("access token has expired")
		case tokens.ErrRevokedSession:
			return apierr.RevokedSession("session is no longer active")
		default:
			return apierr.InvalidToken("access token is invalid")
		}
	}
	if claims.SessionID != sessionID {
		return apierr.Unauthorized("token does not belong to this session")
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("websocket upgrade failed", zap.Error(err))
		}
		return nil
	}

	// A reconnect for a session that still has a handle replaces it.
	conn, created := h.registry.GetOrCreate(sessionID, claims.UserID, claims.Username)
	if !created {
		h.registry.Stop(sessionID)
		conn, _ = h.registry.GetOrCreate(sessionID, claims.UserID, claims.Username)
	}
	if err := conn.Start(ws); err != nil {
		_ = ws.Close()
		return nil
	}

	deviceInfo := connections.DeviceInfo(c.Request().UserAgent())
	if err := h.connections.Record(c.Request().Context(), conn.ID, sessionID, claims.UserID, deviceInfo); err != nil && h.logger != nil {
		h.logger.Error("failed to record connection", zap.Error(err))
	}

	if h.logger != nil {
		h.logger.Info("connection established",
			zap.String("connection_id", conn.ID),
			zap.String("session_id", sessionID),
			zap.String("user_id", claims.UserID.String()),
			zap.String("device", deviceInfo))
	}
	h.events.Publish(c.Request().Context(), events.TopicChat, events.Event{
		Kind:      "session.connected",
		UserID:    claims.UserID,
		SessionID: sessionID,
	})

	done := make(chan struct{})
	go h.pingLoop(ws, conn, done)
	h.readPump(ws, conn)
	close(done)

	// Teardown targets this handle, not whatever owns the session id
	// by now: a reconnect may already have replaced it.
	h.registry.StopConn(conn)
	if err := h.connections.Delete(context.Background(), conn.ID); err != nil && h.logger != nil {
		h.logger.Error("failed to delete connection row", zap.Error(err))
	}
	h.events.Publish(context.Background(), events.TopicChat, events.Event{
		Kind:      "session.disconnected",
		UserID:    claims.UserID,
		SessionID: sessionID,
	})
	return nil
}

func (h *Handler) readPump(ws *websocket.Conn, conn *registry.Conn) {
	ws.SetReadLimit(h.config.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(h.config.ServerTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.config.ServerTimeout))
	})

	for {
		var frame Envelope
		if err := ws.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				if h.logger != nil {
					h.logger.Warn("connection closed unexpectedly",
						zap.String("connection_id", conn.ID),
						zap.Error(err))
				}
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(h.config.ServerTimeout))

		h.dispatch(conn, frame)
	}
}

func (h *Handler) dispatch(conn *registry.Conn, frame Envelope) {
	switch frame.Type {
	case FrameSendMessage:
		var req SendMessageRequest
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			h.pushError(conn, apierr.Validation("malformed SendMessage payload"))
			return
		}
		if err := h.service.HandleSendMessage(context.Background(), conn, req); err != nil {
			var apiErr *apierr.Error
			if !errors.As(err, &apiErr) {
				apiErr = apierr.Internal()
			}
			h.pushError(conn, apiErr)
		}
	default:
		h.pushError(conn, apierr.Validation("unknown frame type: "+frame.Type))
	}
}

func (h *Handler) pushError(conn *registry.Conn, apiErr *apierr.Error) {
	frame := envelope(FrameError, ErrorFrame{
		Type:   apiErr.Type,
		Title:  apiErr.Title,
		Detail: apiErr.Detail,
	})
	if err := conn.Push(frame); err != nil && h.logger != nil {
		h.logger.Warn("failed to push error frame",
			zap.String("connection_id", conn.ID),
			zap.Error(err))
	}
}

// pingLoop keeps the socket alive. Control frames bypass the handle's
// write path on purpose; gorilla allows them alongside a writer.
func (h *Handler) pingLoop(ws *websocket.Conn, conn *registry.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.config.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(h.config.WriteWait)
			if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				if h.logger != nil {
					h.logger.Debug("keepalive ping failed",
						zap.String("connection_id", conn.ID),
						zap.Error(err))
				}
				return
			}
		case <-done:
			return
		}
	}
}

func bearerToken(c echo.Context) string {
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.QueryParam("access_token")
}

func sessionID(c echo.Context) string {
	if id := c.Request().Header.Get("X-Session-Id"); id != "" {
		return id
	}
	return c.QueryParam("session_id")
}
