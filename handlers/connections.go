package handlers

import (
	"net/http"
	"time"

	"github.com/flashtalk/flashtalk/apierr"
	"github.com/flashtalk/flashtalk/middleware/tokenauth"
	"github.com/flashtalk/flashtalk/registry"
	"github.com/flashtalk/flashtalk/services/connections"
	"github.com/flashtalk/flashtalk/services/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ConnectionsHandler struct {
	connections *connections.Service
	registry    *registry.Registry
	logger      *logging.Service
}

func NewConnectionsHandler(connsSvc *connections.Service, reg *registry.Registry, logger *logging.Service) *ConnectionsHandler {
	return &ConnectionsHandler{
		connections: connsSvc,
		registry:    reg,
		logger:      logger,
	}
}

type connectionResponse struct {
	ConnectionID string    `json:"connectionId"`
	SessionID    string    `json:"sessionId"`
	DeviceInfo   string    `json:"deviceInfo"`
	ConnectedAt  time.Time `json:"connectedAt"`
	Live         bool      `json:"live"`
}

// List returns the caller's recorded connections. Live distinguishes
// rows whose session still holds a socket from rows a crashed process
// has not purged yet.
func (h *ConnectionsHandler) List(c echo.Context) error {
	rows, err := h.connections.ByUser(c.Request().Context(), tokenauth.GetUserID(c))
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to list connections", zap.Error(err))
		}
		return apierr.Internal()
	}

	out := make([]connectionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, connectionResponse{
			ConnectionID: row.ConnectionID,
			SessionID:    row.SessionID,
			DeviceInfo:   row.DeviceInfo,
			ConnectedAt:  row.ConnectedAt,
			Live:         h.registry.IsConnected(row.SessionID),
		})
	}
	return c.JSON(http.StatusOK, out)
}
