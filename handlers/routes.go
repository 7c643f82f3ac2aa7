package handlers

import (
	"github.com/flashtalk/flashtalk/gateway"
	"github.com/flashtalk/flashtalk/middleware/tokenauth"
	"github.com/flashtalk/flashtalk/services/metrics"
	"github.com/flashtalk/flashtalk/services/tokens"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires the full HTTP surface. The websocket endpoint
// authenticates inside its handshake, so it sits outside the token
// middleware.
func RegisterRoutes(e *echo.Echo, tokensSvc *tokens.Service, auth *AuthHandler, usersH *UsersHandler, chatsH *ChatsHandler, connsH *ConnectionsHandler, health *HealthHandler, ws *gateway.Handler, metricsSvc *metrics.Service) {
	e.GET("/metrics", metricsSvc.Handler())

	api := e.Group("/api")

	api.GET("/health", health.Health)
	api.POST("/auth/register", auth.Register)
	api.POST("/auth/login", auth.Login)
	api.POST("/auth/update-tokens", auth.UpdateTokens)

	api.GET("/chat", ws.Serve)

	protected := api.Group("", tokenauth.RequireToken(tokensSvc))
	protected.POST("/auth/logout", auth.Logout)
	protected.GET("/auth/is-access-soon-expired", auth.IsAccessSoonExpired)
	protected.GET("/users/info", usersH.Info)
	protected.GET("/users/lookup", usersH.Lookup)
	protected.GET("/chats", chatsH.List)
	protected.GET("/chats/:chatId/messages", chatsH.Messages)
	protected.GET("/connections", connsH.List)
}
