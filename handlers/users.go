package handlers

import (
	"errors"
	"net/http"

	"github.com/flashtalk/flashtalk/apierr"
	"github.com/flashtalk/flashtalk/middleware/tokenauth"
	"github.com/flashtalk/flashtalk/registry"
	"github.com/flashtalk/flashtalk/services/users"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type UsersHandler struct {
	users    *users.Service
	registry *registry.Registry
}

func NewUsersHandler(usersSvc *users.Service, reg *registry.Registry) *UsersHandler {
	return &UsersHandler{
		users:    usersSvc,
		registry: reg,
	}
}

type userInfoResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	SessionID string    `json:"sessionId"`
}

func (h *UsersHandler) Info(c echo.Context) error {
	user, err := h.users.FindByID(c.Request().Context(), tokenauth.GetUserID(c))
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return apierr.UserNotFound("account no longer exists")
		}
		return apierr.Internal()
	}

	return c.JSON(http.StatusOK, userInfoResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		SessionID: tokenauth.GetSessionID(c),
	})
}

type lookupResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Connected bool      `json:"connected"`
}

// Lookup resolves a username to an id so the client can open a chat
// with someone it has never talked to.
func (h *UsersHandler) Lookup(c echo.Context) error {
	username := c.QueryParam("username")
	if username == "" {
		return apierr.Validation("username query parameter is required")
	}

	user, err := h.users.FindByUsername(c.Request().Context(), username)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return apierr.UserNotFound("no user with that username")
		}
		return apierr.Internal()
	}

	return c.JSON(http.StatusOK, lookupResponse{
		ID:        user.ID,
		Username:  user.Username,
		Connected: h.registry.IsUserConnected(user.ID),
	})
}
