package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/flashtalk/flashtalk/apierr"
	"github.com/flashtalk/flashtalk/config"
	"github.com/flashtalk/flashtalk/middleware/tokenauth"
	"github.com/flashtalk/flashtalk/registry"
	"github.com/flashtalk/flashtalk/services/connections"
	"github.com/flashtalk/flashtalk/services/events"
	"github.com/flashtalk/flashtalk/services/logging"
	"github.com/flashtalk/flashtalk/services/tokens"
	"github.com/flashtalk/flashtalk/services/users"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const sessionHeader = "X-Session-Id"

type AuthHandler struct {
	config   *config.Config
	users    *users.Service
	tokens   *tokens.Service
	registry *registry.Registry
	events   *events.Service
	logger   *logging.Service
}

func NewAuthHandler(cfg *config.Config, usersSvc *users.Service, tokensSvc *tokens.Service, reg *registry.Registry, eventsSvc *events.Service, logger *logging.Service) *AuthHandler {
	return &AuthHandler{
		config:   cfg,
		users:    usersSvc,
		tokens:   tokensSvc,
		registry: reg,
		events:   eventsSvc,
		logger:   logger,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return apierr.Validation("malformed request body")
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" {
		return apierr.Validation("username and email are required")
	}

	user, err := h.users.Create(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrDuplicateUsername):
			return apierr.DuplicateUsername("username is already taken")
		case errors.Is(err, users.ErrDuplicateEmail):
			return apierr.DuplicateEmail("email is already registered")
		default:
			return apierr.Validation(err.Error())
		}
	}

	h.events.Publish(c.Request().Context(), events.TopicAuth, events.Event{
		Kind:   "user.registered",
		UserID: user.ID,
	})
	return c.JSON(http.StatusCreated, userResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

// Login authenticates credentials and issues a token pair bound to the
// caller's session id. Each tab or device sends its own id; a missing
// header gets a fresh one.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apierr.Validation("malformed request body")
	}

	sessionID := c.Request().Header.Get(sessionHeader)
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	user, err := h.users.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			return apierr.InvalidCredentials("username or password is incorrect")
		}
		if h.logger != nil {
			h.logger.Error("login failed", zap.Error(err))
		}
		return apierr.Internal()
	}

	pair, err := h.tokens.IssuePair(c.Request().Context(), user.ID, user.Username, sessionID, connections.DeviceInfo(c.Request().UserAgent()))
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to issue token pair", zap.Error(err))
		}
		return apierr.Internal()
	}

	setTokenCookies(c, sessionID, pair.AccessToken, pair.RefreshToken,
		h.config.Tokens.AccessExpiry, h.config.Tokens.RefreshExpiry)

	h.events.Publish(c.Request().Context(), events.TopicAuth, events.Event{
		Kind:      "user.login",
		UserID:    user.ID,
		SessionID: sessionID,
	})
	return c.JSON(http.StatusOK, pair)
}

type updateTokensRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// UpdateTokens rotates the session's refresh token. The old token is
// taken from the body or the session-scoped cookie; it is revoked the
// moment the new pair is issued, so a replay of it fails.
func (h *AuthHandler) UpdateTokens(c echo.Context) error {
	sessionID := c.Request().Header.Get(sessionHeader)
	if sessionID == "" {
		return apierr.Unauthorized("missing session id")
	}

	var req updateTokensRequest
	_ = c.Bind(&req)
	refreshToken := req.RefreshToken
	if refreshToken == "" {
		refreshToken = cookieValue(c, refreshCookieName(sessionID))
	}
	if refreshToken == "" {
		return apierr.InvalidToken("refresh token required")
	}

	pair, err := h.tokens.Rotate(c.Request().Context(), refreshToken, sessionID)
	if err != nil {
		switch err {
		case tokens.ErrExpiredToken:
			return apierr.ExpiredToken("refresh token has expired")
		case tokens.ErrRevokedSession:
			return apierr.RevokedSession("session is no longer active")
		case tokens.ErrInvalidToken:
			return apierr.InvalidToken("refresh token is invalid")
		default:
			if h.logger != nil {
				h.logger.Error("token rotation failed", zap.Error(err))
			}
			return apierr.Internal()
		}
	}

	setTokenCookies(c, sessionID, pair.AccessToken, pair.RefreshToken,
		h.config.Tokens.AccessExpiry, h.config.Tokens.RefreshExpiry)
	return c.JSON(http.StatusOK, pair)
}

// IsAccessSoonExpired tells the client whether to rotate ahead of the
// access token's expiry.
func (h *AuthHandler) IsAccessSoonExpired(c echo.Context) error {
	claims := tokenauth.GetClaims(c)
	if claims == nil {
		return apierr.Unauthorized("access token required")
	}
	return c.JSON(http.StatusOK, map[string]bool{
		"soonExpired": h.tokens.SoonExpiring(claims),
	})
}

// Logout revokes the session and tears down its live connection. The
// access token keeps a valid signature afterwards but fails the
// liveness tier immediately.
func (h *AuthHandler) Logout(c echo.Context) error {
	userID := tokenauth.GetUserID(c)
	sessionID := tokenauth.GetSessionID(c)

	if err := h.tokens.RevokeSession(c.Request().Context(), userID, sessionID); err != nil {
		if h.logger != nil {
			h.logger.Error("failed to revoke session", zap.Error(err))
		}
		return apierr.Internal()
	}

	h.registry.Stop(sessionID)
	clearTokenCookies(c, sessionID)

	h.events.Publish(c.Request().Context(), events.TopicAuth, events.Event{
		Kind:      "user.logout",
		UserID:    userID,
		SessionID: sessionID,
	})
	return c.NoContent(http.StatusNoContent)
}
