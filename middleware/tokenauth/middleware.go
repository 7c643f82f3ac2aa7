package tokenauth

import (
	"strings"

	"github.com/flashtalk/flashtalk/apierr"
	"github.com/flashtalk/flashtalk/services/tokens"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	UserIDKey    = "_auth_user_id"
	ClaimsKey    = "_auth_claims"
	SessionIDKey = "_auth_session_id"
)

// RequireToken authenticates a request with a two-tier check: the
// token's signature and expiry, then the liveness of its session. A
// token whose session was logged out fails even with a valid
// signature.
func RequireToken(tokensService *tokens.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := extractToken(c)
			if tokenString == "" {
				return apierr.Unauthorized("access token required")
			}

			claims, err := tokensService.Validate(c.Request().Context(), tokenString)
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

			c.Set(UserIDKey, claims.UserID)
			c.Set(ClaimsKey, claims)
			c.Set(SessionIDKey, claims.SessionID)

			return next(c)
		}
	}
}

func extractToken(c echo.Context) string {
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			return strings.TrimPrefix(auth, "Bearer ")
		}
		return ""
	}
	return c.QueryParam("access_token")
}

func GetUserID(c echo.Context) uuid.UUID {
	if userID, ok := c.Get(UserIDKey).(uuid.UUID); ok {
		return userID
	}
	return uuid.Nil
}

func GetClaims(c echo.Context) *tokens.Claims {
	if claims, ok := c.Get(ClaimsKey).(*tokens.Claims); ok {
		return claims
	}
	return nil
}

func GetSessionID(c echo.Context) string {
	if sessionID, ok := c.Get(SessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}
