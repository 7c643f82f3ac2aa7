package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Cookie names carry the session id so multiple tabs of the same
// browser, each with its own session, do not clobber each other's
// tokens.
func accessCookieName(sessionID string) string {
	return "access_token_" + sessionID
}

func refreshCookieName(sessionID string) string {
	return "refresh_token_" + sessionID
}

func setTokenCookies(c echo.Context, sessionID, accessToken, refreshToken string, accessTTL, refreshTTL time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     accessCookieName(sessionID),
		Value:    accessToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(accessTTL),
	})
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName(sessionID),
		Value:    refreshToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(refreshTTL),
	})
}

func clearTokenCookies(c echo.Context, sessionID string) {
	for _, name := range []string{accessCookieName(sessionID), refreshCookieName(sessionID)} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
}

func cookieValue(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
