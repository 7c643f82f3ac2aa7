package tokenauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flashtalk/flashtalk/apierr"
	"github.com/flashtalk/flashtalk/services/sessionstore"
	"github.com/flashtalk/flashtalk/services/tokens"
	"github.com/flashtalk/flashtalk/testutils"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTokens(t *testing.T) *tokens.Service {
	cfg := testutils.GetTestConfig()
	db := testutils.SetupTestDB(t, &sessionstore.RefreshCredential{})
	store := sessionstore.NewGormStore(db, nil)
	cache := sessionstore.NewLivenessCache(cfg.Tokens.LivenessCacheTTL)
	return tokens.NewService(cfg, store, cache, nil)
}

func runMiddleware(t *testing.T, svc *tokens.Service, configure func(*http.Request)) (echo.Context, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	configure(req)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequireToken(svc)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return c, handler(c)
}

func TestRequireToken_Valid(t *testing.T) {
	svc := setupTokens(t)
	userID := uuid.New()
	pair, err := svc.IssuePair(context.Background(), userID, "alice", "S1", "")
	require.NoError(t, err)

	c, err := runMiddleware(t, svc, func(req *http.Request) {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+pair.AccessToken)
	})
	require.NoError(t, err)
	assert.Equal(t, userID, GetUserID(c))
	assert.Equal(t, "S1", GetSessionID(c))
	require.NotNil(t, GetClaims(c))
	assert.Equal(t, "alice", GetClaims(c).Username)
}

func TestRequireToken_QueryParam(t *testing.T) {
	svc := setupTokens(t)
	pair, err := svc.IssuePair(context.Background(), uuid.New(), "alice", "S1", "")
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/protected?access_token="+pair.AccessToken, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequireToken(svc)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	assert.NoError(t, handler(c))
}

func TestRequireToken_Missing(t *testing.T) {
	svc := setupTokens(t)

	_, err := runMiddleware(t, svc, func(req *http.Request) {})
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Unauthorized", apiErr.Title)
}

func TestRequireToken_Garbage(t *testing.T) {
	svc := setupTokens(t)

	_, err := runMiddleware(t, svc, func(req *http.Request) {
		req.Header.Set(echo.HeaderAuthorization, "Bearer nonsense")
	})
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "InvalidToken", apiErr.Title)
}

func TestRequireToken_RevokedSession(t *testing.T) {
	svc := setupTokens(t)
	userID := uuid.New()
	pair, err := svc.IssuePair(context.Background(), userID, "alice", "S1", "")
	require.NoError(t, err)
	require.NoError(t, svc.RevokeSession(context.Background(), userID, "S1"))

	_, err = runMiddleware(t, svc, func(req *http.Request) {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+pair.AccessToken)
	})
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "RevokedSession", apiErr.Title)
}
