package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/flashtalk/flashtalk/services/sessionstore"
	"github.com/flashtalk/flashtalk/testutils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) (*Service, sessionstore.Store) {
	cfg := testutils.GetTestConfig()
	db := testutils.SetupTestDB(t, &sessionstore.RefreshCredential{})
	store := sessionstore.NewGormStore(db, nil)
	cache := sessionstore.NewLivenessCache(cfg.Tokens.LivenessCacheTTL)
	return NewService(cfg, store, cache, nil), store
}

func TestService_IssuePair(t *testing.T) {
	service, store := setupService(t)
	ctx := context.Background()
	userID := uuid.New()

	pair, err := service.IssuePair(ctx, userID, "alice", "S1", "test-device")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, "S1", pair.SessionID)

	claims, err := service.parse(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "S1", claims.SessionID)
	assert.Equal(t, KindAccess, claims.Kind)

	active, err := store.HasActive(ctx, userID, "S1")
	require.NoError(t, err)
	assert.True(t, active)
}

func TestService_IssuePair_RevokesPredecessor(t *testing.T) {
	service, store := setupService(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := service.IssuePair(ctx, userID, "alice", "S1", "")
	require.NoError(t, err)
	second, err := service.IssuePair(ctx, userID, "alice", "S1", "")
	require.NoError(t, err)

	old, err := store.FindByHash(ctx, HashToken(first.RefreshToken))
	require.NoError(t, err)
	assert.True(t, old.Revoked)

	current, err := store.FindByHash(ctx, HashToken(second.RefreshToken))
	require.NoError(t, err)
	assert.False(t, current.Revoked)
}

func TestService_IssuePair_SessionsIndependent(t *testing.T) {
	service, store := setupService(t)
	ctx := context.Background()
	userID := uuid.New()

	phone, err := service.IssuePair(ctx, userID, "alice", "S1", "phone")
	require.NoError(t, err)
	_, err = service.IssuePair(ctx, userID, "alice", "S2", "laptop")
	require.NoError(t, err)

	cred, err := store.FindByHash(ctx, HashToken(phone.RefreshToken))
	require.NoError(t, err)
	assert.False(t, cred.Revoked)
}

func TestService_Rotate(t *testing.T) {
	service, store := setupService(t)
	ctx := context.Background()
	userID := uuid.New()

	pair, err := service.IssuePair(ctx, userID, "alice", "S1", "test-device")
	require.NoError(t, err)

	t.Run("successful rotation revokes the old credential", func(t *testing.T) {
		rotated, err := service.Rotate(ctx, pair.RefreshToken, "S1")
		require.NoError(t, err)
		assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

		old, err := store.FindByHash(ctx, HashToken(pair.RefreshToken))
		require.NoError(t, err)
		assert.True(t, old.Revoked)

		cred, err := store.FindByHash(ctx, HashToken(rotated.RefreshToken))
		require.NoError(t, err)
		assert.Equal(t, "test-device", cred.DeviceInfo)
	})

	t.Run("replaying the rotated-out token fails", func(t *testing.T) {
		_, err := service.Rotate(ctx, pair.RefreshToken, "S1")
		assert.ErrorIs(t, err, ErrRevokedSession)
	})
}

func TestService_Rotate_Rejections(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()
	userID := uuid.New()

	pair, err := service.IssuePair(ctx, userID, "alice", "S1", "")
	require.NoError(t, err)

	t.Run("garbage token", func(t *testing.T) {
		_, err := service.Rotate(ctx, "not-a-token", "S1")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("access token offered as refresh", func(t *testing.T) {
		_, err := service.Rotate(ctx, pair.AccessToken, "S1")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("session mismatch", func(t *testing.T) {
		_, err := service.Rotate(ctx, pair.RefreshToken, "S2")
		assert.ErrorIs(t, err, ErrRevokedSession)
	})

	t.Run("signed but never stored", func(t *testing.T) {
		orphan, err := service.sign(userID, "alice", "S1", KindRefresh, time.Now(), time.Now().Add(time.Hour))
		require.NoError(t, err)
		_, err = service.Rotate(ctx, orphan, "S1")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestService_Validate(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()
	userID := uuid.New()

	pair, err := service.IssuePair(ctx, userID, "alice", "S1", "")
	require.NoError(t, err)

	t.Run("valid access token", func(t *testing.T) {
		claims, err := service.Validate(ctx, pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, "S1", claims.SessionID)
	})

	t.Run("refresh token offered as access", func(t *testing.T) {
		_, err := service.Validate(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("tampered token", func(t *testing.T) {
		_, err := service.Validate(ctx, pair.AccessToken+"x")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		stale, err := service.sign(userID, "alice", "S1", KindAccess, time.Now().Add(-time.Hour), time.Now().Add(-time.Minute))
		require.NoError(t, err)
		_, err = service.Validate(ctx, stale)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})
}

// Logout must take effect immediately: a signed, unexpired access token
// is still rejected once its session has no active refresh credential.
func TestService_Validate_AfterLogout(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()
	userID := uuid.New()

	pair, err := service.IssuePair(ctx, userID, "alice", "S1", "")
	require.NoError(t, err)

	claims, err := service.Validate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.False(t, service.SoonExpiring(claims))

	require.NoError(t, service.RevokeSession(ctx, userID, "S1"))

	_, err = service.Validate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrRevokedSession)

	_, err = service.Rotate(ctx, pair.RefreshToken, "S1")
	assert.ErrorIs(t, err, ErrRevokedSession)
}

func TestService_RevokeSession_Idempotent(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := service.IssuePair(ctx, userID, "alice", "S1", "")
	require.NoError(t, err)

	require.NoError(t, service.RevokeSession(ctx, userID, "S1"))
	require.NoError(t, service.RevokeSession(ctx, userID, "S1"))
	require.NoError(t, service.RevokeSession(ctx, uuid.New(), "never-seen"))
}

func TestService_SoonExpiring(t *testing.T) {
	service, _ := setupService(t)

	fresh := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(10 * time.Minute)),
	}}
	assert.False(t, service.SoonExpiring(fresh))

	closing := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	assert.True(t, service.SoonExpiring(closing))

	assert.True(t, service.SoonExpiring(&Claims{}))
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("anything"), 64)
}

func TestService_AccessExpirySeconds(t *testing.T) {
	service, _ := setupService(t)
	assert.Equal(t, 900, service.AccessExpirySeconds())
}
