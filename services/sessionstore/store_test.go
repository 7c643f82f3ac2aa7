package sessionstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/flashtalk/flashtalk/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *GormStore {
	db := testutils.SetupTestDB(t, &RefreshCredential{})
	return NewGormStore(db, nil)
}

func newCredential(userID uuid.UUID, sessionID string) *RefreshCredential {
	return &RefreshCredential{
		ID:        uuid.New(),
		TokenHash: uuid.New().String(),
		UserID:    userID,
		SessionID: sessionID,
		IssuedAt:  time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
}

func TestGormStore_Insert_RevokesPredecessors(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	userID := uuid.New()

	first := newCredential(userID, "S1")
	require.NoError(t, store.Insert(ctx, first))
	second := newCredential(userID, "S1")
	require.NoError(t, store.Insert(ctx, second))

	old, err := store.FindByHash(ctx, first.TokenHash)
	require.NoError(t, err)
	assert.True(t, old.Revoked)

	current, err := store.FindByHash(ctx, second.TokenHash)
	require.NoError(t, err)
	assert.False(t, current.Revoked)
}

func TestGormStore_Insert_OtherPairsUntouched(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	aliceS1 := newCredential(alice, "S1")
	aliceS2 := newCredential(alice, "S2")
	bobS1 := newCredential(bob, "S1")
	require.NoError(t, store.Insert(ctx, aliceS1))
	require.NoError(t, store.Insert(ctx, aliceS2))
	require.NoError(t, store.Insert(ctx, bobS1))

	for _, hash := range []string{aliceS1.TokenHash, aliceS2.TokenHash, bobS1.TokenHash} {
		cred, err := store.FindByHash(ctx, hash)
		require.NoError(t, err)
		assert.False(t, cred.Revoked)
	}
}

func TestGormStore_FindByHash_NotFound(t *testing.T) {
	store := setupStore(t)

	_, err := store.FindByHash(context.Background(), "no-such-hash")
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestGormStore_HasActive(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	userID := uuid.New()

	active, err := store.HasActive(ctx, userID, "S1")
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, store.Insert(ctx, newCredential(userID, "S1")))
	active, err = store.HasActive(ctx, userID, "S1")
	require.NoError(t, err)
	assert.True(t, active)

	t.Run("expired credential is not active", func(t *testing.T) {
		expired := newCredential(userID, "S2")
		expired.ExpiresAt = time.Now().UTC().Add(-time.Minute)
		require.NoError(t, store.Insert(ctx, expired))

		active, err := store.HasActive(ctx, userID, "S2")
		require.NoError(t, err)
		assert.False(t, active)
	})
}

func TestGormStore_RevokeAll(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, store.Insert(ctx, newCredential(userID, "S1")))
	require.NoError(t, store.Insert(ctx, newCredential(userID, "S2")))

	count, err := store.RevokeAll(ctx, userID, "S1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	active, err := store.HasActive(ctx, userID, "S1")
	require.NoError(t, err)
	assert.False(t, active)

	active, err = store.HasActive(ctx, userID, "S2")
	require.NoError(t, err)
	assert.True(t, active)

	t.Run("second revoke is a no-op", func(t *testing.T) {
		count, err := store.RevokeAll(ctx, userID, "S1")
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestGormStore_DeleteExpiredOrRevoked(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	userID := uuid.New()

	expired := newCredential(userID, "S1")
	expired.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, store.Insert(ctx, expired))

	revoked := newCredential(userID, "S2")
	require.NoError(t, store.Insert(ctx, revoked))
	_, err := store.RevokeAll(ctx, userID, "S2")
	require.NoError(t, err)

	healthy := newCredential(userID, "S3")
	require.NoError(t, store.Insert(ctx, healthy))

	deleted, err := store.DeleteExpiredOrRevoked(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = store.FindByHash(ctx, healthy.TokenHash)
	assert.NoError(t, err)
	_, err = store.FindByHash(ctx, expired.TokenHash)
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestGormStore_ConcurrentInserts_OneSurvivor(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 10; i++ {
		cred := newCredential(userID, "S1")
		cred.TokenHash = fmt.Sprintf("hash-%d", i)
		require.NoError(t, store.Insert(ctx, cred))
	}

	var count int64
	err := store.db.Model(&RefreshCredential{}).
		Where("user_id = ? AND session_id = ? AND revoked = ?", userID, "S1", false).
		Count(&count).Error
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestLivenessCache(t *testing.T) {
	userID := uuid.New()

	t.Run("positive entries expire", func(t *testing.T) {
		cache := NewLivenessCache(20 * time.Millisecond)
		assert.False(t, cache.Get(userID, "S1"))

		cache.Put(userID, "S1")
		assert.True(t, cache.Get(userID, "S1"))

		time.Sleep(30 * time.Millisecond)
		assert.False(t, cache.Get(userID, "S1"))
	})

	t.Run("invalidate takes effect immediately", func(t *testing.T) {
		cache := NewLivenessCache(time.Minute)
		cache.Put(userID, "S1")
		cache.Invalidate(userID, "S1")
		assert.False(t, cache.Get(userID, "S1"))
	})

	t.Run("nil cache is inert", func(t *testing.T) {
		var cache *LivenessCache
		cache.Put(userID, "S1")
		cache.Invalidate(userID, "S1")
		assert.False(t, cache.Get(userID, "S1"))
	})
}

type failingStore struct {
	Store
	calls int
}

func (f *failingStore) DeleteExpiredOrRevoked(ctx context.Context) (int64, error) {
	f.calls++
	return 0, fmt.Errorf("database is down")
}

func TestCleanupWorker_SurvivesSweepFailures(t *testing.T) {
	store := &failingStore{}
	worker := NewCleanupWorker(store, 10*time.Millisecond, nil)

	worker.Start()
	time.Sleep(50 * time.Millisecond)
	worker.Stop()

	assert.GreaterOrEqual(t, store.calls, 2)
}

func TestCleanupWorker_Sweeps(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	expired := newCredential(uuid.New(), "S1")
	expired.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, store.Insert(ctx, expired))

	worker := NewCleanupWorker(store, 10*time.Millisecond, nil)
	worker.Start()
	time.Sleep(50 * time.Millisecond)
	worker.Stop()

	_, err := store.FindByHash(ctx, expired.TokenHash)
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}
