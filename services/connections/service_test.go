package connections

import (
	"context"
	"testing"

	"github.com/flashtalk/flashtalk/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) *Service {
	db := testutils.SetupTestDB(t, &Connection{})
	return NewService(db, nil)
}

func TestService_RecordAndDelete(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, service.Record(ctx, "conn-1", "S1", userID, "phone"))
	require.NoError(t, service.Record(ctx, "conn-2", "S2", userID, "laptop"))

	rows, err := service.ByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	require.NoError(t, service.Delete(ctx, "conn-1"))
	rows, err = service.ByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "conn-2", rows[0].ConnectionID)

	require.NoError(t, service.Delete(ctx, "conn-1"))
}

func TestService_Record_Upsert(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, service.Record(ctx, "conn-1", "S1", userID, "phone"))
	require.NoError(t, service.Record(ctx, "conn-1", "S1", userID, "phone v2"))

	rows, err := service.ByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "phone v2", rows[0].DeviceInfo)
}

func TestService_Purge(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	require.NoError(t, service.Record(ctx, "conn-1", "S1", uuid.New(), ""))
	require.NoError(t, service.Record(ctx, "conn-2", "S2", uuid.New(), ""))

	require.NoError(t, service.Purge(ctx))

	rows, err := service.ByUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, rows)
}
