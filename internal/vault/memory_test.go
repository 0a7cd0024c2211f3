package vault

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetAllEmpty(t *testing.T) {
	store := NewMemoryStore()

	records, err := store.GetAll(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMemoryStoreUpsertAndGetAll(t *testing.T) {
	store := NewMemoryStore()
	userID := uuid.New()
	expires := time.Now().Add(time.Hour).UTC()
	refresh := "enc-refresh"

	err := store.Upsert(context.Background(), userID, ProviderGoogle, TokenUpdate{
		EncryptedAccessToken:  "enc-access",
		EncryptedRefreshToken: &refresh,
		ExpiresAt:             &expires,
	})
	require.NoError(t, err)

	records, err := store.GetAll(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, ProviderGoogle, rec.Provider)
	assert.Equal(t, "enc-access", rec.EncryptedAccessToken)
	assert.Equal(t, "enc-refresh", rec.EncryptedRefreshToken)
	assert.Equal(t, int64(1), rec.Version)
	require.NotNil(t, rec.ExpiresAt)
	assert.Equal(t, expires, *rec.ExpiresAt)
}

func TestMemoryStoreUpsertKeepsRefreshTokenWhenOmitted(t *testing.T) {
	store := NewMemoryStore()
	userID := uuid.New()
	refresh := "enc-refresh"

	require.NoError(t, store.Upsert(context.Background(), userID, ProviderMicrosoft, TokenUpdate{
		EncryptedAccessToken:  "first",
		EncryptedRefreshToken: &refresh,
	}))

	// Second write without a refresh token must leave the stored one intact
	require.NoError(t, store.Upsert(context.Background(), userID, ProviderMicrosoft, TokenUpdate{
		EncryptedAccessToken: "second",
	}))

	records, err := store.GetAll(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "second", records[0].EncryptedAccessToken)
	assert.Equal(t, "enc-refresh", records[0].EncryptedRefreshToken)
	assert.Equal(t, int64(2), records[0].Version)
}

func TestMemoryStoreVersionConflict(t *testing.T) {
	store := NewMemoryStore()
	userID := uuid.New()

	require.NoError(t, store.Upsert(context.Background(), userID, ProviderMicrosoft, TokenUpdate{
		EncryptedAccessToken: "v1",
	}))

	staleVersion := int64(1)
	require.NoError(t, store.Upsert(context.Background(), userID, ProviderMicrosoft, TokenUpdate{
		EncryptedAccessToken: "v2",
		ExpectedVersion:      &staleVersion,
	}))

	// The version advanced to 2, so a writer still holding version 1 loses
	err := store.Upsert(context.Background(), userID, ProviderMicrosoft, TokenUpdate{
		EncryptedAccessToken: "v3",
		ExpectedVersion:      &staleVersion,
	})
	assert.ErrorIs(t, err, ErrVersionConflict)

	records, err := store.GetAll(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "v2", records[0].EncryptedAccessToken)
}

func TestMemoryStoreConditionalUpsertOnMissingRecord(t *testing.T) {
	store := NewMemoryStore()
	version := int64(1)

	err := store.Upsert(context.Background(), uuid.New(), ProviderGoogle, TokenUpdate{
		EncryptedAccessToken: "enc",
		ExpectedVersion:      &version,
	})

	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestTokenRecordExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		rec     TokenRecord
		expired bool
	}{
		{
			name:    "no expiry never expires",
			rec:     TokenRecord{},
			expired: false,
		},
		{
			name:    "one second in the past is expired",
			rec:     TokenRecord{ExpiresAt: &past},
			expired: true,
		},
		{
			name:    "one hour in the future is not expired",
			rec:     TokenRecord{ExpiresAt: &future},
			expired: false,
		},
		{
			name:    "exactly now is expired",
			rec:     TokenRecord{ExpiresAt: &now},
			expired: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, tt.rec.Expired(now))
		})
	}
}

func TestProviderRotatesRefreshToken(t *testing.T) {
	assert.False(t, ProviderGoogle.RotatesRefreshToken())
	assert.True(t, ProviderMicrosoft.RotatesRefreshToken())
}
