package tokens

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wibookly/mailcore/internal/vault"
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// fakeTokenEndpoint serves OAuth2 refresh-token grants and counts calls.
type fakeTokenEndpoint struct {
	server   *httptest.Server
	calls    atomic.Int64
	response tokenResponse
	status   int
}

func newFakeTokenEndpoint(resp tokenResponse) *fakeTokenEndpoint {
	f := &fakeTokenEndpoint{response: resp, status: http.StatusOK}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("grant_type") != "refresh_token" {
			http.Error(w, "unexpected grant type", http.StatusBadRequest)
			return
		}
		if f.status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.response)
	}))
	return f
}

func (f *fakeTokenEndpoint) Close() { f.server.Close() }

func newTestRefresher(t *testing.T, store vault.Store, cipher *vault.Cipher, endpoint *fakeTokenEndpoint) *Refresher {
	t.Helper()
	cfg := Config{
		Google:    ClientCredentials{ID: "google-client", Secret: "google-secret"},
		Microsoft: ClientCredentials{ID: "ms-client", Secret: "ms-secret"},
	}
	if endpoint != nil {
		cfg.GoogleTokenURL = endpoint.server.URL
		cfg.MicrosoftTokenURL = endpoint.server.URL
	}
	return NewRefresher(store, cipher, cfg, nil)
}

func seedRecord(t *testing.T, store vault.Store, cipher *vault.Cipher, provider vault.Provider, accessToken, refreshToken string, expiresAt *time.Time) vault.TokenRecord {
	t.Helper()

	userID := uuid.New()
	encAccess, err := cipher.Encrypt(accessToken)
	require.NoError(t, err)

	update := vault.TokenUpdate{
		EncryptedAccessToken: encAccess,
		ExpiresAt:            expiresAt,
	}
	if refreshToken != "" {
		encRefresh, err := cipher.Encrypt(refreshToken)
		require.NoError(t, err)
		update.EncryptedRefreshToken = &encRefresh
	}
	require.NoError(t, store.Upsert(context.Background(), userID, provider, update))

	records, err := store.GetAll(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	return records[0]
}

func TestAccessTokenFastPathNoExpiry(t *testing.T) {
	cipher := vault.NewCipher("test-key")
	store := vault.NewMemoryStore()
	endpoint := newFakeTokenEndpoint(tokenResponse{})
	defer endpoint.Close()

	rec := seedRecord(t, store, cipher, vault.ProviderGoogle, "plain-access", "", nil)

	token, err := newTestRefresher(t, store, cipher, endpoint).AccessToken(context.Background(), rec)

	require.NoError(t, err)
	assert.Equal(t, "plain-access", token)
	assert.Equal(t, int64(0), endpoint.calls.Load(), "fast path must not hit the token endpoint")
}

func TestAccessTokenFastPathFutureExpiry(t *testing.T) {
	cipher := vault.NewCipher("test-key")
	store := vault.NewMemoryStore()
	endpoint := newFakeTokenEndpoint(tokenResponse{})
	defer endpoint.Close()

	future := time.Now().Add(time.Hour)
	rec := seedRecord(t, store, cipher, vault.ProviderGoogle, "still-valid", "refresh", &future)

	token, err := newTestRefresher(t, store, cipher, endpoint).AccessToken(context.Background(), rec)

	require.NoError(t, err)
	assert.Equal(t, "still-valid", token)
	assert.Equal(t, int64(0), endpoint.calls.Load())
}

func TestAccessTokenExpiredTriggersRefresh(t *testing.T) {
	cipher := vault.NewCipher("test-key")
	store := vault.NewMemoryStore()
	endpoint := newFakeTokenEndpoint(tokenResponse{
		AccessToken: "fresh-access",
		TokenType:   "Bearer",
		ExpiresIn:   3600,
	})
	defer endpoint.Close()

	past := time.Now().Add(-time.Second)
	rec := seedRecord(t, store, cipher, vault.ProviderGoogle, "stale-access", "refresh-token", &past)

	token, err := newTestRefresher(t, store, cipher, endpoint).AccessToken(context.Background(), rec)

	require.NoError(t, err)
	assert.Equal(t, "fresh-access", token)
	assert.Equal(t, int64(1), endpoint.calls.Load())

	// New ciphertext and expiry were persisted before returning
	records, err := store.GetAll(context.Background(), rec.UserID)
	require.NoError(t, err)
	require.Len(t, records, 1)

	stored, err := cipher.Decrypt(records[0].EncryptedAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", stored)
	require.NotNil(t, records[0].ExpiresAt)
	assert.True(t, records[0].ExpiresAt.After(time.Now()))
	assert.Equal(t, int64(2), records[0].Version)
}

func TestAccessTokenGoogleDoesNotRotateRefreshToken(t *testing.T) {
	cipher := vault.NewCipher("test-key")
	store := vault.NewMemoryStore()
	endpoint := newFakeTokenEndpoint(tokenResponse{
		AccessToken:  "fresh-access",
		RefreshToken: "unexpected-new-refresh",
		TokenType:    "Bearer",
		ExpiresIn:    3600,
	})
	defer endpoint.Close()

	past := time.Now().Add(-time.Minute)
	rec := seedRecord(t, store, cipher, vault.ProviderGoogle, "stale", "original-refresh", &past)

	_, err := newTestRefresher(t, store, cipher, endpoint).AccessToken(context.Background(), rec)
	require.NoError(t, err)

	records, err := store.GetAll(context.Background(), rec.UserID)
	require.NoError(t, err)
	stored, err := cipher.Decrypt(records[0].EncryptedRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "original-refresh", stored, "google records keep their original refresh token")
}

func TestAccessTokenMicrosoftRotatesRefreshToken(t *testing.T) {
	cipher := vault.NewCipher("test-key")
	store := vault.NewMemoryStore()
	endpoint := newFakeTokenEndpoint(tokenResponse{
		AccessToken:  "fresh-access",
		RefreshToken: "rotated-refresh",
		TokenType:    "Bearer",
		ExpiresIn:    3600,
	})
	defer endpoint.Close()

	past := time.Now().Add(-time.Minute)
	rec := seedRecord(t, store, cipher, vault.ProviderMicrosoft, "stale", "original-refresh", &past)

	_, err := newTestRefresher(t, store, cipher, endpoint).AccessToken(context.Background(), rec)
	require.NoError(t, err)

	records, err := store.GetAll(context.Background(), rec.UserID)
	require.NoError(t, err)
	stored, err := cipher.Decrypt(records[0].EncryptedRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "rotated-refresh", stored, "rotated refresh token persisted in the same update")
}

func TestAccessTokenNoRefreshToken(t *testing.T) {
	cipher := vault.NewCipher("test-key")
	store := vault.NewMemoryStore()

	past := time.Now().Add(-time.Second)
	rec := seedRecord(t, store, cipher, vault.ProviderGoogle, "stale", "", &past)

	_, err := newTestRefresher(t, store, cipher, nil).AccessToken(context.Background(), rec)

	assert.ErrorIs(t, err, ErrNoRefreshToken)
}

func TestAccessTokenRefreshRejected(t *testing.T) {
	cipher := vault.NewCipher("test-key")
	store := vault.NewMemoryStore()
	endpoint := newFakeTokenEndpoint(tokenResponse{})
	endpoint.status = http.StatusBadRequest
	defer endpoint.Close()

	past := time.Now().Add(-time.Second)
	rec := seedRecord(t, store, cipher, vault.ProviderMicrosoft, "stale", "revoked-refresh", &past)

	_, err := newTestRefresher(t, store, cipher, endpoint).AccessToken(context.Background(), rec)

	var refreshErr *RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Equal(t, vault.ProviderMicrosoft, refreshErr.Provider)
}

func TestAccessTokenLostRaceUsesWinnersToken(t *testing.T) {
	cipher := vault.NewCipher("test-key")
	store := vault.NewMemoryStore()
	endpoint := newFakeTokenEndpoint(tokenResponse{
		AccessToken:  "losers-access",
		RefreshToken: "losers-refresh",
		TokenType:    "Bearer",
		ExpiresIn:    3600,
	})
	defer endpoint.Close()

	past := time.Now().Add(-time.Second)
	rec := seedRecord(t, store, cipher, vault.ProviderMicrosoft, "stale", "shared-refresh", &past)

	// Simulate a concurrent invocation winning the refresh race: the stored
	// version moves past the one this caller read.
	winnersAccess, err := cipher.Encrypt("winners-access")
	require.NoError(t, err)
	winnersRefresh, err := cipher.Encrypt("winners-refresh")
	require.NoError(t, err)
	future := time.Now().Add(time.Hour)
	require.NoError(t, store.Upsert(context.Background(), rec.UserID, rec.Provider, vault.TokenUpdate{
		EncryptedAccessToken:  winnersAccess,
		EncryptedRefreshToken: &winnersRefresh,
		ExpiresAt:             &future,
	}))

	token, err := newTestRefresher(t, store, cipher, endpoint).AccessToken(context.Background(), rec)

	require.NoError(t, err)
	assert.Equal(t, "winners-access", token)

	// The loser's rotated refresh token was not persisted
	records, err := store.GetAll(context.Background(), rec.UserID)
	require.NoError(t, err)
	stored, err := cipher.Decrypt(records[0].EncryptedRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "winners-refresh", stored)
}

func TestAccessTokenLostRaceToStaleWriteFails(t *testing.T) {
	cipher := vault.NewCipher("test-key")
	store := vault.NewMemoryStore()
	endpoint := newFakeTokenEndpoint(tokenResponse{
		AccessToken: "losers-access",
		TokenType:   "Bearer",
		ExpiresIn:   3600,
	})
	defer endpoint.Close()

	past := time.Now().Add(-time.Second)
	rec := seedRecord(t, store, cipher, vault.ProviderMicrosoft, "stale", "shared-refresh", &past)

	// The conflicting write stored a token that is itself already expired
	winnersAccess, err := cipher.Encrypt("winners-stale-access")
	require.NoError(t, err)
	alsoPast := time.Now().Add(-time.Minute)
	require.NoError(t, store.Upsert(context.Background(), rec.UserID, rec.Provider, vault.TokenUpdate{
		EncryptedAccessToken: winnersAccess,
		ExpiresAt:            &alsoPast,
	}))

	_, err = newTestRefresher(t, store, cipher, endpoint).AccessToken(context.Background(), rec)

	var refreshErr *RefreshError
	require.ErrorAs(t, err, &refreshErr, "an expired winner token must not be handed out")
}
