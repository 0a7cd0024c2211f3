package tokens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"

	"github.com/wibookly/mailcore/internal/logging"
	"github.com/wibookly/mailcore/internal/vault"
)

// ErrNoRefreshToken indicates an expired record without a refresh token.
// Not retryable from here; the user must reconnect the provider out of band.
var ErrNoRefreshToken = errors.New("no refresh token available")

// RefreshError indicates the provider's token endpoint rejected a
// refresh-token grant.
type RefreshError struct {
	Provider vault.Provider
	Err      error
}

// Error implements the error interface.
func (e *RefreshError) Error() string {
	return fmt.Sprintf("failed to refresh %s token: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *RefreshError) Unwrap() error {
	return e.Err
}

// ClientCredentials are the OAuth client id/secret for one provider.
type ClientCredentials struct {
	ID     string
	Secret string
}

// Config holds provider-scoped OAuth client credentials. The token URLs
// default to the providers' public endpoints and are overridable for tests.
type Config struct {
	Google    ClientCredentials
	Microsoft ClientCredentials

	GoogleTokenURL    string
	MicrosoftTokenURL string
}

// Refresher yields usable plaintext access tokens for vault records,
// performing the OAuth2 refresh-token grant when a record is expired.
type Refresher struct {
	store  vault.Store
	cipher *vault.Cipher
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// NewRefresher creates a refresher over the given store and cipher.
func NewRefresher(store vault.Store, cipher *vault.Cipher, config Config, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		store:  store,
		cipher: cipher,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// AccessToken returns a usable plaintext access token for the record.
//
// Records that are not expired are decrypted and returned without any network
// call. Expired records are refreshed against the provider's token endpoint
// and the new ciphertext is persisted before the plaintext is returned; when
// the provider rotates refresh tokens the rotated token is persisted in the
// same write. Plaintext is never persisted.
func (r *Refresher) AccessToken(ctx context.Context, rec vault.TokenRecord) (string, error) {
	if !rec.Expired(r.now()) {
		return r.cipher.Decrypt(rec.EncryptedAccessToken)
	}

	logger := logging.WithProvider(r.logger, string(rec.Provider))
	logger.Info("access token expired, attempting refresh",
		logging.UserHash(rec.UserID.String()))

	if rec.EncryptedRefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	refreshToken, err := r.cipher.Decrypt(rec.EncryptedRefreshToken)
	if err != nil {
		return "", err
	}

	newToken, err := r.refresh(ctx, rec.Provider, refreshToken)
	if err != nil {
		return "", &RefreshError{Provider: rec.Provider, Err: err}
	}

	if err := r.persist(ctx, rec, refreshToken, newToken); err != nil {
		if errors.Is(err, vault.ErrVersionConflict) {
			// A concurrent refresh won the write race. Its persisted tokens
			// are the ones that stay valid (Microsoft invalidates the old
			// refresh token on rotation), so use the winner's access token.
			logger.Warn("concurrent refresh detected, using persisted token")
			return r.persistedAccessToken(ctx, rec)
		}
		return "", err
	}

	return newToken.AccessToken, nil
}

// refresh dispatches the OAuth2 refresh-token grant for the provider.
func (r *Refresher) refresh(ctx context.Context, provider vault.Provider, refreshToken string) (*oauth2.Token, error) {
	cfg, err := r.oauthConfig(provider)
	if err != nil {
		return nil, err
	}

	source := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, err
	}
	return token, nil
}

// oauthConfig builds the provider-scoped oauth2 config.
func (r *Refresher) oauthConfig(provider vault.Provider) (*oauth2.Config, error) {
	switch provider {
	case vault.ProviderGoogle:
		endpoint := google.Endpoint
		if r.config.GoogleTokenURL != "" {
			endpoint.TokenURL = r.config.GoogleTokenURL
		}
		return &oauth2.Config{
			ClientID:     r.config.Google.ID,
			ClientSecret: r.config.Google.Secret,
			Endpoint:     endpoint,
		}, nil
	case vault.ProviderMicrosoft:
		endpoint := microsoft.AzureADEndpoint("common")
		if r.config.MicrosoftTokenURL != "" {
			endpoint.TokenURL = r.config.MicrosoftTokenURL
		}
		return &oauth2.Config{
			ClientID:     r.config.Microsoft.ID,
			ClientSecret: r.config.Microsoft.Secret,
			Endpoint:     endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

// persist encrypts and writes the refreshed tokens, version-checked against
// the record the caller read.
func (r *Refresher) persist(ctx context.Context, rec vault.TokenRecord, oldRefreshToken string, token *oauth2.Token) error {
	encAccess, err := r.cipher.Encrypt(token.AccessToken)
	if err != nil {
		return err
	}

	update := vault.TokenUpdate{
		EncryptedAccessToken: encAccess,
		ExpectedVersion:      &rec.Version,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		update.ExpiresAt = &expiry
	}

	// Rotation is a provider capability, not a persistence special case:
	// only rotating providers hand back a replacement refresh token.
	if rec.Provider.RotatesRefreshToken() && token.RefreshToken != "" && token.RefreshToken != oldRefreshToken {
		encRefresh, err := r.cipher.Encrypt(token.RefreshToken)
		if err != nil {
			return err
		}
		update.EncryptedRefreshToken = &encRefresh
	}

	return r.store.Upsert(ctx, rec.UserID, rec.Provider, update)
}

// persistedAccessToken re-reads the record and decrypts the access token the
// winning writer stored. A winner whose token is itself already expired is an
// error; handing it out would just fail at the provider API.
func (r *Refresher) persistedAccessToken(ctx context.Context, rec vault.TokenRecord) (string, error) {
	records, err := r.store.GetAll(ctx, rec.UserID)
	if err != nil {
		return "", err
	}
	for _, current := range records {
		if current.Provider != rec.Provider {
			continue
		}
		if current.Expired(r.now()) {
			return "", &RefreshError{
				Provider: rec.Provider,
				Err:      errors.New("concurrently refreshed token is already expired"),
			}
		}
		return r.cipher.Decrypt(current.EncryptedAccessToken)
	}
	return "", fmt.Errorf("token record for %s disappeared", rec.Provider)
}
