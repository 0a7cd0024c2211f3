package vault

import (
	"time"

	"github.com/google/uuid"
)

// Provider identifies a connected email provider.
type Provider string

const (
	// ProviderGoogle is a Gmail mailbox connected via Google OAuth.
	ProviderGoogle Provider = "google"

	// ProviderMicrosoft is an Outlook mailbox connected via Microsoft OAuth.
	ProviderMicrosoft Provider = "microsoft"
)

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	return p == ProviderGoogle || p == ProviderMicrosoft
}

// RotatesRefreshToken reports whether the provider issues a new refresh token
// on every refresh grant. Microsoft rotates; Google keeps the original token.
// The refresh layer consults this flag to decide whether a refresh response
// carries a new refresh token that must be persisted.
func (p Provider) RotatesRefreshToken() bool {
	return p == ProviderMicrosoft
}

// TokenRecord is one provider's encrypted credential entry for one user.
type TokenRecord struct {
	UserID   uuid.UUID
	Provider Provider

	// EncryptedAccessToken is always present.
	EncryptedAccessToken string

	// EncryptedRefreshToken is empty when the provider connection was made
	// without offline access. Without it an expired access token cannot be
	// refreshed and the user must reconnect the provider.
	EncryptedRefreshToken string

	// ExpiresAt is nil when the expiry is unknown; such records are never
	// treated as expired by this layer.
	ExpiresAt *time.Time

	// Version increments on every successful write to this record.
	Version int64
}

// Expired reports whether the record's access token is expired at the given
// instant. A record without an expiry is never expired.
func (r *TokenRecord) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !r.ExpiresAt.After(now)
}

// TokenUpdate describes the fields written by an upsert.
type TokenUpdate struct {
	EncryptedAccessToken string

	// EncryptedRefreshToken is only written when non-nil; a nil pointer
	// leaves any stored refresh token untouched.
	EncryptedRefreshToken *string

	ExpiresAt *time.Time

	// ExpectedVersion, when non-nil, makes the upsert conditional: the write
	// only succeeds if the stored record still has this version. A mismatch
	// returns ErrVersionConflict, which closes the race between two
	// concurrent refreshes of the same (user, provider) pair.
	ExpectedVersion *int64
}
