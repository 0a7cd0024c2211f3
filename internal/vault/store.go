package vault

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrVersionConflict is returned by a conditional upsert when the stored
// record's version no longer matches the caller's expectation. The caller
// lost a write race and should re-read the record instead of retrying the
// write: the winner may have persisted a rotated refresh token.
var ErrVersionConflict = errors.New("token record was modified concurrently")

// ErrNoProvidersConnected is returned when a user has no vault records at all.
var ErrNoProvidersConnected = errors.New("no connected email providers found")

// Store persists encrypted token records keyed by (user, provider).
//
// Reads reflect the latest successful upsert; implementations are expected to
// be backed by strongly consistent storage.
type Store interface {
	// GetAll returns every provider record for the user. A user with no
	// records yields an empty slice, not an error.
	GetAll(ctx context.Context, userID uuid.UUID) ([]TokenRecord, error)

	// Upsert writes the given fields for (userID, provider), creating the
	// record if absent. When update.ExpectedVersion is set and does not match
	// the stored version, Upsert returns ErrVersionConflict.
	Upsert(ctx context.Context, userID uuid.UUID, provider Provider, update TokenUpdate) error
}
