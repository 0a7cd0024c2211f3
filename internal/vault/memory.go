package vault

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store with the same versioning semantics as the
// Postgres implementation. Intended for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]map[Provider]*TokenRecord
}

// NewMemoryStore creates an empty in-memory vault store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[uuid.UUID]map[Provider]*TokenRecord),
	}
}

// GetAll returns copies of every provider record for the user.
func (s *MemoryStore) GetAll(_ context.Context, userID uuid.UUID) ([]TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []TokenRecord
	for _, rec := range s.records[userID] {
		records = append(records, *rec)
	}
	return records, nil
}

// Upsert writes the given fields for (userID, provider), honoring the same
// optimistic version check as PostgresStore.
func (s *MemoryStore) Upsert(_ context.Context, userID uuid.UUID, provider Provider, update TokenUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byProvider := s.records[userID]
	existing := byProvider[provider]

	if update.ExpectedVersion != nil {
		if existing == nil || existing.Version != *update.ExpectedVersion {
			return ErrVersionConflict
		}
	}

	if existing == nil {
		if byProvider == nil {
			byProvider = make(map[Provider]*TokenRecord)
			s.records[userID] = byProvider
		}
		existing = &TokenRecord{UserID: userID, Provider: provider}
		byProvider[provider] = existing
	}

	existing.EncryptedAccessToken = update.EncryptedAccessToken
	if update.EncryptedRefreshToken != nil {
		existing.EncryptedRefreshToken = *update.EncryptedRefreshToken
	}
	existing.ExpiresAt = update.ExpiresAt
	existing.Version++

	return nil
}
