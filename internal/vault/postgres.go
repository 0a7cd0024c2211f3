package vault

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const vaultSchema = `
CREATE TABLE IF NOT EXISTS oauth_token_vault (
	user_id                 UUID        NOT NULL,
	provider                TEXT        NOT NULL,
	encrypted_access_token  TEXT        NOT NULL,
	encrypted_refresh_token TEXT,
	expires_at              TIMESTAMPTZ,
	version                 BIGINT      NOT NULL DEFAULT 1,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, provider)
)`

// PostgresStore is a Store backed by a Postgres table keyed by
// (user_id, provider).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a vault store on top of an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the vault table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, vaultSchema); err != nil {
		return fmt.Errorf("failed to create oauth_token_vault table: %w", err)
	}
	return nil
}

// GetAll returns every provider record for the user.
func (s *PostgresStore) GetAll(ctx context.Context, userID uuid.UUID) ([]TokenRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT provider, encrypted_access_token, encrypted_refresh_token, expires_at, version
		 FROM oauth_token_vault
		 WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query token vault: %w", err)
	}
	defer rows.Close()

	var records []TokenRecord
	for rows.Next() {
		rec := TokenRecord{UserID: userID}
		var refreshToken *string
		if err := rows.Scan(&rec.Provider, &rec.EncryptedAccessToken, &refreshToken, &rec.ExpiresAt, &rec.Version); err != nil {
			return nil, fmt.Errorf("failed to scan token record: %w", err)
		}
		if refreshToken != nil {
			rec.EncryptedRefreshToken = *refreshToken
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read token records: %w", err)
	}

	return records, nil
}

// Upsert writes the given fields for (userID, provider). With an expected
// version set the write degrades to a conditional update so a concurrent
// refresh of the same record surfaces as ErrVersionConflict instead of
// clobbering a rotated refresh token.
func (s *PostgresStore) Upsert(ctx context.Context, userID uuid.UUID, provider Provider, update TokenUpdate) error {
	if update.ExpectedVersion != nil {
		return s.conditionalUpdate(ctx, userID, provider, update)
	}

	var err error
	if update.EncryptedRefreshToken != nil {
		_, err = s.pool.Exec(ctx,
			`INSERT INTO oauth_token_vault
				(user_id, provider, encrypted_access_token, encrypted_refresh_token, expires_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (user_id, provider) DO UPDATE SET
				encrypted_access_token  = EXCLUDED.encrypted_access_token,
				encrypted_refresh_token = EXCLUDED.encrypted_refresh_token,
				expires_at              = EXCLUDED.expires_at,
				version                 = oauth_token_vault.version + 1,
				updated_at              = now()`,
			userID, provider, update.EncryptedAccessToken, *update.EncryptedRefreshToken, update.ExpiresAt,
		)
	} else {
		_, err = s.pool.Exec(ctx,
			`INSERT INTO oauth_token_vault
				(user_id, provider, encrypted_access_token, expires_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (user_id, provider) DO UPDATE SET
				encrypted_access_token = EXCLUDED.encrypted_access_token,
				expires_at             = EXCLUDED.expires_at,
				version                = oauth_token_vault.version + 1,
				updated_at             = now()`,
			userID, provider, update.EncryptedAccessToken, update.ExpiresAt,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert token record: %w", err)
	}
	return nil
}

func (s *PostgresStore) conditionalUpdate(ctx context.Context, userID uuid.UUID, provider Provider, update TokenUpdate) error {
	var tag string
	var args []any
	if update.EncryptedRefreshToken != nil {
		tag = `UPDATE oauth_token_vault SET
				encrypted_access_token  = $1,
				encrypted_refresh_token = $2,
				expires_at              = $3,
				version                 = version + 1,
				updated_at              = now()
			 WHERE user_id = $4 AND provider = $5 AND version = $6`
		args = []any{update.EncryptedAccessToken, *update.EncryptedRefreshToken, update.ExpiresAt, userID, provider, *update.ExpectedVersion}
	} else {
		tag = `UPDATE oauth_token_vault SET
				encrypted_access_token = $1,
				expires_at             = $2,
				version                = version + 1,
				updated_at             = now()
			 WHERE user_id = $3 AND provider = $4 AND version = $5`
		args = []any{update.EncryptedAccessToken, update.ExpiresAt, userID, provider, *update.ExpectedVersion}
	}

	res, err := s.pool.Exec(ctx, tag, args...)
	if err != nil {
		return fmt.Errorf("failed to update token record: %w", err)
	}
	if res.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}
