package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const jobsSchema = `
CREATE TABLE IF NOT EXISTS sync_jobs (
	id              UUID        PRIMARY KEY,
	organization_id UUID        NOT NULL,
	user_id         UUID        NOT NULL,
	job_type        TEXT        NOT NULL,
	status          TEXT        NOT NULL,
	started_at      TIMESTAMPTZ,
	completed_at    TIMESTAMPTZ,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore is a Store backed by the sync_jobs table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a jobs store on top of an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the sync_jobs table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, jobsSchema); err != nil {
		return fmt.Errorf("failed to create sync_jobs table: %w", err)
	}
	return nil
}

// Create persists a new pending job and returns it.
func (s *PostgresStore) Create(ctx context.Context, organizationID, userID uuid.UUID, jobType string) (*Job, error) {
	job := &Job{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		UserID:         userID,
		JobType:        jobType,
		Status:         StatusPending,
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO sync_jobs (id, organization_id, user_id, job_type, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		job.ID, job.OrganizationID, job.UserID, job.JobType, job.Status,
	).Scan(&job.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert sync job: %w", err)
	}
	return job, nil
}

// Start moves a pending job to running. The status predicate keeps the
// lifecycle monotonic under concurrent runners.
func (s *PostgresStore) Start(ctx context.Context, jobID uuid.UUID) error {
	return s.transition(ctx, jobID,
		`UPDATE sync_jobs SET status = $1, started_at = now()
		 WHERE id = $2 AND status = $3`,
		StatusRunning, jobID, StatusPending)
}

// Complete moves a running job to completed.
func (s *PostgresStore) Complete(ctx context.Context, jobID uuid.UUID) error {
	return s.transition(ctx, jobID,
		`UPDATE sync_jobs SET status = $1, completed_at = now()
		 WHERE id = $2 AND status = $3`,
		StatusCompleted, jobID, StatusRunning)
}

func (s *PostgresStore) transition(ctx context.Context, jobID uuid.UUID, query string, args ...any) error {
	res, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update sync job: %w", err)
	}
	if res.RowsAffected() == 0 {
		if _, err := s.Get(ctx, jobID); errors.Is(err, ErrJobNotFound) {
			return ErrJobNotFound
		}
		return ErrInvalidTransition
	}
	return nil
}

// Get returns the job by id.
func (s *PostgresStore) Get(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	job := &Job{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, organization_id, user_id, job_type, status, started_at, completed_at, created_at
		 FROM sync_jobs
		 WHERE id = $1`,
		jobID,
	).Scan(&job.ID, &job.OrganizationID, &job.UserID, &job.JobType, &job.Status,
		&job.StartedAt, &job.CompletedAt, &job.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sync job: %w", err)
	}
	return job, nil
}
