package jobs

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrJobNotFound is returned when the job id is unknown.
var ErrJobNotFound = errors.New("sync job not found")

// ErrInvalidTransition is returned when a lifecycle move is attempted out of
// order. Transitions are monotonic: pending to running to completed.
var ErrInvalidTransition = errors.New("invalid job status transition")

// Store persists sync jobs.
type Store interface {
	// Create persists a new pending job and returns it.
	Create(ctx context.Context, organizationID, userID uuid.UUID, jobType string) (*Job, error)

	// Start moves a pending job to running and stamps started_at.
	Start(ctx context.Context, jobID uuid.UUID) error

	// Complete moves a running job to completed and stamps completed_at.
	Complete(ctx context.Context, jobID uuid.UUID) error

	// Get returns the job by id, or ErrJobNotFound.
	Get(ctx context.Context, jobID uuid.UUID) (*Job, error)
}
