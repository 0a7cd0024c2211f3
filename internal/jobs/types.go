package jobs

import (
	"time"

	"github.com/google/uuid"
)

// Status is a sync job's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"

	// StatusFailed exists in the schema but no transition currently produces
	// it: the runner completes a job even when every provider pass is
	// skipped. Kept so consumers of the table handle the value.
	StatusFailed Status = "failed"
)

// DefaultJobType is the job type used when a request does not name one.
const DefaultJobType = "email_sync"

// Job is one background sync job.
type Job struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	UserID         uuid.UUID  `json:"user_id"`
	JobType        string     `json:"job_type"`
	Status         Status     `json:"status"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
