package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JobCompletedEvent is emitted after a sync job reaches its terminal state.
type JobCompletedEvent struct {
	JobID          uuid.UUID `json:"job_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	UserID         uuid.UUID `json:"user_id"`
	JobType        string    `json:"job_type"`
	CompletedAt    time.Time `json:"completed_at"`
}

// Notifier delivers job events. Implementations must treat delivery as
// best-effort: job state never depends on a notification going out.
type Notifier interface {
	JobCompleted(ctx context.Context, event JobCompletedEvent) error
}
