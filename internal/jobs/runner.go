package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wibookly/mailcore/internal/logging"
	"github.com/wibookly/mailcore/internal/notify"
	"github.com/wibookly/mailcore/internal/vault"
)

// TokenSource yields a usable plaintext access token for a vault record.
type TokenSource interface {
	AccessToken(ctx context.Context, rec vault.TokenRecord) (string, error)
}

// SyncFunc performs one provider's sync pass with a usable access token.
type SyncFunc func(ctx context.Context, job Job, provider vault.Provider, accessToken string) error

// Runner drives a sync job through its lifecycle. A provider whose token
// cannot be obtained is logged and skipped; the job completes regardless of
// how many provider passes ran.
type Runner struct {
	jobs     Store
	vault    vault.Store
	tokens   TokenSource
	sync     SyncFunc
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewRunner creates a job runner. sync and notifier may be nil: a nil sync
// makes the provider pass a token check only, and a nil notifier disables
// completion events.
func NewRunner(jobs Store, vaultStore vault.Store, tokens TokenSource, sync SyncFunc, notifier notify.Notifier, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		jobs:     jobs,
		vault:    vaultStore,
		tokens:   tokens,
		sync:     sync,
		notifier: notifier,
		logger:   logger,
	}
}

// Run creates, starts and completes one sync job for the user, returning the
// job in its final state.
func (r *Runner) Run(ctx context.Context, organizationID, userID uuid.UUID, jobType string) (*Job, error) {
	if jobType == "" {
		jobType = DefaultJobType
	}

	job, err := r.jobs.Create(ctx, organizationID, userID, jobType)
	if err != nil {
		return nil, err
	}

	logger := r.logger.With(
		logging.Operation("sync_job"),
		logging.JobID(job.ID.String()),
		logging.UserHash(userID.String()),
	)

	if err := r.jobs.Start(ctx, job.ID); err != nil {
		return nil, err
	}
	logger.Info("sync job started", slog.String("job_type", jobType))

	r.runProviderPasses(ctx, logger, *job)

	// The job completes even when every provider pass was skipped; a user
	// with no connected providers still gets a completed job.
	if err := r.jobs.Complete(ctx, job.ID); err != nil {
		return nil, err
	}

	completed, err := r.jobs.Get(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	logger.Info("sync job completed")

	r.publishCompletion(ctx, logger, completed)
	return completed, nil
}

func (r *Runner) runProviderPasses(ctx context.Context, logger *slog.Logger, job Job) {
	records, err := r.vault.GetAll(ctx, job.UserID)
	if err != nil {
		logger.Warn("failed to load vault records, running empty sync pass", logging.Err(err))
		return
	}

	for _, rec := range records {
		providerLogger := logging.WithProvider(logger, string(rec.Provider))

		accessToken, err := r.tokens.AccessToken(ctx, rec)
		if err != nil {
			providerLogger.Warn("failed to obtain access token, skipping provider", logging.Err(err))
			continue
		}

		if r.sync == nil {
			continue
		}
		if err := r.sync(ctx, job, rec.Provider, accessToken); err != nil {
			providerLogger.Warn("provider sync pass failed", logging.Err(err))
		}
	}
}

func (r *Runner) publishCompletion(ctx context.Context, logger *slog.Logger, job *Job) {
	if r.notifier == nil {
		return
	}

	completedAt := time.Now().UTC()
	if job.CompletedAt != nil {
		completedAt = *job.CompletedAt
	}

	err := r.notifier.JobCompleted(ctx, notify.JobCompletedEvent{
		JobID:          job.ID,
		OrganizationID: job.OrganizationID,
		UserID:         job.UserID,
		JobType:        job.JobType,
		CompletedAt:    completedAt,
	})
	if err != nil {
		// Best effort only: the job stays completed
		logger.Warn("failed to publish job completed event", logging.Err(err))
	}
}
