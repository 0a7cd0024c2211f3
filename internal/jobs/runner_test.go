package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wibookly/mailcore/internal/notify"
	"github.com/wibookly/mailcore/internal/vault"
)

type stubTokens struct {
	tokens map[vault.Provider]string
	errs   map[vault.Provider]error
}

func (s *stubTokens) AccessToken(_ context.Context, rec vault.TokenRecord) (string, error) {
	if err := s.errs[rec.Provider]; err != nil {
		return "", err
	}
	return s.tokens[rec.Provider], nil
}

type stubNotifier struct {
	events []notify.JobCompletedEvent
	err    error
}

func (s *stubNotifier) JobCompleted(_ context.Context, event notify.JobCompletedEvent) error {
	s.events = append(s.events, event)
	return s.err
}

type syncCall struct {
	provider vault.Provider
	token    string
}

func seedProvider(t *testing.T, store vault.Store, userID uuid.UUID, p vault.Provider) {
	t.Helper()
	require.NoError(t, store.Upsert(context.Background(), userID, p, vault.TokenUpdate{
		EncryptedAccessToken: "enc-" + string(p),
	}))
}

func TestRunCompletesJobWithProviders(t *testing.T) {
	vaultStore := vault.NewMemoryStore()
	userID := uuid.New()
	orgID := uuid.New()
	seedProvider(t, vaultStore, userID, vault.ProviderGoogle)
	seedProvider(t, vaultStore, userID, vault.ProviderMicrosoft)

	tokens := &stubTokens{tokens: map[vault.Provider]string{
		vault.ProviderGoogle:    "g-token",
		vault.ProviderMicrosoft: "m-token",
	}}

	var calls []syncCall
	sync := func(_ context.Context, _ Job, p vault.Provider, token string) error {
		calls = append(calls, syncCall{provider: p, token: token})
		return nil
	}

	runner := NewRunner(NewMemoryStore(), vaultStore, tokens, sync, nil, nil)
	job, err := runner.Run(context.Background(), orgID, userID, "email_sync")

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, orgID, job.OrganizationID)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.CompletedAt)
	assert.Len(t, calls, 2)
}

func TestRunCompletesWithNoProviders(t *testing.T) {
	runner := NewRunner(NewMemoryStore(), vault.NewMemoryStore(), &stubTokens{}, nil, nil, nil)

	job, err := runner.Run(context.Background(), uuid.New(), uuid.New(), "email_sync")

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status, "a job with nothing to sync still completes")
}

func TestRunSkipsProviderWithoutToken(t *testing.T) {
	vaultStore := vault.NewMemoryStore()
	userID := uuid.New()
	seedProvider(t, vaultStore, userID, vault.ProviderGoogle)
	seedProvider(t, vaultStore, userID, vault.ProviderMicrosoft)

	tokens := &stubTokens{
		tokens: map[vault.Provider]string{vault.ProviderGoogle: "g-token"},
		errs:   map[vault.Provider]error{vault.ProviderMicrosoft: errors.New("refresh rejected")},
	}

	var calls []syncCall
	sync := func(_ context.Context, _ Job, p vault.Provider, token string) error {
		calls = append(calls, syncCall{provider: p, token: token})
		return nil
	}

	runner := NewRunner(NewMemoryStore(), vaultStore, tokens, sync, nil, nil)
	job, err := runner.Run(context.Background(), uuid.New(), userID, "email_sync")

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status, "token failures never fail the job")
	require.Len(t, calls, 1)
	assert.Equal(t, vault.ProviderGoogle, calls[0].provider)
}

func TestRunSyncErrorDoesNotFailJob(t *testing.T) {
	vaultStore := vault.NewMemoryStore()
	userID := uuid.New()
	seedProvider(t, vaultStore, userID, vault.ProviderGoogle)

	tokens := &stubTokens{tokens: map[vault.Provider]string{vault.ProviderGoogle: "g-token"}}
	sync := func(_ context.Context, _ Job, _ vault.Provider, _ string) error {
		return errors.New("provider api down")
	}

	runner := NewRunner(NewMemoryStore(), vaultStore, tokens, sync, nil, nil)
	job, err := runner.Run(context.Background(), uuid.New(), userID, "email_sync")

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
}

func TestRunDefaultsJobType(t *testing.T) {
	runner := NewRunner(NewMemoryStore(), vault.NewMemoryStore(), &stubTokens{}, nil, nil, nil)

	job, err := runner.Run(context.Background(), uuid.New(), uuid.New(), "")

	require.NoError(t, err)
	assert.Equal(t, DefaultJobType, job.JobType)
}

func TestRunPublishesCompletionEvent(t *testing.T) {
	notifier := &stubNotifier{}
	orgID := uuid.New()
	userID := uuid.New()

	runner := NewRunner(NewMemoryStore(), vault.NewMemoryStore(), &stubTokens{}, nil, notifier, nil)
	job, err := runner.Run(context.Background(), orgID, userID, "email_sync")

	require.NoError(t, err)
	require.Len(t, notifier.events, 1)
	event := notifier.events[0]
	assert.Equal(t, job.ID, event.JobID)
	assert.Equal(t, orgID, event.OrganizationID)
	assert.Equal(t, userID, event.UserID)
	assert.Equal(t, "email_sync", event.JobType)
	assert.False(t, event.CompletedAt.IsZero())
}

func TestRunNotifierFailureDoesNotFailJob(t *testing.T) {
	notifier := &stubNotifier{err: errors.New("broker down")}

	runner := NewRunner(NewMemoryStore(), vault.NewMemoryStore(), &stubTokens{}, nil, notifier, nil)
	job, err := runner.Run(context.Background(), uuid.New(), uuid.New(), "email_sync")

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
}
