package cleanup

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/wibookly/mailcore/internal/instrumentation"
	"github.com/wibookly/mailcore/internal/logging"
	"github.com/wibookly/mailcore/internal/provider"
	"github.com/wibookly/mailcore/internal/vault"
)

// TokenSource yields a usable plaintext access token for a vault record.
type TokenSource interface {
	AccessToken(ctx context.Context, rec vault.TokenRecord) (string, error)
}

// Orchestrator fans a cleanup request out over every provider a user has
// connected.
type Orchestrator struct {
	store    vault.Store
	tokens   TokenSource
	adapters map[vault.Provider]provider.Adapter
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
}

// NewOrchestrator creates a cleanup orchestrator. Metrics may be nil.
func NewOrchestrator(store vault.Store, tokens TokenSource, adapters []provider.Adapter, logger *slog.Logger, metrics *instrumentation.Metrics) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	byProvider := make(map[vault.Provider]provider.Adapter, len(adapters))
	for _, adapter := range adapters {
		byProvider[adapter.Provider()] = adapter
	}
	return &Orchestrator{
		store:    store,
		tokens:   tokens,
		adapters: byProvider,
		logger:   logger,
		metrics:  metrics,
	}
}

// Cleanup removes the rule's traces from every connected provider. A provider
// whose token cannot be obtained is skipped without a result entry; provider
// API failures degrade that provider's result to zero/false. The fan-out
// itself never aborts on a provider error.
func (o *Orchestrator) Cleanup(ctx context.Context, userID uuid.UUID, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	records, err := o.store.GetAll(ctx, userID)
	if err != nil {
		o.metrics.RecordCleanupRequest(ctx, req.RuleType, instrumentation.StatusError)
		return nil, err
	}
	if len(records) == 0 {
		o.metrics.RecordCleanupRequest(ctx, req.RuleType, instrumentation.StatusError)
		return nil, vault.ErrNoProvidersConnected
	}

	rule := req.Rule()
	derivedName := provider.DeriveTargetName(req.CategoryName, req.CategorySortOrder)

	logger := o.logger.With(
		logging.Operation("rule_cleanup"),
		logging.RuleType(req.RuleType),
		logging.UserHash(userID.String()),
	)
	logger.Info("starting rule cleanup", slog.Int("providers", len(records)))

	response := &Response{Message: "Rule cleanup completed"}
	for _, rec := range records {
		result, ok := o.cleanupProvider(ctx, logger, rec, rule, derivedName)
		if !ok {
			continue
		}
		response.Results = append(response.Results, result)
		response.TotalEmailsProcessed += result.EmailsProcessed
	}

	logger.Info("rule cleanup finished",
		slog.Int("results", len(response.Results)),
		slog.Int("emails_processed", response.TotalEmailsProcessed))
	o.metrics.RecordCleanupRequest(ctx, req.RuleType, instrumentation.StatusSuccess)
	return response, nil
}

// cleanupProvider runs one provider's share of the cleanup. ok=false means
// the provider was skipped entirely (no adapter, or no usable token).
func (o *Orchestrator) cleanupProvider(ctx context.Context, logger *slog.Logger, rec vault.TokenRecord, rule provider.Rule, derivedName string) (provider.CleanupResult, bool) {
	logger = logging.WithProvider(logger, string(rec.Provider))

	adapter, exists := o.adapters[rec.Provider]
	if !exists {
		logger.Warn("no adapter registered for provider, skipping")
		return provider.CleanupResult{}, false
	}

	accessToken, err := o.tokens.AccessToken(ctx, rec)
	if err != nil {
		logger.Warn("failed to obtain access token, skipping provider", logging.Err(err))
		o.metrics.RecordTokenRefresh(ctx, string(rec.Provider), instrumentation.StatusError)
		return provider.CleanupResult{}, false
	}

	result := provider.CleanupResult{Provider: rec.Provider}

	targetID, found, err := adapter.ResolveCleanupTarget(ctx, accessToken, derivedName)
	if err != nil {
		logger.Warn("failed to resolve cleanup target", logging.Err(err))
		o.metrics.RecordProviderOperation(ctx, string(rec.Provider), "resolve_target", instrumentation.StatusError)
		return result, true
	}
	o.metrics.RecordProviderOperation(ctx, string(rec.Provider), "resolve_target", instrumentation.StatusSuccess)
	if !found {
		logger.Info("cleanup target does not exist, nothing to clean")
		return result, true
	}

	count, err := adapter.UnlabelMatching(ctx, accessToken, rule, targetID)
	if err != nil {
		logger.Warn("failed to unlabel matching messages", logging.Err(err))
		o.metrics.RecordProviderOperation(ctx, string(rec.Provider), "unlabel", instrumentation.StatusError)
	} else {
		result.EmailsProcessed = count
		o.metrics.RecordProviderOperation(ctx, string(rec.Provider), "unlabel", instrumentation.StatusSuccess)
		o.metrics.RecordEmailsProcessed(ctx, string(rec.Provider), count)
	}

	deleted, err := adapter.DeleteFilterOrRule(ctx, accessToken, rule, derivedName)
	if err != nil {
		logger.Warn("failed to delete filter", logging.Err(err))
		o.metrics.RecordProviderOperation(ctx, string(rec.Provider), "delete_filter", instrumentation.StatusError)
	} else {
		result.FilterDeleted = deleted
		o.metrics.RecordProviderOperation(ctx, string(rec.Provider), "delete_filter", instrumentation.StatusSuccess)
	}

	return result, true
}
