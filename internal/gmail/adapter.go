package gmail

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/wibookly/mailcore/internal/logging"
	"github.com/wibookly/mailcore/internal/provider"
	"github.com/wibookly/mailcore/internal/vault"
)

// maxSearchResults caps a single unlabel pass. Messages beyond the cap are
// left for a later run; there is no pagination loop.
const maxSearchResults = 500

// Adapter implements provider.Adapter for Gmail accounts.
type Adapter struct {
	logger *slog.Logger
	opts   []option.ClientOption
}

// NewAdapter creates a Gmail adapter. Extra client options are passed through
// to the underlying service, which lets tests point it at a local server.
func NewAdapter(logger *slog.Logger, opts ...option.ClientOption) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{logger: logger, opts: opts}
}

// Provider identifies the vault provider this adapter serves.
func (a *Adapter) Provider() vault.Provider {
	return vault.ProviderGoogle
}

// service builds a Gmail service authenticated with the given access token.
func (a *Adapter) service(ctx context.Context, accessToken string) (*gmail.Service, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	opts := append([]option.ClientOption{option.WithTokenSource(source)}, a.opts...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return svc, nil
}

// ResolveCleanupTarget finds the label with the given display name. A label
// that does not exist is normal: the category was never synced to Gmail.
func (a *Adapter) ResolveCleanupTarget(ctx context.Context, accessToken, name string) (string, bool, error) {
	svc, err := a.service(ctx, accessToken)
	if err != nil {
		return "", false, err
	}

	res, err := svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return "", false, fmt.Errorf("failed to list labels: %w", err)
	}

	for _, label := range res.Labels {
		if label.Name == name {
			return label.Id, true, nil
		}
	}
	return "", false, nil
}

// UnlabelMatching removes the label from every message the rule's search
// matches, in one search and one batch modify.
func (a *Adapter) UnlabelMatching(ctx context.Context, accessToken string, rule provider.Rule, labelID string) (int, error) {
	svc, err := a.service(ctx, accessToken)
	if err != nil {
		return 0, err
	}

	query := searchQuery(rule, labelID)
	res, err := svc.Users.Messages.List("me").Q(query).MaxResults(maxSearchResults).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to search messages: %w", err)
	}
	if len(res.Messages) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(res.Messages))
	for _, msg := range res.Messages {
		ids = append(ids, msg.Id)
	}

	err = svc.Users.Messages.BatchModify("me", &gmail.BatchModifyMessagesRequest{
		Ids:            ids,
		RemoveLabelIds: []string{labelID},
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to batch remove label: %w", err)
	}

	a.logger.Info("removed label from messages",
		logging.Provider(string(vault.ProviderGoogle)),
		logging.RuleType(string(rule.Type)),
		slog.Int("count", len(ids)))

	return len(ids), nil
}

// DeleteFilterOrRule deletes the settings filter created for the rule.
// Reports true when no such filter exists.
func (a *Adapter) DeleteFilterOrRule(ctx context.Context, accessToken string, rule provider.Rule, _ string) (bool, error) {
	svc, err := a.service(ctx, accessToken)
	if err != nil {
		return false, err
	}

	res, err := svc.Users.Settings.Filters.List("me").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("failed to list filters: %w", err)
	}

	for _, filter := range res.Filter {
		if !filterMatches(rule, filter.Criteria) {
			continue
		}
		if err := svc.Users.Settings.Filters.Delete("me", filter.Id).Context(ctx).Do(); err != nil {
			return false, fmt.Errorf("failed to delete filter %s: %w", filter.Id, err)
		}
		a.logger.Info("deleted filter",
			logging.Provider(string(vault.ProviderGoogle)),
			logging.RuleType(string(rule.Type)))
		return true, nil
	}

	// Nothing to delete counts as deleted
	return true, nil
}
