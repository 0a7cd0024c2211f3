package outlook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wibookly/mailcore/internal/logging"
	"github.com/wibookly/mailcore/internal/provider"
	"github.com/wibookly/mailcore/internal/vault"
)

// productName prefixes every inbox rule this product creates, so cleanup can
// find its own rules without touching the user's.
const productName = "Wibookly"

// RuleDisplayName builds the display name an inbox rule was created under.
// The format is part of the stored data: changing it orphans existing rules.
func RuleDisplayName(derivedName string, rule provider.Rule) string {
	return fmt.Sprintf("%s: %s - %s:%s", productName, derivedName, rule.Type, rule.Value)
}

// Adapter implements provider.Adapter for Microsoft accounts.
type Adapter struct {
	client *Client
	logger *slog.Logger
}

// NewAdapter creates an Outlook adapter over the given Graph client.
func NewAdapter(client *Client, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{client: client, logger: logger}
}

// Provider identifies the vault provider this adapter serves.
func (a *Adapter) Provider() vault.Provider {
	return vault.ProviderMicrosoft
}

// ResolveCleanupTarget finds the mail folder with the given display name. A
// folder that does not exist is normal: the category was never synced.
func (a *Adapter) ResolveCleanupTarget(ctx context.Context, accessToken, name string) (string, bool, error) {
	folders, err := a.client.ListMailFolders(ctx, accessToken)
	if err != nil {
		return "", false, err
	}
	for _, folder := range folders {
		if folder.DisplayName == name {
			return folder.ID, true, nil
		}
	}
	return "", false, nil
}

// UnlabelMatching moves every message in the target folder matching the rule
// back to the inbox, one move call per message. A message that fails to move
// is logged and skipped; the count covers successful moves only.
func (a *Adapter) UnlabelMatching(ctx context.Context, accessToken string, rule provider.Rule, targetID string) (int, error) {
	logger := logging.WithProvider(a.logger, string(vault.ProviderMicrosoft))

	inbox, err := a.client.GetInbox(ctx, accessToken)
	if err != nil {
		logger.Warn("failed to resolve inbox, skipping message moves", logging.Err(err))
		return 0, nil
	}

	messages, err := a.client.ListMessages(ctx, accessToken, targetID)
	if err != nil {
		return 0, fmt.Errorf("failed to list folder messages: %w", err)
	}

	moved := 0
	for _, msg := range messages {
		if !rule.Matches(msg.FromAddress(), msg.Subject, msg.BodyPreview) {
			continue
		}
		if err := a.client.MoveMessage(ctx, accessToken, msg.ID, inbox.ID); err != nil {
			logger.Warn("failed to move message", logging.Err(err))
			continue
		}
		moved++
	}

	if moved > 0 {
		logger.Info("moved messages back to inbox",
			logging.RuleType(string(rule.Type)),
			slog.Int("count", moved))
	}
	return moved, nil
}

// DeleteFilterOrRule deletes the inbox rule created for this organization
// rule, matched by its display name. Reports true when no such rule exists.
func (a *Adapter) DeleteFilterOrRule(ctx context.Context, accessToken string, rule provider.Rule, derivedName string) (bool, error) {
	rules, err := a.client.ListInboxRules(ctx, accessToken)
	if err != nil {
		return false, fmt.Errorf("failed to list inbox rules: %w", err)
	}

	wanted := RuleDisplayName(derivedName, rule)
	for _, inboxRule := range rules {
		if inboxRule.DisplayName != wanted {
			continue
		}
		if err := a.client.DeleteInboxRule(ctx, accessToken, inboxRule.ID); err != nil {
			return false, fmt.Errorf("failed to delete inbox rule %s: %w", inboxRule.ID, err)
		}
		a.logger.Info("deleted inbox rule",
			logging.Provider(string(vault.ProviderMicrosoft)),
			logging.RuleType(string(rule.Type)))
		return true, nil
	}

	// Nothing to delete counts as deleted
	return true, nil
}
