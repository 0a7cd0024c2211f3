package provider

import (
	"context"

	"github.com/wibookly/mailcore/internal/vault"
)

// Adapter is the provider-specific side of a rule cleanup. Implementations
// receive a plaintext access token per call; they hold no credentials of
// their own.
type Adapter interface {
	// Provider identifies which vault provider this adapter serves.
	Provider() vault.Provider

	// ResolveCleanupTarget looks up the label or folder with the given name
	// and returns its provider-side id. A missing target is normal and
	// reported via ok=false, not an error.
	ResolveCleanupTarget(ctx context.Context, accessToken, name string) (id string, ok bool, err error)

	// UnlabelMatching removes the label from (or moves out of the folder)
	// every message matching the rule, returning how many were processed.
	UnlabelMatching(ctx context.Context, accessToken string, rule Rule, targetID string) (int, error)

	// DeleteFilterOrRule removes the server-side filter or inbox rule created
	// for this organization rule. Reports true when the filter is gone
	// afterwards, including when none existed.
	DeleteFilterOrRule(ctx context.Context, accessToken string, rule Rule, derivedName string) (bool, error)
}

// CleanupResult is the per-provider outcome of a cleanup request.
type CleanupResult struct {
	Provider        vault.Provider `json:"provider"`
	EmailsProcessed int            `json:"emailsProcessed"`
	FilterDeleted   bool           `json:"filterDeleted"`
}
