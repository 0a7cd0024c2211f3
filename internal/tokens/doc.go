// Package tokens turns encrypted vault records into usable plaintext access
// tokens, refreshing them against the provider's OAuth2 token endpoint when
// expired and persisting the re-encrypted result before returning.
package tokens
