// Package vault manages encrypted OAuth credentials for connected email
// providers.
//
// Each connected provider contributes one record per user, holding the
// AES-256-GCM encrypted access token, an optional encrypted refresh token and
// the access token's expiry. Records are keyed by (user, provider) and carry a
// version counter so that two concurrent refreshes of the same record cannot
// silently overwrite each other's rotated refresh token.
//
// Plaintext token material never enters the store; encryption and decryption
// happen in Cipher, and only the token-refresh layer holds plaintext, briefly,
// in memory.
package vault
