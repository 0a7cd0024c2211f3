package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// keySize is the AES-256 key length in bytes.
const keySize = 32

// keyFiller right-pads short secrets up to the full key length. The same
// derivation is used by the provider-connection flow that wrote the vault, so
// it must never change.
const keyFiller = '0'

// Cipher provides encryption/decryption for tokens at rest.
// Uses AES-256-GCM for authenticated encryption.
//
// Security properties:
//   - AES-256 provides strong confidentiality
//   - GCM mode provides both encryption and authentication (AEAD)
//   - Random nonce for each encryption (never reused)
//   - Protects against tampering
type Cipher struct {
	// key is the AES-256 encryption key (32 bytes)
	key []byte
}

// DecryptionError indicates that a stored blob could not be decrypted:
// truncated input, invalid encoding, a wrong key, or a failed
// authentication tag. It is fatal for the record it occurred on.
type DecryptionError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *DecryptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decryption failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decryption failed: %s", e.Reason)
}

// Unwrap returns the underlying error, if any.
func (e *DecryptionError) Unwrap() error {
	return e.Err
}

// NewCipher creates a cipher from the configured secret. The secret is coerced
// to exactly 32 bytes: right-padded with '0' if short, truncated if long. The
// derivation is deterministic so encrypt and decrypt call sites always agree.
func NewCipher(secret string) *Cipher {
	return &Cipher{key: deriveKey(secret)}
}

// deriveKey coerces a secret of any length to the AES-256 key size.
func deriveKey(secret string) []byte {
	key := make([]byte, keySize)
	n := copy(key, secret)
	for i := n; i < keySize; i++ {
		key[i] = keyFiller
	}
	return key
}

// Encrypt encrypts plaintext using AES-256-GCM.
// Returns base64-encoded: nonce || ciphertext || tag.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	// Nonce must be unique for each encryption with the same key
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// GCM appends the authentication tag to the ciphertext
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts data encrypted with Encrypt.
// Expects base64-encoded: nonce || ciphertext || tag. Any failure is reported
// as a *DecryptionError; garbage is never returned silently.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", &DecryptionError{Reason: "invalid base64", Err: err}
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", &DecryptionError{Reason: "failed to create cipher", Err: err}
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", &DecryptionError{Reason: "failed to create GCM", Err: err}
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", &DecryptionError{Reason: "ciphertext too short"}
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		// Tag mismatch: tampered data or wrong key
		return "", &DecryptionError{Reason: "authentication failed", Err: err}
	}

	return string(plaintext), nil
}
