// Package crypto implements field-level encryption for sensitive onboarding
// answers: a single AES-256-GCM key derived from one configured secret, one
// fresh nonce per value, and an opaque base64 blob (nonce ‖ ciphertext ‖ tag)
// suitable for a text column.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const (
	nonceSize = 12
	tagSize   = 16

	// Any decoded blob shorter than nonce+tag cannot be valid output of
	// Encrypt and is rejected before touching the cipher.
	minBlobSize = nonceSize + tagSize
)

var (
	// ErrMissingSecret means the encryption secret is absent or empty.
	// Fatal at startup; the process must not serve without a key.
	ErrMissingSecret = errors.New("encryption secret is required")

	// ErrIntegrity covers every decrypt failure: bad encoding, truncated
	// blob, tampered ciphertext, wrong key. Deliberately a single
	// non-distinguishing error so callers cannot be used as an oracle.
	ErrIntegrity = errors.New("ciphertext integrity check failed")
)

// DeriveKey normalizes the arbitrary-length configured secret into a 32-byte
// AES-256 key via SHA-256. Deterministic, so independent processes sharing
// the secret agree on the key without exchanging derived material. The raw
// secret is never used as the key directly.
func DeriveKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	key := sha256.Sum256([]byte(secret))
	return key[:], nil
}

// Cipher encrypts and decrypts single string values. Safe for concurrent
// use; both operations are pure over the key and their inputs.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives the key from secret and prepares the AEAD. Called once
// at startup with the injected configuration value.
func NewCipher(secret string) (*Cipher, error) {
	key, err := DeriveKey(secret)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random 96-bit nonce and returns
// base64(nonce ‖ ciphertext ‖ tag). Nonce reuse under the same key would
// break both confidentiality and authenticity, so the nonce always comes
// from crypto/rand and is never derived from the input.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("crypto: generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Every failure mode returns ErrIntegrity.
func (c *Cipher) Decrypt(blob string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", ErrIntegrity
	}
	if len(decoded) < minBlobSize {
		return "", ErrIntegrity
	}
	plaintext, err := c.aead.Open(nil, decoded[:nonceSize], decoded[nonceSize:], nil)
	if err != nil {
		return "", ErrIntegrity
	}
	return string(plaintext), nil
}
