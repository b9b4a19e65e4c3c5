// Package crypto provides cookie-value encryption and the random-value
// helpers used by the OAuth flow.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	gwerrors "github.com/your-org/gateway/pkg/errors"
)

// Protector encrypts opaque values placed into cookies with AES-256-GCM.
// It is stateless and safe for concurrent use; every component that
// touches cookies receives the same instance by reference.
type Protector struct {
	aead cipher.AEAD
}

// NewProtector creates a Protector from a 32-byte key.
func NewProtector(key []byte) (*Protector, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Protector{aead: aead}, nil
}

// Encrypt seals plaintext and returns a URL-safe base64 string with the
// nonce prepended to the ciphertext.
func (p *Protector) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, p.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := p.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any tampering, truncation, or wrong key
// yields ErrDecryptionFailed, never corrupted plaintext.
func (p *Protector) Decrypt(encoded string) (string, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", gwerrors.ErrDecryptionFailed
	}
	if len(sealed) < p.aead.NonceSize() {
		return "", gwerrors.ErrDecryptionFailed
	}
	nonce, ciphertext := sealed[:p.aead.NonceSize()], sealed[p.aead.NonceSize():]
	plaintext, err := p.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", gwerrors.ErrDecryptionFailed
	}
	return string(plaintext), nil
}
