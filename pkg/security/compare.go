// Package security provides security utilities for the gateway.
package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// SecureCompare performs a constant-time comparison of two strings.
// Use it when comparing secrets (passkeys, state values, client secrets)
// to prevent timing attacks.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// SecureCompareBytes performs a constant-time comparison of two byte slices.
func SecureCompareBytes(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// HashSecret returns the hex-encoded SHA-256 of a secret. Stored client
// secrets are kept as this hash, never plaintext.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// VerifySecret compares a plaintext secret against a stored hash in
// constant time.
func VerifySecret(secret, storedHash string) bool {
	return SecureCompare(HashSecret(secret), storedHash)
}
