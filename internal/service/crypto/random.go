package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

// GenerateRandomString returns n random bytes as URL-safe base64.
func GenerateRandomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateSessionTokenID returns a 256-bit opaque session token id.
func GenerateSessionTokenID() (string, error) {
	return GenerateRandomString(32)
}

// GenerateCodeVerifier returns a 256-bit PKCE code verifier.
func GenerateCodeVerifier() (string, error) {
	return GenerateRandomString(32)
}

// GenerateState returns a 128-bit OAuth state value.
func GenerateState() (string, error) {
	return GenerateRandomString(16)
}

// GenerateNonce returns a 128-bit OIDC nonce.
func GenerateNonce() (string, error) {
	return GenerateRandomString(16)
}

// CodeChallenge derives the S256 PKCE challenge from a verifier.
func CodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
