// Package jwt validates ID tokens against the IdP's signing keys,
// extracts user identity claims, and mints locally signed upstream
// tokens for the self-signed broker strategy.
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/your-org/gateway/internal/service/discovery"
	gwerrors "github.com/your-org/gateway/pkg/errors"
)

// usernameFallbacks is the ordered claim chain tried after the
// configured claim.
var usernameFallbacks = []string{"preferred_username", "username", "name", "email", "sub", "upn"}

// Service bundles token validation, claim extraction, and local minting.
type Service struct {
	cache         *discovery.Cache
	clientID      string
	usernameClaim string
	signingKey    []byte
	leeway        time.Duration
	now           func() time.Time
}

// New creates a JWT service. signingKey may be empty when no route uses
// the self-signed strategy.
func New(cache *discovery.Cache, clientID, usernameClaim, signingKey string) *Service {
	if usernameClaim == "" {
		usernameClaim = "preferred_username"
	}
	return &Service{
		cache:         cache,
		clientID:      clientID,
		usernameClaim: usernameClaim,
		signingKey:    []byte(signingKey),
		leeway:        5 * time.Minute,
		now:           time.Now,
	}
}

// ExtractClaims parses a token without signature verification. Use only
// on tokens that were already validated, or whose trust comes from the
// channel they arrived on (the IdP's token response).
func (s *Service) ExtractClaims(raw string) (jwt.MapClaims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", gwerrors.ErrTokenInvalid, err)
	}
	return claims, nil
}

// Username resolves the user identity from claims using the configured
// claim first, then the fallback chain.
func (s *Service) Username(claims jwt.MapClaims) string {
	if v, ok := claims[s.usernameClaim].(string); ok && v != "" {
		return v
	}
	for _, name := range usernameFallbacks {
		if v, ok := claims[name].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Email returns the email claim, or empty.
func (s *Service) Email(claims jwt.MapClaims) string {
	v, _ := claims["email"].(string)
	return v
}

// MintSelfSigned produces an HS256 token carrying the session identity
// for a route using the self-signed strategy. Returns the token and its
// expiry.
func (s *Service) MintSelfSigned(username, email string, sessionID int64, routeID string, ttl time.Duration) (string, time.Time, error) {
	if len(s.signingKey) == 0 {
		return "", time.Time{}, fmt.Errorf("%w: broker signing key is not configured", gwerrors.ErrConfigInvalid)
	}

	now := s.now()
	expiresAt := now.Add(ttl)

	claims := jwt.MapClaims{
		"iss":        "gateway",
		"sub":        username,
		"email":      email,
		"session_id": sessionID,
		"route_id":   routeID,
		"jti":        uuid.NewString(),
		"iat":        now.Unix(),
		"exp":        expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}
