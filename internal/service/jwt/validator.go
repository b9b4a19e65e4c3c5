package jwt

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	gwerrors "github.com/your-org/gateway/pkg/errors"
	"github.com/your-org/gateway/pkg/logger"
	"github.com/your-org/gateway/pkg/security"
)

// rsaAlgorithms are the only signature algorithms accepted for ID
// tokens. Restricting to the RSA family prevents downgrade to none or
// a symmetric HMAC signed with public material.
var rsaAlgorithms = []string{"RS256", "RS384", "RS512"}

// ValidateIDToken verifies an ID token's signature against the IdP's
// JWKS and checks issuer, audience, lifetime, and the nonce binding.
// Returns the validated claims.
func (s *Service) ValidateIDToken(ctx context.Context, raw, expectedNonce string) (jwt.MapClaims, error) {
	meta, err := s.cache.Metadata(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := s.cache.Keys(ctx)
	if err != nil {
		return nil, err
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(rsaAlgorithms),
		jwt.WithLeeway(s.leeway),
		jwt.WithIssuer(meta.Issuer),
		jwt.WithAudience(s.clientID),
		jwt.WithExpirationRequired(),
	)

	claims := jwt.MapClaims{}
	_, err = parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: missing key id in token header", gwerrors.ErrJWKSKeyNotFound)
		}
		key, ok := keys.LookupKeyID(kid)
		if !ok {
			return nil, fmt.Errorf("%w: kid %q", gwerrors.ErrJWKSKeyNotFound, kid)
		}
		var pub interface{}
		if err := key.Raw(&pub); err != nil {
			return nil, fmt.Errorf("failed to extract public key: %w", err)
		}
		return pub, nil
	})
	if err != nil {
		return nil, classifyTokenError(err)
	}

	if expectedNonce != "" {
		nonce, _ := claims["nonce"].(string)
		if !security.SecureCompare(nonce, expectedNonce) {
			return nil, gwerrors.ErrNonceMismatch
		}
	}

	logger.Debug("id token validated",
		logger.String("issuer", meta.Issuer),
		logger.String("subject", s.Username(claims)))
	return claims, nil
}

func classifyTokenError(err error) error {
	switch {
	case gwerrors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", gwerrors.ErrTokenExpired, err)
	case gwerrors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", gwerrors.ErrSignatureInvalid, err)
	case gwerrors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("%w: %v", gwerrors.ErrIssuerInvalid, err)
	case gwerrors.Is(err, jwt.ErrTokenInvalidAudience):
		return fmt.Errorf("%w: %v", gwerrors.ErrAudienceInvalid, err)
	default:
		return fmt.Errorf("%w: %v", gwerrors.ErrTokenInvalid, err)
	}
}
