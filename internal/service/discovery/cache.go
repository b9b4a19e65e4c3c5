// Package discovery fetches and caches the identity provider's OIDC
// discovery metadata and signing keys.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/your-org/gateway/internal/config"
	gwerrors "github.com/your-org/gateway/pkg/errors"
	"github.com/your-org/gateway/pkg/logger"
)

// Metadata is the subset of the discovery document the gateway uses.
type Metadata struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
	UserinfoEndpoint      string `json:"userinfo_endpoint,omitempty"`
	EndSessionEndpoint    string `json:"end_session_endpoint,omitempty"`
}

// keycloakAuthSuffix lets the issuer be derived from a Keycloak-style
// authorization endpoint when no explicit issuer is configured.
const keycloakAuthSuffix = "/protocol/openid-connect/auth"

// Cache fetches {issuer}/.well-known/openid-configuration and the JWKS,
// caching both for a long TTL. The mutex is held across the fetch so
// concurrent misses collapse into a single upstream request.
type Cache struct {
	issuer string
	ttl    time.Duration
	client *http.Client

	mu        sync.Mutex
	meta      *Metadata
	keys      jwk.Set
	fetchedAt time.Time

	now func() time.Time
}

// New creates a discovery cache. It fails fast when neither an issuer
// nor a derivable authorization endpoint is configured.
func New(oauth config.OAuthConfig, disc config.DiscoveryConfig) (*Cache, error) {
	issuer, err := ResolveIssuer(oauth)
	if err != nil {
		return nil, err
	}

	ttl := disc.CacheTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	timeout := disc.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Cache{
		issuer: issuer,
		ttl:    ttl,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}, nil
}

// ResolveIssuer returns the configured issuer, or derives one from a
// Keycloak-style authorization endpoint.
func ResolveIssuer(oauth config.OAuthConfig) (string, error) {
	if oauth.Issuer != "" {
		return strings.TrimRight(oauth.Issuer, "/"), nil
	}
	if oauth.AuthorizationEndpoint != "" {
		if derived, ok := strings.CutSuffix(oauth.AuthorizationEndpoint, keycloakAuthSuffix); ok {
			return derived, nil
		}
		return "", fmt.Errorf("%w: cannot derive issuer from authorization endpoint %q",
			gwerrors.ErrConfigInvalid, oauth.AuthorizationEndpoint)
	}
	return "", fmt.Errorf("%w: oauth issuer is not configured", gwerrors.ErrConfigInvalid)
}

// Issuer returns the resolved issuer URL.
func (c *Cache) Issuer() string {
	return c.issuer
}

// Metadata returns the cached discovery document, fetching on miss or
// expiry.
func (c *Cache) Metadata(ctx context.Context) (*Metadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fresh() {
		return c.meta, nil
	}
	if err := c.refreshLocked(ctx); err != nil {
		return nil, err
	}
	return c.meta, nil
}

// Keys returns the cached JWKS, fetching on miss or expiry.
func (c *Cache) Keys(ctx context.Context) (jwk.Set, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fresh() {
		return c.keys, nil
	}
	if err := c.refreshLocked(ctx); err != nil {
		return nil, err
	}
	return c.keys, nil
}

func (c *Cache) fresh() bool {
	return c.meta != nil && c.now().Sub(c.fetchedAt) < c.ttl
}

func (c *Cache) refreshLocked(ctx context.Context) error {
	wellKnown := c.issuer + "/.well-known/openid-configuration"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnown, nil)
	if err != nil {
		return gwerrors.Wrap(err, "failed to build discovery request")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", gwerrors.ErrDiscoveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: status %d: %s", gwerrors.ErrDiscoveryFailed, resp.StatusCode, body)
	}

	var meta Metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return fmt.Errorf("%w: %v", gwerrors.ErrDiscoveryFailed, err)
	}
	if meta.Issuer == "" || meta.TokenEndpoint == "" {
		return fmt.Errorf("%w: discovery document missing issuer or token endpoint", gwerrors.ErrDiscoveryFailed)
	}

	keys := jwk.NewSet()
	if meta.JWKSURI != "" {
		keys, err = jwk.Fetch(ctx, meta.JWKSURI, jwk.WithHTTPClient(c.client))
		if err != nil {
			return fmt.Errorf("%w: %v", gwerrors.ErrJWKSFetchFailed, err)
		}
	}

	c.meta = &meta
	c.keys = keys
	c.fetchedAt = c.now()

	logger.Debug("discovery metadata refreshed",
		logger.String("issuer", meta.Issuer),
		logger.Int("keys", keys.Len()))
	return nil
}
