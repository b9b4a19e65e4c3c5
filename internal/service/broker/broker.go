// Package broker supplies upstream access tokens for proxied requests.
// Each secured route names a strategy; the broker answers lookups from
// cache, then store, then by minting a fresh token, and records mints
// durably before handing them out.
package broker

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/your-org/gateway/internal/config"
	"github.com/your-org/gateway/internal/domain"
	"github.com/your-org/gateway/internal/service/jwt"
	"github.com/your-org/gateway/internal/service/metrics"
	"github.com/your-org/gateway/internal/store"
	gwerrors "github.com/your-org/gateway/pkg/errors"
	"github.com/your-org/gateway/pkg/logger"
	"github.com/your-org/gateway/pkg/resilience/circuitbreaker"
)

// mintedToken is the result of one strategy invocation.
type mintedToken struct {
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

// Broker resolves upstream tokens per route policy.
type Broker struct {
	store    *store.Store
	cache    *TokenCache
	jwt      *jwt.Service
	breakers *circuitbreaker.Manager
	client   *http.Client
	skew     time.Duration
	now      func() time.Time
	metrics  *metrics.Metrics
}

// New creates a broker.
func New(st *store.Store, cache *TokenCache, jwtSvc *jwt.Service, cfg config.BrokerConfig) *Broker {
	skew := cfg.SkewMargin
	if skew <= 0 {
		skew = 5 * time.Minute
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Broker{
		store: st,
		cache: cache,
		jwt:   jwtSvc,
		breakers: circuitbreaker.NewManager(circuitbreaker.Settings{
			MaxFailures: cfg.BreakerMaxFailures,
			Timeout:     cfg.BreakerTimeout,
		}),
		client:  &http.Client{Timeout: timeout},
		skew:    skew,
		now:     time.Now,
		metrics: metrics.Default,
	}
}

// GetToken returns the upstream access token for a route policy, or ""
// when the policy needs none. sess may be nil for session-independent
// strategies.
func (b *Broker) GetToken(ctx context.Context, policy *domain.RoutePolicy, sess *domain.Session) (string, error) {
	sessionID, mint, ok := b.plan(policy, sess)
	if !ok {
		return "", nil
	}

	now := b.now()
	if tok, hit := b.cache.Get(ctx, policy.RouteID, sessionID); hit && tok.ExpiresAt.After(now.Add(b.skew)) {
		b.metrics.RecordTokenLookup("cache")
		return tok.AccessToken, nil
	}

	stored, err := b.store.GetUpstreamToken(ctx, policy.RouteID, sessionID)
	if err != nil {
		return "", err
	}
	if stored != nil && stored.ValidFor(now, b.skew) {
		b.cache.Set(ctx, policy.RouteID, sessionID, stored.AccessToken, stored.ExpiresAt)
		b.metrics.RecordTokenLookup("store")
		return stored.AccessToken, nil
	}

	minted, err := mint(ctx)
	if err != nil {
		b.metrics.RecordTokenMint(string(policy.SecurityType), false)
		return "", err
	}
	b.metrics.RecordTokenMint(string(policy.SecurityType), true)
	b.metrics.RecordTokenLookup("mint")

	// Durability first: the row is written before the token is used, so
	// a restart never loses track of a live upstream token.
	if err := b.store.UpsertUpstreamToken(ctx, &domain.UpstreamToken{
		RouteID:      policy.RouteID,
		SessionID:    sessionID,
		AccessToken:  minted.accessToken,
		RefreshToken: minted.refreshToken,
		ExpiresAt:    minted.expiresAt,
	}); err != nil {
		return "", err
	}
	b.cache.Set(ctx, policy.RouteID, sessionID, minted.accessToken, minted.expiresAt)

	logger.Info("minted upstream token",
		logger.String("route_id", policy.RouteID),
		logger.String("strategy", string(policy.SecurityType)),
		logger.Time("expires_at", minted.expiresAt))
	return minted.accessToken, nil
}

// Refresh evicts the current token for a key and mints a replacement.
func (b *Broker) Refresh(ctx context.Context, policy *domain.RoutePolicy, sess *domain.Session) (string, error) {
	sessionID, _, ok := b.plan(policy, sess)
	if !ok {
		return "", nil
	}
	b.cache.Delete(ctx, policy.RouteID, sessionID)
	if err := b.store.DeleteUpstreamToken(ctx, policy.RouteID, sessionID); err != nil {
		return "", err
	}
	return b.GetToken(ctx, policy, sess)
}

// plan maps a policy and session to the broker key and mint function.
// The bool result is false when no upstream token applies; each
// strategy is handled explicitly so adding one is a compile-visible
// change here.
func (b *Broker) plan(policy *domain.RoutePolicy, sess *domain.Session) (*int64, func(context.Context) (*mintedToken, error), bool) {
	if policy == nil {
		return nil, nil, false
	}
	switch policy.SecurityType {
	case domain.SecurityNone, domain.SecuritySession:
		return nil, nil, false
	case domain.SecurityClientCredentials:
		return nil, func(ctx context.Context) (*mintedToken, error) {
			return b.mintClientCredentials(ctx, policy)
		}, true
	case domain.SecurityTokenExchange:
		if sess == nil {
			logger.Warn("token exchange route hit without a session", logger.String("route_id", policy.RouteID))
			return nil, nil, false
		}
		sid := sess.ID
		return &sid, func(ctx context.Context) (*mintedToken, error) {
			return b.mintTokenExchange(ctx, policy, sess)
		}, true
	case domain.SecuritySelfSigned:
		if sess == nil {
			logger.Warn("self-signed route hit without a session", logger.String("route_id", policy.RouteID))
			return nil, nil, false
		}
		sid := sess.ID
		return &sid, func(ctx context.Context) (*mintedToken, error) {
			return b.mintSelfSigned(ctx, policy, sess)
		}, true
	default:
		logger.Warn("unknown security type, forwarding without upstream token",
			logger.String("route_id", policy.RouteID),
			logger.String("security_type", string(policy.SecurityType)))
		return nil, nil, false
	}
}

func (b *Broker) mintClientCredentials(ctx context.Context, policy *domain.RoutePolicy) (*mintedToken, error) {
	cc := &clientcredentials.Config{
		ClientID:     policy.ClientID,
		ClientSecret: policy.ClientSecret,
		TokenURL:     policy.TokenEndpoint,
		Scopes:       strings.Fields(policy.Scope),
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.client)

	tok, err := circuitbreaker.ExecuteTyped(b.breakers, policy.TokenEndpoint, func() (*oauth2.Token, error) {
		return cc.Token(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: client credentials: %v", gwerrors.ErrUpstreamTokenMint, err)
	}

	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = b.now().Add(policy.TokenExpiration())
	}
	return &mintedToken{
		accessToken:  tok.AccessToken,
		refreshToken: tok.RefreshToken,
		expiresAt:    expiresAt,
	}, nil
}

func (b *Broker) mintTokenExchange(ctx context.Context, policy *domain.RoutePolicy, sess *domain.Session) (*mintedToken, error) {
	resp, err := circuitbreaker.ExecuteTyped(b.breakers, policy.TokenEndpoint, func() (*tokenResponse, error) {
		return b.exchangeToken(ctx, policy, sess.AccessToken)
	})
	if err != nil {
		return nil, err
	}

	expiresAt := b.now().Add(policy.TokenExpiration())
	if resp.ExpiresIn > 0 {
		expiresAt = b.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return &mintedToken{
		accessToken:  resp.AccessToken,
		refreshToken: resp.RefreshToken,
		expiresAt:    expiresAt,
	}, nil
}

func (b *Broker) mintSelfSigned(ctx context.Context, policy *domain.RoutePolicy, sess *domain.Session) (*mintedToken, error) {
	u, err := b.store.GetUser(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	signed, expiresAt, err := b.jwt.MintSelfSigned(u.Username, u.Email, sess.ID, policy.RouteID, policy.TokenExpiration())
	if err != nil {
		return nil, fmt.Errorf("%w: self signed: %v", gwerrors.ErrUpstreamTokenMint, err)
	}
	return &mintedToken{accessToken: signed, expiresAt: expiresAt}, nil
}
