package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/gateway/internal/config"
	"github.com/your-org/gateway/internal/domain"
	"github.com/your-org/gateway/internal/service/jwt"
	"github.com/your-org/gateway/internal/store"
	gwerrors "github.com/your-org/gateway/pkg/errors"
)

func newTestBroker(t *testing.T, redisAddr string) (*Broker, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cache := NewTokenCache(config.RedisConfig{Enabled: redisAddr != "", Addr: redisAddr})
	if redisAddr != "" {
		require.NoError(t, cache.Start(context.Background()))
	}

	jwtSvc := jwt.New(nil, "gateway", "", "broker-signing-secret")
	b := New(st, cache, jwtSvc, config.BrokerConfig{
		SkewMargin:  5 * time.Minute,
		HTTPTimeout: 5 * time.Second,
	})
	return b, st
}

func newTestSession(t *testing.T, st *store.Store, accessToken string) *domain.Session {
	t.Helper()
	ctx := context.Background()
	u := &domain.User{Username: "alice", Email: "alice@example.com", IsEnabled: true}
	require.NoError(t, st.CreateUser(ctx, u))
	sess := &domain.Session{
		TokenID:     "tok-" + accessToken,
		UserID:      u.ID,
		AccessToken: accessToken,
		ExpiresAt:   time.Now().Add(8 * time.Hour),
	}
	require.NoError(t, st.CreateSession(ctx, sess))
	return sess
}

// newTokenEndpoint serves token responses and counts hits.
func newTokenEndpoint(t *testing.T, hits *atomic.Int32, expiresIn int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "upstream-token",
			"token_type":   "Bearer",
			"expires_in":   expiresIn,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGetToken_NoPolicyStrategies(t *testing.T) {
	b, st := newTestBroker(t, "")
	ctx := context.Background()
	sess := newTestSession(t, st, "at")

	tok, err := b.GetToken(ctx, nil, sess)
	require.NoError(t, err)
	assert.Empty(t, tok)

	for _, sec := range []domain.SecurityType{domain.SecurityNone, domain.SecuritySession} {
		tok, err := b.GetToken(ctx, &domain.RoutePolicy{RouteID: "r", SecurityType: sec}, sess)
		require.NoError(t, err)
		assert.Empty(t, tok)
	}
}

func TestGetToken_ClientCredentials(t *testing.T) {
	var hits atomic.Int32
	idp := newTokenEndpoint(t, &hits, 3600)
	b, st := newTestBroker(t, "")
	ctx := context.Background()

	policy := &domain.RoutePolicy{
		RouteID:       "api",
		SecurityType:  domain.SecurityClientCredentials,
		TokenEndpoint: idp.URL,
		ClientID:      "svc",
		ClientSecret:  "secret",
		Scope:         "read write",
	}

	tok, err := b.GetToken(ctx, policy, nil)
	require.NoError(t, err)
	assert.Equal(t, "upstream-token", tok)
	assert.Equal(t, int32(1), hits.Load())

	// The token is global: no session id, one durable row.
	stored, err := st.GetUpstreamToken(ctx, "api", nil)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Nil(t, stored.SessionID)
	assert.Equal(t, "upstream-token", stored.AccessToken)

	// Subsequent lookups come from the store, not the endpoint.
	tok, err = b.GetToken(ctx, policy, nil)
	require.NoError(t, err)
	assert.Equal(t, "upstream-token", tok)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGetToken_RemintsInsideSkewMargin(t *testing.T) {
	var hits atomic.Int32
	// Tokens expiring in 60s are already inside the 5 minute margin.
	idp := newTokenEndpoint(t, &hits, 60)
	b, _ := newTestBroker(t, "")
	ctx := context.Background()

	policy := &domain.RoutePolicy{
		RouteID:       "api",
		SecurityType:  domain.SecurityClientCredentials,
		TokenEndpoint: idp.URL,
		ClientID:      "svc",
		ClientSecret:  "secret",
	}

	_, err := b.GetToken(ctx, policy, nil)
	require.NoError(t, err)
	_, err = b.GetToken(ctx, policy, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestGetToken_TokenExchange(t *testing.T) {
	var subjectToken atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:token-exchange", r.PostForm.Get("grant_type"))
		assert.Equal(t, "urn:ietf:params:oauth:token-type:access_token", r.PostForm.Get("subject_token_type"))
		subjectToken.Store(r.PostForm.Get("subject_token"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "exchanger", user)
		assert.Equal(t, "xs", pass)

		json.NewEncoder(w).Encode(map[string]any{
			"access_token":      "exchanged-token",
			"issued_token_type": "urn:ietf:params:oauth:token-type:access_token",
			"token_type":        "Bearer",
			"expires_in":        600,
		})
	}))
	t.Cleanup(srv.Close)

	b, st := newTestBroker(t, "")
	ctx := context.Background()
	sess := newTestSession(t, st, "session-access-token")

	policy := &domain.RoutePolicy{
		RouteID:       "api",
		SecurityType:  domain.SecurityTokenExchange,
		TokenEndpoint: srv.URL,
		ClientID:      "exchanger",
		ClientSecret:  "xs",
	}

	tok, err := b.GetToken(ctx, policy, sess)
	require.NoError(t, err)
	assert.Equal(t, "exchanged-token", tok)
	assert.Equal(t, "session-access-token", subjectToken.Load())

	// The row is keyed to the session.
	stored, err := st.GetUpstreamToken(ctx, "api", &sess.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestGetToken_TokenExchangeWithoutSession(t *testing.T) {
	b, _ := newTestBroker(t, "")

	policy := &domain.RoutePolicy{RouteID: "api", SecurityType: domain.SecurityTokenExchange}
	tok, err := b.GetToken(context.Background(), policy, nil)
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestGetToken_SelfSigned(t *testing.T) {
	b, st := newTestBroker(t, "")
	ctx := context.Background()
	sess := newTestSession(t, st, "at")

	policy := &domain.RoutePolicy{
		RouteID:                "internal-api",
		SecurityType:           domain.SecuritySelfSigned,
		TokenExpirationSeconds: 600,
	}

	tok, err := b.GetToken(ctx, policy, sess)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims := gojwt.MapClaims{}
	_, err = gojwt.ParseWithClaims(tok, claims, func(*gojwt.Token) (interface{}, error) {
		return []byte("broker-signing-secret"), nil
	}, gojwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims["sub"])
	assert.Equal(t, "internal-api", claims["route_id"])
	assert.Equal(t, float64(sess.ID), claims["session_id"])
}

func TestGetToken_MintFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": "temporarily_unavailable"})
	}))
	t.Cleanup(srv.Close)

	b, st := newTestBroker(t, "")
	sess := newTestSession(t, st, "at")

	policy := &domain.RoutePolicy{
		RouteID:       "api",
		SecurityType:  domain.SecurityTokenExchange,
		TokenEndpoint: srv.URL,
	}
	_, err := b.GetToken(context.Background(), policy, sess)
	assert.ErrorIs(t, err, gwerrors.ErrUpstreamTokenMint)
}

func TestRefresh_EvictsAndRemints(t *testing.T) {
	var hits atomic.Int32
	idp := newTokenEndpoint(t, &hits, 3600)
	b, _ := newTestBroker(t, "")
	ctx := context.Background()

	policy := &domain.RoutePolicy{
		RouteID:       "api",
		SecurityType:  domain.SecurityClientCredentials,
		TokenEndpoint: idp.URL,
		ClientID:      "svc",
		ClientSecret:  "secret",
	}

	_, err := b.GetToken(ctx, policy, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	// Refresh bypasses the still-valid stored token.
	tok, err := b.Refresh(ctx, policy, nil)
	require.NoError(t, err)
	assert.Equal(t, "upstream-token", tok)
	assert.Equal(t, int32(2), hits.Load())
}

func TestGetToken_RedisCacheHit(t *testing.T) {
	mr := miniredis.RunT(t)
	var hits atomic.Int32
	idp := newTokenEndpoint(t, &hits, 3600)
	b, _ := newTestBroker(t, mr.Addr())
	ctx := context.Background()

	policy := &domain.RoutePolicy{
		RouteID:       "api",
		SecurityType:  domain.SecurityClientCredentials,
		TokenEndpoint: idp.URL,
		ClientID:      "svc",
		ClientSecret:  "secret",
	}

	tok, err := b.GetToken(ctx, policy, nil)
	require.NoError(t, err)
	assert.Equal(t, "upstream-token", tok)

	// The mint populated Redis under the global slot.
	assert.True(t, mr.Exists("upstream_token:api:global"))

	tok, err = b.GetToken(ctx, policy, nil)
	require.NoError(t, err)
	assert.Equal(t, "upstream-token", tok)
	assert.Equal(t, int32(1), hits.Load())
}

func TestTokenCache_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewTokenCache(config.RedisConfig{Enabled: true, Addr: mr.Addr()})
	require.NoError(t, cache.Start(context.Background()))
	t.Cleanup(func() { cache.Stop() })

	ctx := context.Background()
	sid := int64(7)
	expiresAt := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	cache.Set(ctx, "api", &sid, "cached-token", expiresAt)

	tok, ok := cache.Get(ctx, "api", &sid)
	require.True(t, ok)
	assert.Equal(t, "cached-token", tok.AccessToken)
	assert.Equal(t, expiresAt, tok.ExpiresAt.UTC())

	// Session-scoped and global slots are distinct keys.
	_, ok = cache.Get(ctx, "api", nil)
	assert.False(t, ok)

	cache.Delete(ctx, "api", &sid)
	_, ok = cache.Get(ctx, "api", &sid)
	assert.False(t, ok)
}

func TestTokenCache_ExpiredTokenNotStored(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewTokenCache(config.RedisConfig{Enabled: true, Addr: mr.Addr()})
	require.NoError(t, cache.Start(context.Background()))

	cache.Set(context.Background(), "api", nil, "stale", time.Now().Add(-time.Minute))
	_, ok := cache.Get(context.Background(), "api", nil)
	assert.False(t, ok)
}

func TestTokenCache_Disabled(t *testing.T) {
	cache := NewTokenCache(config.RedisConfig{Enabled: false})
	require.NoError(t, cache.Start(context.Background()))

	ctx := context.Background()
	cache.Set(ctx, "api", nil, "tok", time.Now().Add(time.Hour))
	_, ok := cache.Get(ctx, "api", nil)
	assert.False(t, ok)
	assert.True(t, cache.Healthy(ctx))
}
