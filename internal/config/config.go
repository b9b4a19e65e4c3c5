// Package config defines the gateway's static configuration and its
// viper-based loader. Routes, clusters, and policies are not configured
// here: they live in the database and reload through the admin API.
package config

import (
	"time"

	"github.com/your-org/gateway/pkg/logger"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" jsonschema:"description=HTTP server settings."`
	Logging   logger.Config   `mapstructure:"logging" jsonschema:"description=Logging settings."`
	Database  DatabaseConfig  `mapstructure:"database" jsonschema:"description=Relational store settings."`
	Redis     RedisConfig     `mapstructure:"redis" jsonschema:"description=Upstream token cache settings."`
	OAuth     OAuthConfig     `mapstructure:"oauth" jsonschema:"description=OIDC provider and client settings."`
	Cookies   CookieConfig    `mapstructure:"cookies" jsonschema:"description=Cookie protection settings."`
	Session   SessionConfig   `mapstructure:"session" jsonschema:"description=Session lifecycle settings."`
	Discovery DiscoveryConfig `mapstructure:"discovery" jsonschema:"description=OIDC discovery cache settings."`
	Broker    BrokerConfig    `mapstructure:"broker" jsonschema:"description=Upstream token broker settings."`
	CORS      CORSConfig      `mapstructure:"cors" jsonschema:"description=CORS settings for the auth endpoints."`
	Metrics   MetricsConfig   `mapstructure:"metrics" jsonschema:"description=Prometheus metrics settings."`
	Audit     AuditConfig     `mapstructure:"audit" jsonschema:"description=Security audit trail settings."`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" jsonschema:"description=Listen address.,default=:8080"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" jsonschema:"description=Maximum duration for reading the request.,default=10s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" jsonschema:"description=Maximum duration for writing the response.,default=30s"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" jsonschema:"description=Keep-alive idle timeout.,default=120s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" jsonschema:"description=Graceful shutdown deadline.,default=30s"`
}

// DatabaseConfig holds the relational store settings.
type DatabaseConfig struct {
	// Path is the sqlite database file, or a sqlite URI such as
	// file:gateway.db?cache=shared.
	Path string `mapstructure:"path" jsonschema:"description=SQLite database path or URI.,default=gateway.db"`
}

// RedisConfig holds the external token cache settings. The cache is a
// lossy accelerator: when disabled or unreachable the broker falls back
// to the database.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled" jsonschema:"description=Enable the redis upstream token cache.,default=false"`
	Addr     string `mapstructure:"addr" jsonschema:"description=Redis address host:port.,default=localhost:6379"`
	Password string `mapstructure:"password" jsonschema:"description=Redis password."`
	DB       int    `mapstructure:"db" jsonschema:"description=Redis database index.,default=0"`
}

// OAuthConfig holds the OIDC client settings.
type OAuthConfig struct {
	// Issuer is the IdP issuer URL. When empty it is derived from
	// AuthorizationEndpoint for Keycloak-style URLs.
	Issuer                string `mapstructure:"issuer" jsonschema:"description=OIDC issuer URL."`
	AuthorizationEndpoint string `mapstructure:"authorization_endpoint" jsonschema:"description=Fallback authorization endpoint used to derive the issuer."`
	ClientID              string `mapstructure:"client_id" jsonschema:"description=OAuth client id.,required"`
	ClientSecret          string `mapstructure:"client_secret" jsonschema:"description=OAuth client secret (confidential clients)."`
	RedirectURI           string `mapstructure:"redirect_uri" jsonschema:"description=Default redirect URI for the authorization code flow."`
	Scope                 string `mapstructure:"scope" jsonschema:"description=Requested scopes.,default=openid profile email"`
	UsernameClaim         string `mapstructure:"username_claim" jsonschema:"description=Preferred claim for the username.,default=preferred_username"`
}

// CookieConfig holds the cookie protection settings.
type CookieConfig struct {
	// EncryptionKey is the AES-256 key for cookie values, base64 or
	// hex encoded, 32 bytes after decoding.
	EncryptionKey string        `mapstructure:"encryption_key" jsonschema:"description=32-byte AES key for cookie encryption (base64 or hex).,required"`
	TransientTTL  time.Duration `mapstructure:"transient_ttl" jsonschema:"description=Lifetime of the state/verifier/nonce cookies.,default=10m"`
}

// SessionConfig holds the session lifecycle settings. Idle and absolute
// timeouts are independent: exceeding either ends the session.
type SessionConfig struct {
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" jsonschema:"description=Sliding inactivity timeout.,default=30m"`
	AbsoluteTimeout time.Duration `mapstructure:"absolute_timeout" jsonschema:"description=Hard session lifetime.,default=8h"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" jsonschema:"description=Period of the expired-session sweep.,default=1h"`
}

// DiscoveryConfig holds the OIDC discovery cache settings.
type DiscoveryConfig struct {
	CacheTTL    time.Duration `mapstructure:"cache_ttl" jsonschema:"description=How long discovery metadata stays cached.,default=24h"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout" jsonschema:"description=Timeout for discovery and JWKS fetches.,default=10s"`
}

// BrokerConfig holds the upstream token broker settings.
type BrokerConfig struct {
	// SkewMargin is the minimum remaining validity a cached or stored
	// token must have before the broker re-mints.
	SkewMargin  time.Duration `mapstructure:"skew_margin" jsonschema:"description=Minimum remaining token validity before re-mint.,default=5m"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout" jsonschema:"description=Timeout for token endpoint calls.,default=15s"`
	// SigningKey is the HMAC secret for locally minted (self-signed)
	// upstream tokens.
	SigningKey string `mapstructure:"signing_key" jsonschema:"description=HS256 secret for self-signed upstream tokens."`
	// Breaker settings guard the outbound token endpoints.
	BreakerMaxFailures uint32        `mapstructure:"breaker_max_failures" jsonschema:"description=Consecutive failures before the circuit opens.,default=5"`
	BreakerTimeout     time.Duration `mapstructure:"breaker_timeout" jsonschema:"description=How long the circuit stays open.,default=30s"`
}

// CORSConfig holds the CORS settings for the browser-facing endpoints.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins" jsonschema:"description=Origins allowed to call the auth endpoints."`
	AllowCredentials bool     `mapstructure:"allow_credentials" jsonschema:"description=Allow cookies on cross-origin requests.,default=true"`
	MaxAge           int      `mapstructure:"max_age" jsonschema:"description=Preflight cache seconds.,default=300"`
}

// AuditConfig holds the security audit trail settings. An empty event
// list records every event type.
type AuditConfig struct {
	Enabled bool     `mapstructure:"enabled" jsonschema:"description=Emit the security audit trail.,default=true"`
	Events  []string `mapstructure:"events" jsonschema:"description=Event types to record; empty records all."`
}

// MetricsConfig holds the Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" jsonschema:"description=Expose /metrics.,default=true"`
	Path    string `mapstructure:"path" jsonschema:"description=Metrics endpoint path.,default=/metrics"`
}
