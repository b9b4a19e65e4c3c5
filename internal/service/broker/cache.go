package broker

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/your-org/gateway/internal/config"
	"github.com/your-org/gateway/pkg/logger"
)

const cacheKeyPrefix = "upstream_token:"

// cachedToken is the Redis representation of an upstream token. Only
// the access token and its expiry live here; refresh tokens stay in
// the store.
type cachedToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenCache is the fast lookup layer in front of the store. It is
// lossy: any cache failure degrades to a store read, never to a
// request failure.
type TokenCache struct {
	client  redis.UniversalClient
	enabled bool
}

// NewTokenCache creates the cache. With Redis disabled every operation
// is a no-op and lookups always miss.
func NewTokenCache(cfg config.RedisConfig) *TokenCache {
	if !cfg.Enabled {
		return &TokenCache{}
	}
	return &TokenCache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		enabled: true,
	}
}

// Start verifies the Redis connection. On failure the cache disables
// itself rather than failing startup.
func (c *TokenCache) Start(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		logger.Warn("upstream token cache unavailable, falling back to store only", logger.Err(err))
		c.enabled = false
		return err
	}
	logger.Info("upstream token cache connected")
	return nil
}

// Stop closes the Redis connection.
func (c *TokenCache) Stop() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func cacheKey(routeID string, sessionID *int64) string {
	scope := "global"
	if sessionID != nil {
		scope = strconv.FormatInt(*sessionID, 10)
	}
	return cacheKeyPrefix + routeID + ":" + scope
}

// Get returns the cached token for a broker key, if present.
func (c *TokenCache) Get(ctx context.Context, routeID string, sessionID *int64) (*cachedToken, bool) {
	if !c.enabled {
		return nil, false
	}
	data, err := c.client.Get(ctx, cacheKey(routeID, sessionID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Debug("token cache get failed", logger.String("route_id", routeID), logger.Err(err))
		}
		return nil, false
	}
	var tok cachedToken
	if err := json.Unmarshal(data, &tok); err != nil {
		logger.Debug("token cache entry corrupt", logger.String("route_id", routeID), logger.Err(err))
		return nil, false
	}
	return &tok, true
}

// Set stores a token with a TTL matching its remaining validity.
func (c *TokenCache) Set(ctx context.Context, routeID string, sessionID *int64, accessToken string, expiresAt time.Time) {
	if !c.enabled {
		return
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(cachedToken{AccessToken: accessToken, ExpiresAt: expiresAt})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(routeID, sessionID), data, ttl).Err(); err != nil {
		logger.Debug("token cache set failed", logger.String("route_id", routeID), logger.Err(err))
	}
}

// Delete evicts a token, forcing the next lookup through the store.
func (c *TokenCache) Delete(ctx context.Context, routeID string, sessionID *int64) {
	if !c.enabled {
		return
	}
	c.client.Del(ctx, cacheKey(routeID, sessionID))
}

// Healthy reports whether Redis is reachable. A disabled cache is
// healthy by definition.
func (c *TokenCache) Healthy(ctx context.Context) bool {
	if !c.enabled || c.client == nil {
		return true
	}
	return c.client.Ping(ctx).Err() == nil
}
