package domain

import "time"

// UpstreamToken is a backend credential minted by the token broker,
// distinct from the session's own IdP tokens. SessionID is nil for the
// session-independent client-credentials strategy.
type UpstreamToken struct {
	ID              int64     `json:"id"`
	RouteID         string    `json:"route_id"`
	SessionID       *int64    `json:"session_id,omitempty"`
	AccessToken     string    `json:"-"`
	RefreshToken    string    `json:"-"`
	ExpiresAt       time.Time `json:"expires_at"`
	CreatedAt       time.Time `json:"created_at"`
	LastRefreshedAt time.Time `json:"last_refreshed_at"`
}

// ValidFor reports whether the token still has at least margin of life
// left. Layers of the broker fall through when this returns false.
func (t *UpstreamToken) ValidFor(now time.Time, margin time.Duration) bool {
	return t.ExpiresAt.After(now.Add(margin))
}

// TTL returns the remaining lifetime at now.
func (t *UpstreamToken) TTL(now time.Time) time.Duration {
	return t.ExpiresAt.Sub(now)
}
