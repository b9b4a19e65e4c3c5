package domain

import "time"

// Session is a browser session record. TokenID is the opaque value the
// encrypted cookie carries; the real IdP tokens never leave the server.
type Session struct {
	ID             int64     `json:"id"`
	TokenID        string    `json:"token_id"`
	UserID         int64     `json:"user_id"`
	AccessToken    string    `json:"-"`
	RefreshToken   string    `json:"-"`
	ExpiresAt      time.Time `json:"expires_at"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	IPAddress      string    `json:"ip_address,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
	IsRevoked      bool      `json:"is_revoked"`
}

// Expired reports whether the absolute expiry has passed.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IdleExpired reports whether the session sat unused longer than idleTimeout.
func (s *Session) IdleExpired(now time.Time, idleTimeout time.Duration) bool {
	return now.Sub(s.LastAccessedAt) > idleTimeout
}

// Usable reports whether the session can still authenticate requests.
// Both timeouts are independent: either one expiring ends the session.
func (s *Session) Usable(now time.Time, idleTimeout time.Duration) bool {
	return !s.IsRevoked && !s.Expired(now) && !s.IdleExpired(now, idleTimeout)
}
