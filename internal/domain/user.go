package domain

import "time"

// User is a gateway account created lazily on first OIDC login.
type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	IsEnabled bool       `json:"is_enabled"`
	// Passkey is an opaque shared secret for direct API access. The
	// stored value is compared in constant time, never logged.
	Passkey     string     `json:"-"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
