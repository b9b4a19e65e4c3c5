package domain

import "time"

// ClientCredential authenticates API consumers against the admin surface.
// Secrets are stored hashed; only validate-by-compare is exposed.
type ClientCredential struct {
	ID               int64      `json:"id"`
	ClientID         string     `json:"client_id"`
	ClientSecretHash string     `json:"-"`
	Description      string     `json:"description,omitempty"`
	IsEnabled        bool       `json:"is_enabled"`
	LastUsedAt       *time.Time `json:"last_used_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
