// Package domain holds the gateway's core entities: routes, clusters,
// security policies, users, sessions, and upstream tokens.
package domain

import "time"

// Route maps an inbound path pattern to a cluster.
type Route struct {
	ID        int64     `json:"id"`
	RouteID   string    `json:"route_id"`
	ClusterID string    `json:"cluster_id"`
	Match     string    `json:"match"`
	Order     int       `json:"order"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cluster is a forwarding destination.
type Cluster struct {
	ID          int64     `json:"id"`
	ClusterID   string    `json:"cluster_id"`
	Destination string    `json:"destination"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SecurityType selects the upstream credential strategy for a route.
type SecurityType string

const (
	SecurityNone              SecurityType = "none"
	SecuritySession           SecurityType = "session"
	SecurityClientCredentials SecurityType = "client_credentials"
	SecurityTokenExchange     SecurityType = "token_exchange"
	SecuritySelfSigned        SecurityType = "self_signed"
)

// Valid reports whether t is a known security type.
func (t SecurityType) Valid() bool {
	switch t {
	case SecurityNone, SecuritySession, SecurityClientCredentials,
		SecurityTokenExchange, SecuritySelfSigned:
		return true
	}
	return false
}

// RequiresSession reports whether the strategy needs a browser session.
func (t SecurityType) RequiresSession() bool {
	return t == SecuritySession || t == SecurityTokenExchange || t == SecuritySelfSigned
}

// RoutePolicy drives the upstream token broker for one route.
type RoutePolicy struct {
	ID                     int64        `json:"id"`
	RouteID                string       `json:"route_id"`
	SecurityType           SecurityType `json:"security_type"`
	TokenEndpoint          string       `json:"token_endpoint,omitempty"`
	ClientID               string       `json:"client_id,omitempty"`
	ClientSecret           string       `json:"-"`
	Scope                  string       `json:"scope,omitempty"`
	TokenExpirationSeconds int          `json:"token_expiration_seconds"`
	CreatedAt              time.Time    `json:"created_at"`
	UpdatedAt              time.Time    `json:"updated_at"`
}

// TokenExpiration returns the policy's token lifetime, defaulting to an hour.
func (p *RoutePolicy) TokenExpiration() time.Duration {
	if p.TokenExpirationSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(p.TokenExpirationSeconds) * time.Second
}
