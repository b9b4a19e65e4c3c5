package http

import "github.com/your-org/gateway/internal/domain"

// LoginStartRequest starts a login flow. RedirectURI overrides the
// configured default when present.
type LoginStartRequest struct {
	RedirectURI string `json:"redirectUri,omitempty"`
}

// LoginInstructions tells the SPA what to do with the authorization URL.
type LoginInstructions struct {
	Action string `json:"action"`
	URL    string `json:"url"`
	Method string `json:"method"`
}

// LoginStartResponse carries the authorization URL for the browser.
type LoginStartResponse struct {
	AuthorizationURL string            `json:"authorizationUrl"`
	Instructions     LoginInstructions `json:"instructions"`
}

// LoginEndRequest is the SPA-friendly callback alias body.
type LoginEndRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// StatusResponse is the generic success envelope.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// IsLoggedInResponse reports session state to the SPA.
type IsLoggedInResponse struct {
	IsLoggedIn bool   `json:"isLoggedIn"`
	UserID     int64  `json:"userId,omitempty"`
	Username   string `json:"username,omitempty"`
}

// RouteRequest creates or updates a route, optionally with its policy.
type RouteRequest struct {
	RouteID   string         `json:"route_id"`
	ClusterID string         `json:"cluster_id"`
	Match     string         `json:"match"`
	Order     int            `json:"order"`
	IsActive  bool           `json:"is_active"`
	Policy    *PolicyRequest `json:"policy,omitempty"`
}

// PolicyRequest sets the security policy of a route.
type PolicyRequest struct {
	SecurityType           string `json:"security_type"`
	TokenEndpoint          string `json:"token_endpoint,omitempty"`
	ClientID               string `json:"client_id,omitempty"`
	ClientSecret           string `json:"client_secret,omitempty"`
	Scope                  string `json:"scope,omitempty"`
	TokenExpirationSeconds int    `json:"token_expiration_seconds,omitempty"`
}

// ClusterRequest creates or updates a cluster.
type ClusterRequest struct {
	ClusterID   string `json:"cluster_id"`
	Destination string `json:"destination"`
	IsActive    bool   `json:"is_active"`
}

// UserRequest creates or updates a user.
type UserRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	IsEnabled bool   `json:"is_enabled"`
	Passkey   string `json:"passkey,omitempty"`
}

// ClientRequest creates or updates an admin API client.
type ClientRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret,omitempty"`
	Description  string `json:"description,omitempty"`
	IsEnabled    bool   `json:"is_enabled"`
}

// RouteResponse joins a route with its policy for admin reads.
type RouteResponse struct {
	*domain.Route
	Policy *domain.RoutePolicy `json:"policy,omitempty"`
}
