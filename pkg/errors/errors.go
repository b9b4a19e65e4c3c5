package errors

import (
	"errors"
	"fmt"
)

// Standard error types for the gateway.
var (
	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")
	ErrSessionRevoked  = errors.New("session is revoked")
	ErrCookieMissing   = errors.New("session cookie is missing")

	// User errors
	ErrUserNotFound = errors.New("user not found")
	ErrUserDisabled = errors.New("user account is disabled")
	ErrUserExists   = errors.New("user already exists")

	// OAuth / OIDC errors
	ErrStateMismatch    = errors.New("state parameter mismatch")
	ErrNonceMismatch    = errors.New("nonce claim mismatch")
	ErrExchangeFailed   = errors.New("authorization code exchange failed")
	ErrDiscoveryFailed  = errors.New("oidc discovery failed")
	ErrTokenInvalid     = errors.New("token is invalid")
	ErrTokenExpired     = errors.New("token has expired")
	ErrSignatureInvalid = errors.New("token signature is invalid")
	ErrIssuerInvalid    = errors.New("token issuer is not trusted")
	ErrAudienceInvalid  = errors.New("token audience is invalid")

	// JWKS errors
	ErrJWKSFetchFailed = errors.New("failed to fetch JWKS")
	ErrJWKSKeyNotFound = errors.New("key not found in JWKS")

	// Route / proxy errors
	ErrRouteNotFound     = errors.New("route not found")
	ErrRouteExists       = errors.New("route already exists")
	ErrClusterNotFound   = errors.New("cluster not found")
	ErrClusterExists     = errors.New("cluster already exists")
	ErrUpstreamTokenMint = errors.New("failed to obtain upstream token")

	// Client credential errors
	ErrClientNotFound = errors.New("client not found")
	ErrClientExists   = errors.New("client already exists")
	ErrClientDisabled = errors.New("client is disabled")

	// Crypto errors
	ErrDecryptionFailed = errors.New("decryption failed")

	// Configuration errors
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrConfigLoadFailed = errors.New("failed to load configuration")

	// Service errors
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrInternal           = errors.New("internal error")
)

// GatewayError represents a structured gateway error.
type GatewayError struct {
	// Code is the error code
	Code string `json:"code"`

	// Message is the error message
	Message string `json:"message"`

	// Details contains additional error details
	Details map[string]any `json:"details,omitempty"`

	// Cause is the underlying error
	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error.
func (e *GatewayError) WithDetail(key string, value any) *GatewayError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new GatewayError.
func New(code, message string, cause error) *GatewayError {
	return &GatewayError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error codes
const (
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeSessionExpired = "SESSION_EXPIRED"
	CodeAccessDenied   = "ACCESS_DENIED"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeBadRequest     = "BAD_REQUEST"
	CodeUpstreamError  = "UPSTREAM_ERROR"
	CodeInternalError  = "INTERNAL_ERROR"
	CodeConfigError    = "CONFIG_ERROR"
	CodeUnavailable    = "SERVICE_UNAVAILABLE"
)

// Login callback error codes. These are lowercase: they are part of the
// OAuth-facing wire contract, not the internal vocabulary above.
const (
	CodeInvalidRequest      = "invalid_request"
	CodeInvalidState        = "invalid_state"
	CodeTokenExchangeFailed = "token_exchange_failed"
)

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
