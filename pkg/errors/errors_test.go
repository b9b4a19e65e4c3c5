package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *GatewayError
		expected string
	}{
		{
			name: "without cause",
			err: &GatewayError{
				Code:    CodeAccessDenied,
				Message: "access is denied",
			},
			expected: "ACCESS_DENIED: access is denied",
		},
		{
			name: "with cause",
			err: &GatewayError{
				Code:    CodeUnauthorized,
				Message: "session validation failed",
				Cause:   errors.New("cookie tampered"),
			},
			expected: "UNAUTHORIZED: session validation failed: cookie tampered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.err.Error()
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGatewayError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &GatewayError{
		Code:    CodeInternalError,
		Message: "something went wrong",
		Cause:   cause,
	}

	unwrapped := err.Unwrap()
	assert.Equal(t, cause, unwrapped)
}

func TestGatewayError_Unwrap_NilCause(t *testing.T) {
	err := &GatewayError{
		Code:    CodeAccessDenied,
		Message: "denied",
	}

	unwrapped := err.Unwrap()
	assert.Nil(t, unwrapped)
}

func TestGatewayError_WithDetail(t *testing.T) {
	err := &GatewayError{
		Code:    CodeAccessDenied,
		Message: "access denied",
	}

	result := err.WithDetail("route", "/api/users").WithDetail("method", "POST")

	require.NotNil(t, result.Details)
	assert.Equal(t, "/api/users", result.Details["route"])
	assert.Equal(t, "POST", result.Details["method"])
	// Should return same instance (chaining)
	assert.Same(t, err, result)
}

func TestNew(t *testing.T) {
	cause := errors.New("cause error")
	err := New(CodeSessionExpired, "session has expired", cause)

	require.NotNil(t, err)
	assert.Equal(t, CodeSessionExpired, err.Code)
	assert.Equal(t, "session has expired", err.Message)
	assert.Equal(t, cause, err.Cause)
}

func TestNew_NilCause(t *testing.T) {
	err := New(CodeAccessDenied, "denied", nil)

	require.NotNil(t, err)
	assert.Nil(t, err.Cause)
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		target   error
		expected bool
	}{
		{
			name:     "match",
			err:      ErrSessionExpired,
			target:   ErrSessionExpired,
			expected: true,
		},
		{
			name:     "no match",
			err:      ErrSessionExpired,
			target:   ErrSessionNotFound,
			expected: false,
		},
		{
			name:     "wrapped match",
			err:      Wrap(ErrSessionExpired, "context"),
			target:   ErrSessionExpired,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Is(tt.err, tt.target)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestAs(t *testing.T) {
	gwErr := &GatewayError{
		Code:    CodeAccessDenied,
		Message: "denied",
	}

	var target *GatewayError
	result := As(gwErr, &target)

	assert.True(t, result)
	assert.Equal(t, gwErr.Code, target.Code)
}

func TestAs_NoMatch(t *testing.T) {
	err := errors.New("plain error")

	var target *GatewayError
	result := As(err, &target)

	assert.False(t, result)
}

func TestWrap(t *testing.T) {
	err := errors.New("original error")
	wrapped := Wrap(err, "context message")

	require.NotNil(t, wrapped)
	assert.Contains(t, wrapped.Error(), "context message")
	assert.Contains(t, wrapped.Error(), "original error")
	assert.True(t, errors.Is(wrapped, err))
}

func TestWrap_NilError(t *testing.T) {
	wrapped := Wrap(nil, "context message")
	assert.Nil(t, wrapped)
}

func TestStandardErrors(t *testing.T) {
	// Ensure all standard errors are unique
	standardErrors := []error{
		ErrSessionNotFound,
		ErrSessionExpired,
		ErrSessionRevoked,
		ErrCookieMissing,
		ErrUserNotFound,
		ErrUserDisabled,
		ErrUserExists,
		ErrStateMismatch,
		ErrNonceMismatch,
		ErrExchangeFailed,
		ErrDiscoveryFailed,
		ErrTokenInvalid,
		ErrTokenExpired,
		ErrSignatureInvalid,
		ErrIssuerInvalid,
		ErrAudienceInvalid,
		ErrJWKSFetchFailed,
		ErrJWKSKeyNotFound,
		ErrRouteNotFound,
		ErrRouteExists,
		ErrUpstreamTokenMint,
		ErrDecryptionFailed,
		ErrConfigInvalid,
		ErrConfigLoadFailed,
		ErrServiceUnavailable,
		ErrInternal,
	}

	// Each error should be unique
	seen := make(map[string]bool)
	for _, err := range standardErrors {
		msg := err.Error()
		assert.False(t, seen[msg], "duplicate error: %s", msg)
		seen[msg] = true
	}
}

func TestGatewayError_ErrorsIsCompatibility(t *testing.T) {
	cause := ErrSessionExpired
	gwErr := New(CodeSessionExpired, "session expired", cause)

	// Should be able to use errors.Is to check cause
	assert.True(t, errors.Is(gwErr, ErrSessionExpired))
}

func TestGatewayError_ChainedDetails(t *testing.T) {
	err := New(CodeAccessDenied, "denied", nil).
		WithDetail("user", "john").
		WithDetail("route", "/admin").
		WithDetail("action", "read")

	assert.Len(t, err.Details, 3)
	assert.Equal(t, "john", err.Details["user"])
	assert.Equal(t, "/admin", err.Details["route"])
	assert.Equal(t, "read", err.Details["action"])
}
