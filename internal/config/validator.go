package config

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// ValidationError contains detailed information about a validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString("  ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Validate checks the configuration for missing or malformed settings.
// Failures here are configuration errors: fail fast, not per-request.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	if cfg.OAuth.ClientID == "" {
		errs = append(errs, ValidationError{
			Field:   "oauth.client_id",
			Message: "client id is required",
		})
	}
	if cfg.OAuth.Issuer == "" && cfg.OAuth.AuthorizationEndpoint == "" {
		errs = append(errs, ValidationError{
			Field:   "oauth.issuer",
			Message: "either issuer or authorization_endpoint must be set",
		})
	}
	if cfg.OAuth.Issuer != "" {
		if u, err := url.Parse(cfg.OAuth.Issuer); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "oauth.issuer",
				Message: "issuer must be an absolute URL",
			})
		}
	}

	if cfg.Cookies.EncryptionKey == "" {
		errs = append(errs, ValidationError{
			Field:   "cookies.encryption_key",
			Message: "encryption key is required",
		})
	} else if _, err := DecodeKey(cfg.Cookies.EncryptionKey); err != nil {
		errs = append(errs, ValidationError{
			Field:   "cookies.encryption_key",
			Message: err.Error(),
		})
	}

	if cfg.Session.IdleTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "session.idle_timeout",
			Message: "must be positive",
		})
	}
	if cfg.Session.AbsoluteTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "session.absolute_timeout",
			Message: "must be positive",
		})
	}
	if cfg.Session.CleanupInterval <= 0 {
		errs = append(errs, ValidationError{
			Field:   "session.cleanup_interval",
			Message: "must be positive",
		})
	}

	if cfg.Database.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "database.path",
			Message: "database path is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// DecodeKey decodes a base64 (std or url) or hex encoded 32-byte key.
func DecodeKey(encoded string) ([]byte, error) {
	decoders := []func(string) ([]byte, error){
		base64.StdEncoding.DecodeString,
		base64.URLEncoding.DecodeString,
		base64.RawStdEncoding.DecodeString,
		base64.RawURLEncoding.DecodeString,
		hex.DecodeString,
	}
	for _, decode := range decoders {
		if key, err := decode(encoded); err == nil {
			if len(key) != 32 {
				return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
			}
			return key, nil
		}
	}
	return nil, fmt.Errorf("key is not valid base64 or hex")
}
