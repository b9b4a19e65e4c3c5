package logger

import (
	"strings"

	"go.uber.org/zap"
)

// MaskToken returns a log-safe rendering of a bearer token or other secret.
// It keeps a short prefix for correlation and replaces the rest, so raw
// credentials never reach log sinks.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	// JWTs get masked per segment so the header prefix stays greppable.
	if parts := strings.Split(token, "."); len(parts) == 3 {
		return maskSegment(parts[0]) + "." + maskSegment(parts[1]) + ".***"
	}
	return maskSegment(token)
}

func maskSegment(s string) string {
	const keep = 6
	if len(s) <= keep {
		return "***"
	}
	return s[:keep] + "***"
}

// Token is a zap field carrying a masked token value.
func Token(key, token string) zap.Field {
	return zap.String(key, MaskToken(token))
}
