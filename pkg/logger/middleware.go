package logger

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// CorrelationIDHeader is the canonical header for request correlation.
const CorrelationIDHeader = "X-Correlation-ID"

// CorrelationIDMiddleware extracts or generates a correlation ID, stores a
// logger enriched with it in the request context, and echoes the ID back in
// the response headers.
func CorrelationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = r.Header.Get("X-Request-ID")
		}
		if correlationID == "" {
			correlationID = middleware.GetReqID(r.Context())
		}
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		ctx := ToContext(r.Context(), L().With(String("correlation_id", correlationID)))
		w.Header().Set(CorrelationIDHeader, correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
