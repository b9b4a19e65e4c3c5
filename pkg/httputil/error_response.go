// Package httputil holds shared JSON response helpers for the HTTP
// layer.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/your-org/gateway/pkg/logger"
)

// ErrorBody is the uniform error response shape. Messages stay generic:
// internal detail belongs in logs, not in responses.
type ErrorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("response encode failed", logger.Err(err))
	}
}

// WriteError writes the uniform JSON error body.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteJSON(w, status, ErrorBody{
		Error:     code,
		Message:   message,
		RequestID: requestID(r),
	})
}

func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Correlation-ID"); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}
