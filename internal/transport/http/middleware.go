package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/your-org/gateway/internal/domain"
	"github.com/your-org/gateway/internal/service/session"
	gwerrors "github.com/your-org/gateway/pkg/errors"
	"github.com/your-org/gateway/pkg/httputil"
	"github.com/your-org/gateway/pkg/logger"
)

type contextKey int

const (
	sessionContextKey contextKey = iota
	clientContextKey
)

// sessionFromContext returns the authenticated session attached by the
// gate, or nil for anonymous requests on allow-listed paths.
func sessionFromContext(ctx context.Context) *domain.Session {
	sess, _ := ctx.Value(sessionContextKey).(*domain.Session)
	return sess
}

func withSession(ctx context.Context, sess *domain.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// clientFromContext returns the admin client id authenticated by basic
// auth, or "" outside the admin surface.
func clientFromContext(ctx context.Context) string {
	id, _ := ctx.Value(clientContextKey).(string)
	return id
}

func withClient(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientContextKey, clientID)
}

// SessionGate authenticates proxied requests from the encrypted session
// cookie. The auth, health, metrics, and admin surfaces carry their own
// protection and pass through.
type SessionGate struct {
	sessions *session.Manager
	cookies  *session.CookieCodec
	allow    []string
}

// NewSessionGate creates the gate. allowPrefixes are path prefixes that
// bypass session authentication.
func NewSessionGate(sessions *session.Manager, cookies *session.CookieCodec, allowPrefixes []string) *SessionGate {
	return &SessionGate{sessions: sessions, cookies: cookies, allow: allowPrefixes}
}

func (g *SessionGate) allowed(path string) bool {
	for _, prefix := range g.allow {
		if path == prefix || strings.HasPrefix(path, strings.TrimRight(prefix, "/")+"/") {
			return true
		}
	}
	return false
}

// Middleware enforces the gate. A valid session slides the idle window
// and rides the request context; anything else is a 401 with the stale
// cookie cleared so the browser stops replaying it.
func (g *SessionGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.allowed(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		tokenID, err := g.cookies.ReadSession(r)
		if err != nil {
			if gwerrors.Is(err, gwerrors.ErrCookieMissing) {
				httputil.WriteError(w, r, http.StatusUnauthorized, gwerrors.CodeUnauthorized, "authentication required")
				return
			}
			// Undecryptable cookie: wrong key or tampering. Clear it.
			logger.Warn("session cookie rejected", logger.Err(err))
			g.cookies.ClearSession(w)
			httputil.WriteError(w, r, http.StatusUnauthorized, gwerrors.CodeUnauthorized, "authentication required")
			return
		}

		sess, err := g.sessions.Get(r.Context(), tokenID)
		if err != nil {
			g.cookies.ClearSession(w)
			code := gwerrors.CodeUnauthorized
			if gwerrors.Is(err, gwerrors.ErrSessionExpired) {
				code = gwerrors.CodeSessionExpired
			}
			httputil.WriteError(w, r, http.StatusUnauthorized, code, "session is not valid")
			return
		}

		if err := g.sessions.Touch(r.Context(), sess.ID); err != nil {
			logger.Warn("failed to touch session",
				logger.Int64("session_id", sess.ID), logger.Err(err))
		}

		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
	})
}
