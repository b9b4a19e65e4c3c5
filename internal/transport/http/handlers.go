package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/your-org/gateway/internal/service/audit"
	"github.com/your-org/gateway/internal/service/metrics"
	"github.com/your-org/gateway/internal/service/oauth"
	"github.com/your-org/gateway/internal/service/session"
	"github.com/your-org/gateway/internal/service/user"
	gwerrors "github.com/your-org/gateway/pkg/errors"
	"github.com/your-org/gateway/pkg/httputil"
	"github.com/your-org/gateway/pkg/logger"
	"github.com/your-org/gateway/pkg/security"
)

// Handler serves the browser-facing authentication endpoints.
type Handler struct {
	agent    *oauth.Agent
	sessions *session.Manager
	cookies  *session.CookieCodec
	users    *user.Service
	audits   *audit.Service
	metrics  *metrics.Metrics
}

// NewHandler creates the auth handler.
func NewHandler(agent *oauth.Agent, sessions *session.Manager, cookies *session.CookieCodec, users *user.Service, audits *audit.Service) *Handler {
	return &Handler{
		agent:    agent,
		sessions: sessions,
		cookies:  cookies,
		users:    users,
		audits:   audits,
		metrics:  metrics.Default,
	}
}

// LoginStart begins the authorization code flow. The PKCE verifier,
// state, and nonce go into encrypted transient cookies; the browser
// only receives the authorization URL.
func (h *Handler) LoginStart(w http.ResponseWriter, r *http.Request) {
	var req LoginStartRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteError(w, r, http.StatusBadRequest, gwerrors.CodeBadRequest, "invalid request body")
			return
		}
	}

	authReq, err := h.agent.GenerateAuthorizationRequest(r.Context(), req.RedirectURI)
	if err != nil {
		logger.Error("failed to build authorization request", logger.Err(err))
		httputil.WriteError(w, r, http.StatusInternalServerError, gwerrors.CodeUpstreamError, "identity provider unavailable")
		return
	}

	if err := h.cookies.WriteLoginState(w, authReq.State, authReq.CodeVerifier, authReq.Nonce); err != nil {
		logger.Error("failed to write login cookies", logger.Err(err))
		httputil.WriteError(w, r, http.StatusInternalServerError, gwerrors.CodeInternalError, "internal error")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, LoginStartResponse{
		AuthorizationURL: authReq.AuthorizationURL,
		Instructions: LoginInstructions{
			Action: "redirect",
			URL:    authReq.AuthorizationURL,
			Method: http.MethodGet,
		},
	})
}

// Callback completes the flow from the IdP redirect (query parameters).
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.completeLogin(w, r, q.Get("code"), q.Get("state"), q.Get("error"))
}

// LoginEnd completes the flow from an SPA that captured the redirect
// itself and posts the code as JSON. Same semantics as Callback.
func (h *Handler) LoginEnd(w http.ResponseWriter, r *http.Request) {
	var req LoginEndRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, http.StatusBadRequest, gwerrors.CodeBadRequest, "invalid request body")
		return
	}
	h.completeLogin(w, r, req.Code, req.State, req.Error)
}

// completeLogin validates the callback against the transient cookies,
// exchanges the code, and opens a session. No session is created on any
// failure path.
func (h *Handler) completeLogin(w http.ResponseWriter, r *http.Request, code, state, idpError string) {
	if idpError != "" {
		logger.Warn("identity provider returned an error", logger.String("error", idpError))
		h.cookies.ClearLoginState(w)
		h.failLogin(r, "", "provider error: "+idpError)
		// The provider's error value is the machine-readable code.
		httputil.WriteError(w, r, http.StatusBadRequest, idpError, "authorization was denied by the identity provider")
		return
	}
	if code == "" || state == "" {
		httputil.WriteError(w, r, http.StatusBadRequest, gwerrors.CodeInvalidRequest, "code and state are required")
		return
	}

	expectedState, codeVerifier, nonce, err := h.cookies.ReadLoginState(r)
	if err != nil {
		// Missing or undecryptable transient cookies: the flow did not
		// start here, or it already completed.
		logger.Warn("login state cookies rejected", logger.Err(err))
		h.failLogin(r, "", "no login in progress")
		httputil.WriteError(w, r, http.StatusBadRequest, gwerrors.CodeInvalidState, "no login in progress")
		return
	}

	if !security.SecureCompare(state, expectedState) {
		logger.Warn("state parameter mismatch")
		h.cookies.ClearLoginState(w)
		h.failLogin(r, "", "state mismatch")
		httputil.WriteError(w, r, http.StatusBadRequest, gwerrors.CodeInvalidState, "state mismatch")
		return
	}

	result, err := h.agent.ExchangeCode(r.Context(), code, codeVerifier, "", nonce)
	if err != nil {
		h.cookies.ClearLoginState(w)
		switch {
		case gwerrors.Is(err, gwerrors.ErrNonceMismatch):
			logger.Warn("nonce mismatch on code exchange")
			h.failLogin(r, "", "nonce mismatch")
			httputil.WriteError(w, r, http.StatusBadRequest, gwerrors.CodeTokenExchangeFailed, "nonce mismatch")
		case gwerrors.Is(err, gwerrors.ErrExchangeFailed):
			// The token endpoint gave a verdict: the code, verifier, or
			// resulting ID token was rejected. That is the caller's
			// problem, not an outage.
			logger.Warn("code exchange rejected", logger.Err(err))
			h.failLogin(r, "", "code exchange rejected")
			httputil.WriteError(w, r, http.StatusBadRequest, gwerrors.CodeTokenExchangeFailed, "code exchange was rejected")
		default:
			logger.Error("code exchange failed", logger.Err(err))
			h.failLogin(r, "", "code exchange failed")
			httputil.WriteError(w, r, http.StatusInternalServerError, gwerrors.CodeUpstreamError, "code exchange failed")
		}
		return
	}

	username, email, err := h.agent.IdentityClaims(result)
	if err != nil {
		h.cookies.ClearLoginState(w)
		h.failLogin(r, "", "no usable identity claim")
		logger.Error("unable to extract identity from tokens", logger.Err(err))
		httputil.WriteError(w, r, http.StatusInternalServerError, gwerrors.CodeUpstreamError, "unable to establish identity")
		return
	}

	u, err := h.users.GetOrCreate(r.Context(), username, email)
	if err != nil {
		h.cookies.ClearLoginState(w)
		if gwerrors.Is(err, gwerrors.ErrUserDisabled) {
			h.failLogin(r, username, "account disabled")
			httputil.WriteError(w, r, http.StatusUnauthorized, gwerrors.CodeAccessDenied, "account is disabled")
			return
		}
		h.failLogin(r, username, "user lookup failed")
		logger.Error("failed to resolve user", logger.String("username", username), logger.Err(err))
		httputil.WriteError(w, r, http.StatusInternalServerError, gwerrors.CodeInternalError, "internal error")
		return
	}
	if err := h.users.RecordLogin(r.Context(), u.ID); err != nil {
		logger.Warn("failed to record login", logger.Int64("user_id", u.ID), logger.Err(err))
	}

	sess, err := h.sessions.Create(r.Context(), u.ID,
		result.AccessToken, result.RefreshToken, clientIP(r), r.UserAgent())
	if err != nil {
		h.cookies.ClearLoginState(w)
		h.failLogin(r, username, "session creation failed")
		logger.Error("failed to create session", logger.Int64("user_id", u.ID), logger.Err(err))
		httputil.WriteError(w, r, http.StatusInternalServerError, gwerrors.CodeInternalError, "internal error")
		return
	}

	if err := h.cookies.WriteSession(w, sess.TokenID); err != nil {
		h.cookies.ClearLoginState(w)
		h.failLogin(r, username, "cookie write failed")
		logger.Error("failed to write session cookie", logger.Err(err))
		httputil.WriteError(w, r, http.StatusInternalServerError, gwerrors.CodeInternalError, "internal error")
		return
	}
	h.cookies.ClearLoginState(w)
	h.metrics.RecordLogin(true)
	h.metrics.SessionsCreatedTotal.Inc()
	h.audits.Login(u.Username, clientIP(r), middleware.GetReqID(r.Context()), true, "")

	logger.Info("login completed",
		logger.Int64("user_id", u.ID),
		logger.String("username", u.Username))
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "login successful"})
}

// IsLoggedIn reports session state. It never fails: anything short of a
// live session answers false, clearing stale cookies as a side effect.
func (h *Handler) IsLoggedIn(w http.ResponseWriter, r *http.Request) {
	tokenID, err := h.cookies.ReadSession(r)
	if err != nil {
		if !gwerrors.Is(err, gwerrors.ErrCookieMissing) {
			h.cookies.ClearSession(w)
		}
		httputil.WriteJSON(w, http.StatusOK, IsLoggedInResponse{IsLoggedIn: false})
		return
	}

	sess, err := h.sessions.Get(r.Context(), tokenID)
	if err != nil {
		h.cookies.ClearSession(w)
		httputil.WriteJSON(w, http.StatusOK, IsLoggedInResponse{IsLoggedIn: false})
		return
	}
	if err := h.sessions.Touch(r.Context(), sess.ID); err != nil {
		logger.Warn("failed to touch session", logger.Int64("session_id", sess.ID), logger.Err(err))
	}

	resp := IsLoggedInResponse{IsLoggedIn: true, UserID: sess.UserID}
	if u, err := h.users.Get(r.Context(), sess.UserID); err == nil {
		resp.Username = u.Username
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Logout revokes the current session and clears every auth cookie. It
// succeeds even with no usable session: logout is idempotent.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if tokenID, err := h.cookies.ReadSession(r); err == nil {
		sess, err := h.sessions.RevokeByTokenID(r.Context(), tokenID)
		switch {
		case err == nil:
			h.metrics.SessionsRevokedTotal.Inc()
			username := ""
			if u, uerr := h.users.Get(r.Context(), sess.UserID); uerr == nil {
				username = u.Username
			}
			h.audits.Logout(username, clientIP(r), middleware.GetReqID(r.Context()))
		case !gwerrors.Is(err, gwerrors.ErrSessionNotFound):
			logger.Warn("failed to revoke session on logout", logger.Err(err))
		}
	}

	h.cookies.ClearSession(w)
	h.cookies.ClearLoginState(w)
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "logged out"})
}

func (h *Handler) failLogin(r *http.Request, username, reason string) {
	h.metrics.RecordLogin(false)
	h.audits.Login(username, clientIP(r), middleware.GetReqID(r.Context()), false, reason)
}

// clientIP returns the request origin, trusting the RealIP middleware
// to have already folded proxy headers into RemoteAddr.
func clientIP(r *http.Request) string {
	return r.RemoteAddr
}
