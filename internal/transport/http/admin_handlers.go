package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/your-org/gateway/internal/domain"
	"github.com/your-org/gateway/internal/service/audit"
	"github.com/your-org/gateway/internal/service/metrics"
	"github.com/your-org/gateway/internal/service/proxycfg"
	"github.com/your-org/gateway/internal/store"
	gwerrors "github.com/your-org/gateway/pkg/errors"
	"github.com/your-org/gateway/pkg/httputil"
	"github.com/your-org/gateway/pkg/logger"
	"github.com/your-org/gateway/pkg/security"
)

// AdminHandler serves the management API: routes, clusters, policies,
// users, sessions, and API clients. Every mutation of the routing table
// triggers a snapshot reload so changes take effect without restart.
type AdminHandler struct {
	store    *store.Store
	provider *proxycfg.Provider
	audits   *audit.Service
	metrics  *metrics.Metrics
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(st *store.Store, provider *proxycfg.Provider, audits *audit.Service) *AdminHandler {
	return &AdminHandler{store: st, provider: provider, audits: audits, metrics: metrics.Default}
}

// BasicAuth authenticates admin requests against the stored client
// credentials. Secrets are compared as hashes in constant time.
func (a *AdminHandler) BasicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID, clientSecret, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="gateway admin"`)
			httputil.WriteError(w, r, http.StatusUnauthorized, gwerrors.CodeUnauthorized, "credentials required")
			return
		}

		client, err := a.store.GetClient(r.Context(), clientID)
		if err != nil || !client.IsEnabled ||
			!security.VerifySecret(clientSecret, client.ClientSecretHash) {
			logger.Warn("admin authentication failed", logger.String("client_id", clientID))
			a.audits.AdminDenied(clientID, r.RemoteAddr, middleware.GetReqID(r.Context()))
			httputil.WriteError(w, r, http.StatusUnauthorized, gwerrors.CodeUnauthorized, "invalid credentials")
			return
		}

		if err := a.store.TouchClientUsed(r.Context(), clientID, time.Now()); err != nil {
			logger.Warn("failed to record client use", logger.Err(err))
		}
		next.ServeHTTP(w, r.WithContext(withClient(r.Context(), clientID)))
	})
}

// changed records an admin mutation in the audit trail.
func (a *AdminHandler) changed(r *http.Request, targetType, targetID string) {
	a.audits.AdminChange(clientFromContext(r.Context()), targetType, targetID,
		middleware.GetReqID(r.Context()))
}

// Routes mounts the admin API onto a router.
func (a *AdminHandler) Routes(r chi.Router) {
	r.Use(a.BasicAuth)

	r.Get("/routes", a.ListRoutes)
	r.Post("/routes", a.CreateRoute)
	r.Get("/routes/{routeID}", a.GetRoute)
	r.Put("/routes/{routeID}", a.UpdateRoute)
	r.Delete("/routes/{routeID}", a.DeleteRoute)
	r.Put("/routes/{routeID}/policy", a.UpsertPolicy)
	r.Delete("/routes/{routeID}/policy", a.DeletePolicy)

	r.Get("/clusters", a.ListClusters)
	r.Post("/clusters", a.CreateCluster)
	r.Get("/clusters/{clusterID}", a.GetCluster)
	r.Put("/clusters/{clusterID}", a.UpdateCluster)
	r.Delete("/clusters/{clusterID}", a.DeleteCluster)

	r.Get("/users", a.ListUsers)
	r.Post("/users", a.CreateUser)
	r.Get("/users/{userID}", a.GetUser)
	r.Put("/users/{userID}", a.UpdateUser)
	r.Delete("/users/{userID}", a.DeleteUser)

	r.Get("/sessions", a.ListSessions)
	r.Delete("/sessions/{sessionID}", a.RevokeSession)

	r.Get("/clients", a.ListClients)
	r.Post("/clients", a.CreateClient)
	r.Put("/clients/{clientID}", a.UpdateClient)
	r.Delete("/clients/{clientID}", a.DeleteClient)

	r.Post("/reload", a.Reload)
}

// reload rebuilds the routing snapshot after a table mutation. Failure
// is logged but does not fail the mutation: the store already holds the
// new truth and the next reload picks it up.
func (a *AdminHandler) reload(r *http.Request) {
	err := a.provider.Reload(r.Context())
	a.metrics.RecordReload(err == nil, len(a.provider.Current().Entries()))
	if err != nil {
		logger.Error("route reload failed after mutation", logger.Err(err))
	}
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case gwerrors.Is(err, gwerrors.ErrRouteNotFound),
		gwerrors.Is(err, gwerrors.ErrClusterNotFound),
		gwerrors.Is(err, gwerrors.ErrUserNotFound),
		gwerrors.Is(err, gwerrors.ErrSessionNotFound),
		gwerrors.Is(err, gwerrors.ErrClientNotFound):
		httputil.WriteError(w, r, http.StatusNotFound, gwerrors.CodeNotFound, err.Error())
	case gwerrors.Is(err, gwerrors.ErrRouteExists),
		gwerrors.Is(err, gwerrors.ErrClusterExists),
		gwerrors.Is(err, gwerrors.ErrUserExists),
		gwerrors.Is(err, gwerrors.ErrClientExists):
		httputil.WriteError(w, r, http.StatusConflict, gwerrors.CodeConflict, err.Error())
	default:
		logger.Error("admin store operation failed", logger.Err(err))
		httputil.WriteError(w, r, http.StatusInternalServerError, gwerrors.CodeInternalError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httputil.WriteError(w, r, http.StatusBadRequest, gwerrors.CodeBadRequest, "invalid request body")
		return false
	}
	return true
}

// Reload rebuilds the routing snapshot on demand.
func (a *AdminHandler) Reload(w http.ResponseWriter, r *http.Request) {
	err := a.provider.Reload(r.Context())
	a.metrics.RecordReload(err == nil, len(a.provider.Current().Entries()))
	if err != nil {
		logger.Error("manual route reload failed", logger.Err(err))
		httputil.WriteError(w, r, http.StatusInternalServerError, gwerrors.CodeInternalError, "reload failed")
		return
	}
	snap := a.provider.Current()
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"version": snap.Version,
		"routes":  len(snap.Entries()),
	})
}

// --- routes ---

func (a *AdminHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := a.store.ListRoutes(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	out := make([]RouteResponse, 0, len(routes))
	for _, rt := range routes {
		policy, err := a.store.GetPolicy(r.Context(), rt.RouteID)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		out = append(out, RouteResponse{Route: rt, Policy: policy})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (a *AdminHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeID")
	rt, err := a.store.GetRoute(r.Context(), routeID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	policy, err := a.store.GetPolicy(r.Context(), routeID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RouteResponse{Route: rt, Policy: policy})
}

func (a *AdminHandler) CreateRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RouteID == "" || req.ClusterID == "" || req.Match == "" {
		httputil.WriteError(w, r, http.StatusBadRequest, gwerrors.CodeBadRequest, "route_id, cluster_id, and match are required")
		return
	}

	rt := &domain.Route{
		RouteID:   req.RouteID,
		ClusterID: req.ClusterID,
		Match:     req.Match,
		Order:     req.Order,
		IsActive:  req.IsActive,
	}
	if err := a.store.CreateRoute(r.Context(), rt); err != nil {
		writeStoreError(w, r, err)
		return
	}
	if req.Policy != nil {
		if !a.applyPolicy(w, r, req.RouteID, req.Policy) {
			return
		}
	}
	a.changed(r, "route", rt.RouteID)
	a.reload(r)
	httputil.WriteJSON(w, http.StatusCreated, RouteResponse{Route: rt})
}

func (a *AdminHandler) UpdateRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rt := &domain.Route{
		RouteID:   chi.URLParam(r, "routeID"),
		ClusterID: req.ClusterID,
		Match:     req.Match,
		Order:     req.Order,
		IsActive:  req.IsActive,
	}
	if err := a.store.UpdateRoute(r.Context(), rt); err != nil {
		writeStoreError(w, r, err)
		return
	}
	if req.Policy != nil {
		if !a.applyPolicy(w, r, rt.RouteID, req.Policy) {
			return
		}
	}
	a.changed(r, "route", rt.RouteID)
	a.reload(r)
	httputil.WriteJSON(w, http.StatusOK, RouteResponse{Route: rt})
}

func (a *AdminHandler) DeleteRoute(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeID")
	if err := a.store.DeleteRoute(r.Context(), routeID); err != nil {
		writeStoreError(w, r, err)
		return
	}
	a.changed(r, "route", routeID)
	a.reload(r)
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Success: true})
}

func (a *AdminHandler) applyPolicy(w http.ResponseWriter, r *http.Request, routeID string, req *PolicyRequest) bool {
	secType := domain.SecurityType(req.SecurityType)
	if !secType.Valid() {
		httputil.WriteError(w, r, http.StatusBadRequest, gwerrors.CodeBadRequest, "unknown security_type")
		return false
	}
	p := &domain.RoutePolicy{
		RouteID:                routeID,
		SecurityType:           secType,
		TokenEndpoint:          req.TokenEndpoint,
		ClientID:               req.ClientID,
		ClientSecret:           req.ClientSecret,
		Scope:                  req.Scope,
		TokenExpirationSeconds: req.TokenExpirationSeconds,
	}
	if err := a.store.UpsertPolicy(r.Context(), p); err != nil {
		writeStoreError(w, r, err)
		return false
	}
	return true
}

func (a *AdminHandler) UpsertPolicy(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeID")
	if _, err := a.store.GetRoute(r.Context(), routeID); err != nil {
		writeStoreError(w, r, err)
		return
	}
	var req PolicyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !a.applyPolicy(w, r, routeID, &req) {
		return
	}
	a.changed(r, "policy", routeID)
	a.reload(r)
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Success: true})
}

func (a *AdminHandler) DeletePolicy(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeID")
	if err := a.store.DeletePolicy(r.Context(), routeID); err != nil {
		writeStoreError(w, r, err)
		return
	}
	a.changed(r, "policy", routeID)
	a.reload(r)
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Success: true})
}

// --- clusters ---

func (a *AdminHandler) ListClusters(w http.ResponseWriter, r *http.Request) {
	clusters, err := a.store.ListClusters(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, clusters)
}

func (a *AdminHandler) GetCluster(w http.ResponseWriter, r *http.Request) {
	c, err := a.store.GetCluster(r.Context(), chi.URLParam(r, "clusterID"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (a *AdminHandler) CreateCluster(w http.ResponseWriter, r *http.Request) {
	var req ClusterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ClusterID == "" || req.Destination == "" {
		httputil.WriteError(w, r, http.StatusBadRequest, gwerrors.CodeBadRequest, "cluster_id and destination are required")
		return
	}
	c := &domain.Cluster{ClusterID: req.ClusterID, Destination: req.Destination, IsActive: req.IsActive}
	if err := a.store.CreateCluster(r.Context(), c); err != nil {
		writeStoreError(w, r, err)
		return
	}
	a.changed(r, "cluster", c.ClusterID)
	a.reload(r)
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (a *AdminHandler) UpdateCluster(w http.ResponseWriter, r *http.Request) {
	var req ClusterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c := &domain.Cluster{
		ClusterID:   chi.URLParam(r, "clusterID"),
		Destination: req.Destination,
		IsActive:    req.IsActive,
	}
	if err := a.store.UpdateCluster(r.Context(), c); err != nil {
		writeStoreError(w, r, err)
		return
	}
	a.changed(r, "cluster", c.ClusterID)
	a.reload(r)
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (a *AdminHandler) DeleteCluster(w http.ResponseWriter, r *http.Request) {
	clusterID := chi.URLParam(r, "clusterID")
	if err := a.store.DeleteCluster(r.Context(), clusterID); err != nil {
		writeStoreError(w, r, err)
		return
	}
	a.changed(r, "cluster", clusterID)
	a.reload(r)
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Success: true})
}

// --- users ---

func (a *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.store.ListUsers(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

func (a *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httputil.WriteError(w, r, http.StatusBadRequest, gwerrors.CodeBadRequest, "invalid user id")
		return
	}
	u, err := a.store.GetUser(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (a *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" {
		httputil.WriteError(w, r, http.StatusBadRequest, gwerrors.CodeBadRequest, "username is required")
		return
	}
	email := req.Email
	if email == "" {
		email = req.Username
	}
	u := &domain.User{Username: req.Username, Email: email, IsEnabled: req.IsEnabled, Passkey: req.Passkey}
	if err := a.store.CreateUser(r.Context(), u); err != nil {
		writeStoreError(w, r, err)
		return
	}
	a.changed(r, "user", strconv.FormatInt(u.ID, 10))
	httputil.WriteJSON(w, http.StatusCreated, u)
}

func (a *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httputil.WriteError(w, r, http.StatusBadRequest, gwerrors.CodeBadRequest, "invalid user id")
		return
	}
	var req UserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	u, err := a.store.GetUser(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if req.Email != "" {
		u.Email = req.Email
	}
	u.IsEnabled = req.IsEnabled
	if req.Passkey != "" {
		u.Passkey = req.Passkey
	}
	if err := a.store.UpdateUser(r.Context(), u); err != nil {
		writeStoreError(w, r, err)
		return
	}
	a.changed(r, "user", strconv.FormatInt(u.ID, 10))
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (a *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httputil.WriteError(w, r, http.StatusBadRequest, gwerrors.CodeBadRequest, "invalid user id")
		return
	}
	if err := a.store.DeleteUser(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	a.changed(r, "user", strconv.FormatInt(id, 10))
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Success: true})
}

// --- sessions ---

func (a *AdminHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := a.store.ListSessions(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sessions)
}

func (a *AdminHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "sessionID"), 10, 64)
	if err != nil {
		httputil.WriteError(w, r, http.StatusBadRequest, gwerrors.CodeBadRequest, "invalid session id")
		return
	}
	if err := a.store.RevokeSession(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	a.metrics.SessionsRevokedTotal.Inc()
	a.audits.SessionRevoked(clientFromContext(r.Context()),
		strconv.FormatInt(id, 10), middleware.GetReqID(r.Context()))
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Success: true})
}

// --- clients ---

func (a *AdminHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := a.store.ListClients(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, clients)
}

func (a *AdminHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ClientID == "" || req.ClientSecret == "" {
		httputil.WriteError(w, r, http.StatusBadRequest, gwerrors.CodeBadRequest, "client_id and client_secret are required")
		return
	}
	c := &domain.ClientCredential{
		ClientID:         req.ClientID,
		ClientSecretHash: security.HashSecret(req.ClientSecret),
		Description:      req.Description,
		IsEnabled:        req.IsEnabled,
	}
	if err := a.store.CreateClient(r.Context(), c); err != nil {
		writeStoreError(w, r, err)
		return
	}
	a.changed(r, "client", c.ClientID)
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (a *AdminHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := a.store.GetClient(r.Context(), chi.URLParam(r, "clientID"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if req.ClientSecret != "" {
		c.ClientSecretHash = security.HashSecret(req.ClientSecret)
	}
	if req.Description != "" {
		c.Description = req.Description
	}
	c.IsEnabled = req.IsEnabled
	if err := a.store.UpdateClient(r.Context(), c); err != nil {
		writeStoreError(w, r, err)
		return
	}
	a.changed(r, "client", c.ClientID)
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (a *AdminHandler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	if err := a.store.DeleteClient(r.Context(), clientID); err != nil {
		writeStoreError(w, r, err)
		return
	}
	a.changed(r, "client", clientID)
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Success: true})
}
