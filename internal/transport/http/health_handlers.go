package http

import (
	"net/http"

	"github.com/your-org/gateway/internal/service/broker"
	"github.com/your-org/gateway/internal/service/proxycfg"
	"github.com/your-org/gateway/internal/store"
	"github.com/your-org/gateway/pkg/httputil"
)

// CheckResult is one dependency's health verdict.
type CheckResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse is the readiness body.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version int64                  `json:"config_version"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

// HealthHandler serves liveness and readiness.
type HealthHandler struct {
	store    *store.Store
	cache    *broker.TokenCache
	provider *proxycfg.Provider
}

// NewHealthHandler creates the health handler.
func NewHealthHandler(st *store.Store, cache *broker.TokenCache, provider *proxycfg.Provider) *HealthHandler {
	return &HealthHandler{store: st, cache: cache, provider: provider}
}

// Health is liveness: the process is up and serving.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready checks the dependencies the gateway cannot serve without. The
// token cache is advisory: an unhealthy cache degrades to the store, so
// it reports but never fails readiness.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]CheckResult{}
	status := http.StatusOK
	overall := "ready"

	if err := h.store.Ping(r.Context()); err != nil {
		checks["database"] = CheckResult{Status: "down", Error: err.Error()}
		status = http.StatusServiceUnavailable
		overall = "not ready"
	} else {
		checks["database"] = CheckResult{Status: "up"}
	}

	if h.cache.Healthy(r.Context()) {
		checks["token_cache"] = CheckResult{Status: "up"}
	} else {
		checks["token_cache"] = CheckResult{Status: "degraded"}
	}

	httputil.WriteJSON(w, status, HealthResponse{
		Status:  overall,
		Version: h.provider.Current().Version,
		Checks:  checks,
	})
}
