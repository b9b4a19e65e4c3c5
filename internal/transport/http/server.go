// Package http wires the gateway's HTTP surface: the browser-facing
// auth endpoints, the admin API, health and metrics, and the proxy
// catch-all that forwards everything else.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/gateway/internal/config"
	"github.com/your-org/gateway/internal/service/audit"
	"github.com/your-org/gateway/internal/service/broker"
	"github.com/your-org/gateway/internal/service/metrics"
	"github.com/your-org/gateway/internal/service/oauth"
	"github.com/your-org/gateway/internal/service/proxycfg"
	"github.com/your-org/gateway/internal/service/session"
	"github.com/your-org/gateway/internal/service/user"
	"github.com/your-org/gateway/internal/store"
	"github.com/your-org/gateway/pkg/logger"
)

// Server is the gateway's single HTTP listener.
type Server struct {
	httpServer *http.Server
	cfg        config.ServerConfig
}

// Deps carries the services the server composes.
type Deps struct {
	Store    *store.Store
	Agent    *oauth.Agent
	Sessions *session.Manager
	Cookies  *session.CookieCodec
	Users    *user.Service
	Broker   *broker.Broker
	Cache    *broker.TokenCache
	Provider *proxycfg.Provider
	Audits   *audit.Service
}

// NewServer builds the router and the listener.
func NewServer(cfg *config.Config, deps Deps) *Server {
	handler := NewHandler(deps.Agent, deps.Sessions, deps.Cookies, deps.Users, deps.Audits)
	admin := NewAdminHandler(deps.Store, deps.Provider, deps.Audits)
	health := NewHealthHandler(deps.Store, deps.Cache, deps.Provider)
	forwarder := NewForwarder(deps.Provider, deps.Broker)

	allowPrefixes := []string{"/oauth", "/health", "/ready", "/admin"}
	if cfg.Metrics.Enabled {
		allowPrefixes = append(allowPrefixes, cfg.Metrics.Path)
	}
	gate := NewSessionGate(deps.Sessions, deps.Cookies, allowPrefixes)

	router := chi.NewRouter()

	// Middleware stack (order matters)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(logger.CorrelationIDMiddleware)
	if len(cfg.CORS.AllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           cfg.CORS.MaxAge,
		}))
	}
	router.Use(metrics.Middleware(metrics.Default))
	router.Use(requestLogger)
	router.Use(gate.Middleware)

	// Auth surface
	router.Route("/oauth", func(r chi.Router) {
		r.Post("/login/start", handler.LoginStart)
		r.Get("/callback", handler.Callback)
		r.Post("/login/end", handler.LoginEnd)
		r.Get("/isloggedin", handler.IsLoggedIn)
		r.Post("/logout", handler.Logout)
	})

	// Health and metrics
	router.Get("/health", health.Health)
	router.Get("/ready", health.Ready)
	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, promhttp.Handler())
	}

	// Admin surface (basic auth inside)
	router.Route("/admin", admin.Routes)

	// Everything else is proxied
	router.Handle("/*", forwarder)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		cfg: cfg.Server,
	}
}

// Handler exposes the composed router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	logger.Info("starting HTTP server", logger.String("addr", s.cfg.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// requestLogger logs one line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("http request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", ww.Status()),
			logger.Int("bytes", ww.BytesWritten()),
			logger.Duration("duration", time.Since(start)),
			logger.String("remote_addr", r.RemoteAddr),
			logger.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
