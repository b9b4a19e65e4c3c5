// Package app wires the gateway's services together and manages their
// lifecycle: construction order, startup, and graceful shutdown.
package app

import (
	"context"
	"fmt"

	"github.com/your-org/gateway/internal/config"
	"github.com/your-org/gateway/internal/service/audit"
	"github.com/your-org/gateway/internal/service/broker"
	"github.com/your-org/gateway/internal/service/crypto"
	"github.com/your-org/gateway/internal/service/discovery"
	"github.com/your-org/gateway/internal/service/jwt"
	"github.com/your-org/gateway/internal/service/oauth"
	"github.com/your-org/gateway/internal/service/proxycfg"
	"github.com/your-org/gateway/internal/service/session"
	"github.com/your-org/gateway/internal/service/user"
	"github.com/your-org/gateway/internal/store"
	httpTransport "github.com/your-org/gateway/internal/transport/http"
	"github.com/your-org/gateway/pkg/logger"
)

// BuildInfo holds application build information.
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// App owns every service of the gateway.
type App struct {
	cfg       *config.Config
	buildInfo BuildInfo

	store      *store.Store
	tokenCache *broker.TokenCache
	provider   *proxycfg.Provider
	sweeper    *session.Sweeper
	server     *httpTransport.Server

	sweepCancel context.CancelFunc
}

// Option is a functional option for configuring the App.
type Option func(*App)

// WithBuildInfo sets the build information.
func WithBuildInfo(info BuildInfo) Option {
	return func(a *App) {
		a.buildInfo = info
	}
}

// New creates an App for the given configuration.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	app := &App{
		cfg: cfg,
		buildInfo: BuildInfo{
			Version:   "dev",
			BuildTime: "unknown",
			GitCommit: "unknown",
		},
	}
	for _, opt := range opts {
		opt(app)
	}
	return app, nil
}

// Initialize constructs all services. The routing snapshot is loaded
// before the listener opens so the first request never races an empty
// table.
func (a *App) Initialize(ctx context.Context) error {
	st, err := store.Open(a.cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	a.store = st

	disco, err := discovery.New(a.cfg.OAuth, a.cfg.Discovery)
	if err != nil {
		return fmt.Errorf("failed to create discovery cache: %w", err)
	}
	jwtSvc := jwt.New(disco, a.cfg.OAuth.ClientID, a.cfg.OAuth.UsernameClaim, a.cfg.Broker.SigningKey)
	agent := oauth.New(disco, jwtSvc, a.cfg.OAuth)

	key, err := config.DecodeKey(a.cfg.Cookies.EncryptionKey)
	if err != nil {
		return fmt.Errorf("invalid cookie encryption key: %w", err)
	}
	protector, err := crypto.NewProtector(key)
	if err != nil {
		return fmt.Errorf("failed to create cookie protector: %w", err)
	}

	sessions := session.NewManager(st, a.cfg.Session)
	cookies := session.NewCookieCodec(protector, a.cfg.Cookies.TransientTTL, a.cfg.Session.AbsoluteTimeout)
	users := user.New(st)
	a.sweeper = session.NewSweeper(st, a.cfg.Session.CleanupInterval)

	a.tokenCache = broker.NewTokenCache(a.cfg.Redis)
	if err := a.tokenCache.Start(ctx); err != nil {
		return fmt.Errorf("failed to start token cache: %w", err)
	}
	tokenBroker := broker.New(st, a.tokenCache, jwtSvc, a.cfg.Broker)

	a.provider = proxycfg.NewProvider(st)
	if err := a.provider.Reload(ctx); err != nil {
		return fmt.Errorf("failed to load routing configuration: %w", err)
	}

	audits := audit.NewService(a.cfg.Audit)

	a.server = httpTransport.NewServer(a.cfg, httpTransport.Deps{
		Store:    st,
		Agent:    agent,
		Sessions: sessions,
		Cookies:  cookies,
		Users:    users,
		Broker:   tokenBroker,
		Cache:    a.tokenCache,
		Provider: a.provider,
		Audits:   audits,
	})

	logger.Info("application initialized",
		logger.String("version", a.buildInfo.Version),
		logger.String("commit", a.buildInfo.GitCommit),
		logger.Int("routes", len(a.provider.Current().Entries())),
	)
	return nil
}

// Start launches the HTTP server and the session sweeper.
func (a *App) Start() error {
	go func() {
		if err := a.server.Start(); err != nil {
			logger.Error("HTTP server error", logger.Err(err))
		}
	}()

	var sweepCtx context.Context
	sweepCtx, a.sweepCancel = context.WithCancel(context.Background())
	go a.sweeper.Run(sweepCtx)

	logger.Info("application started", logger.String("addr", a.cfg.Server.Addr))
	return nil
}

// Shutdown stops everything: listener first so no new work arrives,
// then the background services, then the store.
func (a *App) Shutdown(ctx context.Context) error {
	logger.Info("shutting down application")

	if a.sweepCancel != nil {
		a.sweepCancel()
	}

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown HTTP server", logger.Err(err))
		}
	}

	if a.tokenCache != nil {
		if err := a.tokenCache.Stop(); err != nil {
			logger.Error("failed to stop token cache", logger.Err(err))
		}
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Error("failed to close store", logger.Err(err))
		}
	}

	logger.Info("application shutdown complete")
	return nil
}

// Healthy reports whether the critical dependencies respond.
func (a *App) Healthy(ctx context.Context) bool {
	if a.store == nil || a.store.Ping(ctx) != nil {
		return false
	}
	return true
}
