package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/your-org/gateway/internal/app"
	"github.com/your-org/gateway/internal/config"
	"github.com/your-org/gateway/internal/help"
	"github.com/your-org/gateway/pkg/logger"
)

var (
	// Version is set during build
	Version = "dev"
	// BuildTime is set during build
	BuildTime = "unknown"
	// GitCommit is set during build
	GitCommit = "unknown"
)

func helpGenerator() *help.Generator {
	gen := help.NewGenerator(help.AppInfo{
		Name:        "gateway",
		Description: "OAuth token-handler reverse proxy with a DB-driven routing table",
		Version:     Version,
		BuildTime:   BuildTime,
		GitCommit:   GitCommit,
		DocsURL:     "https://github.com/your-org/gateway",
	}, "GATEWAY")
	gen.ExtractEnvVars(config.Config{})
	return gen
}

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	showHelpEnv := flag.Bool("help-env", false, "Show environment variables documentation")
	flag.Usage = func() {
		fmt.Print(helpGenerator().PrintExtendedHelp())
	}
	flag.Parse()

	if *showVersion {
		fmt.Print(helpGenerator().PrintVersion())
		os.Exit(0)
	}
	if *showHelpEnv {
		fmt.Print(helpGenerator().PrintEnvVars())
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting gateway",
		logger.String("version", Version),
		logger.String("commit", GitCommit),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(cfg, app.WithBuildInfo(app.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	}))
	if err != nil {
		logger.Fatal("failed to create application", logger.Err(err))
	}

	if err := a.Initialize(ctx); err != nil {
		logger.Fatal("failed to initialize application", logger.Err(err))
	}

	if err := a.Start(); err != nil {
		logger.Fatal("failed to start application", logger.Err(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", logger.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := a.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during shutdown", logger.Err(err))
	}

	logger.Info("gateway stopped")
}
