// NILGuard - Decision lifecycle engine for NIL compliance
package main

import (
	"context"
	"os"

	"github.com/fairplayhq/nilguard/internal/config"
	"github.com/fairplayhq/nilguard/internal/logging"
	"github.com/fairplayhq/nilguard/internal/server"
	"github.com/fairplayhq/nilguard/internal/traces"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Create logger
	logger := logging.New("info", "text")

	logger.Info("starting nilguard",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"env", cfg.Env,
		"scoring_url", cfg.ScoringURL,
	)

	ctx := context.Background()

	// Tracing (no-op when OTEL_EXPORTER_OTLP_ENDPOINT is unset)
	shutdownTraces, err := traces.Init(ctx, cfg.OTLPEndpoint, logger)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTraces(context.Background()) }()

	// Create and run server
	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
