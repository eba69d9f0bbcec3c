package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	corecfg "github.com/netzet-lab/klaviyo-bridge/internal/core/config"
	"github.com/netzet-lab/klaviyo-bridge/internal/core/storage/postgres"
	"github.com/netzet-lab/klaviyo-bridge/internal/ingestion"
	"github.com/netzet-lab/klaviyo-bridge/internal/klaviyo"
	"github.com/netzet-lab/klaviyo-bridge/internal/migrations"
	"github.com/netzet-lab/klaviyo-bridge/internal/reporting"
	"github.com/netzet-lab/klaviyo-bridge/internal/retention"
	"github.com/netzet-lab/klaviyo-bridge/internal/server"
)

func main() {
	configPath := flag.String("config", "bridge.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Info("Loaded config", "server", cfg.Server, "database_type", cfg.Database.Type)

	// 2. Initialize Storage (PostgreSQL)
	dbAdapter, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		logger,
	)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbAdapter.Close()

	// 2.1. Run Database Migrations
	if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
		logger.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// 3. Initialize Provider Client
	timeout, err := cfg.Klaviyo.EffectiveTimeout()
	if err != nil {
		logger.Error("Invalid klaviyo.timeout", "value", cfg.Klaviyo.Timeout, "error", err)
		os.Exit(1)
	}
	delay, err := cfg.Klaviyo.EffectiveRateLimitDelay()
	if err != nil {
		logger.Error("Invalid klaviyo.rate_limit_delay", "value", cfg.Klaviyo.RateLimitDelay, "error", err)
		os.Exit(1)
	}
	client := klaviyo.NewClient(klaviyo.Config{
		BaseURL:  cfg.Klaviyo.BaseURL,
		APIKey:   cfg.Klaviyo.APIKey,
		Revision: cfg.Klaviyo.Revision,
		Timeout:  timeout,
		PageSize: cfg.Klaviyo.PageSize,
	}, klaviyo.NewFixedDelayPacer(delay), logger)

	// 4. Initialize Services
	ingestionSvc := ingestion.NewService(dbAdapter, client, cfg.Server.MaxBodySizeMB, logger)
	reportingSvc := reporting.NewService(client, logger)

	// 5. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), dbAdapter.DB(), cfg.Server.Mode, logger)
	ingestionSvc.RegisterRoutes(srv.Engine)
	reportingSvc.RegisterRoutes(srv.Engine)

	// 6. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Retention.Enabled {
		maxAge, err := cfg.Retention.EffectiveMaxAge()
		if err != nil {
			logger.Error("Invalid retention.max_age", "value", cfg.Retention.MaxAge, "error", err)
			os.Exit(1)
		}
		purger := retention.NewPurger(dbAdapter, cfg.Retention.Schedule, maxAge, logger)
		if err := purger.Start(ctx); err != nil {
			logger.Error("Failed to start retention purger", "error", err)
			os.Exit(1)
		}
		defer purger.Stop()
	} else {
		logger.Info("Retention purger disabled by config")
	}

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		logger.Error("Server stopped with error", "error", err)
	}

	logger.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
