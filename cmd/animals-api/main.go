package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shelterlist/animals/internal/api"
	"github.com/shelterlist/animals/internal/auth"
	"github.com/shelterlist/animals/internal/config"
	"github.com/shelterlist/animals/internal/observability"
	"github.com/shelterlist/animals/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to read .env", slog.Any("error", err))
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv("animals-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	db, repo, err := store.Connect(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to open animals db",
			slog.String("driver", cfg.Database.Driver),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := repo.HealthCheck(pingCtx); err != nil {
		logger.Warn("animals db not reachable at startup; serving until it recovers",
			slog.String("driver", cfg.Database.Driver),
			slog.Any("error", err),
		)
	}
	cancelPing()

	if err := observability.RegisterDBStats(prometheus.DefaultRegisterer, db, cfg.Listing.Table); err != nil {
		logger.Warn("db stats collector not registered", slog.Any("error", err))
	}

	deps := api.Dependencies{
		Logger:    logger,
		Animals:   repo,
		PoolStats: repo,
		Readiness: api.CombineReadinessChecks(
			api.CheckDatabaseDSN(cfg),
			api.CheckStore(repo),
		),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	listener, err := net.Listen("tcp", cfg.HTTP.Address)
	if err != nil {
		logger.Error("failed to bind api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.Any("error", err),
		)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("animals api listening",
			slog.String("addr", listener.Addr().String()),
			slog.String("driver", cfg.Database.Driver),
			slog.Bool("legacy_error_status", cfg.Listing.LegacyErrorStatus),
		)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
