package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/shelterlist/animals/internal/loadgen"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to read .env", slog.Any("error", err))
		os.Exit(1)
	}
	cfg, err := loadgen.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error("failed to load load generator config", slog.Any("error", err))
		os.Exit(1)
	}

	requests := flag.Int("n", cfg.Requests, "total requests")
	workers := flag.Int("c", cfg.Workers, "concurrent workers")
	route := flag.String("route", string(cfg.Route), "listing route: express or go")
	flag.Parse()
	cfg.Requests = *requests
	cfg.Workers = *workers
	cfg.Route = loadgen.Route(*route)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	service, err := loadgen.NewService(cfg, logger, nil)
	if err != nil {
		logger.Error("failed to initialize load generator", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("load run started",
		slog.String("url", cfg.BaseURL),
		slog.String("route", string(cfg.Route)),
		slog.Int("requests", cfg.Requests),
		slog.Int("workers", cfg.Workers),
		slog.Int("max_limit", cfg.MaxLimit),
	)
	report, err := service.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("load run failed", slog.Any("error", err))
		os.Exit(1)
	}

	fmt.Printf("requests:      %d\n", report.Requests)
	fmt.Printf("succeeded:     %d\n", report.Succeeded)
	fmt.Printf("errors:        %d\n", report.Errors)
	fmt.Printf("bad responses: %d\n", report.BadResponses)
	fmt.Printf("rows:          %d\n", report.Rows)
	fmt.Printf("elapsed:       %s\n", report.Elapsed)
	fmt.Printf("rps:           %.1f\n", report.RPS())
	for _, name := range loadgen.BucketNames {
		fmt.Printf("  %-16s %d\n", name, report.Buckets[name])
	}
	if report.Errors > 0 || report.BadResponses > 0 {
		os.Exit(1)
	}
}
