package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shelterlist/animals/internal/config"
	"github.com/shelterlist/animals/internal/etl"
	"github.com/shelterlist/animals/internal/observability"
	"github.com/shelterlist/animals/internal/storage"
	s3store "github.com/shelterlist/animals/internal/storage/s3"
	"github.com/shelterlist/animals/internal/store"
)

func main() {
	archive := flag.String("archive", "", "copy local exports to this object store prefix before loading")
	autoCreateBucket := flag.Bool("auto-create-bucket", false, "create the object store bucket when missing")
	flag.Usage = func() {
		_, _ = fmt.Fprintln(flag.CommandLine.Output(), "usage: animals-etl [flags] <export.csv|export.parquet|s3://key|s3://prefix/>...")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to read .env", slog.Any("error", err))
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv("animals-etl")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)
	if err := store.CheckWritable(cfg); err != nil {
		logger.Error("animals db cannot accept loaded rows", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var objects storage.ObjectStore
	if needsObjectStore(flag.Args(), *archive) {
		objectStore, err := s3store.New(ctx, s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: *autoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		objects = objectStore
	}

	db, repo, err := store.Open(ctx, cfg)
	if err != nil {
		logger.Error("failed to open animals db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	loader, err := etl.NewLoader(repo, logger)
	if err != nil {
		logger.Error("failed to initialize loader", slog.Any("error", err))
		os.Exit(1)
	}

	var total etl.Summary
	for _, arg := range flag.Args() {
		if *archive != "" && !etl.IsObjectLocation(arg) {
			info, err := etl.Archive(ctx, arg, *archive, time.Now(), objects)
			if err != nil {
				logger.Error("archive failed", slog.String("source", arg), slog.Any("error", err))
				os.Exit(1)
			}
			logger.Info("export archived", slog.String("source", arg), slog.String("key", info.Key), slog.Int64("size", info.Size))
		}

		locations, err := etl.ListSources(ctx, arg, objects)
		if err != nil {
			logger.Error("failed to list sources", slog.String("source", arg), slog.Any("error", err))
			os.Exit(1)
		}
		for _, location := range locations {
			summary, err := loadOne(ctx, loader, location, objects)
			total = total.Add(summary)
			logger.Info("export loaded",
				slog.String("source", location),
				slog.Int("read", summary.Read),
				slog.Int("inserted", summary.Inserted),
				slog.Int("duplicates", summary.Duplicates),
			)
			if err != nil {
				logger.Error("load failed", slog.String("source", location), slog.Any("error", err))
				os.Exit(1)
			}
		}
	}

	logger.Info("etl finished",
		slog.Int("read", total.Read),
		slog.Int("inserted", total.Inserted),
		slog.Int("duplicates", total.Duplicates),
	)
}

func loadOne(ctx context.Context, loader *etl.Loader, location string, objects storage.ObjectStore) (etl.Summary, error) {
	source, err := etl.OpenSource(ctx, location, objects)
	if err != nil {
		return etl.Summary{}, err
	}
	defer func() { _ = source.Close() }()
	return loader.Load(ctx, source.Records)
}

func needsObjectStore(locations []string, archive string) bool {
	if strings.TrimSpace(archive) != "" {
		return true
	}
	for _, location := range locations {
		if etl.IsObjectLocation(location) {
			return true
		}
	}
	return false
}
