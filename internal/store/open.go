// Package store opens the animals database selected by configuration.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shelterlist/animals/internal/config"
	"github.com/shelterlist/animals/internal/store/duckdb"
	"github.com/shelterlist/animals/internal/store/postgres"
	"github.com/shelterlist/animals/internal/store/sqlstore"
)

// Open connects to the configured driver and wraps the pool in a repository.
// An unreachable database is an error. The caller owns the returned *sql.DB.
func Open(ctx context.Context, cfg config.Config) (*sql.DB, *sqlstore.Repository, error) {
	return open(ctx, cfg, true)
}

// Connect is Open without the startup ping for network drivers, so a server
// can come up while postgres is down and report it per request.
func Connect(ctx context.Context, cfg config.Config) (*sql.DB, *sqlstore.Repository, error) {
	return open(ctx, cfg, false)
}

// CheckWritable rejects configurations where rows written by a loader would
// not persist.
func CheckWritable(cfg config.Config) error {
	if cfg.Database.Driver != config.DriverDuckDB {
		return nil
	}
	if strings.TrimSpace(cfg.Database.DuckDBParquet) != "" {
		return fmt.Errorf("duckdb table %q is a read-only parquet view; unset ANIMALS_DUCKDB_PARQUET to load rows", cfg.Listing.Table)
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return fmt.Errorf("duckdb in-memory database would discard loaded rows; set DATABASE_URL to a file path")
	}
	return nil
}

func open(ctx context.Context, cfg config.Config, ping bool) (*sql.DB, *sqlstore.Repository, error) {
	opts := sqlstore.Options{Table: cfg.Listing.Table, QueryTimeout: cfg.Database.QueryTimeout}

	var (
		db   *sql.DB
		repo *sqlstore.Repository
		err  error
	)
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pgCfg := postgres.DBConfig{
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		}
		if ping {
			db, err = postgres.Open(ctx, pgCfg)
		} else {
			db, err = postgres.Connect(pgCfg)
		}
		if err != nil {
			return nil, nil, err
		}
		repo, err = postgres.NewRepository(db, opts)
	case config.DriverDuckDB:
		// duckdb is embedded; open always touches the file and builds the parquet view.
		db, err = duckdb.Open(ctx, duckdb.DBConfig{
			Path:         cfg.Database.DSN,
			ParquetPath:  cfg.Database.DuckDBParquet,
			Table:        cfg.Listing.Table,
			MaxOpenConns: cfg.Database.MaxOpenConns,
		})
		if err != nil {
			return nil, nil, err
		}
		repo, err = duckdb.NewRepository(db, opts)
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, repo, nil
}
