package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/shelterlist/animals/internal/animals"
	"github.com/shelterlist/animals/internal/store/sqlstore"
)

var Dialect = sqlstore.Dialect{DriverName: "duckdb", Placeholder: squirrel.Question}

// DBConfig opens a DuckDB database file, or an in-memory database when Path
// is empty. With ParquetPath set, Table is created as a view over that file.
type DBConfig struct {
	Path         string
	ParquetPath  string
	Table        string
	MaxOpenConns int
}

func Open(ctx context.Context, cfg DBConfig) (*sql.DB, error) {
	db, err := sql.Open("duckdb", strings.TrimSpace(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	if parquetPath := strings.TrimSpace(cfg.ParquetPath); parquetPath != "" {
		table := cfg.Table
		if table == "" {
			table = "animals"
		}
		if !animals.ValidIdentifier(table) {
			_ = db.Close()
			return nil, fmt.Errorf("invalid table name %q", table)
		}
		viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)`, quoteIdent(table), quoteString(parquetPath))
		if _, err := db.ExecContext(ctx, viewSQL); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create view %q over parquet: %w", table, err)
		}
	}

	return db, nil
}

func NewRepository(db *sql.DB, opts sqlstore.Options) (*sqlstore.Repository, error) {
	return sqlstore.NewRepository(db, Dialect, opts)
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
