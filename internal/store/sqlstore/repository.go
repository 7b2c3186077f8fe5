package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/shelterlist/animals/internal/animals"
)

// Dialect binds a database/sql driver name to its placeholder style.
type Dialect struct {
	DriverName  string
	Placeholder squirrel.PlaceholderFormat
}

type Options struct {
	Table        string
	QueryTimeout time.Duration
}

type Repository struct {
	db           *sqlx.DB
	table        string
	placeholder  squirrel.PlaceholderFormat
	queryTimeout time.Duration
}

func NewRepository(db *sql.DB, dialect Dialect, opts Options) (*Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	table := strings.TrimSpace(opts.Table)
	if table == "" {
		table = "animals"
	}
	if !animals.ValidIdentifier(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	placeholder := dialect.Placeholder
	if placeholder == nil {
		placeholder = squirrel.Question
	}
	return &Repository{
		db:           sqlx.NewDb(db, dialect.DriverName),
		table:        table,
		placeholder:  placeholder,
		queryTimeout: opts.QueryTimeout,
	}, nil
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping animals db: %w", err)
	}
	return nil
}

func (r *Repository) Stats() sql.DBStats {
	return r.db.Stats()
}

// ListAnimals runs SELECT * FROM <table> LIMIT <n> with the limit bound as a
// query parameter.
func (r *Repository) ListAnimals(ctx context.Context, request animals.ListRequest) ([]animals.Row, error) {
	if request.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be > 0", animals.ErrInvalidLimit)
	}

	query, args, err := squirrel.Select("*").
		From(r.table).
		Suffix("LIMIT ?", request.Limit).
		PlaceholderFormat(r.placeholder).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, classify(ctx, "list animals", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]animals.Row, 0, request.Limit)
	for rows.Next() {
		row := animals.Row{}
		if err := rows.MapScan(row); err != nil {
			return nil, classify(ctx, "scan animal row", err)
		}
		result = append(result, animals.NormalizeRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, classify(ctx, "iterate animal rows", err)
	}
	return result, nil
}

// Insert writes one record given as column values. A unique violation is
// reported as animals.ErrDuplicate.
func (r *Repository) Insert(ctx context.Context, table string, columns map[string]any) error {
	if !animals.ValidIdentifier(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	if len(columns) == 0 {
		return fmt.Errorf("insert into %s: no columns", table)
	}

	query, args, err := squirrel.Insert(table).
		SetMap(columns).
		PlaceholderFormat(r.placeholder).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert into %s: %w", table, err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("insert into %s: %w: %w", table, animals.ErrDuplicate, err)
		}
		return classify(ctx, "insert into "+table, err)
	}
	return nil
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.queryTimeout)
}

// classify tags connectivity failures and expired query deadlines with
// animals.ErrUnavailable. Caller cancellations are passed through untagged.
func classify(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, animals.ErrUnavailable, ctx.Err())
	}
	if isConnectivity(err) {
		return fmt.Errorf("%s: %w: %w", op, animals.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isConnectivity(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func isDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate key")
}
