package etl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/shelterlist/animals/internal/animals"
)

// Inserter writes one row. Implementations report key conflicts by wrapping
// animals.ErrDuplicate.
type Inserter interface {
	Insert(ctx context.Context, table string, columns map[string]any) error
}

// Summary counts rows across both tables.
type Summary struct {
	Read       int
	Inserted   int
	Duplicates int
}

func (s Summary) Add(other Summary) Summary {
	return Summary{
		Read:       s.Read + other.Read,
		Inserted:   s.Inserted + other.Inserted,
		Duplicates: s.Duplicates + other.Duplicates,
	}
}

type Loader struct {
	inserter Inserter
	logger   *slog.Logger
}

func NewLoader(inserter Inserter, logger *slog.Logger) (*Loader, error) {
	if inserter == nil {
		return nil, errors.New("inserter is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{inserter: inserter, logger: logger}, nil
}

// Load inserts every record from reader. An animal seen in an earlier intake
// is a duplicate and is skipped, as is a repeated intake. Any other failure
// stops the load; the returned summary covers the work done until then.
func (l *Loader) Load(ctx context.Context, reader RecordReader) (Summary, error) {
	var summary Summary
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		record, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return summary, nil
		}
		if err != nil {
			return summary, fmt.Errorf("record %d: %w", summary.Read+1, err)
		}
		summary.Read++

		if err := l.insert(ctx, AnimalsTable, record.Animal.Columns(), &summary); err != nil {
			return summary, fmt.Errorf("record %d: %w", summary.Read, err)
		}
		if err := l.insert(ctx, IntakeTable, record.Intake.Columns(), &summary); err != nil {
			return summary, fmt.Errorf("record %d: %w", summary.Read, err)
		}
	}
}

func (l *Loader) insert(ctx context.Context, table string, columns map[string]any, summary *Summary) error {
	err := l.inserter.Insert(ctx, table, columns)
	switch {
	case err == nil:
		summary.Inserted++
		return nil
	case errors.Is(err, animals.ErrDuplicate):
		summary.Duplicates++
		l.logger.DebugContext(ctx, "duplicate row skipped",
			slog.String("table", table),
			slog.Int("record", summary.Read),
			slog.String("error", err.Error()),
		)
		return nil
	default:
		return fmt.Errorf("insert into %s: %w", table, err)
	}
}
