// Package animals holds the listing rules shared by the HTTP layer and the
// stores: limit parsing, the row shape and the errors stores report.
package animals

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidLimit = errors.New("invalid limit")
	ErrUnavailable  = errors.New("database unavailable")
	ErrDuplicate    = errors.New("duplicate record")
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Row is one result row keyed by column name. Its shape is whatever the
// table has at query time.
type Row map[string]any

type ListRequest struct {
	Limit int
}

type Lister interface {
	ListAnimals(ctx context.Context, request ListRequest) ([]Row, error)
}

// ParseLimit turns the raw limit query parameter into a row count.
// Empty and zero select defaultLimit, values above maxLimit are clamped.
// Anything that is not a plain decimal number is rejected.
func ParseLimit(raw string, defaultLimit, maxLimit int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultLimit, nil
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q is not a non-negative integer", ErrInvalidLimit, raw)
		}
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		// only digits reach here, so this is an overflow
		return maxLimit, nil
	}
	if limit == 0 {
		return defaultLimit, nil
	}
	if maxLimit > 0 && limit > maxLimit {
		return maxLimit, nil
	}
	return limit, nil
}

func ValidIdentifier(value string) bool {
	return identifierPattern.MatchString(value)
}

// NormalizeRow makes driver values JSON friendly: byte slices become
// strings and timestamps are reported in UTC.
func NormalizeRow(row Row) Row {
	for key, value := range row {
		switch typed := value.(type) {
		case []byte:
			row[key] = string(typed)
		case time.Time:
			row[key] = typed.UTC()
		}
	}
	return row
}
