package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shelterlist/animals/internal/animals"
	"github.com/shelterlist/animals/internal/config"
	"github.com/shelterlist/animals/internal/observability"
)

// listing describes one public shape of the animals listing.
type listing struct {
	// envelope is the response key holding the rows.
	envelope string
	// legacyStatus lets the route answer 200 on failure when configured.
	legacyStatus bool
}

// statusClientClosedRequest is the nginx convention for a request the client
// abandoned before the response was written.
const statusClientClosedRequest = 499

var (
	expressListing = listing{envelope: "data", legacyStatus: true}
	goListing      = listing{envelope: "animals"}
)

func handleListAnimals(cfg config.ListingConfig, deps Dependencies, shape listing, w http.ResponseWriter, r *http.Request) {
	fail := func(status int, code, message string, retryable bool) {
		if shape.legacyStatus && cfg.LegacyErrorStatus {
			status = http.StatusOK
		}
		writeError(r.Context(), w, status, code, message, retryable)
	}

	if deps.Animals == nil {
		fail(http.StatusNotImplemented, "NOT_CONFIGURED", "animals store is not configured", false)
		return
	}

	limit, err := animals.ParseLimit(r.URL.Query().Get("limit"), cfg.DefaultLimit, cfg.MaxLimit)
	if err != nil {
		observability.ObserveListing(observability.ListOutcomeInvalid, 0, 0)
		fail(http.StatusBadRequest, "INVALID_LIMIT", "limit must be a non-negative integer", false)
		return
	}

	start := time.Now()
	rows, err := deps.Animals.ListAnimals(r.Context(), animals.ListRequest{Limit: limit})
	elapsed := time.Since(start)
	if err != nil && errors.Is(err, context.Canceled) {
		observability.ObserveListing(observability.ListOutcomeCanceled, 0, elapsed)
		if deps.Logger != nil {
			deps.Logger.DebugContext(r.Context(), "list animals canceled by client",
				slog.String("trace_id", observability.TraceIDFromContext(r.Context())),
				slog.Int("limit", limit),
			)
		}
		writeError(r.Context(), w, statusClientClosedRequest, "REQUEST_CANCELED", "request canceled by client", false)
		return
	}
	if err != nil {
		unavailable := errors.Is(err, animals.ErrUnavailable)
		if deps.Logger != nil {
			deps.Logger.ErrorContext(r.Context(), "list animals failed",
				slog.String("trace_id", observability.TraceIDFromContext(r.Context())),
				slog.Int("limit", limit),
				slog.Bool("unavailable", unavailable),
				slog.String("error", err.Error()),
			)
		}
		if unavailable {
			observability.ObserveListing(observability.ListOutcomeUnavailable, 0, elapsed)
			fail(http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", "animals database is unavailable", true)
			return
		}
		observability.ObserveListing(observability.ListOutcomeFailed, 0, elapsed)
		fail(http.StatusInternalServerError, "QUERY_FAILED", "failed to list animals", false)
		return
	}
	if rows == nil {
		rows = []animals.Row{}
	}

	observability.ObserveListing(observability.ListOutcomeOK, len(rows), elapsed)
	writeJSON(w, http.StatusOK, map[string]any{shape.envelope: rows})
}

func handleDebug(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.PoolStats == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "NOT_CONFIGURED", "database pool is not configured", false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"db_stats": deps.PoolStats.Stats()})
}
