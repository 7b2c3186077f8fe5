package observability

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animals_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "animals_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDurationSeconds)
}

// RegisterDBStats exports the pool statistics of db under the given name.
// Registering the same name twice is not an error.
func RegisterDBStats(registerer prometheus.Registerer, db *sql.DB, name string) error {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if db == nil {
		return errors.New("db is required")
	}
	err := registerer.Register(collectors.NewDBStatsCollector(db, name))
	if err == nil {
		return nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return nil
	}
	return fmt.Errorf("register db stats collector %q: %w", name, err)
}
