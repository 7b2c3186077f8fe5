package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Listing outcomes, used as the outcome label.
const (
	ListOutcomeOK          = "ok"
	ListOutcomeInvalid     = "invalid_limit"
	ListOutcomeUnavailable = "unavailable"
	ListOutcomeFailed      = "failed"
	ListOutcomeCanceled    = "canceled"
)

var (
	listRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animals_list_requests_total",
			Help: "Total number of animal listing requests by outcome.",
		},
		[]string{"outcome"},
	)
	listRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "animals_list_rows_returned",
			Help:    "Rows returned per successful listing request.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)
	listQueryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "animals_list_query_duration_seconds",
			Help:    "Store query latency for animal listing requests.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.2, 0.5, 1, 1.5, 2.5, 5},
		},
	)
)

func init() {
	prometheus.MustRegister(listRequestsTotal, listRowsReturned, listQueryDurationSeconds)
}

// ObserveListing records a listing request. rows is ignored unless the outcome
// is ListOutcomeOK; elapsed is zero when the store was never queried.
func ObserveListing(outcome string, rows int, elapsed time.Duration) {
	listRequestsTotal.WithLabelValues(outcome).Inc()
	if outcome == ListOutcomeOK {
		listRowsReturned.Observe(float64(rows))
	}
	if elapsed > 0 {
		listQueryDurationSeconds.Observe(elapsed.Seconds())
	}
}
