package loadgen

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestBucketFor(t *testing.T) {
	tests := map[time.Duration]string{
		0:                       "0_to_50ms",
		50 * time.Millisecond:   "0_to_50ms",
		51 * time.Millisecond:   "51_to_200ms",
		200 * time.Millisecond:  "51_to_200ms",
		350 * time.Millisecond:  "201_to_500ms",
		999 * time.Millisecond:  "501_to_1000ms",
		1500 * time.Millisecond: "1001_to_1500ms",
		1501 * time.Millisecond: "over_1500ms",
		30 * time.Second:        "over_1500ms",
	}
	for elapsed, want := range tests {
		if got := BucketFor(elapsed); got != want {
			t.Fatalf("BucketFor(%s) = %q, want %q", elapsed, got, want)
		}
	}
}

func TestRunCountsRowsAndBuckets(t *testing.T) {
	var maxSeen atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/express-animals" {
			http.NotFound(w, r)
			return
		}
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit < 1 || limit > 7 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if int64(limit) > maxSeen.Load() {
			maxSeen.Store(int64(limit))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"data":[%s]}`, strings.TrimSuffix(strings.Repeat(`{"id":"A"},`, limit), ","))
	}))
	defer server.Close()

	svc := newTestService(t, Config{BaseURL: server.URL, Route: RouteExpress, Requests: 40, Workers: 4, MaxLimit: 7, Seed: 1})
	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Requests != 40 || report.Succeeded != 40 {
		t.Fatalf("report = %+v", report)
	}
	if report.Errors != 0 || report.BadResponses != 0 {
		t.Fatalf("report = %+v", report)
	}
	if report.Rows < 40 || report.Rows > 40*7 {
		t.Fatalf("Rows = %d", report.Rows)
	}
	total := 0
	for _, name := range BucketNames {
		total += report.Buckets[name]
	}
	if total != 40 {
		t.Fatalf("bucket total = %d", total)
	}
	if report.RPS() <= 0 {
		t.Fatalf("RPS() = %f", report.RPS())
	}
}

func TestRunReadsGoEnvelopeAndSendsAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "k1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/v1/go-animals" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"animals":[{"id":"A1"}]}`))
	}))
	defer server.Close()

	svc := newTestService(t, Config{BaseURL: server.URL, Route: RouteGo, APIKey: "k1", Requests: 5, Workers: 2, MaxLimit: 3, Seed: 2})
	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Succeeded != 5 || report.Rows != 5 {
		t.Fatalf("report = %+v", report)
	}
}

func TestRunClassifiesFailures(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) % 4 {
		case 0:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 1:
			_, _ = w.Write([]byte(`{"error":{"code":"DATABASE_UNAVAILABLE"}}`))
		case 2:
			_, _ = w.Write([]byte(`not json`))
		default:
			_, _ = w.Write([]byte(`{"rows":[]}`))
		}
	}))
	defer server.Close()

	svc := newTestService(t, Config{BaseURL: server.URL, Route: RouteExpress, Requests: 8, Workers: 1, MaxLimit: 5, Seed: 3})
	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Succeeded != 0 || report.Errors != 4 || report.BadResponses != 4 {
		t.Fatalf("report = %+v", report)
	}
}

func TestRunStopsWhenCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := newTestService(t, Config{BaseURL: server.URL, Route: RouteExpress, Requests: 100, Workers: 2, MaxLimit: 5, Seed: 4})
	report, err := svc.Run(ctx)
	if err == nil {
		t.Fatal("expected context error")
	}
	if report.Requests != 0 {
		t.Fatalf("Requests = %d", report.Requests)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapLookup(map[string]string{
		"ANIMALS_LOAD_URL":          "http://api.internal:3000/",
		"ANIMALS_LOAD_ROUTE":        "GO",
		"ANIMALS_LOAD_REQUESTS":     "20000",
		"ANIMALS_LOAD_WORKERS":      "200",
		"ANIMALS_LOAD_MAX_LIMIT":    "100",
		"ANIMALS_LOAD_HTTP_TIMEOUT": "3s",
		"ANIMALS_LOAD_SEED":         "42",
	}))
	if err != nil {
		t.Fatalf("LoadConfigFromEnv() error = %v", err)
	}
	if cfg.BaseURL != "http://api.internal:3000" || cfg.Route != RouteGo {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Requests != 20000 || cfg.Workers != 200 || cfg.MaxLimit != 100 || cfg.Seed != 42 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Fatalf("HTTPTimeout = %s", cfg.HTTPTimeout)
	}
}

func TestLoadConfigFromEnvRejectsInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"ANIMALS_LOAD_URL": "localhost:3000"},
		{"ANIMALS_LOAD_ROUTE": "rust"},
		{"ANIMALS_LOAD_REQUESTS": "0"},
		{"ANIMALS_LOAD_WORKERS": "many"},
		{"ANIMALS_LOAD_MAX_LIMIT": "-1"},
		{"ANIMALS_LOAD_HTTP_TIMEOUT": "soon"},
		{"ANIMALS_LOAD_SEED": "-5"},
	}
	for _, env := range tests {
		if _, err := LoadConfigFromEnv(mapLookup(env)); err == nil {
			t.Fatalf("LoadConfigFromEnv(%v) expected error", env)
		}
	}
	if _, err := LoadConfigFromEnv(nil); err == nil {
		t.Fatal("expected error for nil lookup")
	}
}

func newTestService(t *testing.T, cfg Config) *Service {
	t.Helper()
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 5 * time.Second
	}
	svc, err := NewService(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
