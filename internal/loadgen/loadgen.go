// Package loadgen drives concurrent listing requests against a running
// animals-api and reports throughput and a latency histogram.
package loadgen

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BucketNames lists latency buckets from fastest to slowest.
var BucketNames = []string{
	"0_to_50ms",
	"51_to_200ms",
	"201_to_500ms",
	"501_to_1000ms",
	"1001_to_1500ms",
	"over_1500ms",
}

// BucketFor names the latency bucket for elapsed, rounded down to whole milliseconds.
func BucketFor(elapsed time.Duration) string {
	ms := elapsed.Milliseconds()
	switch {
	case ms <= 50:
		return BucketNames[0]
	case ms <= 200:
		return BucketNames[1]
	case ms <= 500:
		return BucketNames[2]
	case ms <= 1000:
		return BucketNames[3]
	case ms <= 1500:
		return BucketNames[4]
	default:
		return BucketNames[5]
	}
}

type Report struct {
	Requests     int
	Succeeded    int
	Errors       int
	BadResponses int
	Rows         int
	Elapsed      time.Duration
	Buckets      map[string]int
}

// RPS is completed requests per second of wall time.
func (r Report) RPS() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Requests) / r.Elapsed.Seconds()
}

// tally is shared by all workers.
type tally struct {
	mu     sync.Mutex
	report Report
}

func (t *tally) record(elapsed time.Duration, rows int, outcome error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.report.Requests++
	t.report.Buckets[BucketFor(elapsed)]++
	switch outcome.(type) {
	case nil:
		t.report.Succeeded++
		t.report.Rows += rows
	case *badResponseError:
		t.report.BadResponses++
	default:
		t.report.Errors++
	}
}

type badResponseError struct {
	reason string
}

func (e *badResponseError) Error() string {
	return "bad response: " + e.reason
}

type Service struct {
	cfg  Config
	log  *slog.Logger
	http *http.Client
}

func NewService(cfg Config, logger *slog.Logger, client *http.Client) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &Service{cfg: cfg, log: logger, http: client}, nil
}

// Run issues cfg.Requests requests through a pool of cfg.Workers workers,
// each with a random limit in [1, MaxLimit]. Cancelling ctx stops new
// requests; the report covers the ones that ran.
func (s *Service) Run(ctx context.Context) (Report, error) {
	counts := &tally{report: Report{Buckets: make(map[string]int, len(BucketNames))}}
	for _, name := range BucketNames {
		counts.report.Buckets[name] = 0
	}
	rng := rand.New(rand.NewPCG(s.cfg.Seed, s.cfg.Seed^0x5eed))

	pool := workerpool.New(s.cfg.Workers)
	start := time.Now()
	for i := 0; i < s.cfg.Requests; i++ {
		if ctx.Err() != nil {
			break
		}
		limit := rng.IntN(s.cfg.MaxLimit) + 1
		pool.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			reqStart := time.Now()
			rows, err := s.fetch(ctx, limit)
			elapsed := time.Since(reqStart)
			if err != nil {
				s.log.DebugContext(ctx, "listing request failed",
					slog.Int("limit", limit),
					slog.String("error", err.Error()),
				)
			}
			counts.record(elapsed, rows, err)
		})
	}
	pool.StopWait()

	counts.mu.Lock()
	defer counts.mu.Unlock()
	report := counts.report
	report.Elapsed = time.Since(start)

	s.log.InfoContext(ctx, "load run finished",
		slog.String("route", string(s.cfg.Route)),
		slog.Int("requests", report.Requests),
		slog.Int("errors", report.Errors),
		slog.Int("bad_responses", report.BadResponses),
		slog.Float64("rps", report.RPS()),
	)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// fetch performs one listing request and returns the row count.
func (s *Service) fetch(ctx context.Context, limit int) (int, error) {
	target := s.cfg.BaseURL + s.cfg.Route.path() + "?limit=" + strconv.Itoa(limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", s.cfg.APIKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}

	var body map[string]jsoniter.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, &badResponseError{reason: "invalid json: " + err.Error()}
	}
	if _, failed := body["error"]; failed {
		// servers in legacy mode report failures with status 200
		return 0, fmt.Errorf("error envelope with status %d", resp.StatusCode)
	}
	raw, ok := body[s.cfg.Route.envelope()]
	if !ok {
		return 0, &badResponseError{reason: "missing " + s.cfg.Route.envelope() + " envelope"}
	}
	var rows []jsoniter.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return 0, &badResponseError{reason: "envelope is not an array"}
	}
	if len(rows) > limit {
		return 0, &badResponseError{reason: fmt.Sprintf("%d rows for limit %d", len(rows), limit)}
	}
	return len(rows), nil
}
