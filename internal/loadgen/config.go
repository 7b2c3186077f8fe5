package loadgen

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

// Route selects which listing shape is exercised.
type Route string

const (
	RouteExpress Route = "express"
	RouteGo      Route = "go"
)

func (r Route) path() string {
	if r == RouteGo {
		return "/v1/go-animals"
	}
	return "/api/v1/express-animals"
}

func (r Route) envelope() string {
	if r == RouteGo {
		return "animals"
	}
	return "data"
}

type Config struct {
	BaseURL     string
	Route       Route
	APIKey      string
	Requests    int
	Workers     int
	MaxLimit    int
	HTTPTimeout time.Duration
	Seed        uint64
}

func DefaultConfig() Config {
	return Config{
		BaseURL:     "http://localhost:3000",
		Route:       RouteExpress,
		Requests:    1000,
		Workers:     50,
		MaxLimit:    100,
		HTTPTimeout: 10 * time.Second,
		Seed:        uint64(time.Now().UTC().UnixNano()),
	}
}

func LoadConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := DefaultConfig()
	var route string
	if err := applyString(lookup, "ANIMALS_LOAD_URL", &cfg.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANIMALS_LOAD_ROUTE", &route); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANIMALS_LOAD_API_KEY", &cfg.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ANIMALS_LOAD_REQUESTS", &cfg.Requests); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ANIMALS_LOAD_WORKERS", &cfg.Workers); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ANIMALS_LOAD_MAX_LIMIT", &cfg.MaxLimit); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ANIMALS_LOAD_HTTP_TIMEOUT", &cfg.HTTPTimeout); err != nil {
		return Config{}, err
	}
	if err := applyUint64(lookup, "ANIMALS_LOAD_SEED", &cfg.Seed); err != nil {
		return Config{}, err
	}
	if route != "" {
		cfg.Route = Route(strings.ToLower(route))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg, nil
}

func (c Config) Validate() error {
	parsed, err := url.Parse(strings.TrimSpace(c.BaseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("ANIMALS_LOAD_URL must be an absolute URL, got %q", c.BaseURL)
	}
	if c.Route != RouteExpress && c.Route != RouteGo {
		return fmt.Errorf("ANIMALS_LOAD_ROUTE must be express or go, got %q", c.Route)
	}
	if c.Requests <= 0 {
		return fmt.Errorf("ANIMALS_LOAD_REQUESTS must be > 0")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("ANIMALS_LOAD_WORKERS must be > 0")
	}
	if c.MaxLimit <= 0 {
		return fmt.Errorf("ANIMALS_LOAD_MAX_LIMIT must be > 0")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("ANIMALS_LOAD_HTTP_TIMEOUT must be > 0")
	}
	return nil
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyUint64(lookup LookupFunc, key string, dst *uint64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}
