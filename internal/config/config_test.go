package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	cfg, err := Load("animals-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":3000" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Auth.Required {
		t.Fatal("Auth.Required should default to false")
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Fatalf("Database.Driver = %q", cfg.Database.Driver)
	}
	if cfg.Database.MaxOpenConns != 10 || cfg.Database.MaxIdleConns != 3 {
		t.Fatalf("pool = open:%d idle:%d", cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	}
	if cfg.Database.ConnMaxIdleTime != 300*time.Second {
		t.Fatalf("Database.ConnMaxIdleTime = %s", cfg.Database.ConnMaxIdleTime)
	}
	if cfg.Database.QueryTimeout != 0 {
		t.Fatalf("Database.QueryTimeout = %s", cfg.Database.QueryTimeout)
	}
	if cfg.Listing.Table != "animals" {
		t.Fatalf("Listing.Table = %q", cfg.Listing.Table)
	}
	if cfg.Listing.DefaultLimit != 100 || cfg.Listing.MaxLimit != 1000 {
		t.Fatalf("limits = default:%d max:%d", cfg.Listing.DefaultLimit, cfg.Listing.MaxLimit)
	}
	if cfg.Listing.LegacyErrorStatus {
		t.Fatal("Listing.LegacyErrorStatus should default to false")
	}
}

func TestLoadTestProfileDefaults(t *testing.T) {
	cfg, err := Load("animals-api", mapLookup(map[string]string{"ANIMALS_PROFILE": "test"}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.Address != ":13000" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelWarn {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	cfg, err := Load("animals-api", mapLookup(map[string]string{"ANIMALS_PROFILE": "prod"}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileProd)
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL should default to true in prod")
	}
}

func TestLoadPortOverridesAddress(t *testing.T) {
	cfg, err := Load("animals-api", mapLookup(map[string]string{"PORT": "8081"}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.Address != ":8081" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
}

func TestLoadEmptyPortKeepsDefault(t *testing.T) {
	cfg, err := Load("animals-api", mapLookup(map[string]string{"PORT": "  "}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.Address != ":3000" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
}

func TestLoadDatabaseURLPrecedence(t *testing.T) {
	cfg, err := Load("animals-api", mapLookup(map[string]string{
		"DATABASE_URL": "postgres://platform",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.DSN != "postgres://platform" {
		t.Fatalf("Database.DSN = %q", cfg.Database.DSN)
	}

	cfg, err = Load("animals-api", mapLookup(map[string]string{
		"DATABASE_URL":         "postgres://platform",
		"ANIMALS_DATABASE_URL": "postgres://explicit",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.DSN != "postgres://explicit" {
		t.Fatalf("Database.DSN = %q", cfg.Database.DSN)
	}
}

func TestLoadDuckDBWithoutDSNRunsInMemory(t *testing.T) {
	cfg, err := Load("animals-api", mapLookup(map[string]string{"ANIMALS_DATABASE_DRIVER": "duckdb"}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.DSN != "" {
		t.Fatalf("Database.DSN = %q, want in-memory", cfg.Database.DSN)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"ANIMALS_PROFILE":                    "test",
		"ANIMALS_SERVICE_NAME":               "animals-custom",
		"PORT":                               "9999",
		"ANIMALS_HTTP_READ_TIMEOUT":          "2s",
		"ANIMALS_HTTP_WRITE_TIMEOUT":         "3s",
		"ANIMALS_LOG_LEVEL":                  "error",
		"ANIMALS_AUTH_REQUIRED":              "true",
		"ANIMALS_AUTH_STATIC_KEYS":           "k1:dashboard",
		"ANIMALS_DATABASE_DRIVER":            "DuckDB",
		"ANIMALS_DATABASE_URL":               "/tmp/animals.duckdb",
		"ANIMALS_DUCKDB_PARQUET":             "/tmp/animals.parquet",
		"ANIMALS_DATABASE_MAX_OPEN_CONNS":    "42",
		"ANIMALS_DATABASE_MAX_IDLE_CONNS":    "17",
		"ANIMALS_DATABASE_CONN_MAX_LIFETIME": "2h",
		"ANIMALS_DATABASE_QUERY_TIMEOUT":     "750ms",
		"ANIMALS_LISTING_TABLE":              "shelter_animals",
		"ANIMALS_LISTING_DEFAULT_LIMIT":      "25",
		"ANIMALS_LISTING_MAX_LIMIT":          "50",
		"ANIMALS_LEGACY_ERROR_STATUS":        "true",
		"ANIMALS_OBJECTSTORE_ENDPOINT":       "s3.example.com",
		"ANIMALS_OBJECTSTORE_BUCKET":         "imports-prod",
		"ANIMALS_OBJECTSTORE_REGION":         "us-west-2",
		"ANIMALS_OBJECTSTORE_ACCESS_KEY":     "abc",
		"ANIMALS_OBJECTSTORE_SECRET_KEY":     "def",
		"ANIMALS_OBJECTSTORE_USE_SSL":        "true",
		"ANIMALS_OBJECTSTORE_PREFIX":         "sonoma",
	})
	cfg, err := Load("animals-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "animals-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 2*time.Second {
		t.Fatalf("HTTP.ReadTimeout = %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.HTTP.WriteTimeout != 3*time.Second {
		t.Fatalf("HTTP.WriteTimeout = %s", cfg.HTTP.WriteTimeout)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required = false, want true")
	}
	if cfg.Auth.StaticKeys != "k1:dashboard" {
		t.Fatalf("StaticKeys = %q", cfg.Auth.StaticKeys)
	}
	if cfg.Database.Driver != DriverDuckDB {
		t.Fatalf("Database.Driver = %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "/tmp/animals.duckdb" {
		t.Fatalf("Database.DSN = %q", cfg.Database.DSN)
	}
	if cfg.Database.DuckDBParquet != "/tmp/animals.parquet" {
		t.Fatalf("Database.DuckDBParquet = %q", cfg.Database.DuckDBParquet)
	}
	if cfg.Database.MaxOpenConns != 42 {
		t.Fatalf("Database.MaxOpenConns = %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns != 17 {
		t.Fatalf("Database.MaxIdleConns = %d", cfg.Database.MaxIdleConns)
	}
	if cfg.Database.ConnMaxLifetime != 2*time.Hour {
		t.Fatalf("Database.ConnMaxLifetime = %s", cfg.Database.ConnMaxLifetime)
	}
	if cfg.Database.QueryTimeout != 750*time.Millisecond {
		t.Fatalf("Database.QueryTimeout = %s", cfg.Database.QueryTimeout)
	}
	if cfg.Listing.Table != "shelter_animals" {
		t.Fatalf("Listing.Table = %q", cfg.Listing.Table)
	}
	if cfg.Listing.DefaultLimit != 25 || cfg.Listing.MaxLimit != 50 {
		t.Fatalf("limits = default:%d max:%d", cfg.Listing.DefaultLimit, cfg.Listing.MaxLimit)
	}
	if !cfg.Listing.LegacyErrorStatus {
		t.Fatal("Listing.LegacyErrorStatus = false, want true")
	}
	if cfg.ObjectStore.Endpoint != "s3.example.com" {
		t.Fatalf("ObjectStore.Endpoint = %q", cfg.ObjectStore.Endpoint)
	}
	if cfg.ObjectStore.Bucket != "imports-prod" {
		t.Fatalf("ObjectStore.Bucket = %q", cfg.ObjectStore.Bucket)
	}
	if cfg.ObjectStore.Prefix != "sonoma" {
		t.Fatalf("ObjectStore.Prefix = %q", cfg.ObjectStore.Prefix)
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL = false, want true")
	}
}

func TestLoadErrorsOnInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"ANIMALS_PROFILE": "oops"},
		{"PORT": "http"},
		{"PORT": "70000"},
		{"ANIMALS_HTTP_READ_TIMEOUT": "NaN"},
		{"ANIMALS_DATABASE_MAX_OPEN_CONNS": "oops"},
		{"ANIMALS_DATABASE_DRIVER": "oracle"},
		{"ANIMALS_DATABASE_QUERY_TIMEOUT": "-1s"},
		{"ANIMALS_LISTING_TABLE": "animals; DROP TABLE animals"},
		{"ANIMALS_LISTING_DEFAULT_LIMIT": "0"},
		{"ANIMALS_LISTING_MAX_LIMIT": "10"},
		{"ANIMALS_LEGACY_ERROR_STATUS": "sometimes"},
		{"ANIMALS_AUTH_REQUIRED": "not-bool"},
		{"ANIMALS_LOG_LEVEL": "verbose"},
	}
	for _, env := range tests {
		_, err := Load("animals-api", mapLookup(env))
		if err == nil {
			t.Fatalf("Load() expected error for env %#v", env)
		}
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
