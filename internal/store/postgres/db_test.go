package postgres

import (
	"context"
	"strings"
	"testing"
)

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), DBConfig{})
	if err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func TestOpenRejectsMalformedDSN(t *testing.T) {
	_, err := Open(context.Background(), DBConfig{DSN: "postgres://%zz"})
	if err == nil {
		t.Fatal("expected error for malformed DSN")
	}
	if !strings.Contains(err.Error(), "animals db") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDialectUsesDollarPlaceholders(t *testing.T) {
	sql, err := Dialect.Placeholder.ReplacePlaceholders("SELECT * FROM animals LIMIT ?")
	if err != nil {
		t.Fatalf("ReplacePlaceholders() error = %v", err)
	}
	if sql != "SELECT * FROM animals LIMIT $1" {
		t.Fatalf("sql = %q", sql)
	}
}

func TestConnectDefersDialUntilFirstUse(t *testing.T) {
	cfg := DBConfig{DSN: "postgres://u:p@127.0.0.1:1/x?connect_timeout=2", MaxOpenConns: 2}

	db, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer db.Close()
	if got := db.Stats().MaxOpenConnections; got != 2 {
		t.Fatalf("MaxOpenConnections = %d, want 2", got)
	}

	if _, err := Open(context.Background(), cfg); err == nil || !strings.Contains(err.Error(), "ping animals db") {
		t.Fatalf("Open() error = %v, want ping failure", err)
	}
}
