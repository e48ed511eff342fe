package testutil

import (
	"context"
	"testing"
)

func TestStubDBStoresAndQueriesRows(t *testing.T) {
	ctx := context.Background()
	db, conn := NewStubDB()
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO state(bucket,payload) VALUES($1,$2)", "k", "v1"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO state(bucket,payload) VALUES($1,$2)", "k", "v2"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if len(conn.Execs) != 2 {
		t.Fatalf("expected recorded execs, got %v", conn.Execs)
	}
	var payload string
	if err := db.QueryRowContext(ctx, "SELECT payload FROM state WHERE bucket=$1", "k").Scan(&payload); err != nil {
		t.Fatalf("select: %v", err)
	}
	if payload != "v2" {
		t.Fatalf("unexpected payload %q", payload)
	}
	if err := db.QueryRowContext(ctx, "SELECT payload FROM state WHERE bucket=$1", "missing").Scan(&payload); err == nil {
		t.Fatalf("expected no rows")
	}
}
