//go:build integration

package testhelpers

import (
	"context"
	"testing"
)

func TestTestDB_Connection(t *testing.T) {
	testDB := GetTestDB(t)

	ctx := context.Background()

	var one int
	if err := testDB.Pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		t.Fatalf("failed to query test database: %v", err)
	}
	if one != 1 {
		t.Errorf("expected 1, got %d", one)
	}
}

func TestEngineDB_MigrationsApplied(t *testing.T) {
	engineDB := GetEngineDB(t)

	ctx := context.Background()

	// The audit table must exist after migrations
	var tableCount int
	err := engineDB.DB.QueryRow(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public' AND table_name = 'audit_entries'").
		Scan(&tableCount)
	if err != nil {
		t.Fatalf("failed to check audit_entries table: %v", err)
	}

	if tableCount != 1 {
		t.Errorf("expected audit_entries table to exist, found %d matches", tableCount)
	}
}
