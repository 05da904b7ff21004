// prune-audit-entries removes old rows from the audit trail.
//
// The audit_entries table is append-only; nothing in the engine ever deletes
// from it. Retention is an operator decision, so trimming history lives here
// as an explicit script rather than in the engine.
//
// Usage: go run ./scripts/prune-audit-entries -older-than 8760h
//
// Database connection: Uses standard PG* environment variables
//
// Flags:
//
//	-dry-run       Show what would be deleted without actually deleting (default: true)
//	-older-than    Delete entries created before now minus this duration (required unless -correlation is set)
//	-table         Only prune entries for this audited table
//	-correlation   Delete the entries of a single change-set run (for cleaning up test data)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func main() {
	dryRun := flag.Bool("dry-run", true, "Show what would be deleted without actually deleting")
	olderThan := flag.Duration("older-than", 0, "Delete entries created before now minus this duration")
	table := flag.String("table", "", "Only prune entries for this audited table")
	correlation := flag.String("correlation", "", "Delete the entries of a single change-set run")
	flag.Parse()

	if *olderThan <= 0 && *correlation == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [-dry-run=false] -older-than <duration> [-table <name>]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s [-dry-run=false] -correlation <uuid>\n", os.Args[0])
		os.Exit(1)
	}

	ctx := context.Background()

	conn, err := pgx.Connect(ctx, buildConnString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	if *dryRun {
		fmt.Println("DRY RUN - no changes will be made")
		fmt.Println("Run with -dry-run=false to actually delete entries")
		fmt.Println()
	}

	var deleted int
	if *correlation != "" {
		correlationID, err := uuid.Parse(*correlation)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid correlation ID: %v\n", err)
			os.Exit(1)
		}
		deleted, err = pruneByCorrelation(ctx, conn, correlationID, *dryRun)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error pruning correlation %s: %v\n", correlationID, err)
			os.Exit(1)
		}
	} else {
		cutoff := time.Now().Add(-*olderThan)
		deleted, err = pruneBefore(ctx, conn, cutoff, *table, *dryRun)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error pruning entries before %s: %v\n", cutoff.Format(time.RFC3339), err)
			os.Exit(1)
		}
	}

	if *dryRun {
		fmt.Printf("\nTotal entries that would be deleted: %d\n", deleted)
	} else {
		fmt.Printf("\nTotal entries deleted: %d\n", deleted)
	}
}

// pruneBefore deletes audit entries created before the cutoff, optionally
// restricted to one audited table. In dry-run mode it only reports per-table
// counts.
func pruneBefore(ctx context.Context, conn *pgx.Conn, cutoff time.Time, table string, dryRun bool) (int, error) {
	if dryRun {
		rows, err := conn.Query(ctx, `
			SELECT table_name, COUNT(*)
			FROM audit_entries
			WHERE created_at < $1
			  AND ($2 = '' OR table_name = $2)
			GROUP BY table_name
			ORDER BY table_name
		`, cutoff, table)
		if err != nil {
			return 0, fmt.Errorf("query failed: %w", err)
		}
		defer rows.Close()

		var total int
		for rows.Next() {
			var tableName string
			var count int
			if err := rows.Scan(&tableName, &count); err != nil {
				return 0, fmt.Errorf("scan failed: %w", err)
			}
			total += count
			fmt.Printf("  %s: %d entries before %s\n", tableName, count, cutoff.Format(time.RFC3339))
		}
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("rows iteration failed: %w", err)
		}

		if total == 0 {
			fmt.Printf("  No entries before %s\n", cutoff.Format(time.RFC3339))
		}
		return total, nil
	}

	result, err := conn.Exec(ctx, `
		DELETE FROM audit_entries
		WHERE created_at < $1
		  AND ($2 = '' OR table_name = $2)
	`, cutoff, table)
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}

	count := int(result.RowsAffected())
	fmt.Printf("Deleted %d entries created before %s\n", count, cutoff.Format(time.RFC3339))
	return count, nil
}

// pruneByCorrelation deletes every entry written under one correlation ID.
func pruneByCorrelation(ctx context.Context, conn *pgx.Conn, correlationID uuid.UUID, dryRun bool) (int, error) {
	if dryRun {
		rows, err := conn.Query(ctx, `
			SELECT table_name, COALESCE(field_name, '<record>'), primary_key, action
			FROM audit_entries
			WHERE correlation_id = $1
			ORDER BY created_at
		`, correlationID)
		if err != nil {
			return 0, fmt.Errorf("query failed: %w", err)
		}
		defer rows.Close()

		var count int
		for rows.Next() {
			var tableName, fieldName, primaryKey, action string
			if err := rows.Scan(&tableName, &fieldName, &primaryKey, &action); err != nil {
				return 0, fmt.Errorf("scan failed: %w", err)
			}
			count++
			fmt.Printf("  %s %s.%s pk=%s\n", action, tableName, fieldName, primaryKey)
		}
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("rows iteration failed: %w", err)
		}

		if count == 0 {
			fmt.Printf("  No entries for correlation %s\n", correlationID)
		}
		return count, nil
	}

	result, err := conn.Exec(ctx, `
		DELETE FROM audit_entries
		WHERE correlation_id = $1
	`, correlationID)
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}

	count := int(result.RowsAffected())
	fmt.Printf("Deleted %d entries for correlation %s\n", count, correlationID)
	return count, nil
}

func buildConnString() string {
	host := getEnvOrDefault("PGHOST", "localhost")
	port := getEnvOrDefault("PGPORT", "5432")
	user := getEnvOrDefault("PGUSER", "auditrail")
	password := os.Getenv("PGPASSWORD")
	dbname := getEnvOrDefault("PGDATABASE", "auditrail_engine")

	connStr := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
		host, port, user, dbname)
	if password != "" {
		connStr += fmt.Sprintf(" password=%s", password)
	}
	return connStr
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
