package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour of the embedded schema.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Migrate applies the embedded schema for d. Every statement is
// idempotent (IF NOT EXISTS), so running it on an up-to-date database is a
// no-op.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	raw, err := schemaFS.ReadFile("schema/" + string(d) + ".sql")
	if err != nil {
		return fmt.Errorf("unknown dialect %q: %w", d, err)
	}
	for _, stmt := range strings.Split(string(raw), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// OpenSQLite opens a SQLite database with foreign keys enforced. It backs
// local development (DB_DRIVER=sqlite) and the test suites. SQLite allows a
// single writer, so the pool is pinned to one connection and concurrent
// callers queue on it instead of failing with SQLITE_BUSY.
func OpenSQLite(dsn string) (*sql.DB, error) {
	if !strings.Contains(dsn, "_pragma=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
