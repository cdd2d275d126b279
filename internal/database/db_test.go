package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenSQLite("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(context.Background(), db, SQLite))
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(context.Background(), db, SQLite))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN
		('accounts','sessions','invitation_codes','invitation_redemptions','ideas','comments','votes')`).Scan(&n))
	assert.Equal(t, 7, n)
}

func TestMigrateUnknownDialect(t *testing.T) {
	db := openTestDB(t)
	assert.Error(t, Migrate(context.Background(), db, Dialect("oracle")))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO comments (idea_id, author_id, author_name, text, created_at)
			VALUES (1, 1, 'a', 'hello', '2025-01-01 00:00:00')`)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM comments`).Scan(&n))
	assert.Zero(t, n)
}

func TestWithTxCommits(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, WithTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO comments (idea_id, author_id, author_name, text, created_at)
			VALUES (1, 1, 'a', 'hello', '2025-01-01 00:00:00')`)
		return err
	}))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM comments`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestMySQLConfig(t *testing.T) {
	cfg := mysqlConfig("app", "p@ss:word", "db.internal", "3306", "ideas")
	assert.True(t, cfg.ClientFoundRows)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, "db.internal:3306", cfg.Addr)

	dsn := cfg.FormatDSN()
	assert.Contains(t, dsn, "clientFoundRows=true")
	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "p@ss:word", parsed.Passwd)
	assert.True(t, parsed.ClientFoundRows)
}
