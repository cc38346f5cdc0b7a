package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *sqlx.DB {
	t.Helper()
	conn, err := Open(context.Background(), filepath.Join(t.TempDir(), "state", "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func hasTable(t *testing.T, conn *sqlx.DB, name string) bool {
	t.Helper()
	var n int
	require.NoError(t, conn.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name))
	return n > 0
}

func exec(query string) func(*sql.Tx) error {
	return func(tx *sql.Tx) error {
		_, err := tx.Exec(query)
		return err
	}
}

func resultsTable(version int64) Migration {
	return Migration{
		Version:     version,
		Description: "create lint_results",
		Up:          exec(`CREATE TABLE lint_results (path TEXT PRIMARY KEY, errors INTEGER NOT NULL)`),
		Down:        exec(`DROP TABLE lint_results`),
	}
}

func addWarnings(version int64) Migration {
	return Migration{
		Version:     version,
		Description: "add warnings column",
		Up:          exec(`ALTER TABLE lint_results ADD COLUMN warnings INTEGER NOT NULL DEFAULT 0`),
	}
}

func TestOpen_ConfiguresAndCreatesDirectory(t *testing.T) {
	conn := openTemp(t)
	require.NoError(t, VerifyConfiguration(conn))

	var mode string
	require.NoError(t, conn.Get(&mode, "PRAGMA journal_mode"))
	assert.Equal(t, "wal", mode)
}

func TestDefaultDBPath(t *testing.T) {
	t.Run("base path override", func(t *testing.T) {
		t.Setenv(BasePathEnv, "/var/lib/devkit")
		path, err := DefaultDBPath()
		require.NoError(t, err)
		assert.Equal(t, "/var/lib/devkit/cache.db", path)
	})

	t.Run("home directory", func(t *testing.T) {
		t.Setenv(BasePathEnv, "")
		path, err := DefaultDBPath()
		require.NoError(t, err)
		home, _ := os.UserHomeDir()
		assert.Equal(t, filepath.Join(home, ".devkit-validator", "cache.db"), path)
	})
}

func TestOpenMigrated_Reopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	migrations := []Migration{resultsTable(20250101000001)}

	conn, err := OpenMigrated(ctx, dbPath, migrations)
	require.NoError(t, err)
	_, err = conn.Exec(`INSERT INTO lint_results (path, errors) VALUES ('SKILL.md', 2)`)
	require.NoError(t, err)
	conn.Close()

	conn, err = OpenMigrated(ctx, dbPath, migrations)
	require.NoError(t, err)
	defer conn.Close()

	var errs int
	require.NoError(t, conn.Get(&errs, `SELECT errors FROM lint_results WHERE path = 'SKILL.md'`))
	assert.Equal(t, 2, errs, "reopening must not re-run applied migrations")
}

func TestOpenMigrated_FailingMigration(t *testing.T) {
	broken := Migration{Version: 20250101000009, Description: "broken", Up: exec("CREATE TABLE")}

	_, err := OpenMigrated(context.Background(), filepath.Join(t.TempDir(), "cache.db"), []Migration{broken})
	assert.ErrorContains(t, err, "failed to apply migration 20250101000009: broken")
}

func TestMigrationRunner_Run(t *testing.T) {
	tests := []struct {
		name       string
		migrations []Migration
	}{
		{name: "in order", migrations: []Migration{resultsTable(20240101000001), addWarnings(20240101000002)}},
		{name: "out of order", migrations: []Migration{addWarnings(20240101000002), resultsTable(20240101000001)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := openTemp(t)
			runner := NewMigrationRunner(conn)
			ctx := context.Background()

			require.NoError(t, runner.Run(ctx, tt.migrations))
			require.NoError(t, runner.Run(ctx, tt.migrations), "second run is a no-op")

			assert.True(t, hasTable(t, conn, "lint_results"))
			_, err := conn.Exec(`INSERT INTO lint_results (path, errors, warnings) VALUES ('a.md', 0, 1)`)
			require.NoError(t, err)

			versions, err := runner.GetAppliedVersions(ctx)
			require.NoError(t, err)
			assert.Equal(t, []int64{20240101000001, 20240101000002}, versions)
		})
	}
}

func TestMigrationRunner_Rollback(t *testing.T) {
	conn := openTemp(t)
	runner := NewMigrationRunner(conn)
	ctx := context.Background()
	migrations := []Migration{resultsTable(20240101000001)}

	require.NoError(t, runner.Run(ctx, migrations))
	require.True(t, hasTable(t, conn, "lint_results"))

	require.NoError(t, runner.Rollback(ctx, migrations))
	assert.False(t, hasTable(t, conn, "lint_results"))

	versions, err := runner.GetAppliedVersions(ctx)
	require.NoError(t, err)
	assert.Empty(t, versions)
}
