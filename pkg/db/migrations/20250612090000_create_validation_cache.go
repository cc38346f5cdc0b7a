package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/devkit-tools/devkit-validator/pkg/db"
)

// Migration20250612090000CreateValidationCache creates the per-file result cache
func Migration20250612090000CreateValidationCache() db.Migration {
	return db.Migration{
		Version:     20250612090000,
		Description: "Create validation_cache table",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS validation_cache (
					path TEXT PRIMARY KEY,
					content_sha256 TEXT NOT NULL,
					ruleset_fingerprint TEXT NOT NULL,
					tool_version TEXT NOT NULL,
					result_json TEXT NOT NULL,
					updated_at DATETIME NOT NULL
				)
			`); err != nil {
				return errors.Wrap(err, "failed to create validation_cache table")
			}

			if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_validation_cache_updated_at ON validation_cache(updated_at)`); err != nil {
				return errors.Wrap(err, "failed to create validation_cache index")
			}
			return nil
		},
		Down: func(tx *sql.Tx) error {
			if _, err := tx.Exec("DROP TABLE IF EXISTS validation_cache"); err != nil {
				return errors.Wrap(err, "failed to drop validation_cache table")
			}
			return nil
		},
	}
}
