package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/devkit-tools/devkit-validator/pkg/db"
)

// Migration20250612090001CreateSecurityScans creates the scan history table
func Migration20250612090001CreateSecurityScans() db.Migration {
	return db.Migration{
		Version:     20250612090001,
		Description: "Create security_scans table",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS security_scans (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					run_id TEXT NOT NULL,
					component TEXT NOT NULL,
					component_type TEXT NOT NULL,
					status TEXT NOT NULL,
					issues_json TEXT NOT NULL DEFAULT '[]',
					scanned_at DATETIME NOT NULL
				)
			`); err != nil {
				return errors.Wrap(err, "failed to create security_scans table")
			}

			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_security_scans_run_id ON security_scans(run_id)`,
				`CREATE INDEX IF NOT EXISTS idx_security_scans_scanned_at ON security_scans(scanned_at DESC)`,
			}
			for _, stmt := range indexes {
				if _, err := tx.Exec(stmt); err != nil {
					return errors.Wrap(err, "failed to create security_scans index")
				}
			}
			return nil
		},
		Down: func(tx *sql.Tx) error {
			if _, err := tx.Exec("DROP TABLE IF EXISTS security_scans"); err != nil {
				return errors.Wrap(err, "failed to drop security_scans table")
			}
			return nil
		},
	}
}
