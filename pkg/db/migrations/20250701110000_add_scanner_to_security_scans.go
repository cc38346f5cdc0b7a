package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/devkit-tools/devkit-validator/pkg/db"
)

// Migration20250701110000AddScannerToSecurityScans records which checker
// produced a scan row. Rows written before the column existed came from
// mcp-scan.
func Migration20250701110000AddScannerToSecurityScans() db.Migration {
	return db.Migration{
		Version:     20250701110000,
		Description: "Add scanner column to security_scans",
		Up: func(tx *sql.Tx) error {
			var exists bool
			if err := tx.QueryRow(`
				SELECT COUNT(*) > 0 FROM pragma_table_info('security_scans') WHERE name = 'scanner'
			`).Scan(&exists); err != nil {
				return errors.Wrap(err, "failed to inspect security_scans columns")
			}
			if exists {
				return nil
			}

			if _, err := tx.Exec(`ALTER TABLE security_scans ADD COLUMN scanner TEXT NOT NULL DEFAULT 'mcp-scan'`); err != nil {
				return errors.Wrap(err, "failed to add scanner column")
			}
			return nil
		},
		Down: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`ALTER TABLE security_scans DROP COLUMN scanner`); err != nil {
				return errors.Wrap(err, "failed to drop scanner column")
			}
			return nil
		},
	}
}
