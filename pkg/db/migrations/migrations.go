// Package migrations holds the schema history of the local cache database.
// Versions are YYYYMMDDHHmmss timestamps.
package migrations

import (
	"github.com/devkit-tools/devkit-validator/pkg/db"
)

// All returns every migration. New migrations are appended here.
func All() []db.Migration {
	return []db.Migration{
		Migration20250612090000CreateValidationCache(),
		Migration20250612090001CreateSecurityScans(),
		Migration20250701110000AddScannerToSecurityScans(),
	}
}
