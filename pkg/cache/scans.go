package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Scan statuses shared by the security checkers
const (
	ScanPassed  = "passed"
	ScanFailed  = "failed"
	ScanSkipped = "skipped"
	ScanError   = "error"
	ScanWarning = "warning"
)

// ScanIssue is one finding reported by a scanner
type ScanIssue struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ScanRecord is one scanned component within a scan run
type ScanRecord struct {
	ID            int64       `json:"id"`
	RunID         string      `json:"run_id"`
	Scanner       string      `json:"scanner"`
	Component     string      `json:"component"`
	ComponentType string      `json:"component_type"`
	Status        string      `json:"status"`
	Issues        []ScanIssue `json:"issues"`
	ScannedAt     time.Time   `json:"scanned_at"`
}

// RecordScans stores the records of one run atomically. Records without a
// timestamp are stamped with the store clock.
func (s *Store) RecordScans(ctx context.Context, records []ScanRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	now := s.now()
	for _, r := range records {
		if r.ScannedAt.IsZero() {
			r.ScannedAt = now
		}
		if r.Issues == nil {
			r.Issues = []ScanIssue{}
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO security_scans (
				run_id, scanner, component, component_type, status, issues_json, scanned_at
			) VALUES (:run_id, :scanner, :component, :component_type, :status, :issues_json, :scanned_at)
		`, fromScanRecord(r)); err != nil {
			return errors.Wrapf(err, "failed to record scan of %s", r.Component)
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit scan records")
}

// ScanHistory returns the most recent scan records, newest first
func (s *Store) ScanHistory(ctx context.Context, limit int) ([]ScanRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []dbScanRecord
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, run_id, scanner, component, component_type, status, issues_json, scanned_at
		FROM security_scans
		ORDER BY scanned_at DESC, id DESC
		LIMIT ?
	`, limit); err != nil {
		return nil, errors.Wrap(err, "failed to query scan history")
	}

	records := make([]ScanRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toScanRecord())
	}
	return records, nil
}
