package cache

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// timeLayout is fixed width so stored timestamps order correctly as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

// JSONField stores T as a JSON text column
type JSONField[T any] struct {
	Data T
}

// Scan implements sql.Scanner
func (j *JSONField[T]) Scan(value any) error {
	if value == nil {
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.Errorf("cannot scan %T into JSONField", value)
	}
	return json.Unmarshal(data, &j.Data)
}

// Value implements driver.Valuer
func (j JSONField[T]) Value() (driver.Value, error) {
	data, err := json.Marshal(j.Data)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

type dbCacheEntry struct {
	Path               string `db:"path"`
	ContentSHA256      string `db:"content_sha256"`
	RulesetFingerprint string `db:"ruleset_fingerprint"`
	ToolVersion        string `db:"tool_version"`
	ResultJSON         string `db:"result_json"`
	UpdatedAt          string `db:"updated_at"`
}

type dbScanRecord struct {
	ID            int64                  `db:"id"`
	RunID         string                 `db:"run_id"`
	Scanner       string                 `db:"scanner"`
	Component     string                 `db:"component"`
	ComponentType string                 `db:"component_type"`
	Status        string                 `db:"status"`
	Issues        JSONField[[]ScanIssue] `db:"issues_json"`
	ScannedAt     string                 `db:"scanned_at"`
}

func (r dbScanRecord) toScanRecord() ScanRecord {
	issues := r.Issues.Data
	if issues == nil {
		issues = []ScanIssue{}
	}
	return ScanRecord{
		ID:            r.ID,
		RunID:         r.RunID,
		Scanner:       r.Scanner,
		Component:     r.Component,
		ComponentType: r.ComponentType,
		Status:        r.Status,
		Issues:        issues,
		ScannedAt:     parseTime(r.ScannedAt),
	}
}

func fromScanRecord(r ScanRecord) dbScanRecord {
	return dbScanRecord{
		RunID:         r.RunID,
		Scanner:       r.Scanner,
		Component:     r.Component,
		ComponentType: r.ComponentType,
		Status:        r.Status,
		Issues:        JSONField[[]ScanIssue]{Data: r.Issues},
		ScannedAt:     formatTime(r.ScannedAt),
	}
}
