// Package cache persists validation results keyed by file content and
// ruleset, and records the history of security scans.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/devkit-tools/devkit-validator/pkg/db"
	"github.com/devkit-tools/devkit-validator/pkg/db/migrations"
	"github.com/devkit-tools/devkit-validator/pkg/logger"
	"github.com/devkit-tools/devkit-validator/pkg/validation"
)

// Store is the SQLite backed cache. It is safe for concurrent use.
type Store struct {
	db          *sqlx.DB
	fingerprint string
	toolVersion string
	now         func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source used for timestamps and pruning
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens the database at path, applying pending migrations. Cached
// results are only served when fingerprint and toolVersion match the values
// they were stored with.
func Open(ctx context.Context, path, fingerprint, toolVersion string, opts ...Option) (*Store, error) {
	sqlDB, err := db.OpenMigrated(ctx, path, migrations.All())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open cache database")
	}
	return New(sqlDB, fingerprint, toolVersion, opts...), nil
}

// New wraps an already migrated database
func New(sqlDB *sqlx.DB, fingerprint, toolVersion string, opts ...Option) *Store {
	s := &Store{
		db:          sqlDB,
		fingerprint: fingerprint,
		toolVersion: toolVersion,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// ContentHash returns the hex sha256 of content
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Load returns the cached result for path when the content hash, ruleset
// fingerprint and tool version all match.
func (s *Store) Load(ctx context.Context, path string, content []byte) (*validation.Result, bool, error) {
	var entry dbCacheEntry
	err := s.db.GetContext(ctx, &entry, `
		SELECT path, content_sha256, ruleset_fingerprint, tool_version, result_json, updated_at
		FROM validation_cache WHERE path = ?
	`, path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to query validation cache")
	}

	if entry.ContentSHA256 != ContentHash(content) ||
		entry.RulesetFingerprint != s.fingerprint ||
		entry.ToolVersion != s.toolVersion {
		logger.G(ctx).WithField("file", path).Debug("stale cache entry")
		return nil, false, nil
	}

	var result validation.Result
	if err := json.Unmarshal([]byte(entry.ResultJSON), &result); err != nil {
		return nil, false, errors.Wrap(err, "failed to decode cached result")
	}
	result.FilePath = path
	if result.Issues == nil {
		result.Issues = []validation.Issue{}
	}
	for i := range result.Issues {
		result.Issues[i].FilePath = path
	}
	return &result, true, nil
}

// Save saves the result for path, replacing any previous entry
func (s *Store) Save(ctx context.Context, path string, content []byte, result *validation.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "failed to encode result")
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO validation_cache (
			path, content_sha256, ruleset_fingerprint, tool_version, result_json, updated_at
		) VALUES (:path, :content_sha256, :ruleset_fingerprint, :tool_version, :result_json, :updated_at)
	`, dbCacheEntry{
		Path:               path,
		ContentSHA256:      ContentHash(content),
		RulesetFingerprint: s.fingerprint,
		ToolVersion:        s.toolVersion,
		ResultJSON:         string(data),
		UpdatedAt:          formatTime(s.now()),
	})
	return errors.Wrap(err, "failed to store cached result")
}

// PruneStats counts the rows removed by Prune
type PruneStats struct {
	CacheEntries int64
	ScanRecords  int64
}

// Prune removes cache entries and scan records older than olderThan
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (PruneStats, error) {
	var stats PruneStats
	if olderThan <= 0 {
		return stats, errors.Errorf("prune age must be positive, got %s", olderThan)
	}
	cutoff := formatTime(s.now().Add(-olderThan))

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return stats, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM validation_cache WHERE updated_at < ?", cutoff)
	if err != nil {
		return stats, errors.Wrap(err, "failed to prune validation cache")
	}
	stats.CacheEntries, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx, "DELETE FROM security_scans WHERE scanned_at < ?", cutoff)
	if err != nil {
		return stats, errors.Wrap(err, "failed to prune scan history")
	}
	stats.ScanRecords, _ = res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return stats, errors.Wrap(err, "failed to commit prune")
	}
	return stats, nil
}

// Clear empties the validation cache. Scan history is kept.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM validation_cache")
	if err != nil {
		return 0, errors.Wrap(err, "failed to clear validation cache")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Len returns the number of cached results
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM validation_cache"); err != nil {
		return 0, errors.Wrap(err, "failed to count cache entries")
	}
	return n, nil
}
