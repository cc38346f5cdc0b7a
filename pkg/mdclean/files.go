package mdclean

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aymanbagabas/go-udiff"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"

	"github.com/devkit-tools/devkit-validator/pkg/discovery"
	"github.com/devkit-tools/devkit-validator/pkg/logger"
)

// DefaultMaxDiffLines truncates verbose diffs
const DefaultMaxDiffLines = 40

var skipDirs = map[string]bool{
	".git":         true,
	".github":      true,
	"node_modules": true,
	".venv":        true,
	"venv":         true,
}

// Change is a file whose cleaned content differs from what is on disk
type Change struct {
	Path string
	Rel  string
	Old  string
	New  string
}

// Plan is the outcome of a dry run
type Plan struct {
	Scanned int
	Changes []Change
}

// FindFiles returns every Markdown file under root, sorted
func FindFiles(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (skipDirs[d.Name()] || strings.HasPrefix(d.Name(), backupPrefix)) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".md") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to walk %s", root)
	}
	sort.Strings(files)
	return files, nil
}

// ReadText reads a file as UTF-8, decoding it as Latin-1 when it is not
// valid UTF-8.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", path)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", errors.Wrapf(err, "failed to decode %s", path)
	}
	return string(decoded), nil
}

// DryRun computes the changes Clean would make under root. Unreadable
// files are logged and skipped.
func DryRun(ctx context.Context, root string) (*Plan, error) {
	files, err := FindFiles(ctx, root)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Scanned: len(files)}
	for _, f := range files {
		text, err := ReadText(f)
		if err != nil {
			logger.G(ctx).WithError(err).WithField("file", f).Warn("skipping unreadable file")
			continue
		}
		if cleaned := Clean(ctx, text); cleaned != text {
			plan.Changes = append(plan.Changes, Change{
				Path: f,
				Rel:  discovery.Rel(root, f),
				Old:  text,
				New:  cleaned,
			})
		}
	}
	return plan, nil
}

// Diff renders a unified diff of the change truncated to maxLines. The
// second return value is the full diff length in lines.
func (c Change) Diff(maxLines int) (string, int) {
	diff := udiff.Unified(c.Rel+":original", c.Rel+":cleaned", c.Old, c.New)
	lines := strings.SplitAfter(strings.TrimSuffix(diff, "\n"), "\n")
	total := len(lines)
	if maxLines > 0 && total > maxLines {
		return strings.Join(lines[:maxLines], "") + "\n", total
	}
	return diff, total
}

const backupPrefix = ".md_clean_backups_"

// DefaultBackupDir is the timestamped backup directory under root
func DefaultBackupDir(root string, now time.Time) string {
	return filepath.Join(root, backupPrefix+now.UTC().Format("20060102T150405Z"))
}

// Apply backs each changed file up under backupDir, keeping its path
// relative to root, and writes the cleaned content. It returns the number
// of files written; failures of individual files are aggregated.
func Apply(ctx context.Context, changes []Change, backupDir string) (int, error) {
	var result *multierror.Error
	applied := 0
	for _, c := range changes {
		dest := filepath.Join(backupDir, filepath.FromSlash(c.Rel))
		if err := backup(c.Path, dest); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		info, err := os.Stat(c.Path)
		if err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "failed to stat %s", c.Path))
			continue
		}
		if err := os.WriteFile(c.Path, []byte(c.New), info.Mode().Perm()); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "failed to write %s", c.Path))
			continue
		}
		logger.G(ctx).WithField("file", c.Path).WithField("backup", dest).Debug("cleaned file")
		applied++
	}
	return applied, result.ErrorOrNil()
}

func backup(src, dest string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", src)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create backup directory for %s", src)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to back up %s", src)
	}
	return nil
}
