// Package discovery locates marketplace component files in a repository.
package discovery

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/devkit-tools/devkit-validator/pkg/logger"
)

// DefaultPatterns are the slash-separated doublestar patterns, relative to
// the repository root, that identify component files.
var DefaultPatterns = []string{
	"skills/**/SKILL.md",
	"agents/*.md",
	".claude/commands/*.md",
	"commands/*.md",
	"plugins/*/skills/**/SKILL.md",
	"plugins/*/agents/*.md",
	"plugins/*/commands/**/*.md",
	"plugins/*/rules/*.md",
	"plugins/*/docs/**/*.md",
	"plugins/*/.claude-plugin/plugin.json",
	"docs/**/*.md",
	".claude-plugin/marketplace.json",
	"**/{feature-list,feature_list}.json",
}

// SkipDirs are never descended into
var SkipDirs = []string{".git", "node_modules", ".venv", "venv"}

// IsSkippedDir reports whether a directory with this base name is ignored
func IsSkippedDir(name string) bool {
	for _, d := range SkipDirs {
		if name == d {
			return true
		}
	}
	return false
}

// Finder walks a repository collecting files matching its patterns
type Finder struct {
	patterns []string
	exclude  []string
}

// Option configures a Finder
type Option func(*Finder)

// WithPatterns replaces the default include patterns
func WithPatterns(patterns ...string) Option {
	return func(f *Finder) { f.patterns = patterns }
}

// WithExclude drops files matching any of the doublestar patterns
func WithExclude(patterns ...string) Option {
	return func(f *Finder) { f.exclude = append(f.exclude, patterns...) }
}

// NewFinder creates a Finder. Invalid patterns are reported up front.
func NewFinder(opts ...Option) (*Finder, error) {
	f := &Finder{patterns: DefaultPatterns}
	for _, opt := range opts {
		opt(f)
	}

	if err := validatePatterns(f.patterns); err != nil {
		return nil, err
	}
	if err := validatePatterns(f.exclude); err != nil {
		return nil, err
	}
	return f, nil
}

// FindAll returns the component files under root with the default patterns
func FindAll(ctx context.Context, root string) ([]string, error) {
	f, err := NewFinder()
	if err != nil {
		return nil, err
	}
	return f.FindAll(ctx, root)
}

// FindAll returns the matching files under root, sorted and joined with
// root.
func (f *Finder) FindAll(ctx context.Context, root string) ([]string, error) {
	var found []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			logger.G(ctx).WithError(err).WithField("path", path).Debug("skipping unreadable path")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && IsSkippedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		rel := Rel(root, path)
		if matchAny(f.patterns, rel) && !matchAny(f.exclude, rel) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to walk %s", root)
	}

	sort.Strings(found)
	return found, nil
}

// Exclude drops the paths matching any pattern. Patterns are matched
// against the slash form of each path relative to root.
func Exclude(root string, paths, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return paths, nil
	}
	if err := validatePatterns(patterns); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !matchAny(patterns, Rel(root, p)) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Rel returns path relative to root in slash form. Paths outside root are
// returned unchanged.
func Rel(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func validatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return errors.Errorf("invalid glob pattern %q", p)
		}
	}
	return nil
}
