// Package gitutil answers the git questions the validator asks: where the
// repository root is, which files are staged, and which files changed
// relative to a base revision.
package gitutil

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
	"github.com/pkg/errors"

	"github.com/devkit-tools/devkit-validator/pkg/logger"
)

// DefaultBaseCandidates are tried in order when no base revision is given
var DefaultBaseCandidates = []string{"origin/main", "origin/develop", "HEAD~1"}

// ErrNotGitRepository is returned when no repository encloses a path
var ErrNotGitRepository = errors.New("not a git repository")

// Repo is an opened repository
type Repo struct {
	repo *gogit.Repository
	root string
}

// Open opens the repository enclosing path
func Open(path string) (*Repo, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return nil, ErrNotGitRepository
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open repository at %s", path)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open worktree")
	}
	return &Repo{repo: repo, root: wt.Filesystem.Root()}, nil
}

// RepoRoot returns the root of the repository enclosing start. Outside a
// repository the current directory is returned and a warning is logged.
func RepoRoot(ctx context.Context, start string) string {
	r, err := Open(start)
	if err == nil {
		return r.Root()
	}

	cwd, cwdErr := os.Getwd()
	if cwdErr != nil {
		cwd = "."
	}
	logger.G(ctx).WithError(err).WithField("fallback", cwd).Warn("could not determine repository root")
	return cwd
}

// Root returns the worktree root directory
func (r *Repo) Root() string {
	return r.root
}

// StagedFiles returns the files added, modified or copied in the index,
// joined with the repository root.
func (r *Repo) StagedFiles() ([]string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open worktree")
	}
	status, err := wt.Status()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read worktree status")
	}

	var files []string
	for path, s := range status {
		switch s.Staging {
		case gogit.Added, gogit.Modified, gogit.Copied:
			files = append(files, r.abs(path))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ChangedFiles returns the files that differ between the merge base of
// HEAD and base, and HEAD. Deleted files are omitted. With an empty base
// the DefaultBaseCandidates are tried in order.
func (r *Repo) ChangedFiles(ctx context.Context, base string) ([]string, error) {
	head, err := r.commit("HEAD")
	if err != nil {
		return nil, err
	}

	baseCommit, err := r.resolveBase(ctx, base)
	if err != nil {
		return nil, err
	}

	from := baseCommit
	bases, err := head.MergeBase(baseCommit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute merge base")
	}
	if len(bases) > 0 {
		from = bases[0]
	}

	return r.diff(from, head)
}

// MergeBase returns the hash of the merge base of HEAD and rev
func (r *Repo) MergeBase(rev string) (string, error) {
	head, err := r.commit("HEAD")
	if err != nil {
		return "", err
	}
	other, err := r.commit(rev)
	if err != nil {
		return "", err
	}
	bases, err := head.MergeBase(other)
	if err != nil {
		return "", errors.Wrap(err, "failed to compute merge base")
	}
	if len(bases) == 0 {
		return "", errors.Errorf("no merge base between HEAD and %s", rev)
	}
	return bases[0].Hash.String(), nil
}

func (r *Repo) resolveBase(ctx context.Context, base string) (*object.Commit, error) {
	if base != "" {
		return r.commit(base)
	}

	for _, candidate := range DefaultBaseCandidates {
		c, err := r.commit(candidate)
		if err == nil {
			logger.G(ctx).WithField("base", candidate).Debug("using base revision")
			return c, nil
		}
	}
	return nil, errors.Errorf("no base revision found (tried %v)", DefaultBaseCandidates)
}

func (r *Repo) commit(rev string) (*object.Commit, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve revision %s", rev)
	}
	c, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load commit %s", rev)
	}
	return c, nil
}

func (r *Repo) diff(from, to *object.Commit) ([]string, error) {
	fromTree, err := from.Tree()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load base tree")
	}
	toTree, err := to.Tree()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load head tree")
	}

	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, errors.Wrap(err, "failed to diff trees")
	}

	var files []string
	for _, change := range changes {
		action, err := change.Action()
		if err != nil {
			return nil, errors.Wrap(err, "failed to classify change")
		}
		if action == merkletrie.Delete {
			continue
		}
		files = append(files, r.abs(change.To.Name))
	}
	sort.Strings(files)
	return files, nil
}

func (r *Repo) abs(rel string) string {
	return filepath.Join(r.root, filepath.FromSlash(rel))
}
