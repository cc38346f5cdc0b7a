package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root string, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
}

func relAll(root string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = Rel(root, p)
	}
	return out
}

func TestFindAll(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"skills/testing/junit/SKILL.md",
		"skills/testing/junit/references/api.md",
		"agents/reviewer.md",
		"agents/nested/ignored.md",
		".claude/commands/review.md",
		"commands/deploy-app.md",
		"plugins/java/skills/spring/crud/SKILL.md",
		"plugins/java/agents/java-reviewer.md",
		"plugins/java/commands/devkit/code-review.md",
		"plugins/java/rules/naming-conventions.md",
		"plugins/java/docs/guides/setup.md",
		"plugins/java/.claude-plugin/plugin.json",
		"plugins/java/README.md",
		"docs/getting-started.md",
		".claude-plugin/marketplace.json",
		"specs/auth/feature_list.json",
		"feature-list.json",
		"node_modules/pkg/skills/x/SKILL.md",
		".venv/docs/readme.md",
		"README.md",
		"main.go",
	)

	files, err := FindAll(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		".claude-plugin/marketplace.json",
		".claude/commands/review.md",
		"agents/reviewer.md",
		"commands/deploy-app.md",
		"docs/getting-started.md",
		"feature-list.json",
		"plugins/java/.claude-plugin/plugin.json",
		"plugins/java/agents/java-reviewer.md",
		"plugins/java/commands/devkit/code-review.md",
		"plugins/java/docs/guides/setup.md",
		"plugins/java/rules/naming-conventions.md",
		"plugins/java/skills/spring/crud/SKILL.md",
		"skills/testing/junit/SKILL.md",
		"specs/auth/feature_list.json",
	}, relAll(root, files))
}

func TestFinder_Exclude(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "agents/a.md", "agents/draft-b.md", "plugins/old/agents/c.md")

	f, err := NewFinder(WithExclude("**/draft-*.md", "plugins/old/**"))
	require.NoError(t, err)

	files, err := f.FindAll(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"agents/a.md"}, relAll(root, files))
}

func TestFinder_CustomPatterns(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a/one.md", "a/b/two.md", "c.txt")

	f, err := NewFinder(WithPatterns("**/*.md"))
	require.NoError(t, err)

	files, err := f.FindAll(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b/two.md", "a/one.md"}, relAll(root, files))
}

func TestNewFinder_InvalidPattern(t *testing.T) {
	_, err := NewFinder(WithExclude("docs/[abc"))
	assert.ErrorContains(t, err, `invalid glob pattern "docs/[abc"`)
}

func TestFindAll_Cancelled(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "agents/a.md")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FindAll(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExclude(t *testing.T) {
	root := filepath.Join("repo")
	paths := []string{
		filepath.Join(root, "agents", "a.md"),
		filepath.Join(root, "docs", "legacy", "old.md"),
		filepath.Join(root, "docs", "new.md"),
	}

	got, err := Exclude(root, paths, []string{"docs/legacy/**"})
	require.NoError(t, err)
	assert.Equal(t, []string{paths[0], paths[2]}, got)

	got, err = Exclude(root, paths, nil)
	require.NoError(t, err)
	assert.Equal(t, paths, got)

	_, err = Exclude(root, paths, []string{"[z"})
	assert.Error(t, err)
}

func TestRel(t *testing.T) {
	assert.Equal(t, "agents/a.md", Rel("/repo", "/repo/agents/a.md"))
	assert.Equal(t, "/elsewhere/a.md", Rel("/repo", "/elsewhere/a.md"))
	assert.Equal(t, "agents/a.md", Rel(".", "agents/a.md"))
}

func TestIsSkippedDir(t *testing.T) {
	assert.True(t, IsSkippedDir("node_modules"))
	assert.True(t, IsSkippedDir(".git"))
	assert.False(t, IsSkippedDir("skills"))
}
