package mdclean

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name: "web debris",
			input: "# Title {#title}¶\n\nIntro&nbsp;text with <b>bold</b> &amp; more.   \n" +
				"<!-- hidden -->\n<script>alert(1)</script>\n\n\nPermalink\nEdit on GitHub\n",
			want: "# Title\n\nIntro text with bold & more.\n",
		},
		{
			name:  "code fences untouched",
			input: "Text <br>\n\n```html\n<div>&amp;</div>   \n\n\n\n```\nAfter © 2024\n",
			want:  "Text\n\n```html\n<div>&amp;</div>   \n\n\n\n```\nAfter  2024\n",
		},
		{
			name:  "tilde fence and unterminated fence",
			input: "~~~\n<x>\n~~~\n<y>\n```\n<z>\n",
			want:  "~~~\n<x>\n~~~\n\n```\n<z>\n",
		},
		{
			name:  "toc and navigation",
			input: "[TOC]\n# Guide\nBack to top\n![logo](data:image/png;base64,AAAA)\n&lt;T&gt; &quot;q&quot; &apos;a&apos;\n",
			want:  "# Guide\n\n<T> \"q\" 'a'\n",
		},
		{
			name:  "already clean",
			input: "# Doc\n\nFine.\n",
			want:  "# Doc\n\nFine.\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(context.Background(), tt.input))
		})
	}
}

func TestClean_HTMLPage(t *testing.T) {
	page := "<!DOCTYPE html><html><head><title>x</title></head><body><h1>Hello</h1><p>World</p></body></html>"
	require.True(t, IsHTMLPage(page))
	assert.False(t, IsHTMLPage("# Title\n<html> is a tag"))

	got := Clean(context.Background(), page)
	assert.Contains(t, got, "Hello")
	assert.Contains(t, got, "World")
	assert.NotContains(t, got, "<")
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestDryRunAndApply(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "docs", "dirty.md"), []byte("# A\n\n\n\nText <i>x</i>\n"))
	writeFile(t, filepath.Join(root, "clean.md"), []byte("# B\n"))
	writeFile(t, filepath.Join(root, "latin.md"), []byte("caf\xe9  \n"))
	writeFile(t, filepath.Join(root, ".git", "x.md"), []byte("<b>x</b>"))
	writeFile(t, filepath.Join(root, "node_modules", "p", "README.md"), []byte("<b>x</b>"))
	writeFile(t, filepath.Join(root, "notes.txt"), []byte("<b>x</b>"))

	plan, err := DryRun(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 3, plan.Scanned)
	require.Len(t, plan.Changes, 2)
	assert.Equal(t, "docs/dirty.md", plan.Changes[0].Rel)
	assert.Equal(t, "# A\n\nText x\n", plan.Changes[0].New)
	assert.Equal(t, "latin.md", plan.Changes[1].Rel)
	assert.Equal(t, "café\n", plan.Changes[1].New)

	data, err := os.ReadFile(filepath.Join(root, "docs", "dirty.md"))
	require.NoError(t, err)
	assert.Equal(t, "# A\n\n\n\nText <i>x</i>\n", string(data), "dry run must not write")

	backups := DefaultBackupDir(root, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	assert.Equal(t, filepath.Join(root, ".md_clean_backups_20250102T030405Z"), backups)

	applied, err := Apply(context.Background(), plan.Changes, backups)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	data, err = os.ReadFile(filepath.Join(root, "docs", "dirty.md"))
	require.NoError(t, err)
	assert.Equal(t, "# A\n\nText x\n", string(data))
	data, err = os.ReadFile(filepath.Join(backups, "docs", "dirty.md"))
	require.NoError(t, err)
	assert.Equal(t, "# A\n\n\n\nText <i>x</i>\n", string(data))
	data, err = os.ReadFile(filepath.Join(backups, "latin.md"))
	require.NoError(t, err)
	assert.Equal(t, []byte("caf\xe9  \n"), data)

	again, err := DryRun(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, again.Changes, "backup directories are not rescanned")
}

func TestApply_AggregatesFailures(t *testing.T) {
	root := t.TempDir()
	changes := []Change{
		{Path: filepath.Join(root, "missing.md"), Rel: "missing.md", New: "x\n"},
		{Path: filepath.Join(root, "gone.md"), Rel: "gone.md", New: "y\n"},
	}
	applied, err := Apply(context.Background(), changes, filepath.Join(root, "bk"))
	assert.Equal(t, 0, applied)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors occurred")
}

func TestChange_Diff(t *testing.T) {
	c := Change{Rel: "a.md", Old: "1\n2\n3\n4\n", New: "1\nx\ny\n4\n"}

	full, total := c.Diff(0)
	assert.Contains(t, full, "--- a.md:original")
	assert.Contains(t, full, "+++ a.md:cleaned")
	assert.Contains(t, full, "-2\n")
	assert.Contains(t, full, "+y\n")

	short, n := c.Diff(3)
	assert.Equal(t, total, n)
	assert.Greater(t, total, 3)
	assert.NotContains(t, short, "+y")
}
