package catalog

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func fixture(t *testing.T) string {
	root := t.TempDir()
	writeFile(t, root, "plugins/java/skills/spring-crud/SKILL.md", `---
name: spring-crud
description: Generate CRUD endpoints. Use when scaffolding a REST resource.
---

# Spring CRUD
`)
	writeFile(t, root, "plugins/java/agents/reviewer.md", `---
name: java-reviewer
description: Reviews Java code
---
# Reviewer
`)
	writeFile(t, root, "plugins/java/rules/naming.md", `---
globs: "src/**/*.java, test/**/*.java"
---
# Naming
`)
	writeFile(t, root, "plugins/ts/rules/style.md", `---
globs:
  - "**/*.ts"
---
# Style
`)
	writeFile(t, root, ".claude/commands/code-review.md", `---
description: Review the current diff
---
# Code review
`)
	writeFile(t, root, "agents/no-frontmatter.md", "# Plain agent\n")
	writeFile(t, root, "docs/guide.md", "# Guide\n")
	return root
}

func TestList(t *testing.T) {
	root := fixture(t)

	components, err := New(root).List(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []Component{
		{Name: "code-review", Type: "command", Description: "Review the current diff", Path: ".claude/commands/code-review.md"},
		{Name: "no-frontmatter", Type: "agent", Path: "agents/no-frontmatter.md"},
		{Name: "java-reviewer", Type: "agent", Description: "Reviews Java code", Path: "plugins/java/agents/reviewer.md", Plugin: "java"},
		{Name: "naming", Type: "rule", Path: "plugins/java/rules/naming.md", Plugin: "java", Globs: []string{"src/**/*.java", "test/**/*.java"}},
		{Name: "spring-crud", Type: "skill", Description: "Generate CRUD endpoints. Use when scaffolding a REST resource.", Path: "plugins/java/skills/spring-crud/SKILL.md", Plugin: "java"},
		{Name: "style", Type: "rule", Path: "plugins/ts/rules/style.md", Plugin: "ts", Globs: []string{"**/*.ts"}},
	}, components)
}

func TestList_FilterAndExclude(t *testing.T) {
	root := fixture(t)

	rules, err := New(root, WithExclude("plugins/ts/**")).List(context.Background(), "rule")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "naming", rules[0].Name)

	_, err = New(root).List(context.Background(), "plugin")
	assert.EqualError(t, err, `unknown component type "plugin" (expected one of skill, agent, command, rule)`)
}

func TestLoadMetadata(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "bad.md", "---\nname: [unclosed\n---\n")
	_, err := LoadMetadata(filepath.Join(root, "bad.md"))
	assert.ErrorContains(t, err, "invalid frontmatter")

	_, err = LoadMetadata(filepath.Join(root, "missing.md"))
	assert.ErrorContains(t, err, "failed to read component file")
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, []Component{
		{Type: "skill", Name: "a", Path: "skills/a/SKILL.md", Description: "short"},
		{Type: "agent", Name: "long", Path: "agents/long.md", Description: "This description is deliberately much longer than sixty characters in total"},
	}))

	out := buf.String()
	assert.Contains(t, out, "TYPE   NAME  PATH               DESCRIPTION\n")
	assert.Contains(t, out, "skill  a     skills/a/SKILL.md  short\n")
	assert.Contains(t, out, "This description is deliberately much longer than sixty c...")
}
