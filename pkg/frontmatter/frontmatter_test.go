package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSkill = `---
name: my-skill
description: Creates test fixtures. Use when writing unit tests.
allowed-tools: Read, Write
tags:
  - testing
  - java
---

# My Skill
`

func TestParseValid(t *testing.T) {
	doc, findings := Parse(validSkill)

	require.NotNil(t, doc)
	assert.Empty(t, findings)
	assert.Equal(t, []string{"name", "description", "allowed-tools", "tags"}, doc.Keys)
	assert.Equal(t, "my-skill", doc.Fields["name"])
	assert.Equal(t, []any{"testing", "java"}, doc.Fields["tags"])
	assert.Equal(t, 2, doc.Line("name"))
	assert.Equal(t, 4, doc.Line("allowed-tools"))
	assert.Equal(t, 0, doc.Line("version"))
	assert.True(t, doc.Has("tags"))
	assert.False(t, doc.Has("version"))
	assert.Equal(t, "# My Skill\n", doc.Body)
	assert.Equal(t, 10, doc.BodyLine)
}

func TestParseDelimiterErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		message string
	}{
		{"missing", "# Title\n", "Missing YAML frontmatter"},
		{"unclosed", "---\nname: x\n", "Unclosed YAML frontmatter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, findings := Parse(tt.content)

			assert.Nil(t, doc)
			require.Len(t, findings, 1)
			assert.Equal(t, LevelError, findings[0].Level)
			assert.Equal(t, 1, findings[0].Line)
			assert.Equal(t, tt.message, findings[0].Message)
		})
	}
}

func TestParseEmptyFrontmatter(t *testing.T) {
	doc, findings := Parse("---\n---\nbody")

	require.NotNil(t, doc)
	assert.Empty(t, findings)
	assert.Empty(t, doc.Fields)
	assert.Equal(t, "body", doc.Body)
}

func TestParseNonMapping(t *testing.T) {
	doc, findings := Parse("---\n- a\n- b\n---\n")

	assert.Nil(t, doc)
	require.Len(t, findings, 1)
	assert.Equal(t, "Frontmatter must be a YAML mapping", findings[0].Message)
}

func TestParseSyntaxErrorLine(t *testing.T) {
	doc, findings := Parse("---\nname: x\ndescription: a: b\n---\n")

	assert.Nil(t, doc)
	require.Len(t, findings, 1)
	assert.Equal(t, LevelError, findings[0].Level)
	assert.Equal(t, 3, findings[0].Line)
	assert.Contains(t, findings[0].Message, "Invalid YAML syntax")
}

func TestParseDuplicateKey(t *testing.T) {
	doc, findings := Parse("---\nname: a\ndescription: d\nname: b\n---\n")

	require.NotNil(t, doc)
	require.Len(t, findings, 1)
	assert.Equal(t, LevelWarning, findings[0].Level)
	assert.Equal(t, 4, findings[0].Line)
	assert.Equal(t, "Duplicate key 'name' (previously defined at line 2), the last value is used", findings[0].Message)

	assert.Equal(t, "b", doc.Fields["name"])
	assert.Equal(t, []string{"name", "description"}, doc.Keys)
	assert.Equal(t, 4, doc.Line("name"))
}

func TestLintUnquotedParenKey(t *testing.T) {
	doc, findings := Parse("---\ndescription: Handles: (1) parse, (2): emit\n---\n")

	assert.Nil(t, doc)
	require.Len(t, findings, 1)
	assert.Equal(t, LevelError, findings[0].Level)
	assert.Equal(t, 2, findings[0].Line)
	assert.Equal(t, "Potential YAML syntax error: '(2):' in unquoted string", findings[0].Message)
}

func TestLintInsideQuotesIsAllowed(t *testing.T) {
	findings, fatal := Lint("\ndescription: 'Handles (2): emit'\n")

	assert.False(t, fatal)
	assert.Empty(t, findings)
}

func TestLintDoubleQuotedParenWarning(t *testing.T) {
	doc, findings := Parse("---\ndescription: \"Steps (1) parse and (2) emit\"\n---\n")

	require.NotNil(t, doc)
	require.Len(t, findings, 1)
	assert.Equal(t, LevelWarning, findings[0].Level)
	assert.Equal(t, 2, findings[0].Line)
	assert.Equal(t, "Steps (1) parse and (2) emit", doc.Fields["description"])
}

func TestLintUnbalancedQuotes(t *testing.T) {
	findings, fatal := Lint("\n\"name: broken\n")

	assert.True(t, fatal)
	require.Len(t, findings, 1)
	assert.Equal(t, "Unbalanced quotes in YAML value at line 2", findings[0].Message)
}

func TestLintSkipsKeysAndComments(t *testing.T) {
	findings, fatal := Lint("\n# (1): comment\nmetadata:\n\n")

	assert.False(t, fatal)
	assert.Empty(t, findings)
}

func TestBody(t *testing.T) {
	assert.Equal(t, "text\n", Body("---\na: 1\n---\ntext\n"))
	assert.Equal(t, "", Body("no frontmatter"))
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "null", TypeName(nil))
	assert.Equal(t, "string", TypeName("x"))
	assert.Equal(t, "boolean", TypeName(true))
	assert.Equal(t, "integer", TypeName(3))
	assert.Equal(t, "float", TypeName(1.5))
	assert.Equal(t, "integer", TypeName(float64(7)))
	assert.Equal(t, "list", TypeName([]any{}))
	assert.Equal(t, "mapping", TypeName(map[string]any{}))
}
