package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devkit-tools/devkit-validator/pkg/validation"
)

func sampleResults() []*validation.Result {
	ok := validation.NewResult("/repo/agents/reviewer.md", validation.TypeAgent)

	warned := validation.NewResult("/repo/skills/java/crud/SKILL.md", validation.TypeSkill)
	warned.AddWarning("Unknown field 'author'", validation.Finding{Line: 5, Field: "author"})

	failed := validation.NewResult("/repo/.claude/commands/Review.md", validation.TypeCommand)
	failed.AddError("Missing required field: 'description'", validation.Finding{
		Field:      "description",
		Suggestion: "Add a description",
	})
	failed.AddWarning("Missing recommended section: Examples", validation.Finding{})

	return []*validation.Result{ok, warned, failed}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatConsole, "JSON": FormatJSON, " plain ": FormatPlain, "console": FormatConsole} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.EqualError(t, err, `unknown format "xml" (expected console, plain or json)`)
}

func TestSummarizeAndExitCode(t *testing.T) {
	results := sampleResults()
	assert.Equal(t, Summary{TotalFiles: 3, FilesValid: 2, TotalErrors: 1, TotalWarnings: 2}, Summarize(results))
	assert.Equal(t, ExitFailed, ExitCode(results))
	assert.Equal(t, ExitOK, ExitCode(results[:2]))
	assert.Equal(t, ExitOK, ExitCode(nil))
}

func TestWrite_Plain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResults(), Options{Format: FormatPlain, Root: "/repo"}))

	want := `
✓ skills/java/crud/SKILL.md (skill)
  ⚠ line 5[author]: Unknown field 'author'

✗ .claude/commands/Review.md (command)
  ✗ frontmatter[description]: Missing required field: 'description'
    → Add a description
  ⚠ frontmatter: Missing recommended section: Examples

────────────────────────────────────────────────────────────
✗ Validation failed: 1 error(s), 2 warning(s)
`
	assert.Equal(t, want, buf.String())
}

func TestWrite_PlainVerboseAndQuiet(t *testing.T) {
	var verbose bytes.Buffer
	require.NoError(t, Write(&verbose, sampleResults(), Options{Format: FormatPlain, Root: "/repo", Verbose: true}))
	assert.Contains(t, verbose.String(), "✓ agents/reviewer.md (agent)\n")

	var quiet bytes.Buffer
	require.NoError(t, Write(&quiet, sampleResults(), Options{Format: FormatPlain, Root: "/repo", Quiet: true}))
	assert.NotContains(t, quiet.String(), "SKILL.md")
	assert.NotContains(t, quiet.String(), "⚠")
	assert.Contains(t, quiet.String(), "✗ .claude/commands/Review.md (command)")
}

func TestWrite_Summaries(t *testing.T) {
	results := sampleResults()

	var warn bytes.Buffer
	require.NoError(t, Write(&warn, results[:2], Options{Format: FormatPlain}))
	assert.Contains(t, warn.String(), "✓ 2/2 file(s) valid with 1 warning(s)\n")

	var clean bytes.Buffer
	require.NoError(t, Write(&clean, results[:1], Options{Format: FormatPlain}))
	assert.Equal(t, "\n"+strings.Repeat("─", 60)+"\n"+"✓ All 1 file(s) validated successfully\n", clean.String())

	var failed bytes.Buffer
	require.NoError(t, Write(&failed, results[2:], Options{Format: FormatPlain}))
	assert.Contains(t, failed.String(), "✗ Validation failed: 1 error(s), 1 warning(s)\n")

	errorsOnly := validation.NewResult("/repo/dist/a.skill", validation.TypeProhibited)
	errorsOnly.AddError("Prohibited .skill package found: 'a.skill'", validation.Finding{})
	var blocked bytes.Buffer
	require.NoError(t, Write(&blocked, []*validation.Result{errorsOnly}, Options{Format: FormatPlain}))
	assert.True(t, strings.HasSuffix(blocked.String(), "✗ Validation failed: 1 error(s)\n"), blocked.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResults(), Options{Format: FormatJSON, Root: "/repo", RunID: "run-1"}))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "run-1", doc["run_id"])
	assert.Contains(t, doc, "version")
	assert.Equal(t, map[string]any{
		"total_files": 3.0, "files_valid": 2.0, "total_errors": 1.0, "total_warnings": 2.0,
	}, doc["summary"])

	results := doc["results"].([]any)
	require.Len(t, results, 3)
	first := results[0].(map[string]any)
	assert.Equal(t, "agents/reviewer.md", first["file"])
	assert.Equal(t, true, first["is_valid"])
	assert.Equal(t, []any{}, first["issues"])

	issue := results[1].(map[string]any)["issues"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{
		"severity":    "warning",
		"message":     "Unknown field 'author'",
		"line_number": 5.0,
		"field":       "author",
		"suggestion":  nil,
	}, issue)
}

func TestNewDocument_GeneratesRunID(t *testing.T) {
	a := NewDocument(nil, Options{})
	b := NewDocument(nil, Options{})
	assert.Len(t, a.RunID, 36)
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.NotNil(t, a.Results)
}

func TestWriteBlocked(t *testing.T) {
	var buf bytes.Buffer
	WriteBlocked(&buf)
	assert.Contains(t, buf.String(), "Commit blocked")
	assert.Contains(t, buf.String(), "--no-verify")
}
