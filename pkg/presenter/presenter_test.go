package presenter

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	presenter := New()
	assert.NotNil(t, presenter)
	assert.Equal(t, os.Stdout, presenter.output)
	assert.Equal(t, os.Stderr, presenter.errorOutput)
	assert.False(t, presenter.quiet)
}

func TestNewWithOptions(t *testing.T) {
	var output, errorOutput bytes.Buffer
	presenter := NewWithOptions(&output, &errorOutput, ColorNever)

	assert.Equal(t, &output, presenter.output)
	assert.Equal(t, &errorOutput, presenter.errorOutput)
	assert.Equal(t, ColorNever, presenter.colorMode)
}

func TestDetectColorMode(t *testing.T) {
	tests := []struct {
		name     string
		noColor  string
		envColor string
		expected ColorMode
	}{
		{"NO_COLOR set", "1", "", ColorNever},
		{"NO_COLOR wins over always", "1", "always", ColorNever},
		{"always", "", "always", ColorAlways},
		{"force", "", "force", ColorAlways},
		{"never", "", "never", ColorNever},
		{"off", "", "off", ColorNever},
		{"auto", "", "auto", ColorAuto},
		{"default", "", "", ColorAuto},
		{"invalid value", "", "rainbow", ColorAuto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.noColor)
			t.Setenv("DEVKIT_VALIDATOR_COLOR", tt.envColor)
			if tt.noColor == "" {
				os.Unsetenv("NO_COLOR")
			}

			assert.Equal(t, tt.expected, detectColorMode())
		})
	}
}

func TestParseColorMode(t *testing.T) {
	assert.Equal(t, ColorAlways, ParseColorMode(" Always "))
	assert.Equal(t, ColorNever, ParseColorMode("OFF"))
	assert.Equal(t, ColorAuto, ParseColorMode(""))
}

func TestError(t *testing.T) {
	var errorOutput bytes.Buffer
	presenter := NewWithOptions(nil, &errorOutput, ColorNever)

	err := errors.New("cannot open repository")
	presenter.Error(err, "failed to collect staged files")

	output := errorOutput.String()
	assert.Contains(t, output, "[ERROR]")
	assert.Contains(t, output, "failed to collect staged files")
	assert.Contains(t, output, "cannot open repository")

	errorOutput.Reset()
	presenter.Error(err, "")
	assert.Equal(t, "[ERROR] cannot open repository\n", errorOutput.String())

	errorOutput.Reset()
	presenter.Error(nil, "context")
	assert.Empty(t, errorOutput.String())
}

func TestMessages(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)

	presenter.Success("Hook installed")
	presenter.Warning("No marketplace.json found")
	presenter.Info("No files to validate.")

	assert.Equal(t, "✓ Hook installed\n⚠ No marketplace.json found\nNo files to validate.\n", output.String())
}

func TestQuietModeSuppressesOutput(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)
	presenter.SetQuiet(true)

	presenter.Success("a")
	presenter.Warning("b")
	presenter.Info("c")
	presenter.Section("d")
	presenter.Separator()
	presenter.Tally("Summary", Count{Label: "passed", Value: 1})

	assert.Empty(t, output.String())
	assert.True(t, presenter.IsQuiet())

	presenter.SetQuiet(false)
	assert.False(t, presenter.IsQuiet())
}

func TestSection(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)

	presenter.Section("MCP Scan")

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "MCP Scan", lines[0])
	assert.Equal(t, "--------", lines[1])
}

func TestTally(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)

	presenter.Tally("Summary",
		Count{Label: "passed", Value: 3},
		Count{Label: "failed", Value: 1},
		Count{Label: "skipped", Value: 0},
	)
	assert.Equal(t, "[Summary] passed: 3 | failed: 1 | skipped: 0\n", output.String())

	output.Reset()
	presenter.Tally("Summary")
	assert.Empty(t, output.String())
}

func TestSeparator(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)

	presenter.Separator()

	assert.Equal(t, strings.Repeat("─", 60)+"\n", output.String())
}

func TestPrompt(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)
	presenter.SetInput(strings.NewReader("y\n"))

	answer := presenter.Prompt("Overwrite existing pre-commit hook?", "y", "N")

	assert.Equal(t, "y", answer)
	assert.Equal(t, "Overwrite existing pre-commit hook? [y/N]: ", output.String())
}

func TestPromptEOF(t *testing.T) {
	presenter := NewWithOptions(&bytes.Buffer{}, nil, ColorNever)
	presenter.SetInput(strings.NewReader(""))

	assert.Empty(t, presenter.Prompt("Continue?"))
}

func TestColorModeConfiguration(t *testing.T) {
	oldNoColor := color.NoColor
	defer func() { color.NoColor = oldNoColor }()

	NewWithOptions(&bytes.Buffer{}, &bytes.Buffer{}, ColorNever)
	assert.True(t, color.NoColor)

	p := NewWithOptions(&bytes.Buffer{}, &bytes.Buffer{}, ColorAlways)
	assert.False(t, color.NoColor)

	p.SetColorMode(ParseColorMode("never"))
	assert.True(t, color.NoColor)
}

func TestGlobalFunctions(t *testing.T) {
	originalPresenter := defaultPresenter
	defer func() { defaultPresenter = originalPresenter }()

	var output, errorOutput bytes.Buffer
	defaultPresenter = NewWithOptions(&output, &errorOutput, ColorNever)

	Error(errors.New("boom"), "validate")
	assert.Contains(t, errorOutput.String(), "[ERROR] validate: boom")

	Success("done")
	Warning("careful")
	Info("note")
	assert.Contains(t, output.String(), "✓ done")
	assert.Contains(t, output.String(), "⚠ careful")
	assert.Contains(t, output.String(), "note")

	SetQuiet(true)
	assert.True(t, IsQuiet())
	assert.Same(t, defaultPresenter, Default())
}
