package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/devkit-tools/devkit-validator/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateConfig_Selection(t *testing.T) {
	tests := []struct {
		name   string
		config ValidateConfig
		want   string
	}{
		{name: "default", want: "staged"},
		{name: "files", config: ValidateConfig{Files: []string{"a.md"}, All: true}, want: "files"},
		{name: "all", config: ValidateConfig{All: true}, want: "all"},
		{name: "changed", config: ValidateConfig{Changed: true}, want: "changed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.config.Selection())
		})
	}
}

func TestRunValidate_NoComponents(t *testing.T) {
	notes := writeFile(t, filepath.Join(t.TempDir(), "notes.txt"), "hello")

	var stdout, stderr bytes.Buffer
	code := runValidate(context.Background(), &ValidateConfig{Files: []string{notes}, Format: "plain"}, &stdout, &stderr)
	assert.Equal(t, report.ExitOK, code)
	assert.Equal(t, "No components to validate.\n", stdout.String())
}

func TestRunValidate_Failure(t *testing.T) {
	pkg := writeFile(t, filepath.Join(t.TempDir(), "dist", "tool.skill"), "zip")

	var stdout, stderr bytes.Buffer
	config := &ValidateConfig{Files: []string{pkg}, Format: "plain", Jobs: 1, PreCommit: true}
	code := runValidate(context.Background(), config, &stdout, &stderr)
	assert.Equal(t, report.ExitFailed, code)
	assert.Contains(t, stdout.String(), "Validating components...\n")
	assert.Contains(t, stdout.String(), "✗ Validation failed")
	assert.Contains(t, stderr.String(), "Commit blocked")
}

func TestRunValidate_JSON(t *testing.T) {
	pkg := writeFile(t, filepath.Join(t.TempDir(), "dist", "tool.skill"), "zip")

	var stdout, stderr bytes.Buffer
	config := &ValidateConfig{Files: []string{pkg}, Format: "json", PreCommit: true}
	code := runValidate(context.Background(), config, &stdout, &stderr)
	assert.Equal(t, report.ExitFailed, code)
	assert.Empty(t, stderr.String())

	var doc report.Document
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
	assert.Equal(t, 1, doc.Summary.TotalFiles)
	assert.Positive(t, doc.Summary.TotalErrors)
	require.Len(t, doc.Results, 1)
	assert.False(t, doc.Results[0].IsValid)
}

func TestRunValidate_BadFormat(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runValidate(context.Background(), &ValidateConfig{Format: "xml"}, &stdout, &stderr)
	assert.Equal(t, report.ExitSystemError, code)
	assert.Empty(t, stdout.String())
}
