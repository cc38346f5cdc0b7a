// Package report renders validation results for terminals, CI logs and
// machine consumers.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/devkit-tools/devkit-validator/pkg/discovery"
	"github.com/devkit-tools/devkit-validator/pkg/validation"
	"github.com/devkit-tools/devkit-validator/pkg/version"
)

// Exit codes of the validate command
const (
	ExitOK          = 0
	ExitFailed      = 1
	ExitSystemError = 2
)

// Format selects the report renderer
type Format string

const (
	FormatConsole Format = "console"
	FormatPlain   Format = "plain"
	FormatJSON    Format = "json"
)

// ParseFormat validates a user supplied format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatConsole, FormatPlain, FormatJSON:
		return f, nil
	case "":
		return FormatConsole, nil
	default:
		return "", errors.Errorf("unknown format %q (expected console, plain or json)", s)
	}
}

// Options controls rendering
type Options struct {
	Format Format
	// Verbose lists files without issues too.
	Verbose bool
	// Quiet hides warnings and informational findings.
	Quiet bool
	// Root, when set, makes reported paths relative to it.
	Root string
	// RunID is generated when empty.
	RunID string
}

// Summary aggregates counts over a run
type Summary struct {
	TotalFiles    int `json:"total_files"`
	FilesValid    int `json:"files_valid"`
	TotalErrors   int `json:"total_errors"`
	TotalWarnings int `json:"total_warnings"`
}

// Summarize counts files, errors and warnings
func Summarize(results []*validation.Result) Summary {
	s := Summary{TotalFiles: len(results)}
	for _, r := range results {
		if r.IsValid() {
			s.FilesValid++
		}
		s.TotalErrors += len(r.Errors())
		s.TotalWarnings += len(r.Warnings())
	}
	return s
}

// ExitCode maps results to the process exit status
func ExitCode(results []*validation.Result) int {
	if Summarize(results).TotalErrors > 0 {
		return ExitFailed
	}
	return ExitOK
}

// Write renders results to w in the selected format
func Write(w io.Writer, results []*validation.Result, opts Options) error {
	switch opts.Format {
	case FormatJSON:
		return WriteJSON(w, results, opts)
	case FormatPlain:
		return writeConsole(w, results, opts, newPalette(false))
	default:
		return writeConsole(w, results, opts, newPalette(!color.NoColor))
	}
}

// Document is the JSON report
type Document struct {
	RunID   string       `json:"run_id"`
	Version string       `json:"version"`
	Summary Summary      `json:"summary"`
	Results []FileReport `json:"results"`
}

// FileReport is the JSON form of one result
type FileReport struct {
	File          string        `json:"file"`
	ComponentType string        `json:"component_type"`
	IsValid       bool          `json:"is_valid"`
	Issues        []IssueReport `json:"issues"`
}

// IssueReport is the JSON form of one issue
type IssueReport struct {
	Severity   validation.Severity `json:"severity"`
	Message    string              `json:"message"`
	LineNumber *int                `json:"line_number"`
	Field      *string             `json:"field"`
	Suggestion *string             `json:"suggestion"`
}

// NewDocument builds the JSON report for results
func NewDocument(results []*validation.Result, opts Options) Document {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	doc := Document{
		RunID:   runID,
		Version: version.Version,
		Summary: Summarize(results),
		Results: make([]FileReport, 0, len(results)),
	}
	for _, r := range results {
		fr := FileReport{
			File:          displayPath(opts.Root, r.FilePath),
			ComponentType: r.ComponentType,
			IsValid:       r.IsValid(),
			Issues:        make([]IssueReport, 0, len(r.Issues)),
		}
		for _, i := range r.Issues {
			ir := IssueReport{Severity: i.Severity, Message: i.Message}
			if i.Line > 0 {
				line := i.Line
				ir.LineNumber = &line
			}
			if i.Field != "" {
				field := i.Field
				ir.Field = &field
			}
			if i.Suggestion != "" {
				suggestion := i.Suggestion
				ir.Suggestion = &suggestion
			}
			fr.Issues = append(fr.Issues, ir)
		}
		doc.Results = append(doc.Results, fr)
	}
	return doc
}

// WriteJSON writes the indented JSON report
func WriteJSON(w io.Writer, results []*validation.Result, opts Options) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(results, opts)); err != nil {
		return errors.Wrap(err, "failed to encode report")
	}
	return nil
}

// WriteBlocked prints the pre-commit banner shown when a commit is rejected
func WriteBlocked(w io.Writer) {
	p := newPalette(!color.NoColor)
	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintln(w)
	fmt.Fprintln(w, p.err(rule))
	fmt.Fprintln(w, p.err("Commit blocked: fix the validation errors above and try again."))
	fmt.Fprintln(w, "To bypass in an emergency: git commit --no-verify")
	fmt.Fprintln(w, p.err(rule))
}

func displayPath(root, path string) string {
	if root == "" {
		return path
	}
	return discovery.Rel(root, path)
}
