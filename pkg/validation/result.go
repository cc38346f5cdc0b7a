// Package validation implements the lint rules applied to plugin marketplace
// components: skills, agents, slash commands, rules, plugin and marketplace
// manifests, LRA feature lists and general documentation files.
//
// Findings are data. A validator never returns a Go error for a broken
// component; it records Issues on a Result instead.
package validation

import (
	"fmt"
)

// Severity classifies an Issue
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is a single finding reported for a file
type Issue struct {
	Severity   Severity `json:"severity"`
	FilePath   string   `json:"-"`
	Message    string   `json:"message"`
	Line       int      `json:"line_number,omitempty"`
	Field      string   `json:"field,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Location renders where the issue was found, e.g. "line 3[name]"
func (i Issue) Location() string {
	location := "frontmatter"
	if i.Line > 0 {
		location = fmt.Sprintf("line %d", i.Line)
	}
	if i.Field != "" {
		location += "[" + i.Field + "]"
	}
	return location
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Location(), i.Message)
}

// Result aggregates the issues found in one file
type Result struct {
	FilePath      string  `json:"file"`
	ComponentType string  `json:"component_type"`
	Issues        []Issue `json:"issues"`
}

// NewResult creates an empty result for the given file
func NewResult(path, componentType string) *Result {
	return &Result{
		FilePath:      path,
		ComponentType: componentType,
		Issues:        []Issue{},
	}
}

// IsValid reports whether no error-level issue was recorded
func (r *Result) IsValid() bool {
	return !r.HasErrors()
}

// HasErrors reports whether any error-level issue was recorded
func (r *Result) HasErrors() bool {
	return r.has(SeverityError)
}

// HasWarnings reports whether any warning-level issue was recorded
func (r *Result) HasWarnings() bool {
	return r.has(SeverityWarning)
}

func (r *Result) has(s Severity) bool {
	for _, i := range r.Issues {
		if i.Severity == s {
			return true
		}
	}
	return false
}

// Errors returns the error-level issues
func (r *Result) Errors() []Issue {
	return r.filter(SeverityError)
}

// Warnings returns the warning-level issues
func (r *Result) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

func (r *Result) filter(s Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == s {
			out = append(out, i)
		}
	}
	return out
}

// AddIssue appends an issue, stamping the result's file path on it
func (r *Result) AddIssue(issue Issue) {
	issue.FilePath = r.FilePath
	r.Issues = append(r.Issues, issue)
}

// Finding describes the optional location and remedy of an issue
type Finding struct {
	Line       int
	Field      string
	Suggestion string
}

// AddError records an error-level issue
func (r *Result) AddError(message string, f Finding) {
	r.add(SeverityError, message, f)
}

// AddWarning records a warning-level issue
func (r *Result) AddWarning(message string, f Finding) {
	r.add(SeverityWarning, message, f)
}

// AddInfo records an informational issue
func (r *Result) AddInfo(message string, f Finding) {
	r.add(SeverityInfo, message, f)
}

func (r *Result) add(s Severity, message string, f Finding) {
	r.AddIssue(Issue{
		Severity:   s,
		Message:    message,
		Line:       f.Line,
		Field:      f.Field,
		Suggestion: f.Suggestion,
	})
}
