package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/devkit-tools/devkit-validator/pkg/validation"
)

const ruleWidth = 60

type palette struct {
	ok, err, warn, info, dim func(a ...any) string
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) func(a ...any) string {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return palette{
		ok:   mk(color.FgGreen),
		err:  mk(color.FgRed),
		warn: mk(color.FgYellow),
		info: mk(color.FgCyan),
		dim:  mk(color.Faint),
	}
}

func (p palette) symbol(s validation.Severity) string {
	switch s {
	case validation.SeverityError:
		return p.err("✗")
	case validation.SeverityWarning:
		return p.warn("⚠")
	default:
		return p.info("ℹ")
	}
}

func visible(r *validation.Result, quiet bool) []validation.Issue {
	if !quiet {
		return r.Issues
	}
	return r.Errors()
}

func writeConsole(w io.Writer, results []*validation.Result, opts Options, p palette) error {
	for _, r := range results {
		issues := visible(r, opts.Quiet)
		if len(issues) == 0 && !opts.Verbose {
			continue
		}

		header := p.ok("✓")
		if r.HasErrors() {
			header = p.err("✗")
		}
		fmt.Fprintf(w, "\n%s %s (%s)\n", header, displayPath(opts.Root, r.FilePath), r.ComponentType)
		for _, i := range issues {
			fmt.Fprintf(w, "  %s %s: %s\n", p.symbol(i.Severity), i.Location(), i.Message)
			if i.Suggestion != "" {
				fmt.Fprintf(w, "    %s %s\n", p.dim("→"), i.Suggestion)
			}
		}
	}

	s := Summarize(results)
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("─", ruleWidth))
	switch {
	case s.TotalErrors > 0:
		parts := []string{fmt.Sprintf("%d error(s)", s.TotalErrors)}
		if s.TotalWarnings > 0 {
			parts = append(parts, fmt.Sprintf("%d warning(s)", s.TotalWarnings))
		}
		fmt.Fprintln(w, p.err("✗ Validation failed: "+strings.Join(parts, ", ")))
	case s.TotalWarnings > 0:
		fmt.Fprintln(w, p.warn(fmt.Sprintf("✓ %d/%d file(s) valid with %d warning(s)", s.FilesValid, s.TotalFiles, s.TotalWarnings)))
	default:
		fmt.Fprintln(w, p.ok(fmt.Sprintf("✓ All %d file(s) validated successfully", s.TotalFiles)))
	}
	return nil
}
