package validation

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/devkit-tools/devkit-validator/pkg/frontmatter"
	"github.com/devkit-tools/devkit-validator/pkg/markdown"
)

var (
	commandRequiredSections = []section{
		newSection("Overview"),
		newSection("Usage"),
		newSection("Arguments"),
		newSection("Examples"),
	}

	// commandSectionOrder is the order sections must appear in. Headings not
	// listed here may appear anywhere.
	commandSectionOrder = []section{
		newSection("Overview"),
		newSection("Usage"),
		newSection("Arguments"),
		newSection("Current Context"),
		newSection("Execution Steps"),
		newSection("Execution Instructions"),
		newSection("Integration with Sub-agents"),
		newSection("Examples"),
	}

	argumentHintPattern = regexp.MustCompile(`^\s*(?:(?:\[[^\]]+\]|<[^>]+>)\s*)+$`)
)

// CommandValidator checks slash command files under commands/ or
// .claude/commands/
type CommandValidator struct {
	pipeline
}

// NewCommandValidator creates a command validator using rules
func NewCommandValidator(rules *Ruleset) *CommandValidator {
	return &CommandValidator{pipeline{
		rules:         rules,
		componentType: TypeCommand,
		schema: schema{
			required: []string{"description", "allowed-tools"},
			optional: []string{"argument-hint", "model", "disable-model-invocation"},
		},
		commonFields: true,
	}}
}

func (v *CommandValidator) ComponentType() string { return TypeCommand }

func (v *CommandValidator) CanValidate(path string) bool {
	return commandPattern.MatchString(filepath.ToSlash(path))
}

func (v *CommandValidator) Validate(ctx context.Context, path string) *Result {
	return v.run(ctx, path, v.check)
}

func (v *CommandValidator) check(_ context.Context, c *component, r *Result) {
	checkTools(c, "allowed-tools", v.rules, r)
	checkModel(c, v.rules, true, r)
	checkBoolean(c, "disable-model-invocation", r)
	v.checkFilename(c.path, r)
	v.checkArgumentHint(c, r)

	if !c.hasBody() {
		return
	}
	checkRequiredSections(c.outline, commandRequiredSections, "command file", r)
	checkSectionOrder(c.outline, r)
	v.checkExamples(c.outline, r)
	checkBodyCrossReferences(c, r)
}

// checkFilename enforces the slash command naming convention: the file stem
// is the command name, kebab-case with dot namespaces (devkit.java.code-review).
func (v *CommandValidator) checkFilename(path string, r *Result) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if !IsKebabCase(stem) {
		r.AddError(fmt.Sprintf("Command filename must be kebab-case: '%s'", base), Finding{
			Suggestion: fmt.Sprintf("Rename to '%s.md' (dots may separate namespaces, e.g. 'devkit.java.code-review.md')", ToKebabCase(stem)),
		})
	}
}

func (v *CommandValidator) checkArgumentHint(c *component, r *Result) {
	if !c.doc.Has("argument-hint") {
		return
	}
	finding := Finding{
		Line:       c.doc.Line("argument-hint"),
		Field:      "argument-hint",
		Suggestion: "Describe arguments as bracketed tokens, e.g. '[review-type] [path] [options]'",
	}

	switch hint := c.doc.Fields["argument-hint"].(type) {
	case string:
		if !argumentHintPattern.MatchString(hint) {
			r.AddWarning(fmt.Sprintf("argument-hint should list [arg] or <arg> tokens, got '%s'", hint), finding)
		}
	case []any:
		for _, item := range hint {
			if _, ok := item.(string); !ok {
				r.AddWarning(fmt.Sprintf("argument-hint entries should be strings, got %s", frontmatter.TypeName(item)), finding)
				return
			}
		}
	default:
		r.AddWarning(fmt.Sprintf("argument-hint should be a string, got %s", frontmatter.TypeName(hint)), finding)
	}
}

func (v *CommandValidator) checkExamples(o *markdown.Outline, r *Result) {
	examples := examplesSection.find(o)
	if examples == nil {
		return
	}

	end := o.SectionEnd(*examples)
	for _, cb := range o.CodeBlocksAfter(examples.Pos) {
		if end < 0 || cb.Pos < end {
			return
		}
	}

	r.AddWarning("Examples section has no code block", Finding{
		Line:       examples.Line,
		Suggestion: "Show at least one invocation in a fenced code block",
	})
}

type orderedHeading struct {
	index   int
	heading markdown.Heading
}

// checkSectionOrder reports sections that appear after a section which
// should follow them.
func checkSectionOrder(o *markdown.Outline, r *Result) {
	var found []orderedHeading
	for _, h := range o.Headings {
		if h.Level > maxSectionLevel {
			continue
		}
		for i, s := range commandSectionOrder {
			if s.pattern.MatchString(h.Text) {
				found = append(found, orderedHeading{index: i, heading: h})
				break
			}
		}
	}

	names := make([]string, len(commandSectionOrder))
	for i, s := range commandSectionOrder {
		names[i] = s.name
	}
	correctOrder := strings.Join(names, " → ")

	last := -1
	for _, f := range found {
		if f.index >= last {
			last = f.index
			continue
		}

		current := commandSectionOrder[f.index].name
		var before string
		for _, prev := range found {
			if prev.heading.Pos < f.heading.Pos && prev.index > f.index {
				before = commandSectionOrder[prev.index].name
				break
			}
		}

		suggestion := "Correct order: " + correctOrder
		if before != "" {
			suggestion = fmt.Sprintf("Move '## %s' before '## %s' (correct order: %s)", current, before, correctOrder)
		}
		r.AddError(fmt.Sprintf("Section '## %s' is out of order", current), Finding{
			Line:       f.heading.Line,
			Suggestion: suggestion,
		})
	}
}
