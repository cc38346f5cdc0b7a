package validation

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/devkit-tools/devkit-validator/pkg/frontmatter"
)

var (
	ruleRequiredSections    = []section{newSection("Guidelines")}
	ruleRecommendedSections = []section{newSection("Context"), newSection("Examples")}
)

// RuleValidator checks rules/<name>.md files. Rules carry only a globs
// field, so the name and description checks are skipped.
type RuleValidator struct {
	pipeline
}

// NewRuleValidator creates a rule validator using rules
func NewRuleValidator(rules *Ruleset) *RuleValidator {
	return &RuleValidator{pipeline{
		rules:         rules,
		componentType: TypeRule,
		schema: schema{
			required: []string{"globs"},
		},
	}}
}

func (v *RuleValidator) ComponentType() string { return TypeRule }

func (v *RuleValidator) CanValidate(path string) bool {
	return rulePattern.MatchString(filepath.ToSlash(path))
}

func (v *RuleValidator) Validate(ctx context.Context, path string) *Result {
	return v.run(ctx, path, v.check)
}

func (v *RuleValidator) check(_ context.Context, c *component, r *Result) {
	v.checkGlobs(c, r)

	base := filepath.Base(c.path)
	if stem := strings.TrimSuffix(base, filepath.Ext(base)); !IsKebabCase(stem) {
		r.AddError(fmt.Sprintf("Rule filename must be kebab-case: '%s'", base), Finding{
			Suggestion: "Rename to kebab-case (e.g., 'naming-conventions.md')",
		})
	}

	if c.hasBody() {
		checkRequiredSections(c.outline, ruleRequiredSections, "rule file", r)
		checkRecommendedSections(c.outline, ruleRecommendedSections, r)
		checkBodyCrossReferences(c, r)
	}

	if n := lineCount(c.content); n > v.rules.Limits.MaxRuleLines {
		r.AddWarning(fmt.Sprintf("Rule file is too long: %d lines (max %d)", n, v.rules.Limits.MaxRuleLines), Finding{
			Suggestion: "Keep rule files concise and focused",
		})
	}
}

func (v *RuleValidator) checkGlobs(c *component, r *Result) {
	if !c.doc.Has("globs") {
		return
	}
	line := c.doc.Line("globs")

	switch globs := c.doc.Fields["globs"].(type) {
	case string:
		if strings.TrimSpace(globs) == "" {
			r.AddError("Empty globs value", Finding{
				Line:       line,
				Field:      "globs",
				Suggestion: "Provide a glob pattern (e.g., '**/*.java')",
			})
			return
		}
		if !strings.ContainsAny(globs, "*?{[") {
			r.AddWarning(fmt.Sprintf("Globs value '%s' contains no wildcard characters", globs), Finding{
				Line:       line,
				Field:      "globs",
				Suggestion: "Use glob patterns with wildcards (e.g., '**/*.java')",
			})
		}
		if _, err := glob.Compile(globs, '/'); err != nil {
			r.AddError(fmt.Sprintf("Invalid globs pattern '%s': %v", globs, err), Finding{
				Line:       line,
				Field:      "globs",
				Suggestion: "Check for unbalanced brackets or braces",
			})
		}
	case []any:
		r.AddError("Globs must be a string, not a list", Finding{
			Line:       line,
			Field:      "globs",
			Suggestion: `Use a single string value (e.g., globs: "**/*.java"). YAML arrays may cause loading issues with Claude Code rules.`,
		})
	default:
		r.AddError(fmt.Sprintf("Globs must be a string, got %s", frontmatter.TypeName(globs)), Finding{
			Line:       line,
			Field:      "globs",
			Suggestion: `Use a string value (e.g., globs: "**/*.java")`,
		})
	}
}
