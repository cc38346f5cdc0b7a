package validation

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/devkit-tools/devkit-validator/pkg/frontmatter"
)

var (
	agentRequiredSections = []section{
		newSection("Role", "Role", "You Are", "Description"),
		newSection("Process", "Process", "Workflow", "Steps", "When Invoked", "Instructions"),
		newSection("Guidelines", "Guidelines", "Best Practices", "Checklist", "Review Checklist", "Review Focus"),
	}
	agentRecommendedSections = []section{
		newSection("Skills Integration"),
		newSection("Common Patterns"),
		newSection("Output Format"),
	}
)

// AgentValidator checks agents/<name>.md files
type AgentValidator struct {
	pipeline
}

// NewAgentValidator creates an agent validator using rules
func NewAgentValidator(rules *Ruleset) *AgentValidator {
	return &AgentValidator{pipeline{
		rules:         rules,
		componentType: TypeAgent,
		schema: schema{
			required: []string{"name", "description", "tools"},
			optional: []string{"model", "permissionMode", "skills"},
		},
		commonFields: true,
	}}
}

func (v *AgentValidator) ComponentType() string { return TypeAgent }

func (v *AgentValidator) CanValidate(path string) bool {
	return agentPattern.MatchString(filepath.ToSlash(path))
}

func (v *AgentValidator) Validate(ctx context.Context, path string) *Result {
	return v.run(ctx, path, v.check)
}

func (v *AgentValidator) check(_ context.Context, c *component, r *Result) {
	checkTools(c, "tools", v.rules, r)
	v.checkModel(c, r)

	if !c.hasBody() {
		return
	}
	for _, s := range agentRequiredSections {
		if s.find(c.outline) == nil {
			r.AddError(fmt.Sprintf("Missing required section matching: '%s'", s.name), Finding{
				Suggestion: "Add a section like '## Role', '## Process', or '## Guidelines' to the agent",
			})
		}
	}
	checkRecommendedSections(c.outline, agentRecommendedSections, r)
	checkBodyCrossReferences(c, r)
}

// checkModel is stricter than the command check: agents should pin one of
// the agent models and "inherit" is discouraged.
func (v *AgentValidator) checkModel(c *component, r *Result) {
	if !c.doc.Has("model") {
		return
	}
	line := c.doc.Line("model")
	valid := strings.Join(sortedCopy(v.rules.AgentModels), ", ")

	model, ok := c.doc.Fields["model"].(string)
	if !ok {
		r.AddWarning(fmt.Sprintf("model should be a string, got %s", frontmatter.TypeName(c.doc.Fields["model"])), Finding{
			Line:       line,
			Field:      "model",
			Suggestion: "Use one of: " + valid,
		})
		return
	}

	switch lowered := strings.ToLower(model); {
	case lowered == "inherit":
		r.AddWarning("'inherit' model value is not recommended for agents", Finding{
			Line:       line,
			Field:      "model",
			Suggestion: "Explicitly specify model for better control: " + valid,
		})
	case !contains(v.rules.AgentModels, lowered):
		r.AddWarning(fmt.Sprintf("Invalid model value: '%s'", model), Finding{
			Line:       line,
			Field:      "model",
			Suggestion: "Use one of: " + valid,
		})
	}
}
