package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_ValidatorFor(t *testing.T) {
	reg := NewRegistry(nil)

	tests := map[string]string{
		"skills/testing/junit/SKILL.md":                TypeSkill,
		"plugins/java/agents/java-reviewer.md":         TypeAgent,
		".claude/commands/devkit.review.md":            TypeCommand,
		"plugins/java/commands/review.md":              TypeCommand,
		"plugins/java/rules/naming-conventions.md":     TypeRule,
		"specs/feature_list.json":                      TypeFeatureList,
		".claude-plugin/marketplace.json":              TypeMarketplace,
		"plugins/java/.claude-plugin/plugin.json":      TypePlugin,
		"docs/getting-started.md":                      TypeNaming,
		"skills/testing/junit/references/api-guide.md": TypeNaming,
		"dist/junit.skill":                             TypeProhibited,
		"README.md":                                    "",
		"main.go":                                      "",
	}

	for path, want := range tests {
		v := reg.ValidatorFor(path)
		if want == "" {
			assert.Nil(t, v, path)
			continue
		}
		if assert.NotNil(t, v, path) {
			assert.Equal(t, want, v.ComponentType(), path)
		}
	}
}

func TestRegistry_Filter(t *testing.T) {
	reg := NewRegistry(DefaultRuleset())

	got := reg.Filter([]string{"main.go", "agents/a.md", "README.md", "docs/b.md", "go.mod"})

	assert.Equal(t, []string{"agents/a.md", "docs/b.md"}, got)
	assert.Len(t, reg.Validators(), 9)
	assert.NotNil(t, reg.Ruleset())
}
