// Package schema publishes JSON Schemas for component frontmatter and LRA
// feature records, generated from typed Go structs.
package schema

import (
	"encoding/json"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

// SkillFrontmatter is the frontmatter of a SKILL.md file
type SkillFrontmatter struct {
	Name          string         `json:"name" jsonschema:"required,pattern=^[a-z0-9]+(-[a-z0-9]+)*$,maxLength=64" jsonschema_description:"Kebab-case name matching the skill directory"`
	Description   string         `json:"description" jsonschema:"required,minLength=10,maxLength=1024" jsonschema_description:"What the skill does and when to use it"`
	AllowedTools  any            `json:"allowed-tools" jsonschema:"required,oneof_type=string;array" jsonschema_description:"Comma separated string or list of tool names"`
	License       string         `json:"license,omitempty"`
	Compatibility string         `json:"compatibility,omitempty" jsonschema:"maxLength=500"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Category      string         `json:"category,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	Version       string         `json:"version,omitempty" jsonschema_description:"Semantic version, e.g. 1.2.0"`
}

// AgentFrontmatter is the frontmatter of an agent definition
type AgentFrontmatter struct {
	Name           string   `json:"name" jsonschema:"required,pattern=^[a-z0-9]+(-[a-z0-9]+)*$,maxLength=64"`
	Description    string   `json:"description" jsonschema:"required,minLength=10,maxLength=1024"`
	Tools          any      `json:"tools" jsonschema:"required,oneof_type=string;array"`
	Model          string   `json:"model,omitempty" jsonschema:"enum=sonnet,enum=opus,enum=haiku"`
	PermissionMode string   `json:"permissionMode,omitempty"`
	Skills         []string `json:"skills,omitempty"`
}

// CommandFrontmatter is the frontmatter of a slash command
type CommandFrontmatter struct {
	Description            string `json:"description" jsonschema:"required,minLength=10,maxLength=1024"`
	AllowedTools           any    `json:"allowed-tools" jsonschema:"required,oneof_type=string;array"`
	ArgumentHint           string `json:"argument-hint,omitempty" jsonschema_description:"Bracketed argument grammar, e.g. [path] [--fix]"`
	Model                  string `json:"model,omitempty" jsonschema_description:"sonnet, opus, haiku, inherit or a full claude-* model id"`
	DisableModelInvocation bool   `json:"disable-model-invocation,omitempty"`
}

// RuleFrontmatter is the frontmatter of a plugin rule
type RuleFrontmatter struct {
	Globs any `json:"globs" jsonschema:"required,oneof_type=string;array" jsonschema_description:"Comma separated string or list of file globs the rule applies to"`
}

// Feature is one LRA feature tracking record
type Feature struct {
	ID                 string   `json:"id" jsonschema:"required,minLength=1"`
	Category           string   `json:"category" jsonschema:"required"`
	Priority           any      `json:"priority" jsonschema:"required,oneof_type=string;integer" jsonschema_description:"critical, high, medium, low or a numeric rank"`
	Description        string   `json:"description" jsonschema:"required,minLength=1"`
	AcceptanceCriteria []string `json:"acceptance_criteria" jsonschema:"required,minItems=1"`
	Status             string   `json:"status" jsonschema:"required,enum=pending,enum=passed,enum=failed"`
	CompletedAt        *string  `json:"completed_at,omitempty" jsonschema:"oneof_type=string;null" jsonschema_description:"RFC 3339 timestamp, required once the feature passed"`
	Notes              string   `json:"notes,omitempty"`
}

type entry struct {
	value       any
	title       string
	description string
}

var schemas = map[string]entry{
	"skill":   {&SkillFrontmatter{}, "Skill frontmatter", "YAML frontmatter of skills/**/SKILL.md"},
	"agent":   {&AgentFrontmatter{}, "Agent frontmatter", "YAML frontmatter of agents/*.md"},
	"command": {&CommandFrontmatter{}, "Command frontmatter", "YAML frontmatter of slash commands"},
	"rule":    {&RuleFrontmatter{}, "Rule frontmatter", "YAML frontmatter of plugins/*/rules/*.md"},
	"feature": {&Feature{}, "LRA feature", "One record of feature_list.json"},
}

// Names lists the available schemas
func Names() []string {
	names := make([]string, 0, len(schemas))
	for n := range schemas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// For reflects the named schema
func For(name string) (*jsonschema.Schema, error) {
	e, ok := schemas[name]
	if !ok {
		return nil, errors.Errorf("unknown schema %q (available: %v)", name, Names())
	}
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
	s := r.Reflect(e.value)
	s.ID = jsonschema.ID("https://devkit-tools.dev/schemas/" + name + ".json")
	s.Title = e.title
	s.Description = e.description
	return s, nil
}

// JSON renders the named schema as indented JSON
func JSON(name string) ([]byte, error) {
	s, err := For(name)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode schema")
	}
	return data, nil
}
