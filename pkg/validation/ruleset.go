package validation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Limits are the size constraints enforced by the validators. Lengths count
// Unicode code points and line counts are newlines plus one.
type Limits struct {
	MaxNameLength          int `mapstructure:"max_name_length" json:"max_name_length"`
	MaxDescriptionLength   int `mapstructure:"max_description_length" json:"max_description_length"`
	MinDescriptionLength   int `mapstructure:"min_description_length" json:"min_description_length"`
	MaxCompatibilityLength int `mapstructure:"max_compatibility_length" json:"max_compatibility_length"`
	MaxSkillLines          int `mapstructure:"max_skill_lines" json:"max_skill_lines"`
	MaxSkillCharacters     int `mapstructure:"max_skill_characters" json:"max_skill_characters"`
	MaxRuleLines           int `mapstructure:"max_rule_lines" json:"max_rule_lines"`
}

// Ruleset is the effective set of constants used by every validator
type Ruleset struct {
	Limits               Limits   `json:"limits"`
	ValidTools           []string `json:"valid_tools"`
	ValidModels          []string `json:"valid_models"`
	AgentModels          []string `json:"agent_models"`
	ReservedWords        []string `json:"reserved_words"`
	SkillProhibitedFiles []string `json:"skill_prohibited_files"`
	SkillAllowedSubdirs  []string `json:"skill_allowed_subdirs"`
	SkillProhibited      []string `json:"skill_prohibited_fields"`
	KebabExemptFiles     []string `json:"kebab_exempt_files"`
	WhatKeywords         []string `json:"what_keywords"`
	WhenKeywords         []string `json:"when_keywords"`
}

// Overrides is the user-configurable part of the ruleset, decoded from the
// "rules" section of the configuration file.
type Overrides struct {
	Limits             map[string]int `mapstructure:"limits"`
	ExtraTools         []string       `mapstructure:"extra_tools"`
	ExtraReservedWords []string       `mapstructure:"extra_reserved_words"`
	ExtraKebabExempt   []string       `mapstructure:"extra_kebab_exempt"`
	ExtraWhatKeywords  []string       `mapstructure:"extra_what_keywords"`
	ExtraWhenKeywords  []string       `mapstructure:"extra_when_keywords"`
}

var (
	skillPattern       = regexp.MustCompile(`(?:.*/)?skills/.+/SKILL\.md$`)
	agentPattern       = regexp.MustCompile(`(?:.*/)?agents/[^/]+\.md$`)
	commandPattern     = regexp.MustCompile(`(?:\.claude/commands/|commands/)[^/]+\.md$`)
	rulePattern        = regexp.MustCompile(`(?:.*/)?rules/[^/]+\.md$`)
	markdownPattern    = regexp.MustCompile(`(?i)\.md$`)
	packagePattern     = regexp.MustCompile(`\.skill$`)
	pluginPattern      = regexp.MustCompile(`\.claude-plugin/plugin\.json$`)
	marketplacePattern = regexp.MustCompile(`\.claude-plugin/marketplace\.json$`)
	featureListPattern = regexp.MustCompile(`(?:^|/)feature[-_]list\.json$`)

	kebabCasePattern = regexp.MustCompile(`^[a-z][a-z0-9]*([-.][a-z0-9]+)*$`)
	semverPattern    = regexp.MustCompile(`(?i)^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(?:-([\da-z-]+(?:\.[\da-z-]+)*))?$`)
)

// DefaultRuleset returns the built-in ruleset
func DefaultRuleset() *Ruleset {
	return &Ruleset{
		Limits: Limits{
			MaxNameLength:          64,
			MaxDescriptionLength:   1024,
			MinDescriptionLength:   10,
			MaxCompatibilityLength: 500,
			MaxSkillLines:          500,
			MaxSkillCharacters:     20000,
			MaxRuleLines:           300,
		},
		ValidTools: []string{
			"Read", "Write", "Edit", "Bash", "Grep", "Glob", "Task", "WebFetch",
			"WebSearch", "NotebookEdit", "AskUserQuestion", "TodoWrite", "Skill",
		},
		ValidModels: []string{"sonnet", "opus", "haiku", "inherit"},
		AgentModels: []string{"sonnet", "opus", "haiku"},
		ReservedWords: []string{
			"help", "status", "model", "agents", "config",
			"compact", "memory", "slash", "command", "skills",
			"init", "clone", "add", "commit", "push", "pull",
			"test", "debug", "run", "build", "deploy",
		},
		SkillProhibitedFiles: []string{"README.md", "CHANGELOG.md"},
		SkillAllowedSubdirs:  []string{"scripts", "references", "assets"},
		SkillProhibited:      []string{"language", "framework", "context7_library", "context7_trust_score"},
		KebabExemptFiles: []string{
			"README.md", "CHANGELOG.md", "CLAUDE.md", "LICENSE.md", "CONTRIBUTING.md",
			"CODE_OF_CONDUCT.md", "SECURITY.md", "PRIVACY.md", "NOTICE.md", "AUTHORS.md",
			"COPYING.md", "INSTALL.md", "BUILD.md", "DEPLOY.md", "RELEASE.md",
			"VERSION.md", "TODO.md", "ROADMAP.md", "FAQ.md", "GUIDE.md",
			"TUTORIAL.md", "MANUAL.md", "QUICKSTART.md", "GETTING_STARTED.md", "SKILL.md",
		},
		WhatKeywords: []string{
			"does", "functionality", "capability", "skill", "creates",
			"generates", "validates", "processes", "transforms", "handles",
			"implements", "provides", "enables", "supports", "manages",
		},
		WhenKeywords: []string{
			"when", "use", "trigger", "context", "invoke", "if",
			"during", "before", "after", "while", "proactively",
		},
	}
}

// DecodeOverrides decodes the raw "rules" configuration map
func DecodeOverrides(raw map[string]any) (Overrides, error) {
	var o Overrides
	if len(raw) == 0 {
		return o, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &o,
	})
	if err != nil {
		return o, errors.Wrap(err, "failed to create rules decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return o, errors.Wrap(err, "failed to decode rules configuration")
	}
	return o, nil
}

// WithOverrides returns a copy of the ruleset with the overrides applied
func (r *Ruleset) WithOverrides(o Overrides) (*Ruleset, error) {
	out := *r

	if len(o.Limits) > 0 {
		limits := map[string]int{}
		if err := mapstructure.Decode(r.Limits, &limits); err != nil {
			return nil, errors.Wrap(err, "failed to read default limits")
		}
		for k, v := range o.Limits {
			if _, ok := limits[k]; !ok {
				return nil, errors.Errorf("unknown rules limit %q", k)
			}
			if v <= 0 {
				return nil, errors.Errorf("rules limit %q must be positive, got %d", k, v)
			}
			limits[k] = v
		}
		if err := mapstructure.Decode(limits, &out.Limits); err != nil {
			return nil, errors.Wrap(err, "failed to apply limit overrides")
		}
	}

	out.ValidTools = appendUnique(r.ValidTools, o.ExtraTools)
	out.ReservedWords = appendUnique(r.ReservedWords, o.ExtraReservedWords)
	out.KebabExemptFiles = appendUnique(r.KebabExemptFiles, o.ExtraKebabExempt)
	out.WhatKeywords = appendUnique(r.WhatKeywords, lower(o.ExtraWhatKeywords))
	out.WhenKeywords = appendUnique(r.WhenKeywords, lower(o.ExtraWhenKeywords))

	return &out, nil
}

// Fingerprint returns a stable digest of the effective ruleset. Cached
// results are only reused when the fingerprint matches.
func (r *Ruleset) Fingerprint() string {
	normalized := *r
	normalized.ValidTools = sortedCopy(r.ValidTools)
	normalized.ValidModels = sortedCopy(r.ValidModels)
	normalized.AgentModels = sortedCopy(r.AgentModels)
	normalized.ReservedWords = sortedCopy(r.ReservedWords)
	normalized.SkillProhibitedFiles = sortedCopy(r.SkillProhibitedFiles)
	normalized.SkillAllowedSubdirs = sortedCopy(r.SkillAllowedSubdirs)
	normalized.SkillProhibited = sortedCopy(r.SkillProhibited)
	normalized.KebabExemptFiles = sortedCopy(r.KebabExemptFiles)
	normalized.WhatKeywords = sortedCopy(r.WhatKeywords)
	normalized.WhenKeywords = sortedCopy(r.WhenKeywords)

	data, _ := json.Marshal(normalized)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// IsKebabCase reports whether s is lowercase kebab-case, dots allowed as
// namespace separators (e.g. "devkit.lra.add-feature")
func IsKebabCase(s string) bool {
	return kebabCasePattern.MatchString(s)
}

// IsSemver reports whether s is a semantic version
func IsSemver(s string) bool {
	return semverPattern.MatchString(s)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func appendUnique(base, extra []string) []string {
	out := append([]string{}, base...)
	for _, e := range extra {
		e = strings.TrimSpace(e)
		if e != "" && !contains(out, e) {
			out = append(out, e)
		}
	}
	return out
}

func lower(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func sortedCopy(in []string) []string {
	out := append([]string{}, in...)
	sort.Strings(out)
	return out
}

// firstSorted renders the first n sorted entries followed by an ellipsis,
// used in suggestions listing valid values.
func firstSorted(in []string, n int) string {
	s := sortedCopy(in)
	if len(s) > n {
		return strings.Join(s[:n], ", ") + "..."
	}
	return strings.Join(s, ", ")
}
