package validation

import (
	"context"
	"path/filepath"
)

// Component type identifiers reported on results
const (
	TypeSkill       = "skill"
	TypeAgent       = "agent"
	TypeCommand     = "command"
	TypeRule        = "rule"
	TypeFeatureList = "feature-list"
	TypeMarketplace = "marketplace"
	TypePlugin      = "plugin"
	TypeNaming      = "naming"
	TypeProhibited  = "prohibited"
)

// Validator checks one kind of component file
type Validator interface {
	ComponentType() string
	CanValidate(path string) bool
	Validate(ctx context.Context, path string) *Result
}

// Cacheable is implemented by validators whose result depends only on the
// file's own content and name, never on sibling files. Only their results
// may be served from the cache.
type Cacheable interface {
	Cacheable() bool
}

// IsCacheable reports whether v's results may be cached
func IsCacheable(v Validator) bool {
	c, ok := v.(Cacheable)
	return ok && c.Cacheable()
}

// Registry holds validators in priority order
type Registry struct {
	rules      *Ruleset
	validators []Validator
}

// NewRegistry creates the default registry. The order matters: a file is
// handled by the first validator that accepts it.
func NewRegistry(rules *Ruleset) *Registry {
	if rules == nil {
		rules = DefaultRuleset()
	}
	return &Registry{
		rules: rules,
		validators: []Validator{
			NewSkillValidator(rules),
			NewAgentValidator(rules),
			NewCommandValidator(rules),
			NewRuleValidator(rules),
			NewFeatureListValidator(rules),
			NewMarketplaceValidator(rules),
			NewPluginValidator(rules),
			NewDocumentValidator(rules),
			NewSkillPackageValidator(rules),
		},
	}
}

// Ruleset returns the rules shared by the registry's validators
func (r *Registry) Ruleset() *Ruleset {
	return r.rules
}

// Validators returns the registered validators in priority order
func (r *Registry) Validators() []Validator {
	return r.validators
}

// ValidatorFor returns the first validator accepting path, or nil
func (r *Registry) ValidatorFor(path string) Validator {
	slashed := filepath.ToSlash(path)
	for _, v := range r.validators {
		if v.CanValidate(slashed) {
			return v
		}
	}
	return nil
}

// Filter keeps only the paths some validator accepts, preserving order
func (r *Registry) Filter(paths []string) []string {
	var out []string
	for _, p := range paths {
		if r.ValidatorFor(p) != nil {
			out = append(out, p)
		}
	}
	return out
}
