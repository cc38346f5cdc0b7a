package validation

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/devkit-tools/devkit-validator/pkg/markdown"
)

var (
	camelBoundary = regexp.MustCompile(`([a-z])([A-Z])`)
	dashRun       = regexp.MustCompile(`-+`)
)

// DocumentValidator checks markdown files that are not components: the file
// name must be kebab-case and relative links must resolve.
type DocumentValidator struct {
	rules *Ruleset
}

// NewDocumentValidator creates a document validator using rules
func NewDocumentValidator(rules *Ruleset) *DocumentValidator {
	return &DocumentValidator{rules: rules}
}

func (v *DocumentValidator) ComponentType() string { return TypeNaming }

func (v *DocumentValidator) CanValidate(path string) bool {
	if !markdownPattern.MatchString(path) || !strings.EqualFold(filepath.Ext(path), ".md") {
		return false
	}
	return !contains(v.rules.KebabExemptFiles, filepath.Base(path))
}

func (v *DocumentValidator) Validate(_ context.Context, path string) *Result {
	r := NewResult(path, TypeNaming)

	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if !IsKebabCase(stem) {
		r.AddError(fmt.Sprintf("Filename must use kebab-case: '%s'", base), Finding{
			Suggestion: fmt.Sprintf("Rename to '%s.md' or similar", ToKebabCase(stem)),
		})
	}

	content, ok := readText(path, r)
	if !ok {
		return r
	}
	checkCrossReferences(path, content, 1, markdown.Parse(content, 0), r)

	return r
}

// ToKebabCase converts a file stem to kebab-case on a best effort basis
func ToKebabCase(name string) string {
	out := strings.ReplaceAll(name, "_", "-")
	out = strings.ReplaceAll(out, " ", "-")
	out = strings.ToLower(camelBoundary.ReplaceAllString(out, "${1}-${2}"))
	out = dashRun.ReplaceAllString(out, "-")
	return strings.Trim(out, "-")
}

// SkillPackageValidator rejects packaged .skill archives, which are build
// outputs and must not be committed.
type SkillPackageValidator struct{}

// NewSkillPackageValidator creates a skill package validator
func NewSkillPackageValidator(_ *Ruleset) *SkillPackageValidator {
	return &SkillPackageValidator{}
}

func (v *SkillPackageValidator) ComponentType() string { return TypeProhibited }

func (v *SkillPackageValidator) CanValidate(path string) bool {
	return packagePattern.MatchString(path)
}

func (v *SkillPackageValidator) Cacheable() bool { return true }

func (v *SkillPackageValidator) Validate(_ context.Context, path string) *Result {
	r := NewResult(path, TypeProhibited)
	r.AddError(fmt.Sprintf("Prohibited .skill package found: '%s'", filepath.Base(path)), Finding{
		Suggestion: "Remove .skill files - they are build outputs and should not be committed",
	})
	return r
}
