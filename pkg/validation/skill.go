package validation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/devkit-tools/devkit-validator/pkg/frontmatter"
)

var (
	skillRequiredSections = []section{
		newSection("Overview"),
		newSection("When to Use"),
		newSection("Instructions"),
		newSection("Examples"),
	}
	skillRecommendedSections = []section{
		newSection("Best Practices"),
		newSection("Constraints and Warnings"),
	}

	examplesSection   = newSection("Examples")
	ioExampleHeading  = regexp.MustCompile(`(?i)^(?:Input|Output|Example\s+\d+|Example:)`)
	bareResourcePath  = regexp.MustCompile(`(?i)^(?:\s*[-*]?\s*)?(?:See|Run|Use|Check|Load|Read|Execute)?[\s:]*((?:scripts|references|assets)/\S+)`)
	resourceTrimChars = ".,;:)`'\""
)

// SkillValidator checks skills/<...>/<name>/SKILL.md files
type SkillValidator struct {
	pipeline
}

// NewSkillValidator creates a skill validator using rules
func NewSkillValidator(rules *Ruleset) *SkillValidator {
	return &SkillValidator{pipeline{
		rules:         rules,
		componentType: TypeSkill,
		schema: schema{
			required:   []string{"name", "description", "allowed-tools"},
			optional:   []string{"license", "compatibility", "metadata", "category", "tags", "version"},
			prohibited: rules.SkillProhibited,
		},
		commonFields: true,
	}}
}

func (v *SkillValidator) ComponentType() string { return TypeSkill }

func (v *SkillValidator) CanValidate(path string) bool {
	return skillPattern.MatchString(filepath.ToSlash(path))
}

func (v *SkillValidator) Validate(ctx context.Context, path string) *Result {
	return v.run(ctx, path, v.check)
}

func (v *SkillValidator) check(_ context.Context, c *component, r *Result) {
	skillDir := filepath.Dir(c.path)

	if name, ok := c.doc.Fields["name"].(string); ok {
		dirName := filepath.Base(skillDir)
		if name != dirName {
			r.AddError(fmt.Sprintf("Name mismatch: frontmatter has '%s' but directory is '%s'", name, dirName), Finding{
				Line:       c.doc.Line("name"),
				Field:      "name",
				Suggestion: fmt.Sprintf("Rename directory to '%s' or change name to '%s'", name, dirName),
			})
		}
	}

	checkTools(c, "allowed-tools", v.rules, r)
	v.checkVersion(c, r)
	v.checkTags(c, r)
	v.checkCategory(c, r)

	if c.hasBody() {
		checkRequiredSections(c.outline, skillRequiredSections, "SKILL.md", r)
		checkRecommendedSections(c.outline, skillRecommendedSections, r)
		v.checkExamples(c, r)
	}

	v.checkProhibitedFiles(skillDir, r)
	v.checkDirectoryStructure(skillDir, r)
	if c.hasBody() {
		v.checkResourceReferences(c, r)
	}
	v.checkProgressiveDisclosure(c, r)
	checkBodyCrossReferences(c, r)
}

func (v *SkillValidator) checkVersion(c *component, r *Result) {
	if !c.doc.Has("version") {
		return
	}
	line := c.doc.Line("version")

	version, ok := c.doc.Fields["version"].(string)
	if !ok {
		r.AddWarning(fmt.Sprintf("Version should be a string, got %s", frontmatter.TypeName(c.doc.Fields["version"])), Finding{
			Line:       line,
			Field:      "version",
			Suggestion: "Use semantic versioning (e.g., '1.0.0')",
		})
		return
	}
	if !IsSemver(version) {
		r.AddWarning(fmt.Sprintf("Invalid version format: '%s'", version), Finding{
			Line:       line,
			Field:      "version",
			Suggestion: "Use semantic versioning (e.g., '1.0.0', '2.1.0-beta')",
		})
	}
}

func (v *SkillValidator) checkTags(c *component, r *Result) {
	if !c.doc.Has("tags") {
		return
	}
	finding := Finding{
		Line:       c.doc.Line("tags"),
		Field:      "tags",
		Suggestion: "Use a YAML list of strings (e.g., [java, testing])",
	}

	tags, ok := c.doc.Fields["tags"].([]any)
	if !ok {
		r.AddWarning(fmt.Sprintf("tags should be a list, got %s", frontmatter.TypeName(c.doc.Fields["tags"])), finding)
		return
	}
	for _, tag := range tags {
		if _, ok := tag.(string); !ok {
			r.AddWarning(fmt.Sprintf("tags entries should be strings, got %s", frontmatter.TypeName(tag)), finding)
			return
		}
	}
}

func (v *SkillValidator) checkCategory(c *component, r *Result) {
	if !c.doc.Has("category") {
		return
	}
	if _, ok := c.doc.Fields["category"].(string); !ok {
		r.AddWarning(fmt.Sprintf("category should be a string, got %s", frontmatter.TypeName(c.doc.Fields["category"])), Finding{
			Line:       c.doc.Line("category"),
			Field:      "category",
			Suggestion: "Use a single category name (e.g., 'testing')",
		})
	}
}

// checkExamples warns when the Examples section has neither Input/Output
// style subsections nor a code block.
func (v *SkillValidator) checkExamples(c *component, r *Result) {
	examples := examplesSection.find(c.outline)
	if examples == nil {
		return
	}

	if len(c.outline.CodeBlocksAfter(examples.Pos)) > 0 {
		return
	}
	for _, h := range c.outline.HeadingsAfter(examples.Pos) {
		if h.Level >= 2 && h.Level <= 3 && ioExampleHeading.MatchString(h.Text) {
			return
		}
	}

	r.AddWarning("Missing Input/Output examples in Examples section", Finding{
		Line:       examples.Line,
		Suggestion: "Add concrete Input/Output examples with code blocks to demonstrate usage",
	})
}

func (v *SkillValidator) checkProhibitedFiles(skillDir string, r *Result) {
	for _, name := range v.rules.SkillProhibitedFiles {
		if _, err := os.Stat(filepath.Join(skillDir, name)); err == nil {
			r.AddError(fmt.Sprintf("Prohibited file found: %s", name), Finding{
				Suggestion: fmt.Sprintf("Remove %s from skill directory", name),
			})
		}
	}
}

// checkDirectoryStructure enforces the bundled resource layout: SKILL.md at
// the root and everything else under scripts/, references/ or assets/.
func (v *SkillValidator) checkDirectoryStructure(skillDir string, r *Result) {
	entries, err := os.ReadDir(skillDir)
	if err != nil {
		return
	}

	allowed := strings.Join(sortedCopy(v.rules.SkillAllowedSubdirs), ", ")
	for _, entry := range entries {
		name := entry.Name()
		if name == "SKILL.md" || strings.HasPrefix(name, ".") {
			continue
		}

		if entry.IsDir() {
			if !contains(v.rules.SkillAllowedSubdirs, name) {
				r.AddError(fmt.Sprintf("Non-standard directory found: '%s/'", name), Finding{
					Suggestion: fmt.Sprintf("Move contents to one of the allowed subdirectories: %s/", allowed),
				})
			}
			continue
		}

		r.AddError(fmt.Sprintf("Non-standard file at skill root: '%s'", name), Finding{
			Suggestion: fmt.Sprintf("Move '%s' into scripts/, references/, or assets/", name),
		})
	}
}

// checkResourceReferences keeps references to bundled resources one level
// deep, e.g. references/API.md but not references/api/v2.md.
func (v *SkillValidator) checkResourceReferences(c *component, r *Result) {
	checked := map[string]bool{}

	for _, link := range c.outline.Links {
		target, ok := localLinkTarget(link.Destination)
		if !ok {
			continue
		}
		v.checkResourceDepth(target, link.Line, checked, r)
	}

	for i, line := range strings.Split(c.doc.Body, "\n") {
		lineNum := c.doc.BodyLine + i
		if c.outline.InCodeBlock(lineNum) {
			continue
		}
		if m := bareResourcePath.FindStringSubmatch(line); m != nil {
			v.checkResourceDepth(strings.TrimRight(m[1], resourceTrimChars), lineNum, checked, r)
		}
	}
}

func (v *SkillValidator) checkResourceDepth(path string, line int, checked map[string]bool, r *Result) {
	for strings.HasPrefix(path, "./") {
		path = path[2:]
	}
	if checked[path] {
		return
	}
	checked[path] = true

	parts := strings.Split(path, "/")
	if !contains(v.rules.SkillAllowedSubdirs, parts[0]) {
		return
	}

	if len(parts) > 2 {
		r.AddWarning(fmt.Sprintf("Deep file reference: '%s' (%d levels deep)", path, len(parts)-1), Finding{
			Line:       line,
			Suggestion: "Keep references one level deep (e.g., 'references/FILE.md', not 'references/subdir/file.md')",
		})
	}
	if contains(parts, "..") {
		r.AddError(fmt.Sprintf("Invalid file reference: '%s' references parent directory", path), Finding{
			Line:       line,
			Suggestion: "Use relative paths within the skill directory only",
		})
	}
}

func (v *SkillValidator) checkProgressiveDisclosure(c *component, r *Result) {
	limits := v.rules.Limits

	if n := lineCount(c.content); n > limits.MaxSkillLines {
		r.AddWarning(fmt.Sprintf("SKILL.md is too long: %d lines (max %d)", n, limits.MaxSkillLines), Finding{
			Suggestion: "Move detailed content to separate files in references/",
		})
	}
	if n := utf8.RuneCountInString(c.content); n > limits.MaxSkillCharacters {
		r.AddWarning(fmt.Sprintf("SKILL.md is too large: %d characters (max %d, ~5000 tokens)", n, limits.MaxSkillCharacters), Finding{
			Suggestion: "Move detailed content to separate files in references/",
		})
	}
}
