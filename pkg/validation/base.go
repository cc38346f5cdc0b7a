package validation

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/devkit-tools/devkit-validator/pkg/frontmatter"
	"github.com/devkit-tools/devkit-validator/pkg/logger"
	"github.com/devkit-tools/devkit-validator/pkg/markdown"
)

// maxSectionLevel is the deepest heading level that counts as a section
const maxSectionLevel = 3

type schema struct {
	required   []string
	optional   []string
	prohibited []string
}

func (s schema) known(field string) bool {
	return contains(s.required, field) || contains(s.optional, field)
}

// component is a markdown component whose front-matter decoded cleanly
type component struct {
	path    string
	content string
	doc     *frontmatter.Document
	outline *markdown.Outline
}

// hasBody reports whether a line ending the front-matter was found. Files
// whose closing delimiter is the last line get no section checks.
func (c *component) hasBody() bool {
	return c.doc.BodyLine > 0
}

type specificCheck func(ctx context.Context, c *component, r *Result)

// pipeline is the shared read, front-matter, schema and field check
// sequence used by every markdown component validator.
type pipeline struct {
	rules         *Ruleset
	componentType string
	schema        schema
	// commonFields enables the name, description and compatibility checks.
	commonFields bool
}

func (p pipeline) run(ctx context.Context, path string, specific specificCheck) *Result {
	r := NewResult(path, p.componentType)
	log := logger.G(ctx).WithField("file", path).WithField("component_type", p.componentType)

	content, ok := readText(path, r)
	if !ok {
		return r
	}

	doc, findings := frontmatter.Parse(content)
	for _, f := range findings {
		finding := Finding{Line: f.Line, Suggestion: f.Suggestion}
		if f.Level == frontmatter.LevelError {
			r.AddError(f.Message, finding)
		} else {
			r.AddWarning(f.Message, finding)
		}
	}
	if doc == nil {
		log.Debug("frontmatter could not be decoded")
		return r
	}

	p.checkSchema(doc, r)
	if p.commonFields {
		p.checkName(doc, r)
		p.checkDescription(doc, r)
		p.checkCompatibility(doc, r)
	}

	c := &component{
		path:    path,
		content: content,
		doc:     doc,
	}
	if doc.BodyLine > 0 {
		c.outline = markdown.Parse(doc.Body, doc.BodyLine-1)
	} else {
		c.outline = &markdown.Outline{}
	}

	if specific != nil {
		specific(ctx, c, r)
	}

	log.WithField("issues", len(r.Issues)).Debug("validated component")
	return r
}

// readText reads path as UTF-8 text. On failure the error is recorded on r
// and false is returned.
func readText(path string, r *Result) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			r.AddError(fmt.Sprintf("File not found: %s", path), Finding{
				Suggestion: "Verify the file path is correct",
			})
		} else {
			r.AddError(fmt.Sprintf("Cannot read file: %v", err), Finding{
				Suggestion: "Check file permissions",
			})
		}
		return "", false
	}

	if !utf8.Valid(data) {
		r.AddError("File is not valid UTF-8", Finding{
			Suggestion: "Ensure the file uses UTF-8 encoding",
		})
		return "", false
	}
	return string(data), true
}

func (p pipeline) checkSchema(doc *frontmatter.Document, r *Result) {
	for _, field := range p.schema.prohibited {
		if doc.Has(field) {
			r.AddError(fmt.Sprintf("Prohibited field: '%s'", field), Finding{
				Line:       doc.Line(field),
				Field:      field,
				Suggestion: fmt.Sprintf("Remove '%s' from frontmatter", field),
			})
		}
	}

	for _, field := range p.schema.required {
		if !doc.Has(field) {
			r.AddError(fmt.Sprintf("Missing required field: '%s'", field), Finding{
				Field:      field,
				Suggestion: fmt.Sprintf("Add '%s: value' to frontmatter", field),
			})
		}
	}

	for _, field := range doc.Keys {
		if !p.schema.known(field) && !contains(p.schema.prohibited, field) {
			r.AddWarning(fmt.Sprintf("Unknown field: '%s'", field), Finding{
				Line:       doc.Line(field),
				Field:      field,
				Suggestion: fmt.Sprintf("Remove '%s' or verify it's needed", field),
			})
		}
	}
}

func (p pipeline) checkName(doc *frontmatter.Document, r *Result) {
	if !doc.Has("name") {
		return
	}
	line := doc.Line("name")

	name, ok := doc.Fields["name"].(string)
	if !ok {
		r.AddError(fmt.Sprintf("Name must be a string, got %s", frontmatter.TypeName(doc.Fields["name"])), Finding{
			Line:       line,
			Field:      "name",
			Suggestion: "Ensure name is a plain string value",
		})
		return
	}

	limit := p.rules.Limits.MaxNameLength
	if n := utf8.RuneCountInString(name); n > limit {
		r.AddError(fmt.Sprintf("Name too long: %d characters (max %d)", n, limit), Finding{
			Line:       line,
			Field:      "name",
			Suggestion: fmt.Sprintf("Shorten name to %d characters or less", limit),
		})
	}

	if !IsKebabCase(name) {
		r.AddError(fmt.Sprintf("Invalid name format: '%s'", name), Finding{
			Line:       line,
			Field:      "name",
			Suggestion: "Use kebab-case (e.g., 'my-component-name')",
		})
	}

	if contains(p.rules.ReservedWords, strings.ToLower(name)) {
		r.AddError(fmt.Sprintf("Reserved word used as name: '%s'", name), Finding{
			Line:       line,
			Field:      "name",
			Suggestion: fmt.Sprintf("Choose a different name (reserved: %s)", firstSorted(p.rules.ReservedWords, 5)),
		})
	}
}

func (p pipeline) checkDescription(doc *frontmatter.Document, r *Result) {
	if !doc.Has("description") {
		return
	}
	line := doc.Line("description")

	description, ok := doc.Fields["description"].(string)
	if !ok {
		r.AddError(fmt.Sprintf("Description must be a string, got %s", frontmatter.TypeName(doc.Fields["description"])), Finding{
			Line:       line,
			Field:      "description",
			Suggestion: "Ensure description is a plain string value",
		})
		return
	}

	limit := p.rules.Limits.MaxDescriptionLength
	if n := utf8.RuneCountInString(description); n > limit {
		r.AddWarning(fmt.Sprintf("Description too long: %d characters (max %d)", n, limit), Finding{
			Line:       line,
			Field:      "description",
			Suggestion: fmt.Sprintf("Shorten description to %d characters", limit),
		})
	}

	lowered := strings.ToLower(description)
	var missing []string
	if !containsAny(lowered, p.rules.WhatKeywords) {
		missing = append(missing, "WHAT")
	}
	if !containsAny(lowered, p.rules.WhenKeywords) {
		missing = append(missing, "WHEN")
	}
	if len(missing) > 0 {
		r.AddWarning(fmt.Sprintf("Description may be missing: %s information", strings.Join(missing, ", ")), Finding{
			Line:       line,
			Field:      "description",
			Suggestion: "Include what the component does AND when to use it",
		})
	}
}

func (p pipeline) checkCompatibility(doc *frontmatter.Document, r *Result) {
	if !doc.Has("compatibility") {
		return
	}
	line := doc.Line("compatibility")

	compatibility, ok := doc.Fields["compatibility"].(string)
	if !ok {
		r.AddError(fmt.Sprintf("Compatibility must be a string, got %s", frontmatter.TypeName(doc.Fields["compatibility"])), Finding{
			Line:       line,
			Field:      "compatibility",
			Suggestion: "Ensure compatibility is a plain string value",
		})
		return
	}

	limit := p.rules.Limits.MaxCompatibilityLength
	if n := utf8.RuneCountInString(compatibility); n > limit {
		r.AddError(fmt.Sprintf("Compatibility too long: %d characters (max %d)", n, limit), Finding{
			Line:       line,
			Field:      "compatibility",
			Suggestion: fmt.Sprintf("Shorten compatibility to %d characters or less", limit),
		})
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// checkTools validates a tool list given either as a comma separated string
// or a YAML list. Entries may carry arguments, e.g. "Bash(git add:*)".
func checkTools(c *component, field string, rules *Ruleset, r *Result) {
	if !c.doc.Has(field) {
		return
	}
	line := c.doc.Line(field)

	var tools []string
	switch v := c.doc.Fields[field].(type) {
	case string:
		for _, t := range strings.Split(v, ",") {
			tools = append(tools, strings.TrimSpace(t))
		}
	case []any:
		for _, t := range v {
			if s, ok := t.(string); ok {
				tools = append(tools, s)
			}
		}
	default:
		r.AddWarning(fmt.Sprintf("%s should be a string or list, got %s", field, frontmatter.TypeName(v)), Finding{
			Line:       line,
			Field:      field,
			Suggestion: "Use comma-separated string or YAML list",
		})
		return
	}

	for _, tool := range tools {
		base := strings.TrimSpace(strings.SplitN(tool, "(", 2)[0])
		if base != "" && !contains(rules.ValidTools, base) {
			r.AddWarning(fmt.Sprintf("Unknown tool: '%s'", base), Finding{
				Line:       line,
				Field:      field,
				Suggestion: fmt.Sprintf("Valid tools: %s", firstSorted(rules.ValidTools, 5)),
			})
		}
	}
}

// checkModel validates a model alias. Commands may also name a full model
// id starting with "claude-".
func checkModel(c *component, rules *Ruleset, allowFullNames bool, r *Result) {
	if !c.doc.Has("model") {
		return
	}
	line := c.doc.Line("model")
	valid := strings.Join(sortedCopy(rules.ValidModels), ", ")

	model, ok := c.doc.Fields["model"].(string)
	if !ok {
		r.AddWarning(fmt.Sprintf("model should be a string, got %s", frontmatter.TypeName(c.doc.Fields["model"])), Finding{
			Line:       line,
			Field:      "model",
			Suggestion: "Use one of: " + valid,
		})
		return
	}

	ok = contains(rules.ValidModels, strings.ToLower(model))
	if allowFullNames && strings.HasPrefix(model, "claude-") {
		ok = true
	}
	if !ok {
		r.AddWarning(fmt.Sprintf("Invalid model value: '%s'", model), Finding{
			Line:       line,
			Field:      "model",
			Suggestion: "Use one of: " + valid,
		})
	}
}

func checkBoolean(c *component, field string, r *Result) {
	if !c.doc.Has(field) {
		return
	}
	if _, ok := c.doc.Fields[field].(bool); !ok {
		r.AddWarning(fmt.Sprintf("%s should be a boolean, got %s", field, frontmatter.TypeName(c.doc.Fields[field])), Finding{
			Line:       c.doc.Line(field),
			Field:      field,
			Suggestion: "Use 'true' or 'false'",
		})
	}
}

// section is a named markdown section matched by heading text
type section struct {
	name    string
	pattern *regexp.Regexp
}

// newSection builds a case-insensitive prefix matcher for heading text.
// Spaces in alternatives match any whitespace run.
func newSection(name string, alternatives ...string) section {
	if len(alternatives) == 0 {
		alternatives = []string{name}
	}
	parts := make([]string, len(alternatives))
	for i, alt := range alternatives {
		words := strings.Fields(alt)
		for j, w := range words {
			words[j] = regexp.QuoteMeta(w)
		}
		parts[i] = strings.Join(words, `\s+`)
	}
	return section{
		name:    name,
		pattern: regexp.MustCompile(`(?i)^(?:` + strings.Join(parts, "|") + `)`),
	}
}

func (s section) find(o *markdown.Outline) *markdown.Heading {
	return o.FindHeading(maxSectionLevel, s.pattern)
}

// checkRecommendedSections adds a warning per missing section
func checkRecommendedSections(o *markdown.Outline, sections []section, r *Result) {
	for _, s := range sections {
		if s.find(o) == nil {
			r.AddWarning(fmt.Sprintf("Missing recommended section: '## %s'", s.name), Finding{
				Suggestion: fmt.Sprintf("Consider adding '## %s' section", s.name),
			})
		}
	}
}

// checkRequiredSections adds an error per missing section
func checkRequiredSections(o *markdown.Outline, sections []section, target string, r *Result) {
	for _, s := range sections {
		if s.find(o) == nil {
			r.AddError(fmt.Sprintf("Missing required section: '## %s'", s.name), Finding{
				Suggestion: fmt.Sprintf("Add '## %s' section to %s", s.name, target),
			})
		}
	}
}

// localLinkTarget extracts the repository-relative path of a markdown link
// destination, reporting false for URLs, anchors, absolute paths and
// template placeholders.
func localLinkTarget(dest string) (string, bool) {
	dest = strings.TrimSpace(dest)
	if dest == "" || strings.HasPrefix(dest, "#") || strings.HasPrefix(dest, "/") {
		return "", false
	}
	if strings.Contains(dest, "://") || strings.ContainsAny(dest, "{}<>$") {
		return "", false
	}
	lowered := strings.ToLower(dest)
	for _, scheme := range []string{"mailto:", "tel:", "data:", "javascript:"} {
		if strings.HasPrefix(lowered, scheme) {
			return "", false
		}
	}

	if i := strings.IndexAny(dest, "#?"); i >= 0 {
		dest = dest[:i]
	}
	if dest == "" {
		return "", false
	}
	if unescaped, err := url.PathUnescape(dest); err == nil {
		dest = unescaped
	}
	return dest, true
}

// bareCrossReference matches prose mentions of a sibling markdown file,
// e.g. "See guide-commands.md" or "Refer to `references/setup.md`".
var bareCrossReference = regexp.MustCompile(`(?i)\b(?:see|refer to)\s+` + "[`\"']?" + `((?:\.{1,2}/)*[\w.-]+(?:/[\w.-]+)*\.md)\b`)

// checkCrossReferences reports relative links and "See <file>.md" mentions
// whose target does not exist. body starts at file line firstLine; mentions
// inside code blocks are ignored.
func checkCrossReferences(path, body string, firstLine int, o *markdown.Outline, r *Result) {
	dir := filepath.Dir(path)
	seen := map[string]bool{}

	check := func(target, shown string, line int) {
		if seen[target] {
			return
		}
		seen[target] = true

		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(target))); err != nil {
			r.AddError(fmt.Sprintf("Broken cross-reference: '%s'", shown), Finding{
				Line:       line,
				Suggestion: "Create the referenced file or fix the link target",
			})
		}
	}

	for _, link := range o.Links {
		if target, ok := localLinkTarget(link.Destination); ok {
			check(target, link.Destination, link.Line)
		}
	}

	for i, line := range strings.Split(body, "\n") {
		lineNum := firstLine + i
		if o.InCodeBlock(lineNum) {
			continue
		}
		for _, m := range bareCrossReference.FindAllStringSubmatch(line, -1) {
			check(m[1], m[1], lineNum)
		}
	}
}

// checkBodyCrossReferences runs checkCrossReferences over a component body
func checkBodyCrossReferences(c *component, r *Result) {
	if !c.hasBody() {
		return
	}
	checkCrossReferences(c.path, c.doc.Body, c.doc.BodyLine, c.outline, r)
}

func lineCount(content string) int {
	return strings.Count(content, "\n") + 1
}
