// Package frontmatter extracts and decodes the YAML front-matter block at the
// top of a component markdown file.
//
// Line numbers reported by this package are file line numbers: the opening
// "---" delimiter is line 1.
package frontmatter

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Level is the severity of a Finding
type Level int

const (
	LevelError Level = iota
	LevelWarning
)

// Finding is a problem detected while extracting or decoding front-matter
type Finding struct {
	Level      Level
	Line       int
	Message    string
	Suggestion string
}

// Document is decoded front-matter plus the markdown body that follows it
type Document struct {
	// Fields holds the decoded top-level keys.
	Fields map[string]any
	// Keys lists the top-level keys in document order.
	Keys []string
	// Body is the text after the closing delimiter.
	Body string
	// BodyLine is the file line number of the first body line.
	BodyLine int

	lines map[string]int
}

// Has reports whether key is present, even with a null value
func (d *Document) Has(key string) bool {
	_, ok := d.Fields[key]
	return ok
}

// Line returns the file line of key, or 0 when the key is absent
func (d *Document) Line(key string) int {
	return d.lines[key]
}

var (
	closingDelimiter = regexp.MustCompile(`\n---\s*\n?`)
	bodyDelimiter    = regexp.MustCompile(`\n---\s*\n`)
	parenKeyPattern  = regexp.MustCompile(`\([^)]+\):`)
	parenColon       = regexp.MustCompile(`\):`)
	parenNumber      = regexp.MustCompile(`\([0-9]+\)`)
	yamlErrorLine    = regexp.MustCompile(`^(?:yaml: )?line (\d+): (.*)$`)
)

// Parse extracts the front-matter block from content and decodes it. When
// any error-level finding is returned the Document is nil.
func Parse(content string) (*Document, []Finding) {
	var findings []Finding

	if !strings.HasPrefix(content, "---") {
		return nil, append(findings, Finding{
			Level:      LevelError,
			Line:       1,
			Message:    "Missing YAML frontmatter",
			Suggestion: `Add YAML frontmatter at the beginning: ---\nname: ...\n---`,
		})
	}

	loc := closingDelimiter.FindStringIndex(content[3:])
	if loc == nil {
		return nil, append(findings, Finding{
			Level:      LevelError,
			Line:       1,
			Message:    "Unclosed YAML frontmatter",
			Suggestion: "Add closing '---' after frontmatter",
		})
	}
	yamlContent := content[3 : 3+loc[0]]

	lintFindings, fatal := Lint(yamlContent)
	findings = append(findings, lintFindings...)
	if fatal {
		return nil, findings
	}

	doc, decodeFindings := decode(yamlContent)
	findings = append(findings, decodeFindings...)
	if doc == nil {
		return nil, findings
	}

	doc.Body, doc.BodyLine = splitBody(content)
	return doc, findings
}

// Body returns the markdown after the front-matter block, or "" when the
// content has no closing delimiter.
func Body(content string) string {
	body, _ := splitBody(content)
	return body
}

func splitBody(content string) (string, int) {
	loc := bodyDelimiter.FindStringIndex(content)
	if loc == nil {
		return "", 0
	}
	return content[loc[1]:], strings.Count(content[:loc[1]], "\n") + 1
}

// Lint runs the pre-parse checks that catch YAML constructs which parse
// differently than authors expect. The returned bool is true when an
// error-level finding was produced and decoding should not be attempted.
func Lint(yamlContent string) ([]Finding, bool) {
	var findings []Finding
	fatal := false

	for i, line := range strings.Split(yamlContent, "\n") {
		lineNum := i + 1
		stripped := strings.TrimSpace(line)

		if stripped == "" || strings.HasPrefix(stripped, "#") || strings.HasSuffix(stripped, ":") {
			continue
		}

		// "including: (1) one, (2): two" turns (2) into a key
		if m := parenKeyPattern.FindStringIndex(stripped); m != nil {
			before := stripped[:m[0]]
			if (strings.Count(before, `"`)+strings.Count(before, "'"))%2 == 0 {
				findings = append(findings, Finding{
					Level:      LevelError,
					Line:       lineNum,
					Message:    fmt.Sprintf("Potential YAML syntax error: '%s' in unquoted string", stripped[m[0]:m[1]]),
					Suggestion: "Use single quotes instead of double quotes for strings containing '):' patterns (e.g., '(1):'). YAML interprets '):' as a key-value separator in unquoted strings.",
				})
				fatal = true
			}
		}

		if strings.Contains(stripped, ":") && !strings.HasPrefix(stripped, "- ") &&
			(strings.HasPrefix(stripped, `"`) || strings.HasPrefix(stripped, "'")) {
			if strings.Count(stripped, "'")%2 != 0 || strings.Count(stripped, `"`)%2 != 0 {
				findings = append(findings, Finding{
					Level:      LevelError,
					Line:       lineNum,
					Message:    fmt.Sprintf("Unbalanced quotes in YAML value at line %d", lineNum),
					Suggestion: "Ensure all quotes are properly closed",
				})
				fatal = true
			}
		}

		if strings.Count(stripped, `"`) >= 2 &&
			(parenColon.MatchString(stripped) || parenNumber.MatchString(stripped)) {
			findings = append(findings, Finding{
				Level:      LevelWarning,
				Line:       lineNum,
				Message:    "Double-quoted string contains '):' pattern which may cause issues with some YAML parsers",
				Suggestion: "Consider using single quotes instead of double quotes for strings containing '):' patterns (e.g., '(1):', '(2):')",
			})
		}
	}

	return findings, fatal
}

// decode parses the YAML mapping. A nil Document means the last finding is
// an error. Duplicate keys keep the last value, as YAML loaders commonly do,
// and produce a warning.
func decode(yamlContent string) (*Document, []Finding) {
	doc := &Document{
		Fields: map[string]any{},
		lines:  map[string]int{},
	}

	var warnings []Finding
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(yamlContent), &root); err != nil {
		line, msg := syntaxErrorLocation(err)
		return nil, []Finding{{
			Level:      LevelError,
			Line:       line,
			Message:    "Invalid YAML syntax: " + msg,
			Suggestion: "Fix the YAML syntax error",
		}}
	}

	if root.Kind == 0 || len(root.Content) == 0 {
		return doc, nil
	}

	node := root.Content[0]
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return doc, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, []Finding{{
			Level:      LevelError,
			Line:       1,
			Message:    "Frontmatter must be a YAML mapping",
			Suggestion: "Ensure frontmatter contains key-value pairs",
		}}
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]

		first, dup := doc.lines[key.Value]
		if dup {
			warnings = append(warnings, Finding{
				Level:      LevelWarning,
				Line:       key.Line,
				Message:    fmt.Sprintf("Duplicate key '%s' (previously defined at line %d), the last value is used", key.Value, first),
				Suggestion: "Remove one of the duplicated keys",
			})
		}

		var decoded any
		if err := value.Decode(&decoded); err != nil {
			return nil, []Finding{{
				Level:      LevelError,
				Line:       value.Line,
				Message:    "Invalid YAML syntax: " + err.Error(),
				Suggestion: "Fix the YAML syntax error",
			}}
		}

		doc.Fields[key.Value] = decoded
		doc.lines[key.Value] = key.Line
		if !dup {
			doc.Keys = append(doc.Keys, key.Value)
		}
	}

	return doc, warnings
}

// syntaxErrorLocation maps a yaml.v3 error to a file line. The YAML text
// starts on the line of the opening delimiter, so YAML lines are file lines.
func syntaxErrorLocation(err error) (int, string) {
	msg := err.Error()
	if te, ok := err.(*yaml.TypeError); ok && len(te.Errors) > 0 {
		msg = te.Errors[0]
	}

	if m := yamlErrorLine.FindStringSubmatch(msg); m != nil {
		line, convErr := strconv.Atoi(m[1])
		if convErr == nil {
			return line, m[2]
		}
	}
	return 1, strings.TrimPrefix(msg, "yaml: ")
}

// TypeName describes the dynamic type of a decoded YAML value in user terms
func TypeName(v any) string {
	switch n := v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64, uint64:
		return "integer"
	case float64:
		// JSON decodes every number as float64
		if n == math.Trunc(n) {
			return "integer"
		}
		return "float"
	case []any:
		return "list"
	case map[string]any, map[any]any:
		return "mapping"
	default:
		return fmt.Sprintf("%T", v)
	}
}
