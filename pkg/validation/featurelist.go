package validation

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/devkit-tools/devkit-validator/pkg/frontmatter"
)

// Feature status values of an LRA tracking record
const (
	FeatureStatusPending = "pending"
	FeatureStatusPassed  = "passed"
	FeatureStatusFailed  = "failed"
)

var (
	featureFields     = []string{"id", "category", "priority", "description", "acceptance_criteria", "status", "completed_at", "notes"}
	featurePriorities = []string{"critical", "high", "medium", "low"}
	featureStatuses   = []string{FeatureStatusPending, FeatureStatusPassed, FeatureStatusFailed}
)

// FeatureListValidator checks LRA feature tracking files
// (feature_list.json / feature-list.json).
type FeatureListValidator struct {
	rules *Ruleset
}

// NewFeatureListValidator creates a feature list validator
func NewFeatureListValidator(rules *Ruleset) *FeatureListValidator {
	return &FeatureListValidator{rules: rules}
}

func (v *FeatureListValidator) ComponentType() string { return TypeFeatureList }

func (v *FeatureListValidator) CanValidate(path string) bool {
	return featureListPattern.MatchString(filepath.ToSlash(path))
}

func (v *FeatureListValidator) Cacheable() bool { return true }

func (v *FeatureListValidator) Validate(_ context.Context, path string) *Result {
	r := NewResult(path, TypeFeatureList)

	var doc any
	if !readJSON(path, &doc, r) {
		return r
	}

	var features []any
	switch d := doc.(type) {
	case []any:
		features = d
	case map[string]any:
		list, ok := d["features"].([]any)
		if !ok {
			r.AddError("Feature list object must contain a 'features' array", Finding{
				Field:      "features",
				Suggestion: `Use {"features": [...]} or a top-level array`,
			})
			return r
		}
		features = list
	default:
		r.AddError(fmt.Sprintf("Feature list must be an array or an object, got %s", frontmatter.TypeName(doc)), Finding{
			Suggestion: "Use a top-level array of feature records",
		})
		return r
	}

	seen := map[string]int{}
	for i, f := range features {
		v.checkFeature(i, f, seen, r)
	}
	return r
}

func (v *FeatureListValidator) checkFeature(i int, raw any, seen map[string]int, r *Result) {
	prefix := fmt.Sprintf("features[%d]", i)
	at := func(field string) Finding { return Finding{Field: prefix + "." + field} }

	feature, ok := raw.(map[string]any)
	if !ok {
		r.AddError(fmt.Sprintf("Feature must be an object, got %s", frontmatter.TypeName(raw)), Finding{Field: prefix})
		return
	}

	id, _ := feature["id"].(string)
	switch {
	case strings.TrimSpace(id) == "":
		r.AddError("Feature 'id' must be a non-empty string", at("id"))
	default:
		if first, dup := seen[id]; dup {
			f := at("id")
			f.Suggestion = fmt.Sprintf("Already used by features[%d]", first)
			r.AddError(fmt.Sprintf("Duplicate feature id: '%s'", id), f)
		} else {
			seen[id] = i
		}
	}

	if c, present := feature["category"]; !present {
		r.AddWarning("Feature has no 'category'", at("category"))
	} else if _, ok := c.(string); !ok {
		r.AddWarning(fmt.Sprintf("Feature 'category' should be a string, got %s", frontmatter.TypeName(c)), at("category"))
	}

	if p, present := feature["priority"]; present {
		switch pv := p.(type) {
		case string:
			if !contains(featurePriorities, strings.ToLower(pv)) {
				f := at("priority")
				f.Suggestion = "Use one of: " + strings.Join(featurePriorities, ", ")
				r.AddWarning(fmt.Sprintf("Unknown priority: '%s'", pv), f)
			}
		case float64:
			if pv != float64(int64(pv)) {
				r.AddWarning(fmt.Sprintf("Numeric priority should be an integer, got %v", pv), at("priority"))
			}
		default:
			r.AddWarning(fmt.Sprintf("Feature 'priority' should be a string or integer, got %s", frontmatter.TypeName(p)), at("priority"))
		}
	}

	if d, _ := feature["description"].(string); strings.TrimSpace(d) == "" {
		r.AddError("Feature 'description' must be a non-empty string", at("description"))
	}

	v.checkAcceptanceCriteria(feature, at("acceptance_criteria"), r)

	status, _ := feature["status"].(string)
	if !contains(featureStatuses, status) {
		f := at("status")
		f.Suggestion = "Use one of: " + strings.Join(featureStatuses, ", ")
		r.AddError(fmt.Sprintf("Invalid feature status: '%v'", feature["status"]), f)
	}

	v.checkCompletedAt(feature, status, at("completed_at"), r)

	if n, present := feature["notes"]; present && n != nil {
		if _, ok := n.(string); !ok {
			r.AddWarning(fmt.Sprintf("Feature 'notes' should be a string, got %s", frontmatter.TypeName(n)), at("notes"))
		}
	}

	keys := make([]string, 0, len(feature))
	for key := range feature {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !contains(featureFields, key) {
			r.AddWarning(fmt.Sprintf("Unknown field: '%s'", key), at(key))
		}
	}
}

func (v *FeatureListValidator) checkAcceptanceCriteria(feature map[string]any, f Finding, r *Result) {
	criteria, ok := feature["acceptance_criteria"].([]any)
	if !ok || len(criteria) == 0 {
		f.Suggestion = "List at least one verifiable acceptance criterion"
		r.AddError("Feature 'acceptance_criteria' must be a non-empty list", f)
		return
	}
	for _, c := range criteria {
		if s, ok := c.(string); !ok || strings.TrimSpace(s) == "" {
			r.AddError("Acceptance criteria must be non-empty strings", f)
			return
		}
	}
}

func (v *FeatureListValidator) checkCompletedAt(feature map[string]any, status string, f Finding, r *Result) {
	raw, present := feature["completed_at"]
	completedAt, isString := raw.(string)

	switch status {
	case FeatureStatusPassed:
		if !isString || completedAt == "" {
			f.Suggestion = "Record the completion time as an RFC 3339 timestamp"
			r.AddError("Passed feature must have 'completed_at'", f)
			return
		}
		if _, err := time.Parse(time.RFC3339, completedAt); err != nil {
			f.Suggestion = "Use RFC 3339, e.g. 2025-01-31T14:05:00Z"
			r.AddError(fmt.Sprintf("Invalid 'completed_at' timestamp: '%s'", completedAt), f)
		}
	case FeatureStatusPending:
		if present && raw != nil {
			f.Suggestion = "Set 'completed_at' to null until the feature passes"
			r.AddWarning("Pending feature has 'completed_at' set", f)
		}
	}
}
