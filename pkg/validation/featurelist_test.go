package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validateFeatures(t *testing.T, content string) *Result {
	t.Helper()
	path := writeFile(t, t.TempDir(), "feature_list.json", content)
	return NewFeatureListValidator(DefaultRuleset()).Validate(context.Background(), path)
}

func TestFeatureListValidator_CanValidate(t *testing.T) {
	v := NewFeatureListValidator(DefaultRuleset())

	assert.True(t, v.CanValidate("feature_list.json"))
	assert.True(t, v.CanValidate("specs/auth/feature-list.json"))
	assert.False(t, v.CanValidate("specs/my-feature_list.json"))
	assert.True(t, IsCacheable(v))
}

func TestFeatureListValidator_Valid(t *testing.T) {
	for name, content := range map[string]string{
		"array": `[
  {"id": "F-001", "category": "auth", "priority": "high", "description": "Login",
   "acceptance_criteria": ["User can log in"], "status": "passed",
   "completed_at": "2025-01-31T14:05:00Z", "notes": "done"},
  {"id": "F-002", "category": "auth", "priority": 2, "description": "Logout",
   "acceptance_criteria": ["User can log out"], "status": "pending", "completed_at": null}
]`,
		"object": `{"features": [
  {"id": "F-001", "category": "auth", "description": "Login",
   "acceptance_criteria": ["User can log in"], "status": "failed"}
]}`,
	} {
		t.Run(name, func(t *testing.T) {
			r := validateFeatures(t, content)

			assert.Empty(t, r.Issues, messages(r.Issues))
			assert.Equal(t, TypeFeatureList, r.ComponentType)
		})
	}
}

func TestFeatureListValidator_Shape(t *testing.T) {
	r := validateFeatures(t, `{"items": []}`)
	assert.Equal(t, []string{"Feature list object must contain a 'features' array"}, messages(r.Errors()))

	r = validateFeatures(t, `"features"`)
	assert.Equal(t, []string{"Feature list must be an array or an object, got string"}, messages(r.Errors()))

	r = validateFeatures(t, `[1]`)
	assert.Equal(t, []string{"Feature must be an object, got integer"}, messages(r.Errors()))
}

func TestFeatureListValidator_RecordErrors(t *testing.T) {
	r := validateFeatures(t, `[
  {"id": "F-001", "category": "auth", "description": "Login",
   "acceptance_criteria": ["ok"], "status": "pending"},
  {"id": "F-001", "description": "", "acceptance_criteria": [],
   "status": "done", "priority": "urgent", "owner": "me", "notes": 3},
  {"id": "F-003", "category": "auth", "description": "Reset",
   "acceptance_criteria": ["ok", ""], "status": "passed", "completed_at": "yesterday"},
  {"id": "F-004", "category": 9, "description": "Audit",
   "acceptance_criteria": ["ok"], "status": "pending", "completed_at": "2025-01-31T14:05:00Z", "priority": 1.5}
]`)

	assert.Equal(t, []string{
		"Duplicate feature id: 'F-001'",
		"Feature 'description' must be a non-empty string",
		"Feature 'acceptance_criteria' must be a non-empty list",
		"Invalid feature status: 'done'",
		"Acceptance criteria must be non-empty strings",
		"Invalid 'completed_at' timestamp: 'yesterday'",
	}, messages(r.Errors()))

	assert.Equal(t, []string{
		"Feature has no 'category'",
		"Unknown priority: 'urgent'",
		"Feature 'notes' should be a string, got integer",
		"Unknown field: 'owner'",
		"Feature 'category' should be a string, got integer",
		"Numeric priority should be an integer, got 1.5",
		"Pending feature has 'completed_at' set",
	}, messages(r.Warnings()))

	dup := r.Errors()[0]
	assert.Equal(t, "features[1].id", dup.Field)
	assert.Equal(t, "Already used by features[0]", dup.Suggestion)
}

func TestFeatureListValidator_PassedWithoutTimestamp(t *testing.T) {
	r := validateFeatures(t, `[{"id": "F-1", "category": "x", "description": "d",
  "acceptance_criteria": ["ok"], "status": "passed"}]`)

	require.Len(t, r.Issues, 1)
	assert.Equal(t, "Passed feature must have 'completed_at'", r.Issues[0].Message)
	assert.Equal(t, "features[0].completed_at", r.Issues[0].Field)
}
