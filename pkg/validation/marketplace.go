package validation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/devkit-tools/devkit-validator/pkg/frontmatter"
)

// MarketplaceValidator checks .claude-plugin/marketplace.json
type MarketplaceValidator struct {
	rules *Ruleset
}

// NewMarketplaceValidator creates a marketplace manifest validator
func NewMarketplaceValidator(rules *Ruleset) *MarketplaceValidator {
	return &MarketplaceValidator{rules: rules}
}

func (v *MarketplaceValidator) ComponentType() string { return TypeMarketplace }

func (v *MarketplaceValidator) CanValidate(path string) bool {
	return marketplacePattern.MatchString(filepath.ToSlash(path))
}

func (v *MarketplaceValidator) Validate(_ context.Context, path string) *Result {
	r := NewResult(path, TypeMarketplace)

	var manifest map[string]any
	if !readJSON(path, &manifest, r) {
		return r
	}

	if name, _ := manifest["name"].(string); strings.TrimSpace(name) == "" {
		r.AddError("Missing required field: 'name'", Finding{
			Field:      "name",
			Suggestion: "Add a marketplace name",
		})
	}

	version, _ := manifest["version"].(string)
	switch {
	case version == "":
		r.AddError("Missing required field: 'version'", Finding{
			Field:      "version",
			Suggestion: "Add a semantic version, e.g. \"1.0.0\"",
		})
	case !IsSemver(version):
		r.AddWarning(fmt.Sprintf("Invalid version format: '%s'", version), Finding{
			Field:      "version",
			Suggestion: "Use semantic versioning (e.g., '1.0.0', '2.1.0-beta')",
		})
	}

	raw, ok := manifest["plugins"]
	if !ok {
		r.AddError("Missing required field: 'plugins'", Finding{
			Field:      "plugins",
			Suggestion: "List the published plugins under 'plugins'",
		})
		return r
	}
	plugins, ok := raw.([]any)
	if !ok {
		r.AddError(fmt.Sprintf("plugins must be a list, got %s", frontmatter.TypeName(raw)), Finding{
			Field:      "plugins",
			Suggestion: "Use an array of plugin entries",
		})
		return r
	}

	root := filepath.Dir(filepath.Dir(path))
	for i, entry := range plugins {
		v.checkPlugin(root, i, entry, version, r)
	}
	return r
}

func (v *MarketplaceValidator) checkPlugin(root string, i int, entry any, marketplaceVersion string, r *Result) {
	field := fmt.Sprintf("plugins[%d]", i)

	plugin, ok := entry.(map[string]any)
	if !ok {
		r.AddError(fmt.Sprintf("Plugin entry must be an object, got %s", frontmatter.TypeName(entry)), Finding{Field: field})
		return
	}

	if name, _ := plugin["name"].(string); strings.TrimSpace(name) == "" {
		r.AddError("Plugin entry is missing 'name'", Finding{
			Field:      field + ".name",
			Suggestion: "Give every plugin a kebab-case name",
		})
	}

	source, present := plugin["source"]
	if !present {
		r.AddError("Plugin entry is missing 'source'", Finding{
			Field:      field + ".source",
			Suggestion: "Point 'source' at the plugin directory, e.g. \"./plugins/<name>\"",
		})
	} else if s, isString := source.(string); isString && !strings.Contains(s, "://") {
		if info, err := os.Stat(filepath.Join(root, filepath.FromSlash(s))); err != nil || !info.IsDir() {
			r.AddWarning(fmt.Sprintf("Plugin source directory not found: '%s'", s), Finding{
				Field:      field + ".source",
				Suggestion: "Fix the relative path or publish the plugin directory",
			})
		}
	}

	if pv, ok := plugin["version"].(string); ok && marketplaceVersion != "" && pv != marketplaceVersion {
		r.AddWarning(fmt.Sprintf("Plugin entry version '%s' differs from marketplace version '%s'", pv, marketplaceVersion), Finding{
			Field:      field + ".version",
			Suggestion: "Keep plugin entry versions aligned with the marketplace version",
		})
	}
}
