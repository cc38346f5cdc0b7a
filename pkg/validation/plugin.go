package validation

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/devkit-tools/devkit-validator/pkg/frontmatter"
)

// pluginComponentKinds are the manifest keys listing registered components
var pluginComponentKinds = []string{"skills", "agents", "commands", "rules"}

// PluginValidator checks plugins/<name>/.claude-plugin/plugin.json: its
// version must match the marketplace, and the components it declares must
// match what exists on disk.
type PluginValidator struct {
	rules *Ruleset
}

// NewPluginValidator creates a plugin manifest validator
func NewPluginValidator(rules *Ruleset) *PluginValidator {
	return &PluginValidator{rules: rules}
}

func (v *PluginValidator) ComponentType() string { return TypePlugin }

func (v *PluginValidator) CanValidate(path string) bool {
	return pluginPattern.MatchString(filepath.ToSlash(path))
}

func (v *PluginValidator) Validate(_ context.Context, path string) *Result {
	r := NewResult(path, TypePlugin)

	var manifest map[string]any
	if !readJSON(path, &manifest, r) {
		return r
	}

	v.checkVersion(path, manifest, r)

	pluginDir := filepath.Dir(filepath.Dir(path))
	for _, kind := range pluginComponentKinds {
		raw, declared := manifest[kind]
		if !declared {
			continue
		}
		v.checkRegistration(pluginDir, kind, raw, r)
	}
	return r
}

func (v *PluginValidator) checkVersion(path string, manifest map[string]any, r *Result) {
	marketplace, ok := FindMarketplace(path)
	if !ok {
		r.AddError("Cannot find marketplace.json for version alignment check", Finding{
			Suggestion: "Ensure marketplace.json exists in .claude-plugin/ directory",
		})
		return
	}

	marketplaceVersion := readVersion(marketplace)
	if marketplaceVersion == "" {
		r.AddError("Cannot read version from marketplace.json", Finding{
			Suggestion: "Ensure marketplace.json has a valid 'version' field",
		})
		return
	}

	pluginVersion, _ := manifest["version"].(string)
	if pluginVersion == "" {
		r.AddError("Cannot read version from plugin.json", Finding{
			Field:      "version",
			Suggestion: "Ensure plugin.json has a valid 'version' field",
		})
		return
	}

	if pluginVersion != marketplaceVersion {
		r.AddError(fmt.Sprintf("Version mismatch: plugin '%s' != marketplace '%s'", pluginVersion, marketplaceVersion), Finding{
			Field:      "version",
			Suggestion: fmt.Sprintf("Align plugin version with marketplace version '%s'", marketplaceVersion),
		})
	}
}

func (v *PluginValidator) checkRegistration(pluginDir, kind string, raw any, r *Result) {
	singular := strings.TrimSuffix(kind, "s")

	switch entries := raw.(type) {
	case string:
		// a single directory registers everything below it
		if info, err := os.Stat(filepath.Join(pluginDir, filepath.FromSlash(entries))); err != nil || !info.IsDir() {
			r.AddError(fmt.Sprintf("%s directory not found: '%s'", capitalize(singular), entries), Finding{
				Field:      kind,
				Suggestion: fmt.Sprintf("Ensure '%s' exists or remove it from plugin.json", entries),
			})
		}
		return
	case []any:
		registered := map[string]bool{}
		for _, e := range entries {
			p, ok := e.(string)
			if !ok {
				r.AddError(fmt.Sprintf("%s entries must be strings, got %s", kind, frontmatter.TypeName(e)), Finding{
					Field:      kind,
					Suggestion: fmt.Sprintf("List %s as relative paths, e.g. './%s/<name>'", kind, kind),
				})
				continue
			}
			registered[normalizeManifestPath(p)] = true
			v.checkRegisteredExists(pluginDir, kind, p, r)
		}
		v.checkUnregistered(pluginDir, kind, registered, r)
	default:
		r.AddError(fmt.Sprintf("%s must be a list of paths, got %s", kind, frontmatter.TypeName(raw)), Finding{
			Field:      kind,
			Suggestion: fmt.Sprintf("Use an array such as [\"./%s/<name>\"]", kind),
		})
	}
}

func (v *PluginValidator) checkRegisteredExists(pluginDir, kind, entry string, r *Result) {
	full := filepath.Join(pluginDir, filepath.FromSlash(entry))

	if kind == "skills" {
		if _, err := os.Stat(filepath.Join(full, "SKILL.md")); err != nil {
			r.AddError(fmt.Sprintf("Skill not found: '%s'", entry), Finding{
				Field:      kind,
				Suggestion: fmt.Sprintf("Ensure '%s/SKILL.md' exists or remove from plugin.json", entry),
			})
		}
		return
	}

	singular := capitalize(strings.TrimSuffix(kind, "s"))
	if _, err := os.Stat(full); err != nil {
		r.AddError(fmt.Sprintf("%s not found: '%s'", singular, entry), Finding{
			Field:      kind,
			Suggestion: fmt.Sprintf("Ensure '%s' exists or remove from plugin.json", entry),
		})
		return
	}
	if filepath.Ext(full) != ".md" {
		r.AddError(fmt.Sprintf("%s must be a .md file: '%s'", singular, entry), Finding{
			Field:      kind,
			Suggestion: "Use .md extension for agent, command and rule files",
		})
	}
}

// checkUnregistered reports components present on disk but missing from the
// manifest. Skills may be nested in category directories.
func (v *PluginValidator) checkUnregistered(pluginDir, kind string, registered map[string]bool, r *Result) {
	componentDir := filepath.Join(pluginDir, kind)
	if _, err := os.Stat(componentDir); err != nil {
		return
	}

	var found []string
	if kind == "skills" {
		_ = filepath.WalkDir(componentDir, func(p string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return nil
			}
			if p != componentDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if _, statErr := os.Stat(filepath.Join(p, "SKILL.md")); statErr == nil {
				rel, _ := filepath.Rel(pluginDir, p)
				found = append(found, normalizeManifestPath(rel))
				return filepath.SkipDir
			}
			return nil
		})
	} else {
		entries, err := os.ReadDir(componentDir)
		if err != nil {
			return
		}
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ".md" {
				found = append(found, normalizeManifestPath(kind+"/"+e.Name()))
			}
		}
	}

	sort.Strings(found)
	singular := strings.TrimSuffix(kind, "s")
	for _, p := range found {
		if registered[p] {
			continue
		}
		r.AddError(fmt.Sprintf("Unregistered %s: '%s'", singular, strings.TrimPrefix(p, "./"+kind+"/")), Finding{
			Field:      kind,
			Suggestion: fmt.Sprintf("Add '%s' to plugin.json %s array", p, kind),
		})
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
