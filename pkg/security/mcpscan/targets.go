package mcpscan

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/devkit-tools/devkit-validator/pkg/discovery"
)

// Target kinds
const (
	KindSkill = "skill"
	KindRule  = "rule"
)

var targetPatterns = []string{
	"plugins/*/skills/**/SKILL.md",
	"plugins/*/rules/*.md",
}

// Target is a skill directory or a rule file to scan
type Target struct {
	// Path is the target on disk; a directory for skills.
	Path string
	// Rel is Path relative to the repository root in slash form.
	Rel    string
	Plugin string
	Kind   string
}

// FindTargets lists the skill directories and rule files of every plugin
func FindTargets(ctx context.Context, root string) ([]Target, error) {
	finder, err := discovery.NewFinder(discovery.WithPatterns(targetPatterns...))
	if err != nil {
		return nil, err
	}
	files, err := finder.FindAll(ctx, root)
	if err != nil {
		return nil, err
	}

	targets := make([]Target, 0, len(files))
	for _, f := range files {
		rel := discovery.Rel(root, f)
		t := Target{Path: f, Rel: rel, Plugin: strings.SplitN(rel, "/", 3)[1], Kind: KindRule}
		if path.Base(rel) == "SKILL.md" {
			t.Path = filepath.Dir(f)
			t.Rel = path.Dir(rel)
			t.Kind = KindSkill
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// Filter narrows the target list
type Filter struct {
	Plugin string
	// Path keeps targets inside it, or the target containing it.
	Path string
	// ChangedOnly keeps only targets touched by Changed.
	ChangedOnly bool
	Changed     []string
}

// Apply filters targets, keeping their order
func (f Filter) Apply(root string, targets []Target) []Target {
	var prefix string
	if f.Path != "" {
		prefix = strings.TrimSuffix(discovery.Rel(root, f.Path), "/")
	}
	var touched map[string]bool
	if f.ChangedOnly {
		touched = touchedTargets(root, targets, f.Changed)
	}

	var out []Target
	for _, t := range targets {
		if f.Plugin != "" && t.Plugin != f.Plugin {
			continue
		}
		if prefix != "" && prefix != "." && !within(t.Rel, prefix) && !within(prefix, t.Rel) {
			continue
		}
		if touched != nil && !touched[t.Rel] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// touchedTargets maps each changed file to the rule itself or to the
// nearest enclosing skill directory.
func touchedTargets(root string, targets []Target, changed []string) map[string]bool {
	touched := map[string]bool{}
	for _, c := range changed {
		rel := discovery.Rel(root, c)
		best := ""
		for _, t := range targets {
			switch t.Kind {
			case KindRule:
				if t.Rel == rel {
					best = t.Rel
				}
			case KindSkill:
				if within(rel, t.Rel) && len(t.Rel) > len(best) {
					best = t.Rel
				}
			}
		}
		if best != "" {
			touched[best] = true
		}
	}
	return touched
}

func within(p, dir string) bool {
	return p == dir || strings.HasPrefix(p, dir+"/")
}
