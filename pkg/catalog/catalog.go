// Package catalog lists the skills, agents, commands and rules of a
// marketplace repository with the metadata declared in their frontmatter.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"

	"github.com/devkit-tools/devkit-validator/pkg/discovery"
	"github.com/devkit-tools/devkit-validator/pkg/logger"
	"github.com/devkit-tools/devkit-validator/pkg/validation"
)

// Types lists the component types the catalog reports
var Types = []string{
	validation.TypeSkill,
	validation.TypeAgent,
	validation.TypeCommand,
	validation.TypeRule,
}

// Component is one catalog entry
type Component struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Path        string   `json:"path"`
	Plugin      string   `json:"plugin,omitempty"`
	Globs       []string `json:"globs,omitempty"`
}

// Metadata is the subset of frontmatter the catalog reads
type Metadata struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Globs       any    `mapstructure:"globs"`
}

// Catalog lists components under a repository root
type Catalog struct {
	root     string
	registry *validation.Registry
	exclude  []string
}

// Option configures a Catalog
type Option func(*Catalog)

// WithExclude hides components matching the doublestar patterns
func WithExclude(patterns ...string) Option {
	return func(c *Catalog) { c.exclude = append(c.exclude, patterns...) }
}

// WithRegistry sets the registry used to classify files
func WithRegistry(r *validation.Registry) Option {
	return func(c *Catalog) { c.registry = r }
}

// New creates a catalog for root
func New(root string, opts ...Option) *Catalog {
	c := &Catalog{root: root}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = validation.NewRegistry(nil)
	}
	return c
}

// List returns the components of the given type, or of every type when
// componentType is empty. Files whose metadata cannot be read are listed
// with their fallback name.
func (c *Catalog) List(ctx context.Context, componentType string) ([]Component, error) {
	if componentType != "" && !isKnownType(componentType) {
		return nil, errors.Errorf("unknown component type %q (expected one of %s)", componentType, strings.Join(Types, ", "))
	}

	finder, err := discovery.NewFinder(discovery.WithExclude(c.exclude...))
	if err != nil {
		return nil, err
	}
	paths, err := finder.FindAll(ctx, c.root)
	if err != nil {
		return nil, err
	}

	var out []Component
	for _, p := range paths {
		v := c.registry.ValidatorFor(p)
		if v == nil {
			continue
		}
		t := v.ComponentType()
		if !isKnownType(t) || (componentType != "" && t != componentType) {
			continue
		}
		comp, err := c.load(p, t)
		if err != nil {
			logger.G(ctx).WithError(err).WithField("file", p).Debug("failed to read component metadata")
		}
		out = append(out, comp)
	}
	return out, nil
}

func (c *Catalog) load(p, componentType string) (Component, error) {
	rel := discovery.Rel(c.root, p)
	comp := Component{
		Name: strings.TrimSuffix(path.Base(rel), path.Ext(rel)),
		Type: componentType,
		Path: rel,
	}
	if parts := strings.SplitN(rel, "/", 3); len(parts) == 3 && parts[0] == "plugins" {
		comp.Plugin = parts[1]
	}
	if componentType == validation.TypeSkill {
		comp.Name = path.Base(path.Dir(rel))
	}

	md, err := LoadMetadata(p)
	if err != nil {
		return comp, err
	}
	comp.Description = md.Description
	switch componentType {
	case validation.TypeSkill, validation.TypeAgent:
		if md.Name != "" {
			comp.Name = md.Name
		}
	case validation.TypeRule:
		comp.Globs = globList(md.Globs)
	}
	return comp, nil
}

// LoadMetadata parses the frontmatter of a Markdown component
func LoadMetadata(p string) (Metadata, error) {
	content, err := os.ReadFile(p)
	if err != nil {
		return Metadata{}, errors.Wrap(err, "failed to read component file")
	}

	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return Metadata{}, errors.Wrap(err, "failed to parse markdown")
	}

	metaData, err := meta.TryGet(pctx)
	if err != nil {
		return Metadata{}, errors.Wrap(err, "invalid frontmatter")
	}
	if metaData == nil {
		return Metadata{}, errors.New("missing frontmatter")
	}

	var out Metadata
	if err := mapstructure.Decode(metaData, &out); err != nil {
		return Metadata{}, errors.Wrap(err, "failed to decode frontmatter")
	}
	return out, nil
}

func globList(v any) []string {
	switch g := v.(type) {
	case string:
		var out []string
		for _, s := range strings.Split(g, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		var out []string
		for _, item := range g {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func isKnownType(t string) bool {
	for _, k := range Types {
		if k == t {
			return true
		}
	}
	return false
}

// WriteTable prints components as an aligned table
func WriteTable(w io.Writer, components []Component) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tNAME\tPATH\tDESCRIPTION")
	fmt.Fprintln(tw, "----\t----\t----\t-----------")
	for _, c := range components {
		description := strings.Join(strings.Fields(c.Description), " ")
		if runes := []rune(description); len(runes) > 60 {
			description = string(runes[:57]) + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Type, c.Name, filepath.ToSlash(c.Path), description)
	}
	return tw.Flush()
}
