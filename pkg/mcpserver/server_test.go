package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devkit-tools/devkit-validator/pkg/catalog"
	"github.com/devkit-tools/devkit-validator/pkg/engine"
	"github.com/devkit-tools/devkit-validator/pkg/validation"
)

func newServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range map[string]string{
		"dist/old.skill":                      "zip",
		".claude/commands/review.md":          "---\ndescription: Review the diff\n---\n# Review\n",
		"plugins/java/rules/naming.md":        "---\nglobs: \"**/*.java\"\n---\n# Naming\n",
		"plugins/java/.claude-plugin/unused":  "",
		"plugins/java/skills/crud/notes.txt":  "ignored",
	} {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	reg := validation.NewRegistry(nil)
	return New(root, engine.New(reg, engine.WithJobs(2)), catalog.New(root, catalog.WithRegistry(reg)), nil), root
}

func call(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestValidateFiles(t *testing.T) {
	s, _ := newServer(t)

	res, err := s.handleValidateFiles(context.Background(), call("validate_files", map[string]any{
		"paths": []any{"dist/old.skill", "plugins/java/skills/crud/notes.txt"},
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &doc))
	results := doc["results"].([]any)
	require.Len(t, results, 1)
	first := results[0].(map[string]any)
	assert.Equal(t, "dist/old.skill", first["file"])
	assert.Equal(t, false, first["is_valid"])
}

func TestValidateFiles_BadArguments(t *testing.T) {
	s, _ := newServer(t)

	for _, args := range []map[string]any{nil, {"paths": []any{}}, {"paths": "a.md"}, {"paths": []any{1}}} {
		res, err := s.handleValidateFiles(context.Background(), call("validate_files", args))
		require.NoError(t, err)
		assert.True(t, res.IsError)
	}
}

func TestValidateAll(t *testing.T) {
	s, _ := newServer(t)

	res, err := s.handleValidateAll(context.Background(), call("validate_all", nil))
	require.NoError(t, err)

	var doc struct {
		Summary struct {
			TotalFiles int `json:"total_files"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &doc))
	assert.Equal(t, 2, doc.Summary.TotalFiles)
}

func TestListComponents(t *testing.T) {
	s, _ := newServer(t)

	res, err := s.handleListComponents(context.Background(), call("list_components", map[string]any{"type": "rule"}))
	require.NoError(t, err)

	var components []catalog.Component
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &components))
	require.Len(t, components, 1)
	assert.Equal(t, "naming", components[0].Name)
	assert.Equal(t, []string{"**/*.java"}, components[0].Globs)

	res, err = s.handleListComponents(context.Background(), call("list_components", map[string]any{"type": "bogus"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestNew_RegistersTools(t *testing.T) {
	s, _ := newServer(t)
	assert.NotNil(t, s.MCPServer())
}
