// Package mcpserver exposes validation and the component catalog as MCP
// tools over stdio.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"

	"github.com/devkit-tools/devkit-validator/pkg/catalog"
	"github.com/devkit-tools/devkit-validator/pkg/discovery"
	"github.com/devkit-tools/devkit-validator/pkg/engine"
	"github.com/devkit-tools/devkit-validator/pkg/logger"
	"github.com/devkit-tools/devkit-validator/pkg/report"
	"github.com/devkit-tools/devkit-validator/pkg/version"
)

// Name is the advertised server name
const Name = "devkit-validator"

// Server holds the dependencies of the tool handlers
type Server struct {
	root    string
	exclude []string
	engine  *engine.Engine
	catalog *catalog.Catalog
	mcp     *server.MCPServer
}

// New registers the validate_files, validate_all and list_components tools
func New(root string, eng *engine.Engine, cat *catalog.Catalog, exclude []string) *Server {
	s := &Server{
		root:    root,
		exclude: exclude,
		engine:  eng,
		catalog: cat,
		mcp: server.NewMCPServer(
			Name,
			version.Version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
	}

	s.mcp.AddTool(mcp.NewTool("validate_files",
		mcp.WithDescription("Validate the given marketplace component files and return a JSON report"),
		mcp.WithArray("paths",
			mcp.Required(),
			mcp.Description("File paths, absolute or relative to the repository root"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	), s.handleValidateFiles)

	s.mcp.AddTool(mcp.NewTool("validate_all",
		mcp.WithDescription("Validate every component in the repository and return a JSON report"),
	), s.handleValidateAll)

	s.mcp.AddTool(mcp.NewTool("list_components",
		mcp.WithDescription("List skills, agents, commands and rules with their descriptions"),
		mcp.WithString("type",
			mcp.Description("Only list components of this type"),
			mcp.Enum(catalog.Types...),
		),
	), s.handleListComponents)

	return s
}

// MCPServer returns the underlying MCP server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves requests on stdin/stdout until EOF or a signal
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func arguments(req mcp.CallToolRequest) map[string]any {
	args, _ := any(req.Params.Arguments).(map[string]any)
	return args
}

func (s *Server) handleValidateFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := arguments(req)["paths"].([]any)
	if !ok || len(raw) == 0 {
		return mcp.NewToolResultError("paths must be a non-empty array of strings"), nil
	}
	paths := make([]string, 0, len(raw))
	for _, p := range raw {
		str, ok := p.(string)
		if !ok {
			return mcp.NewToolResultError("paths must be a non-empty array of strings"), nil
		}
		if !filepath.IsAbs(str) {
			str = filepath.Join(s.root, str)
		}
		paths = append(paths, str)
	}
	return s.validate(ctx, paths)
}

func (s *Server) handleValidateAll(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	finder, err := discovery.NewFinder(discovery.WithExclude(s.exclude...))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths, err := finder.FindAll(ctx, s.root)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.validate(ctx, paths)
}

func (s *Server) validate(ctx context.Context, paths []string) (*mcp.CallToolResult, error) {
	results, err := s.engine.Run(ctx, paths)
	if err != nil {
		logger.G(ctx).WithError(err).Error("validation failed")
		return mcp.NewToolResultError(err.Error()), nil
	}
	var buf bytes.Buffer
	if err := report.WriteJSON(&buf, results, report.Options{Root: s.root}); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (s *Server) handleListComponents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	componentType, _ := arguments(req)["type"].(string)
	components, err := s.catalog.List(ctx, componentType)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if components == nil {
		components = []catalog.Component{}
	}
	data, err := json.MarshalIndent(components, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode components")
	}
	return mcp.NewToolResultText(string(data)), nil
}
