package main

import (
	"github.com/devkit-tools/devkit-validator/pkg/catalog"
	"github.com/devkit-tools/devkit-validator/pkg/logger"
	"github.com/devkit-tools/devkit-validator/pkg/mcpserver"
	"github.com/devkit-tools/devkit-validator/pkg/presenter"
	"github.com/devkit-tools/devkit-validator/pkg/validation"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveMCPCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Serve the validator as an MCP server over stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout exposing the tools
validate_files, validate_all and list_components. Results are the same JSON
documents as "validate --format json".`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		rules, err := loadRuleset()
		if err != nil {
			presenter.Error(err, "Invalid rules configuration")
			exit(1)
		}
		eng, closeEngine, err := newEngine(ctx, rules, viper.GetInt("jobs"), viper.GetBool("cache.enabled"))
		if err != nil {
			presenter.Error(err, "Failed to initialize validation")
			exit(1)
		}
		defer closeEngine()

		root := repoRoot(ctx)
		exclude := excludePatterns()
		cat := catalog.New(root,
			catalog.WithExclude(exclude...),
			catalog.WithRegistry(validation.NewRegistry(rules)),
		)

		logger.G(ctx).WithField("root", root).Info("serving MCP over stdio")
		if err := mcpserver.New(root, eng, cat, exclude).ServeStdio(); err != nil {
			presenter.Error(err, "MCP server stopped")
			exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveMCPCmd)
}
