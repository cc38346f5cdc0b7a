package main

import (
	"encoding/json"
	"os"

	"github.com/devkit-tools/devkit-validator/pkg/catalog"
	"github.com/devkit-tools/devkit-validator/pkg/presenter"
	"github.com/devkit-tools/devkit-validator/pkg/validation"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type ListConfig struct {
	Type   string
	Format string
}

func NewListConfig() *ListConfig {
	return &ListConfig{
		Type:   "",
		Format: "table",
	}
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the components of the repository",
	Long: `List skills, agents, commands and rules with their names and descriptions.

Examples:
  devkit-validator list
  devkit-validator list --type skill
  devkit-validator list --format json`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getListConfigFromFlags(cmd)
		ctx := cmd.Context()

		rules, err := loadRuleset()
		if err != nil {
			presenter.Error(err, "Invalid rules configuration")
			exit(1)
		}
		cat := catalog.New(repoRoot(ctx),
			catalog.WithExclude(excludePatterns()...),
			catalog.WithRegistry(validation.NewRegistry(rules)),
		)
		components, err := cat.List(ctx, config.Type)
		if err != nil {
			presenter.Error(err, "Failed to list components")
			exit(1)
		}

		switch config.Format {
		case "json":
			if components == nil {
				components = []catalog.Component{}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			err = enc.Encode(components)
		case "table":
			if len(components) == 0 {
				presenter.Info("No components found")
				return
			}
			err = catalog.WriteTable(os.Stdout, components)
		default:
			err = errors.Errorf("unknown format %q (expected table or json)", config.Format)
		}
		if err != nil {
			presenter.Error(err, "Failed to write component list")
			exit(1)
		}
	},
}

func init() {
	defaults := NewListConfig()
	listCmd.Flags().StringP("type", "t", defaults.Type, "Only list one component type (skill, agent, command, rule)")
	listCmd.Flags().String("format", defaults.Format, "Output format (table, json)")

	rootCmd.AddCommand(listCmd)
}

func getListConfigFromFlags(cmd *cobra.Command) *ListConfig {
	config := NewListConfig()
	if t, err := cmd.Flags().GetString("type"); err == nil {
		config.Type = t
	}
	if format, err := cmd.Flags().GetString("format"); err == nil {
		config.Format = format
	}
	return config
}
