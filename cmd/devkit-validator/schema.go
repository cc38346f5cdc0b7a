package main

import (
	"fmt"
	"strings"

	"github.com/devkit-tools/devkit-validator/pkg/presenter"
	"github.com/devkit-tools/devkit-validator/pkg/schema"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema <name>",
	Short: "Print the JSON schema of a component's front matter",
	Long: fmt.Sprintf(`Print the JSON schema describing the front matter of a component type,
or the entries of an LRA feature list. Editors can use it for completion.

Available schemas: %s`, strings.Join(schema.Names(), ", ")),
	Args:      cobra.ExactArgs(1),
	ValidArgs: schema.Names(),
	Run: func(_ *cobra.Command, args []string) {
		out, err := schema.JSON(args[0])
		if err != nil {
			presenter.Error(err, "Failed to generate schema")
			exit(1)
		}
		fmt.Println(string(out))
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
