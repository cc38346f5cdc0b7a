package main

import (
	"fmt"

	"github.com/devkit-tools/devkit-validator/pkg/presenter"
	"github.com/devkit-tools/devkit-validator/pkg/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  `Print the version information of devkit-validator in JSON format.`,
	Run: func(_ *cobra.Command, _ []string) {
		info := version.Get()
		json, err := info.JSON()
		if err != nil {
			presenter.Error(err, "Failed to format version info")
			exit(1)
		}
		fmt.Println(json)
	},
}

func init() {
	rootCmd.Version = version.Get().Version
	rootCmd.AddCommand(versionCmd)
}
