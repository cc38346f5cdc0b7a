package main

import (
	"fmt"
	"time"

	"github.com/devkit-tools/devkit-validator/pkg/presenter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const defaultPruneAge = 30 * 24 * time.Hour

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local result cache and scan history",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune [older-than]",
	Short: "Delete cached results and scan records older than a duration",
	Long: `Delete cached validation results and scan history older than the given
duration (default 720h).

Examples:
  devkit-validator cache prune
  devkit-validator cache prune 168h`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		olderThan := defaultPruneAge
		if len(args) == 1 {
			d, err := time.ParseDuration(args[0])
			if err != nil || d <= 0 {
				presenter.Error(errors.Errorf("invalid duration %q", args[0]), "Invalid argument")
				exit(1)
			}
			olderThan = d
		}

		store, err := openCache(ctx, nil)
		if err != nil {
			presenter.Error(err, "Failed to open cache")
			exit(1)
		}
		defer store.Close()

		stats, err := store.Prune(ctx, olderThan)
		if err != nil {
			presenter.Error(err, "Failed to prune cache")
			exit(1)
		}
		presenter.Success(fmt.Sprintf("Pruned %d cached result(s) and %d scan record(s) older than %s",
			stats.CacheEntries, stats.ScanRecords, olderThan))
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached validation result",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		store, err := openCache(ctx, nil)
		if err != nil {
			presenter.Error(err, "Failed to open cache")
			exit(1)
		}
		defer store.Close()

		n, err := store.Clear(ctx)
		if err != nil {
			presenter.Error(err, "Failed to clear cache")
			exit(1)
		}
		presenter.Success(fmt.Sprintf("Removed %d cached result(s)", n))
	},
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
