package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/devkit-tools/devkit-validator/pkg/mdclean"
	"github.com/devkit-tools/devkit-validator/pkg/presenter"
	"github.com/spf13/cobra"
)

// CleanConfig holds configuration for the clean command
type CleanConfig struct {
	Root         string
	Apply        bool
	BackupDir    string
	Verbose      bool
	MaxDiffLines int
}

// NewCleanConfig creates a CleanConfig with default values
func NewCleanConfig() *CleanConfig {
	return &CleanConfig{
		Root:         ".",
		MaxDiffLines: mdclean.DefaultMaxDiffLines,
	}
}

var cleanCmd = withTracing(&cobra.Command{
	Use:   "clean",
	Short: "Strip web-page residue from Markdown files",
	Long: `Remove HTML leftovers from Markdown files scraped from the web: script and
style blocks, comments, table-of-contents tokens, permalink and "edit on
GitHub" lines, copyright footers, heading anchors and stray tags. Whole
HTML pages are converted to Markdown first. Fenced code blocks are left
untouched.

The default is a dry run listing the files that would change. With --apply
every changed file is backed up before it is rewritten.`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getCleanConfigFromFlags(cmd)
		if err := runClean(cmd.Context(), config, os.Stdout, time.Now()); err != nil {
			presenter.Error(err, "Failed to clean Markdown files")
			exit(1)
		}
	},
})

func init() {
	defaults := NewCleanConfig()
	cleanCmd.Flags().StringP("root", "r", defaults.Root, "Directory to scan")
	cleanCmd.Flags().BoolP("apply", "a", defaults.Apply, "Rewrite files in place (default: dry run)")
	cleanCmd.Flags().StringP("backup-dir", "b", defaults.BackupDir, "Backup directory (default <root>/.md_clean_backups_<timestamp>)")
	cleanCmd.Flags().BoolP("verbose", "v", defaults.Verbose, "Show a diff of every change")
	cleanCmd.Flags().Int("max-diff-lines", defaults.MaxDiffLines, "Maximum diff lines shown per file")

	rootCmd.AddCommand(cleanCmd)
}

func getCleanConfigFromFlags(cmd *cobra.Command) *CleanConfig {
	config := NewCleanConfig()
	if root, err := cmd.Flags().GetString("root"); err == nil {
		config.Root = root
	}
	if apply, err := cmd.Flags().GetBool("apply"); err == nil {
		config.Apply = apply
	}
	if backupDir, err := cmd.Flags().GetString("backup-dir"); err == nil {
		config.BackupDir = backupDir
	}
	if verbose, err := cmd.Flags().GetBool("verbose"); err == nil {
		config.Verbose = verbose
	}
	if maxDiffLines, err := cmd.Flags().GetInt("max-diff-lines"); err == nil {
		config.MaxDiffLines = maxDiffLines
	}
	return config
}

func runClean(ctx context.Context, config *CleanConfig, w io.Writer, now time.Time) error {
	root, err := filepath.Abs(config.Root)
	if err != nil {
		return err
	}

	plan, err := mdclean.DryRun(ctx, root)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Scanned %d Markdown file(s) under %s\n", plan.Scanned, root)
	if plan.Scanned == 0 {
		return nil
	}
	if len(plan.Changes) == 0 {
		fmt.Fprintln(w, "Nothing to clean.")
		return nil
	}

	backupDir := config.BackupDir
	if backupDir == "" {
		backupDir = mdclean.DefaultBackupDir(root, now)
	}

	fmt.Fprintf(w, "Found %d file(s) that would be modified:\n", len(plan.Changes))
	for _, c := range plan.Changes {
		fmt.Fprintf(w, " - %s\n", c.Rel)
		if !config.Verbose {
			continue
		}
		diff, total := c.Diff(config.MaxDiffLines)
		fmt.Fprint(w, diff)
		if config.MaxDiffLines > 0 && total > config.MaxDiffLines {
			fmt.Fprintf(w, "...diff truncated (%d lines total), increase --max-diff-lines to see more...\n", total)
		}
		fmt.Fprintln(w)
	}

	if !config.Apply {
		fmt.Fprintf(w, "\nRun again with --apply to write the changes. Backups will be stored in %s\n", backupDir)
		return nil
	}

	applied, err := mdclean.Apply(ctx, plan.Changes, backupDir)
	fmt.Fprintf(w, "Applied changes to %d file(s). Backups stored in %s\n", applied, backupDir)
	return err
}
