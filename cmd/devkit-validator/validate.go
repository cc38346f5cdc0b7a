package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/devkit-tools/devkit-validator/pkg/discovery"
	"github.com/devkit-tools/devkit-validator/pkg/gitutil"
	"github.com/devkit-tools/devkit-validator/pkg/logger"
	"github.com/devkit-tools/devkit-validator/pkg/presenter"
	"github.com/devkit-tools/devkit-validator/pkg/report"
	"github.com/devkit-tools/devkit-validator/pkg/validation"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ValidateConfig holds configuration for the validate command
type ValidateConfig struct {
	Files     []string
	All       bool
	Changed   bool
	Base      string
	Format    string
	Verbose   bool
	Quiet     bool
	Jobs      int
	Cache     bool
	PreCommit bool
}

// NewValidateConfig creates a ValidateConfig with default values
func NewValidateConfig() *ValidateConfig {
	return &ValidateConfig{
		Format: string(report.FormatConsole),
	}
}

// Selection names how the file list is gathered
func (c *ValidateConfig) Selection() string {
	switch {
	case len(c.Files) > 0:
		return "files"
	case c.All:
		return "all"
	case c.Changed:
		return "changed"
	default:
		return "staged"
	}
}

var validateCmd = withTracing(&cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate skills, agents, commands, rules and manifests",
	Long: `Validate component files. Without a selection flag the files staged in
git are validated, which is what the pre-commit hook runs.

Exit codes: 0 when no errors were found, 1 on validation errors, 2 on a
system error.

Examples:
  devkit-validator validate
  devkit-validator validate --all --format json
  devkit-validator validate --changed --base origin/main
  devkit-validator validate plugins/java/skills/spring/SKILL.md`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getValidateConfigFromFlags(cmd)
		config.Files = append(config.Files, args...)
		presenter.SetQuiet(config.Quiet)
		exit(runValidate(ctx, config, os.Stdout, os.Stderr))
	},
})

func init() {
	defaults := NewValidateConfig()
	validateCmd.Flags().StringSlice("files", defaults.Files, "Specific files to validate")
	validateCmd.Flags().Bool("all", defaults.All, "Validate all component files in the repository")
	validateCmd.Flags().Bool("changed", defaults.Changed, "Validate files changed since the merge base with --base")
	validateCmd.Flags().String("base", defaults.Base, "Base revision for --changed (default origin/main, origin/develop, HEAD~1)")
	validateCmd.Flags().String("format", defaults.Format, "Output format (console, plain, json)")
	validateCmd.Flags().BoolP("verbose", "v", defaults.Verbose, "Show valid files too")
	validateCmd.Flags().BoolP("quiet", "q", defaults.Quiet, "Show only errors")
	validateCmd.Flags().Int("jobs", defaults.Jobs, "Number of files validated in parallel (default: number of CPUs)")
	validateCmd.Flags().Bool("cache", defaults.Cache, "Serve unchanged files from the result cache")
	validateCmd.Flags().Bool("pre-commit", defaults.PreCommit, "Print the commit blocked banner when validation fails")
	validateCmd.MarkFlagsMutuallyExclusive("files", "all", "changed")

	rootCmd.AddCommand(validateCmd)
}

func getValidateConfigFromFlags(cmd *cobra.Command) *ValidateConfig {
	config := NewValidateConfig()
	config.Format = viper.GetString("format")
	config.Jobs = viper.GetInt("jobs")
	config.Cache = viper.GetBool("cache.enabled")

	if files, err := cmd.Flags().GetStringSlice("files"); err == nil {
		config.Files = files
	}
	if all, err := cmd.Flags().GetBool("all"); err == nil {
		config.All = all
	}
	if changed, err := cmd.Flags().GetBool("changed"); err == nil {
		config.Changed = changed
	}
	if base, err := cmd.Flags().GetString("base"); err == nil {
		config.Base = base
	}
	if cmd.Flags().Changed("format") {
		config.Format, _ = cmd.Flags().GetString("format")
	}
	if verbose, err := cmd.Flags().GetBool("verbose"); err == nil {
		config.Verbose = verbose
	}
	if quiet, err := cmd.Flags().GetBool("quiet"); err == nil {
		config.Quiet = quiet
	}
	if cmd.Flags().Changed("jobs") {
		config.Jobs, _ = cmd.Flags().GetInt("jobs")
	}
	if cmd.Flags().Changed("cache") {
		config.Cache, _ = cmd.Flags().GetBool("cache")
	}
	if preCommit, err := cmd.Flags().GetBool("pre-commit"); err == nil {
		config.PreCommit = preCommit
	}
	return config
}

// runValidate executes a validation run and returns the process exit code
func runValidate(ctx context.Context, config *ValidateConfig, stdout, stderr io.Writer) int {
	format, err := report.ParseFormat(config.Format)
	if err != nil {
		presenter.Error(err, "Invalid output format")
		return report.ExitSystemError
	}

	rules, err := loadRuleset()
	if err != nil {
		presenter.Error(err, "Invalid rules configuration")
		return report.ExitSystemError
	}

	if config.PreCommit && format != report.FormatJSON {
		fmt.Fprintln(stdout, "Validating components...")
	}

	root := repoRoot(ctx)
	ctx = logger.WithFields(ctx, logrus.Fields{"root": root, "selection": config.Selection()})

	files, err := gatherFiles(ctx, root, config)
	if err != nil {
		presenter.Error(err, "Failed to collect files")
		return report.ExitSystemError
	}
	if len(files) == 0 {
		fmt.Fprintln(stdout, "No files to validate.")
		return report.ExitOK
	}

	files, err = discovery.Exclude(root, files, excludePatterns())
	if err != nil {
		presenter.Error(err, "Invalid exclude pattern")
		return report.ExitSystemError
	}
	components := validation.NewRegistry(rules).Filter(files)
	if len(components) == 0 {
		fmt.Fprintln(stdout, "No components to validate.")
		return report.ExitOK
	}

	eng, closeEngine, err := newEngine(ctx, rules, config.Jobs, config.Cache)
	if err != nil {
		presenter.Error(err, "Failed to initialize validation")
		return report.ExitSystemError
	}
	defer closeEngine()

	logger.G(ctx).WithField("files", len(components)).WithField("jobs", eng.Jobs()).Debug("validating components")
	results, err := eng.Run(ctx, components)
	if err != nil {
		presenter.Error(err, "Validation failed")
		return report.ExitSystemError
	}

	opts := report.Options{
		Format:  format,
		Verbose: config.Verbose,
		Quiet:   config.Quiet,
		Root:    root,
	}
	if err := report.Write(stdout, results, opts); err != nil {
		presenter.Error(err, "Failed to write report")
		return report.ExitSystemError
	}

	code := report.ExitCode(results)
	if code == report.ExitFailed && config.PreCommit && format != report.FormatJSON {
		report.WriteBlocked(stderr)
	}
	return code
}

// gatherFiles resolves the selection into absolute paths. Only --all
// applies discovery patterns; the other selections are filtered by the
// registry afterwards.
func gatherFiles(ctx context.Context, root string, config *ValidateConfig) ([]string, error) {
	switch config.Selection() {
	case "files":
		files := make([]string, 0, len(config.Files))
		for _, f := range config.Files {
			abs, err := filepath.Abs(f)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to resolve %s", f)
			}
			files = append(files, abs)
		}
		return files, nil
	case "all":
		finder, err := discovery.NewFinder(discovery.WithExclude(excludePatterns()...))
		if err != nil {
			return nil, err
		}
		return finder.FindAll(ctx, root)
	case "changed":
		repo, err := gitutil.Open(root)
		if err != nil {
			return nil, err
		}
		return repo.ChangedFiles(ctx, config.Base)
	default:
		repo, err := gitutil.Open(root)
		if errors.Is(err, gitutil.ErrNotGitRepository) {
			logger.G(ctx).Warn("not a git repository, no staged files")
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return repo.StagedFiles()
	}
}
