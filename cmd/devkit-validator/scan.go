package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/devkit-tools/devkit-validator/pkg/cache"
	"github.com/devkit-tools/devkit-validator/pkg/discovery"
	"github.com/devkit-tools/devkit-validator/pkg/gitutil"
	"github.com/devkit-tools/devkit-validator/pkg/logger"
	"github.com/devkit-tools/devkit-validator/pkg/presenter"
	"github.com/devkit-tools/devkit-validator/pkg/report"
	"github.com/devkit-tools/devkit-validator/pkg/security/mcpscan"
	"github.com/devkit-tools/devkit-validator/pkg/security/trusthub"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type ScanMCPConfig struct {
	All     bool
	Plugin  string
	Path    string
	Changed bool
	Base    string
	Verbose bool
	Jobs    int
}

func NewScanMCPConfig() *ScanMCPConfig {
	return &ScanMCPConfig{
		Jobs: 1,
	}
}

// HasSelection reports whether any target selection flag was given
func (c *ScanMCPConfig) HasSelection() bool {
	return c.All || c.Plugin != "" || c.Path != "" || c.Changed
}

type ScanHistoryConfig struct {
	Limit  int
	Format string
}

func NewScanHistoryConfig() *ScanHistoryConfig {
	return &ScanHistoryConfig{
		Limit:  20,
		Format: "table",
	}
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run security scanners over skills and rules",
	Long:  `Run mcp-scan or the Trust Hub lookup over skills and rules, and show the scan history.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var scanMCPCmd = withTracing(&cobra.Command{
	Use:   "mcp",
	Short: "Scan skill directories and rule files with mcp-scan",
	Long: `Scan plugin skills (plugins/*/skills/**) and rules (plugins/*/rules/*.md)
with mcp-scan, run through uvx or pipx.

Exit codes: 0 when no component failed, 1 when security issues were found,
2 when mcp-scan is not available. Scanner errors do not fail the run.

Examples:
  devkit-validator scan mcp --all
  devkit-validator scan mcp --plugin developer-kit-java
  devkit-validator scan mcp --changed --base origin/main`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getScanMCPConfigFromFlags(cmd)
		if !config.HasSelection() {
			cmd.Help()
			exit(report.ExitSystemError)
		}
		exit(runScanMCP(cmd.Context(), config, os.Stdout))
	},
})

var scanTrustHubCmd = withTracing(&cobra.Command{
	Use:   "trusthub",
	Short: "Check changed SKILL.md files against the Trust Hub API",
	Long: `Look up every SKILL.md changed on a pull request branch in the Trust Hub
API. Meant for CI: GITHUB_REPOSITORY and GITHUB_HEAD_REF must be set, and
GITHUB_BASE_REF defaults to main.

Only an unsafe verdict fails the run; API failures are reported as warnings.`,
	Run: func(cmd *cobra.Command, _ []string) {
		exit(runScanTrustHub(cmd.Context(), os.Stdout))
	},
})

var scanHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent scan results",
	Run: func(cmd *cobra.Command, _ []string) {
		config := getScanHistoryConfigFromFlags(cmd)
		ctx := cmd.Context()

		store, err := openCache(ctx, nil)
		if err != nil {
			presenter.Error(err, "Failed to open scan history")
			exit(report.ExitSystemError)
		}
		defer store.Close()

		records, err := store.ScanHistory(ctx, config.Limit)
		if err != nil {
			presenter.Error(err, "Failed to read scan history")
			exit(report.ExitSystemError)
		}
		if err := writeScanHistory(os.Stdout, records, config.Format); err != nil {
			presenter.Error(err, "Failed to write scan history")
			exit(report.ExitSystemError)
		}
	},
}

func init() {
	mcpDefaults := NewScanMCPConfig()
	scanMCPCmd.Flags().Bool("all", mcpDefaults.All, "Scan every plugin skill and rule")
	scanMCPCmd.Flags().String("plugin", mcpDefaults.Plugin, "Scan the components of one plugin")
	scanMCPCmd.Flags().String("path", mcpDefaults.Path, "Scan the components under a path")
	scanMCPCmd.Flags().Bool("changed", mcpDefaults.Changed, "Scan components changed since the merge base with --base")
	scanMCPCmd.Flags().String("base", mcpDefaults.Base, "Base revision for --changed")
	scanMCPCmd.Flags().BoolP("verbose", "v", mcpDefaults.Verbose, "Show scan commands and durations")
	scanMCPCmd.Flags().Int("jobs", mcpDefaults.Jobs, "Number of scans run in parallel")

	historyDefaults := NewScanHistoryConfig()
	scanHistoryCmd.Flags().Int("limit", historyDefaults.Limit, "Number of records to show")
	scanHistoryCmd.Flags().String("format", historyDefaults.Format, "Output format (table, json)")

	scanCmd.AddCommand(scanMCPCmd)
	scanCmd.AddCommand(scanTrustHubCmd)
	scanCmd.AddCommand(scanHistoryCmd)
	rootCmd.AddCommand(scanCmd)
}

func getScanMCPConfigFromFlags(cmd *cobra.Command) *ScanMCPConfig {
	config := NewScanMCPConfig()
	config.Jobs = viper.GetInt("security.jobs")

	if all, err := cmd.Flags().GetBool("all"); err == nil {
		config.All = all
	}
	if plugin, err := cmd.Flags().GetString("plugin"); err == nil {
		config.Plugin = plugin
	}
	if path, err := cmd.Flags().GetString("path"); err == nil {
		config.Path = path
	}
	if changed, err := cmd.Flags().GetBool("changed"); err == nil {
		config.Changed = changed
	}
	if base, err := cmd.Flags().GetString("base"); err == nil {
		config.Base = base
	}
	if verbose, err := cmd.Flags().GetBool("verbose"); err == nil {
		config.Verbose = verbose
	}
	if cmd.Flags().Changed("jobs") {
		config.Jobs, _ = cmd.Flags().GetInt("jobs")
	}
	return config
}

func getScanHistoryConfigFromFlags(cmd *cobra.Command) *ScanHistoryConfig {
	config := NewScanHistoryConfig()
	if limit, err := cmd.Flags().GetInt("limit"); err == nil {
		config.Limit = limit
	}
	if format, err := cmd.Flags().GetString("format"); err == nil {
		config.Format = format
	}
	return config
}

func runScanMCP(ctx context.Context, config *ScanMCPConfig, w io.Writer) int {
	runner, err := mcpscan.DetectRunner(exec.LookPath, scanTimeout())
	if err != nil {
		presenter.Error(err, "mcp-scan is not available")
		return report.ExitSystemError
	}
	presenter.Section("MCP Security Scan")
	presenter.Info(fmt.Sprintf("Using runner: %s", runner.Name()))

	root := repoRoot(ctx)
	targets, err := selectScanTargets(ctx, root, config)
	if err != nil {
		presenter.Error(err, "Failed to select scan targets")
		return report.ExitSystemError
	}
	if len(targets) == 0 {
		if config.Changed {
			presenter.Success("No skill or rule changes detected, nothing to scan.")
		} else {
			presenter.Warning("No skills or rules found to scan.")
		}
		return report.ExitOK
	}

	presenter.Info(fmt.Sprintf("Found %d component(s) to scan", len(targets)))
	outcomes, err := mcpscan.NewScanner(runner, config.Jobs).Scan(ctx, targets)
	if err != nil {
		presenter.Error(err, "Scan failed")
		return report.ExitSystemError
	}

	for i, o := range outcomes {
		writeMCPOutcome(w, i+1, len(outcomes), o, config.Verbose, runner)
	}
	recordScans(ctx, mcpscan.Records(uuid.NewString(), outcomes))

	counts := mcpscan.Counts(outcomes)
	fmt.Fprintln(w)
	presenter.Separator()
	presenter.Tally("Results",
		presenter.Count{Label: "passed", Value: counts[cache.ScanPassed]},
		presenter.Count{Label: "failed", Value: counts[cache.ScanFailed]},
		presenter.Count{Label: "skipped", Value: counts[cache.ScanSkipped]},
		presenter.Count{Label: "errors", Value: counts[cache.ScanError]},
	)

	code := mcpscan.ExitCode(outcomes)
	switch {
	case code != report.ExitOK:
		presenter.Error(errors.Errorf("%d component(s) with security issues", counts[cache.ScanFailed]), "Security scan failed")
	case counts[cache.ScanError] > 0:
		presenter.Warning(fmt.Sprintf("Security scan completed with %d error(s)", counts[cache.ScanError]))
	default:
		presenter.Success(fmt.Sprintf("Security scan passed: all %d component(s) are clean", len(outcomes)))
	}
	return code
}

// selectScanTargets finds and filters the targets for the selection flags
func selectScanTargets(ctx context.Context, root string, config *ScanMCPConfig) ([]mcpscan.Target, error) {
	if _, err := os.Stat(filepath.Join(root, "plugins")); err != nil {
		return nil, errors.Errorf("plugins/ directory not found under %s", root)
	}
	filter := mcpscan.Filter{Plugin: config.Plugin}

	if config.Plugin != "" {
		if _, err := os.Stat(filepath.Join(root, "plugins", config.Plugin)); err != nil {
			return nil, errors.Errorf("plugin not found: %s", config.Plugin)
		}
	}
	if config.Path != "" {
		abs, err := filepath.Abs(config.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to resolve %s", config.Path)
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, errors.Errorf("path not found: %s", config.Path)
		}
		filter.Path = abs
	}
	if config.Changed {
		repo, err := gitutil.Open(root)
		if err != nil {
			return nil, err
		}
		changed, err := repo.ChangedFiles(ctx, config.Base)
		if err != nil {
			return nil, err
		}
		filter.ChangedOnly = true
		filter.Changed = changed
	}

	targets, err := mcpscan.FindTargets(ctx, root)
	if err != nil {
		return nil, err
	}
	return filter.Apply(root, targets), nil
}

func writeMCPOutcome(w io.Writer, n, total int, o mcpscan.Outcome, verbose bool, runner *mcpscan.CommandRunner) {
	fmt.Fprintf(w, "\n[%d/%d] %s (%s)\n", n, total, o.Rel, o.Kind)
	if verbose && o.Duration > 0 {
		fmt.Fprintf(w, "  $ %s\n", strings.Join(runner.Args(o.Path), " "))
		fmt.Fprintf(w, "  took %s\n", o.Duration.Round(time.Millisecond))
	}
	switch o.Status {
	case cache.ScanPassed:
		if o.Message != "" {
			fmt.Fprintf(w, "  ✓ PASS (%s)\n", o.Message)
		} else {
			fmt.Fprintln(w, "  ✓ PASS")
		}
	case cache.ScanSkipped:
		fmt.Fprintf(w, "  ⚠ SKIP  %s\n", o.Message)
	case cache.ScanError:
		fmt.Fprintf(w, "  ✗ ERROR %s\n", o.Message)
	case cache.ScanFailed:
		for _, issue := range o.Issues {
			fmt.Fprintf(w, "  ✗ FAIL  [%s] %s\n", issue.Code, issue.Message)
		}
	}
}

func runScanTrustHub(ctx context.Context, w io.Writer) int {
	env, ok := trusthub.EnvFrom(os.Getenv)
	if !ok {
		presenter.Warning("GITHUB_REPOSITORY or GITHUB_HEAD_REF not set, skipping Trust Hub check.")
		return report.ExitOK
	}

	presenter.Section("Trust Hub Check")
	root := repoRoot(ctx)
	presenter.Info(fmt.Sprintf("Detecting changed SKILL.md files (base: %s)", env.BaseRef))
	skills, err := changedSkills(ctx, root, env.BaseRevision())
	if err != nil {
		presenter.Warning(fmt.Sprintf("Could not diff against %s: %s", env.BaseRevision(), err))
		return report.ExitOK
	}
	if len(skills) == 0 {
		presenter.Success("No SKILL.md files changed, nothing to check.")
		return report.ExitOK
	}

	client := trusthub.NewClient(viper.GetString("security.trust_hub_url"))
	outcomes := trusthub.Check(ctx, client, env, skills)
	for _, o := range outcomes {
		fmt.Fprintf(w, "\n%s\n  URL: %s\n", o.Path, o.URL)
		switch o.Status {
		case cache.ScanPassed:
			fmt.Fprintln(w, "  ✓ Safe")
		case cache.ScanFailed:
			fmt.Fprintf(w, "  ✗ UNSAFE %s\n", o.Message)
		default:
			fmt.Fprintf(w, "  ⚠ %s (non-blocking)\n", o.Message)
		}
	}
	fmt.Fprintln(w)
	recordScans(ctx, trusthub.Records(uuid.NewString(), outcomes))

	code := trusthub.ExitCode(outcomes)
	if code != report.ExitOK {
		presenter.Error(errors.New("one or more skills were flagged as unsafe"), "Security check failed")
		return code
	}
	presenter.Success("Security check passed: all skills are safe.")
	return code
}

func changedSkills(ctx context.Context, root, base string) ([]string, error) {
	repo, err := gitutil.Open(root)
	if err != nil {
		return nil, err
	}
	changed, err := repo.ChangedFiles(ctx, base)
	if err != nil {
		return nil, err
	}
	rels := make([]string, 0, len(changed))
	for _, c := range changed {
		rels = append(rels, discovery.Rel(root, c))
	}
	return trusthub.SkillFiles(rels), nil
}

// recordScans stores scan outcomes in the history; failures only warn
func recordScans(ctx context.Context, records []cache.ScanRecord) {
	store, err := openCache(ctx, nil)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("scan history unavailable")
		return
	}
	defer store.Close()
	if err := store.RecordScans(ctx, records); err != nil {
		logger.G(ctx).WithError(err).Warn("failed to record scan history")
	}
}

func writeScanHistory(w io.Writer, records []cache.ScanRecord, format string) error {
	switch format {
	case "json":
		if records == nil {
			records = []cache.ScanRecord{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "table", "":
	default:
		return errors.Errorf("unknown format %q (expected table or json)", format)
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "No scans recorded")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCANNED AT\tSCANNER\tCOMPONENT\tTYPE\tSTATUS\tISSUES")
	fmt.Fprintln(tw, "----------\t-------\t---------\t----\t------\t------")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			r.ScannedAt.Local().Format("2006-01-02 15:04:05"), r.Scanner, r.Component, r.ComponentType, r.Status, len(r.Issues))
	}
	return tw.Flush()
}
