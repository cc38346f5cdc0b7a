package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/devkit-tools/devkit-validator/pkg/engine"
	"github.com/devkit-tools/devkit-validator/pkg/logger"
	"github.com/devkit-tools/devkit-validator/pkg/presenter"
	"github.com/devkit-tools/devkit-validator/pkg/report"
	"github.com/devkit-tools/devkit-validator/pkg/validation"
	"github.com/devkit-tools/devkit-validator/pkg/watcher"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// WatchConfig holds configuration for the watch command
type WatchConfig struct {
	IgnoreDirs   []string
	DebounceTime int
	Format       string
	Quiet        bool
}

// NewWatchConfig creates a new WatchConfig with default values
func NewWatchConfig() *WatchConfig {
	return &WatchConfig{
		IgnoreDirs:   []string{".git", "node_modules"},
		DebounceTime: int(watcher.DefaultDebounce / time.Millisecond),
		Format:       string(report.FormatConsole),
	}
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-validate components as they change",
	Long: `Watch the repository and validate every component file as soon as it is
saved. Directories such as .git and node_modules are ignored, as are the
configured exclude patterns.`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getWatchConfigFromFlags(cmd)
		ctx := cmd.Context()

		format, err := report.ParseFormat(config.Format)
		if err != nil {
			presenter.Error(err, "Invalid output format")
			exit(1)
		}
		rules, err := loadRuleset()
		if err != nil {
			presenter.Error(err, "Invalid rules configuration")
			exit(1)
		}
		eng, closeEngine, err := newEngine(ctx, rules, 1, viper.GetBool("cache.enabled"))
		if err != nil {
			presenter.Error(err, "Failed to initialize validation")
			exit(1)
		}
		defer closeEngine()

		root := repoRoot(ctx)
		cfg := watcher.NewConfig(root)
		cfg.IgnoreDirs = config.IgnoreDirs
		cfg.Exclude = excludePatterns()
		cfg.Debounce = time.Duration(config.DebounceTime) * time.Millisecond

		opts := report.Options{Format: format, Verbose: true, Quiet: config.Quiet, Root: root}
		w, err := watcher.New(ctx, cfg, watchHandler(eng, opts, os.Stdout))
		if err != nil {
			presenter.Error(err, "Failed to watch repository")
			exit(1)
		}

		presenter.SetQuiet(config.Quiet)
		presenter.Info(fmt.Sprintf("Watching %s for component changes (Ctrl+C to stop)", root))
		if err := w.Run(ctx); err != nil {
			logger.G(ctx).WithError(err).Warn("watcher stopped with an error")
		}
		presenter.Info("Stopped watching")
	},
}

func init() {
	defaults := NewWatchConfig()
	watchCmd.Flags().StringSliceP("ignore", "i", defaults.IgnoreDirs, "Directories to ignore")
	watchCmd.Flags().IntP("debounce", "d", defaults.DebounceTime, "Debounce time in milliseconds for file change events")
	watchCmd.Flags().String("format", defaults.Format, "Output format (console, plain, json)")
	watchCmd.Flags().BoolP("quiet", "q", defaults.Quiet, "Show only errors")

	rootCmd.AddCommand(watchCmd)
}

func getWatchConfigFromFlags(cmd *cobra.Command) *WatchConfig {
	config := NewWatchConfig()
	if ignoreDirs, err := cmd.Flags().GetStringSlice("ignore"); err == nil {
		config.IgnoreDirs = ignoreDirs
	}
	if debounceTime, err := cmd.Flags().GetInt("debounce"); err == nil {
		config.DebounceTime = debounceTime
	}
	if format, err := cmd.Flags().GetString("format"); err == nil {
		config.Format = format
	}
	if quiet, err := cmd.Flags().GetBool("quiet"); err == nil {
		config.Quiet = quiet
	}
	return config
}

// watchHandler validates the file behind each event and prints its report
func watchHandler(eng *engine.Engine, opts report.Options, out io.Writer) watcher.Handler {
	return func(ctx context.Context, ev watcher.Event) {
		log := logger.G(ctx).WithFields(logrus.Fields{
			"file":      ev.Path,
			"operation": ev.Op.String(),
		})
		if ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
			log.Debug("file removed, nothing to validate")
			return
		}
		if info, err := os.Stat(ev.Path); err != nil || info.IsDir() {
			return
		}

		result := eng.ValidateOne(ctx, ev.Path)
		if result == nil {
			log.Debug("not a component file")
			return
		}
		if err := report.Write(out, []*validation.Result{result}, opts); err != nil {
			log.WithError(err).Warn("failed to write report")
		}
	}
}
