package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/devkit-tools/devkit-validator/pkg/logger"
	"github.com/devkit-tools/devkit-validator/pkg/presenter"
	"github.com/devkit-tools/devkit-validator/pkg/report"
	"github.com/devkit-tools/devkit-validator/pkg/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// shutdownTracing flushes pending spans; set once tracing is initialized.
var shutdownTracing telemetry.ShutdownFunc

var rootCmd = &cobra.Command{
	Use:   "devkit-validator",
	Short: "Lint and secure a plugin marketplace of skills, agents, commands and rules",
	Long: `devkit-validator checks the Markdown and JSON components of a plugin
marketplace repository: SKILL.md files, agents, slash commands, rules,
plugin and marketplace manifests and LRA feature lists.

It runs as a git pre-commit hook, in CI and interactively.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := logger.SetLogLevel(viper.GetString("log_level")); err != nil {
			return err
		}
		logger.SetLogFormat(viper.GetString("log_format"))
		if mode := viper.GetString("color"); mode != "" {
			presenter.SetColorMode(presenter.ParseColorMode(mode))
		}
		if configFile := viper.ConfigFileUsed(); configFile != "" {
			logger.G(ctx).WithField("config_file", configFile).Debug("loaded configuration")
		}

		shutdown, err := initTracing(ctx)
		if err != nil {
			logger.G(ctx).WithError(err).Warn("failed to initialize tracing")
			return nil
		}
		shutdownTracing = shutdown
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "Config file (default .devkit-validator.yaml in the repository root)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (panic, fatal, error, warn, info, debug, trace)")
	rootCmd.PersistentFlags().String("log-format", "fmt", "Log format (fmt, text, json)")
	rootCmd.PersistentFlags().String("color", "", "Color output (auto, always, never); defaults to $DEVKIT_VALIDATOR_COLOR")
	rootCmd.PersistentFlags().StringSlice("exclude", nil, "Glob patterns (doublestar) of repository paths to skip")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("color", rootCmd.PersistentFlags().Lookup("color"))
	viper.BindPFlag("exclude", rootCmd.PersistentFlags().Lookup("exclude"))
}

// exit flushes tracing before terminating with code
func exit(code int) {
	endActiveSpan(code)
	if shutdownTracing != nil {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.L.WithError(err).Warn("failed to shut down tracing")
		}
		shutdownTracing = nil
	}
	os.Exit(code)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		presenter.Error(err, "Command failed")
		exit(report.ExitSystemError)
	}
	exit(report.ExitOK)
}
