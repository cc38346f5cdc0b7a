package main

import (
	"context"

	"github.com/devkit-tools/devkit-validator/pkg/telemetry"
	"github.com/devkit-tools/devkit-validator/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// initTracing initializes OpenTelemetry from the tracing.* settings
func initTracing(ctx context.Context) (telemetry.ShutdownFunc, error) {
	config := telemetry.Config{
		Enabled:        viper.GetBool("tracing.enabled"),
		ServiceName:    "devkit-validator",
		ServiceVersion: version.Get().Version,
		SamplerType:    viper.GetString("tracing.sampler"),
		SamplerRatio:   viper.GetFloat64("tracing.ratio"),
	}
	return telemetry.InitTracer(ctx, config)
}

// withTracing wraps a command's Run in a cli.command span
func withTracing(cmd *cobra.Command) *cobra.Command {
	originalRun := cmd.Run

	cmd.Run = func(cmd *cobra.Command, args []string) {
		attrs := []attribute.KeyValue{
			attribute.String("command.name", cmd.Name()),
			attribute.String("command.path", cmd.CommandPath()),
			attribute.Int("args.count", len(args)),
		}
		cmd.Flags().Visit(func(flag *pflag.Flag) {
			attrs = append(attrs, attribute.String("flag."+flag.Name, flag.Value.String()))
		})

		ctx, span := telemetry.Tracer().Start(cmd.Context(), "cli.command", trace.WithAttributes(attrs...))
		cmd.SetContext(ctx)
		// exit() ends the span when the command terminates early.
		activeSpan = span
		originalRun(cmd, args)
		span.SetStatus(codes.Ok, "")
		span.End()
		activeSpan = nil
	}

	return cmd
}

// activeSpan is the command span still open when exit is called
var activeSpan trace.Span

func endActiveSpan(code int) {
	if activeSpan == nil {
		return
	}
	if code != 0 {
		activeSpan.SetAttributes(attribute.Int("exit.code", code))
		activeSpan.SetStatus(codes.Error, "non-zero exit")
	} else {
		activeSpan.SetStatus(codes.Ok, "")
	}
	activeSpan.End()
	activeSpan = nil
}

func init() {
	rootCmd.PersistentFlags().Bool("tracing-enabled", false, "Enable OpenTelemetry tracing")
	rootCmd.PersistentFlags().String("tracing-sampler", "ratio", "Tracing sampler type (always, never, ratio)")
	rootCmd.PersistentFlags().Float64("tracing-ratio", 1, "Sampling ratio when using ratio sampler")

	viper.BindPFlag("tracing.enabled", rootCmd.PersistentFlags().Lookup("tracing-enabled"))
	viper.BindPFlag("tracing.sampler", rootCmd.PersistentFlags().Lookup("tracing-sampler"))
	viper.BindPFlag("tracing.ratio", rootCmd.PersistentFlags().Lookup("tracing-ratio"))
}
