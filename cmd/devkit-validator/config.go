package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/devkit-tools/devkit-validator/pkg/cache"
	"github.com/devkit-tools/devkit-validator/pkg/db"
	"github.com/devkit-tools/devkit-validator/pkg/engine"
	"github.com/devkit-tools/devkit-validator/pkg/gitutil"
	"github.com/devkit-tools/devkit-validator/pkg/logger"
	"github.com/devkit-tools/devkit-validator/pkg/security/mcpscan"
	"github.com/devkit-tools/devkit-validator/pkg/security/trusthub"
	"github.com/devkit-tools/devkit-validator/pkg/telemetry"
	"github.com/devkit-tools/devkit-validator/pkg/validation"
	"github.com/devkit-tools/devkit-validator/pkg/version"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const configFileName = ".devkit-validator.yaml"

func init() {
	viper.SetEnvPrefix("DEVKIT_VALIDATOR")
	viper.AutomaticEnv()

	viper.SetDefault("log_level", "warn")
	viper.SetDefault("log_format", "fmt")
	viper.SetDefault("format", "console")
	viper.SetDefault("jobs", 0)
	viper.SetDefault("exclude", []string{})
	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.path", "")
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.sampler", "ratio")
	viper.SetDefault("tracing.ratio", 1.0)
	viper.SetDefault("security.trust_hub_url", trusthub.DefaultURL)
	viper.SetDefault("security.mcp_scan_timeout", mcpscan.DefaultTimeout)
	viper.SetDefault("security.jobs", 1)
}

// initConfig loads the first config file found: --config, the repository
// root, the working directory, then ~/.devkit-validator/config.yaml.
func initConfig() {
	ctx := context.Background()
	for _, candidate := range configCandidates(ctx) {
		if candidate == "" {
			continue
		}
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		viper.SetConfigFile(candidate)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			logger.G(ctx).WithError(err).WithField("config_file", candidate).Warn("failed to read config file")
		}
		return
	}
}

func configCandidates(ctx context.Context) []string {
	candidates := []string{viper.GetString("config")}
	cwd, err := os.Getwd()
	if err == nil {
		candidates = append(candidates,
			filepath.Join(gitutil.RepoRoot(ctx, cwd), configFileName),
			filepath.Join(cwd, configFileName),
		)
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".devkit-validator", "config.yaml"))
	}
	return candidates
}

// repoRoot is the git worktree root, or the working directory outside git
func repoRoot(ctx context.Context) string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return gitutil.RepoRoot(ctx, cwd)
}

// loadRuleset applies the "rules" configuration section to the defaults
func loadRuleset() (*validation.Ruleset, error) {
	overrides, err := validation.DecodeOverrides(viper.GetStringMap("rules"))
	if err != nil {
		return nil, err
	}
	return validation.DefaultRuleset().WithOverrides(overrides)
}

func excludePatterns() []string {
	return viper.GetStringSlice("exclude")
}

// openCache opens the result cache keyed on the ruleset fingerprint
func openCache(ctx context.Context, rules *validation.Ruleset) (*cache.Store, error) {
	path := viper.GetString("cache.path")
	if path == "" {
		var err error
		path, err = db.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	fingerprint := ""
	if rules != nil {
		fingerprint = rules.Fingerprint()
	}
	store, err := cache.Open(ctx, path, fingerprint, version.Get().Version)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open cache at %s", path)
	}
	return store, nil
}

// newEngine builds the validation engine. The returned close func releases
// the cache when one was opened.
func newEngine(ctx context.Context, rules *validation.Ruleset, jobs int, useCache bool) (*engine.Engine, func(), error) {
	opts := []engine.Option{
		engine.WithJobs(jobs),
		engine.WithTracer(telemetry.Tracer()),
	}
	closer := func() {}
	if useCache {
		store, err := openCache(ctx, rules)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, engine.WithCache(store))
		closer = func() {
			if err := store.Close(); err != nil {
				logger.G(ctx).WithError(err).Warn("failed to close cache")
			}
		}
	}
	return engine.New(validation.NewRegistry(rules), opts...), closer, nil
}

func scanTimeout() time.Duration {
	if d := viper.GetDuration("security.mcp_scan_timeout"); d > 0 {
		return d
	}
	return mcpscan.DefaultTimeout
}
