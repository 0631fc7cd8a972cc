package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/auditor/pkg/cli"
	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/content"
	"mercator-hq/auditor/pkg/policy"
	"mercator-hq/auditor/pkg/runner"
	"mercator-hq/auditor/pkg/store"
	"mercator-hq/auditor/pkg/telemetry"
)

// shutdownTimeout bounds flushing spans and stopping the listener.
const shutdownTimeout = 5 * time.Second

// loadConfig reads the configuration file, applies AUDITOR_* environment
// overrides and then command-line overrides. A missing default config file
// is not an error; defaults are used instead.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := cfgFile
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, cli.NewConfigError("config", err.Error())
	}

	if benchmarkPath != "" {
		cfg.Benchmark.Path = benchmarkPath
	}
	if storeBackend != "" {
		cfg.Store.Backend = storeBackend
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return nil, cli.NewConfigError("config", err.Error())
	}

	config.SetConfig(cfg)
	return cfg, nil
}

// app holds what every command needs once configuration is loaded.
type app struct {
	cfg     *config.Config
	tel     *telemetry.Telemetry
	storage store.Storage
	logger  *slog.Logger

	// content is set when check content is synced from git.
	content *content.Repository
}

// newApp loads configuration and builds telemetry and storage. Logs go to
// the command's stderr. Interactive commands pass quiet to log only
// warnings unless --verbose is set.
func newApp(cmd *cobra.Command, quiet bool) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if quiet && !verbose {
		cfg.Telemetry.Logging.Level = "warn"
	}

	tel, err := telemetry.New(cfg.Telemetry, telemetry.BuildInfo{Version: Version, Commit: GitCommit}, cmd.ErrOrStderr())
	if err != nil {
		return nil, cli.NewConfigError("telemetry", err.Error())
	}
	logger := tel.Logger()
	slog.SetDefault(logger)

	storage, err := store.New(cfg.Store, logger)
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, cli.NewCommandError(cmd.Name(), err)
	}

	a := &app{cfg: cfg, tel: tel, storage: storage, logger: logger}
	if cfg.Engines.Git.Enabled() {
		a.content, err = content.NewRepository(cfg.Engines.Git, cfg.Engines.ContentDir, logger)
		if err != nil {
			a.Close()
			return nil, cli.NewConfigError("engines.git", err.Error())
		}
	}
	return a, nil
}

// Close releases storage and flushes telemetry.
func (a *app) Close() {
	if err := a.storage.Close(); err != nil {
		a.logger.Warn("failed to close result store", "error", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.tel.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown failed", "error", err)
	}
}

// runner returns a runner saving to the app's storage and reporting to its
// telemetry.
func (a *app) runner(opts ...runner.Option) *runner.Runner {
	base := []runner.Option{
		runner.WithStorage(a.storage),
		runner.WithObserver(a.tel.Metrics()),
		runner.WithPolicyOptions(a.tel.PolicyOptions()...),
		runner.WithLogger(a.logger),
	}
	if a.content != nil {
		base = append(base, runner.WithContentSync(a.content))
	}
	return runner.New(a.cfg, append(base, opts...)...)
}

// commandContext returns the command's context, which Execute cancels on
// SIGINT or SIGTERM.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// writeOutput renders data in the --output format.
func writeOutput(cmd *cobra.Command, data any) error {
	format, err := cli.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), data)
}

// defaultProfile is the profile a single-profile command uses when none is
// given.
func defaultProfile(cfg *config.Config) string {
	if cfg.Benchmark.Profile != "" {
		return cfg.Benchmark.Profile
	}
	return policy.DefaultPolicyID
}

// policyID returns the policy that produced rec. Results of the default
// policy carry no profile.
func policyID(rec *store.Record) string {
	if rec.ProfileID == "" {
		return policy.DefaultPolicyID
	}
	return rec.ProfileID
}

// findRecord fetches a stored result by ID. "latest" selects the newest
// result, optionally restricted to a profile.
func findRecord(ctx context.Context, s store.Storage, id, profileID string) (*store.Record, error) {
	if id != "latest" {
		return s.Get(ctx, id)
	}
	q := store.Query{}
	if profileID != "" && profileID != policy.DefaultPolicyID {
		q.ProfileID = profileID
	}
	return store.Latest(ctx, s, q)
}
