package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/auditor/pkg/cli"
	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/runner"
	"mercator-hq/auditor/pkg/scheduler"
	"mercator-hq/auditor/pkg/store"
	"mercator-hq/auditor/pkg/telemetry/health"
)

var daemonFlags struct {
	skipInitial bool
	listen      string
	cron        string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-evaluate when the benchmark or check content changes",
	Long: `Evaluate once, then watch the benchmark document and engines.content_dir
and re-evaluate after every burst of changes (debounced by
schedule.debounce). Use "auditor schedule" with schedule.watch for cron
evaluations as well.

Metrics, health and readiness are served on telemetry.listen_address. The
readiness check fails when the store is unreachable or, with
telemetry.health.max_result_age set, when no evaluation completed recently.

Examples:
  # Watch with the default configuration
  auditor watch

  # Serve metrics on all interfaces
  auditor watch --listen 0.0.0.0:9464`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd, daemonMode{watch: true})
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Evaluate on a cron schedule",
	Long: `Evaluate the configured profiles on schedule.cron and prune the result
history on store.retention.prune_schedule. With schedule.watch set, content
changes also trigger evaluations.

Cron specs use five fields or descriptors such as @hourly and @every 30m.

Examples:
  # Evaluate every hour
  auditor schedule --cron @hourly

  # Use the configured schedule and skip the startup run
  auditor schedule --skip-initial`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd, daemonMode{cron: true})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd, scheduleCmd)

	for _, c := range []*cobra.Command{watchCmd, scheduleCmd} {
		c.Flags().BoolVar(&daemonFlags.skipInitial, "skip-initial", false, "do not evaluate at startup")
		c.Flags().StringVar(&daemonFlags.listen, "listen", "", `override telemetry listen address ("off" disables it)`)
	}
	scheduleCmd.Flags().StringVar(&daemonFlags.cron, "cron", "", "override schedule.cron")
}

// daemonMode selects what triggers evaluations. schedule.watch adds
// watching to the schedule command.
type daemonMode struct {
	cron  bool
	watch bool
}

func runDaemon(cmd *cobra.Command, mode daemonMode) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	if daemonFlags.cron != "" {
		cfg.Schedule.Cron = daemonFlags.cron
	}
	if daemonFlags.listen != "" {
		cfg.Telemetry.ListenAddress = daemonFlags.listen
	}
	mode.watch = mode.watch || cfg.Schedule.Watch

	ctx := commandContext(cmd)
	r := a.runner()
	registerHealthChecks(a, r.LastRun)

	if _, err := a.tel.Serve(); err != nil {
		return cli.NewCommandError(cmd.Name(), err)
	}

	run := func(ctx context.Context, trigger string) error {
		_, err := r.Run(ctx, trigger)
		return err
	}
	if !daemonFlags.skipInitial {
		// A failed startup run is logged by the runner and retried by the
		// next trigger.
		_ = run(ctx, runner.TriggerManual)
	}

	sched := scheduler.New(a.logger, a.tel.Metrics())
	if mode.cron {
		if err := sched.AddEvaluation(ctx, cfg.Schedule.Cron, runner.TriggerSchedule, run); err != nil {
			return cli.NewConfigError("schedule.cron", err.Error())
		}
	}
	pruner := store.NewPruner(a.storage, cfg.Store.Retention, a.logger)
	if err := sched.AddPrune(ctx, cfg.Store.Retention.PruneSchedule, pruner.Prune); err != nil {
		return cli.NewConfigError("store.retention.prune_schedule", err.Error())
	}
	sched.Start(ctx)
	defer sched.Stop()

	a.logger.Info("auditor running",
		"cron", cfg.Schedule.Cron,
		"watch", mode.watch,
		"next_run", sched.NextRun("evaluation"),
	)

	if mode.watch {
		w, err := scheduler.NewWatcher(scheduler.WatcherConfig{
			Paths:      watchPaths(cfg, a.logger),
			Debounce:   cfg.Schedule.Debounce,
			SkipHidden: true,
		}, a.logger)
		if err != nil {
			return cli.NewCommandError(cmd.Name(), err)
		}
		err = w.Watch(ctx, func(ctx context.Context, _ string) {
			_ = run(ctx, runner.TriggerWatch)
		})
		if err != nil {
			return cli.NewCommandError(cmd.Name(), err)
		}
	} else {
		<-ctx.Done()
	}

	a.logger.Info("shutting down")
	return nil
}

// registerHealthChecks makes readiness depend on the store and, when
// configured, on the age of the last completed run.
func registerHealthChecks(a *app, lastRun func() time.Time) {
	checker := a.tel.Health()
	checker.RegisterCheck("store", a.storage.Ping)
	if maxAge := a.cfg.Telemetry.Health.MaxResultAge; maxAge > 0 {
		checker.RegisterCheck("freshness", health.FreshnessCheck(lastRun, maxAge, time.Now(), time.Now))
	}
}

// watchPaths returns the benchmark document and the content directory when
// it exists.
func watchPaths(cfg *config.Config, logger *slog.Logger) []string {
	paths := []string{cfg.Benchmark.Path}
	info, err := os.Stat(cfg.Engines.ContentDir)
	switch {
	case err == nil && info.IsDir():
		paths = append(paths, cfg.Engines.ContentDir)
	case err != nil && !errors.Is(err, os.ErrNotExist):
		logger.Warn("content directory not watched", "path", cfg.Engines.ContentDir, "error", err)
	}
	return paths
}
