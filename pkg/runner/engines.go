package runner

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"mercator-hq/auditor/pkg/checks/expr"
	"mercator-hq/auditor/pkg/checks/file"
	"mercator-hq/auditor/pkg/checks/script"
	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/policy"
)

// RegisterEngines creates the checking engines enabled in cfg and registers
// them on m under their system URIs.
func RegisterEngines(m *policy.Model, cfg config.EnginesConfig, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.CEL.IsEnabled() {
		engine, err := expr.New(expr.Config{ContentDir: cfg.ContentDir, Root: cfg.Root}, logger)
		if err != nil {
			return fmt.Errorf("failed to create CEL engine: %w", err)
		}
		m.RegisterEngine(expr.System, engine)
	}

	if cfg.Script.IsEnabled() {
		m.RegisterEngine(script.System, script.New(script.Config{
			ContentDir: cfg.ContentDir,
			Timeout:    cfg.Script.Timeout,
			Env:        envList(cfg.Script.Env),
			BaseEnv:    os.Environ(),
		}, logger))
	}

	if cfg.File.IsEnabled() {
		m.RegisterEngine(file.System, file.New(file.Config{ContentDir: cfg.ContentDir, Root: cfg.Root}, logger))
	}

	return nil
}

// envList renders env as sorted KEY=VALUE entries.
func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
