package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	color.NoColor = true
}

const benchmarkYAML = `
id: xccdf_test_benchmark_cli
title: CLI test
items:
  - type: group
    id: xccdf_test_group_files
    title: Files
    items:
      - type: rule
        id: xccdf_test_rule_motd
        title: Message of the day exists
        severity: low
        checks:
          - system: urn:mercator:check:cel
            content:
              - href: checks.yaml
                name: motd
      - type: rule
        id: xccdf_test_rule_banner
        title: Network banner exists
        severity: medium
        weight: 3
        checks:
          - system: urn:mercator:check:cel
            content:
              - href: checks.yaml
                name: banner
profiles:
  - id: xccdf_test_profile_motd
    title: MOTD only
    select:
      - idref: xccdf_test_rule_banner
        selected: false
`

const checksYAML = `
checks:
  - name: motd
    expr: fileExists("/etc/motd")
  - name: banner
    expr: fileExists("/etc/issue.net")
`

// fixture is a benchmark, its content, a fake root and a config file using
// a SQLite store, all under one temporary directory.
type fixture struct {
	dir        string
	config     string
	benchmark  string
	contentDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:        dir,
		config:     filepath.Join(dir, "config.yaml"),
		benchmark:  filepath.Join(dir, "benchmark.yaml"),
		contentDir: filepath.Join(dir, "content"),
	}

	configYAML := fmt.Sprintf(`
benchmark:
  path: %s
engines:
  content_dir: %s
  root: %s
scoring:
  systems:
    - urn:xccdf:scoring:default
    - urn:xccdf:scoring:flat
store:
  backend: sqlite
  sqlite:
    path: %s
    driver: sqlite
telemetry:
  listen_address: "off"
  logging:
    format: json
`, f.benchmark, f.contentDir, filepath.Join(dir, "root"), filepath.Join(dir, "results.db"))

	for path, data := range map[string]string{
		f.config:                                   configYAML,
		f.benchmark:                                benchmarkYAML,
		filepath.Join(f.contentDir, "checks.yaml"): checksYAML,
		filepath.Join(dir, "root", "etc", "motd"):  "welcome\n",
	} {
		writeFile(t, path, data)
	}
	return f
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

// resetFlags restores every flag variable to its default. Cobra keeps
// parsed values between executions of the same command tree.
func resetFlags() {
	cfgFile = "config.yaml"
	verbose = false
	outputFormat = "text"
	benchmarkPath = ""
	storeBackend = ""

	evalFlags.noProgress = false
	evalFlags.noExitCode = false

	scoreFlags.systems = nil
	scoreFlags.profile = ""
	scoreFlags.noGroup = false

	resultsFlags.profile = ""
	resultsFlags.trigger = ""
	resultsFlags.outcome = ""
	resultsFlags.since = ""
	resultsFlags.until = ""
	resultsFlags.limit = 20
	resultsFlags.offset = 0
	resultsFlags.days = -1
	resultsFlags.maxResults = -1

	daemonFlags.skipInitial = false
	daemonFlags.listen = ""
	daemonFlags.cron = ""
}

// execute runs the command tree with args and returns what it wrote to
// stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	// Cobra hands a subcommand the root context only while its own is
	// unset, so a context from an earlier Execute would stick.
	resetContexts(rootCmd, ctx)
	err := rootCmd.ExecuteContext(ctx)
	if testing.Verbose() && stderr.Len() > 0 {
		t.Logf("stderr:\n%s", stderr.String())
	}
	return stdout.String(), err
}

func resetContexts(cmd *cobra.Command, ctx context.Context) {
	cmd.SetContext(ctx)
	for _, sub := range cmd.Commands() {
		resetContexts(sub, ctx)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
