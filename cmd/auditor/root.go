package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/auditor/pkg/cli"
)

var (
	// Global flags
	cfgFile       string
	verbose       bool
	outputFormat  string
	benchmarkPath string
	storeBackend  string
)

var rootCmd = &cobra.Command{
	Use:   "auditor",
	Short: "Mercator Auditor - XCCDF policy evaluation engine",
	Long: `Mercator Auditor evaluates XCCDF-style benchmarks against the local system.

A benchmark is a tree of groups and rules. Profiles tailor it by selecting
rules, refining weights and binding values. Each selected rule dispatches its
checks to a checking engine:
  - CEL expressions over the file system and environment
  - SCE scripts interpreted by exit code
  - File probes (existence, type, owner, mode, size)

Results are folded into a pass/fail tree, scored with the XCCDF scoring
models and kept in a result history (memory or SQLite).

Configuration is read from --config when present. Every setting can be
overridden with an AUDITOR_* environment variable.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the status the command
// reported.
func Execute() {
	ctx, stop := cli.SetupSignalHandler(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || exitErr.Err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	os.Exit(cli.ExitCode(err))
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text, json, yaml, csv")
	rootCmd.PersistentFlags().StringVarP(&benchmarkPath, "benchmark", "b", "", "override benchmark document path")
	rootCmd.PersistentFlags().StringVar(&storeBackend, "store", "", "override result store backend (memory, sqlite)")
}
