package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/auditor/pkg/cli"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [profile]",
	Short: "Print a profile's tailored rules and values",
	Long: `Apply a profile's selections, rule refinements and value bindings to the
benchmark and print the result without evaluating anything.

Examples:
  # Show which rules the configured profile selects
  auditor resolve

  # Tailoring of another profile as YAML
  auditor resolve xccdf_org_profile_strict -o yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	profile := defaultProfile(a.cfg)
	if len(args) == 1 {
		profile = args[0]
	}

	m, err := a.runner().Load()
	if err != nil {
		return cli.NewCommandError("resolve", err)
	}
	p, err := m.PolicyByID(profile)
	if err != nil {
		return cli.NewCommandError("resolve", err)
	}
	resolved, err := m.Resolve(commandContext(cmd), p)
	if err != nil {
		return cli.NewCommandError("resolve", err)
	}
	return writeOutput(cmd, cli.NewResolvedPolicy(p.ID(), resolved))
}
