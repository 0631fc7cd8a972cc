package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/auditor/pkg/cli"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the benchmark's profiles",
	Long: `List the default policy and every valid profile of the benchmark with the
number of rules each selects. Profiles that reference unknown items are
rejected when the benchmark is loaded and are not listed; run with
--verbose to see why.`,
	Args: cobra.NoArgs,
	RunE: runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.runner().Load()
	if err != nil {
		return cli.NewCommandError("profiles", err)
	}
	return writeOutput(cmd, cli.NewProfileList(m))
}
