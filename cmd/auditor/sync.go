package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/auditor/pkg/cli"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Clone or pull check content from git",
	Long: `Bring engines.content_dir up to date with engines.git.repository and print
the checked out revision. eval, watch and schedule sync on their own before
every run; this command only fetches.

Examples:
  # Pull the configured branch
  auditor sync

  # Sync a private repository with a token from the environment
  AUDITOR_ENGINES_GIT_TOKEN=... auditor sync`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.content == nil {
		return cli.NewConfigError("engines.git.repository", "not set, content is not synced from git")
	}

	res, err := a.content.Sync(commandContext(cmd))
	if err != nil {
		return cli.NewCommandError("sync", err)
	}
	commit, err := a.content.CurrentCommit()
	if err != nil {
		return cli.NewCommandError("sync", err)
	}
	return writeOutput(cmd, cli.NewContentStatus(res, commit))
}
