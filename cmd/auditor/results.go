package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/auditor/pkg/cli"
	"mercator-hq/auditor/pkg/outcome"
	"mercator-hq/auditor/pkg/store"
)

var resultsFlags struct {
	profile    string
	trigger    string
	outcome    string
	since      string
	until      string
	limit      int
	offset     int
	days       int
	maxResults int
}

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Query the result history",
	Long: `List, show and prune stored evaluation results.

Results are only kept across invocations with the sqlite store backend.

Subcommands:
  list   - List results with filters
  show   - Show every rule outcome of one result
  prune  - Delete results outside the retention policy

Examples:
  # Failing results of the last day
  auditor results list --outcome fail --since 24h

  # The newest result as JSON
  auditor results show latest -o json

  # Keep only the newest 100 results
  auditor results prune --days 0 --max-results 100`,
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored results",
	Args:  cobra.NoArgs,
	RunE:  listResults,
}

var resultsShowCmd = &cobra.Command{
	Use:   "show <result-id|latest>",
	Short: "Show a stored result",
	Args:  cobra.ExactArgs(1),
	RunE:  showResult,
}

var resultsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete results outside the retention policy",
	Long: `Delete results older than store.retention.days and beyond the newest
store.retention.max_results. Zero disables either limit.`,
	Args: cobra.NoArgs,
	RunE: pruneResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
	resultsCmd.AddCommand(resultsListCmd, resultsShowCmd, resultsPruneCmd)

	resultsListCmd.Flags().StringVarP(&resultsFlags.profile, "profile", "p", "", "filter by profile ID")
	resultsListCmd.Flags().StringVar(&resultsFlags.trigger, "trigger", "", "filter by trigger (manual, schedule, watch)")
	resultsListCmd.Flags().StringVar(&resultsFlags.outcome, "outcome", "", "filter by overall outcome")
	resultsListCmd.Flags().StringVar(&resultsFlags.since, "since", "", "results started at or after (RFC3339 or duration such as 24h)")
	resultsListCmd.Flags().StringVar(&resultsFlags.until, "until", "", "results started at or before (RFC3339 or duration)")
	resultsListCmd.Flags().IntVar(&resultsFlags.limit, "limit", 20, "maximum number of results")
	resultsListCmd.Flags().IntVar(&resultsFlags.offset, "offset", 0, "number of results to skip")

	resultsShowCmd.Flags().StringVarP(&resultsFlags.profile, "profile", "p", "", "with latest, the profile to pick the newest result of")

	resultsPruneCmd.Flags().IntVar(&resultsFlags.days, "days", -1, "override store.retention.days")
	resultsPruneCmd.Flags().IntVar(&resultsFlags.maxResults, "max-results", -1, "override store.retention.max_results")
}

func listResults(cmd *cobra.Command, args []string) error {
	q, err := buildResultsQuery(time.Now())
	if err != nil {
		return err
	}

	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := commandContext(cmd)

	records, err := a.storage.List(ctx, q)
	if err != nil {
		return cli.NewCommandError("results list", err)
	}
	countQuery := *q
	countQuery.Limit, countQuery.Offset = 0, 0
	total, err := a.storage.Count(ctx, &countQuery)
	if err != nil {
		return cli.NewCommandError("results list", err)
	}
	return writeOutput(cmd, cli.NewRecordList(records, total))
}

func buildResultsQuery(now time.Time) (*store.Query, error) {
	q := &store.Query{
		ProfileID: resultsFlags.profile,
		Trigger:   resultsFlags.trigger,
		Limit:     resultsFlags.limit,
		Offset:    resultsFlags.offset,
	}
	if resultsFlags.outcome != "" {
		o, err := outcome.Parse(resultsFlags.outcome)
		if err != nil {
			return nil, cli.NewConfigError("outcome", err.Error())
		}
		q.Outcome = o
	}

	var err error
	if q.Since, err = parseTimeFlag("since", resultsFlags.since, now); err != nil {
		return nil, err
	}
	if q.Until, err = parseTimeFlag("until", resultsFlags.until, now); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, cli.NewConfigError("query", err.Error())
	}
	return q, nil
}

// parseTimeFlag accepts an RFC3339 timestamp or a duration counted back
// from now.
func parseTimeFlag(name, value string, now time.Time) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		t := now.Add(-d)
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, cli.NewConfigError(name, fmt.Sprintf("expected RFC3339 time or duration, got %q", value))
	}
	return &t, nil
}

func showResult(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := findRecord(commandContext(cmd), a.storage, args[0], resultsFlags.profile)
	if err != nil {
		return cli.NewCommandError("results show", err)
	}
	return writeOutput(cmd, cli.NewResultView(rec))
}

func pruneResults(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	retention := a.cfg.Store.Retention
	if resultsFlags.days >= 0 {
		retention.Days = resultsFlags.days
	}
	if resultsFlags.maxResults >= 0 {
		retention.MaxResults = resultsFlags.maxResults
	}

	deleted, err := store.NewPruner(a.storage, retention, a.logger).Prune(commandContext(cmd))
	if err != nil {
		return cli.NewCommandError("results prune", err)
	}
	a.tel.Metrics().ObservePrune(int(deleted))

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d results\n", deleted)
	return err
}
