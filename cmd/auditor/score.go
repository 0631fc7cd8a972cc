package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/auditor/pkg/cli"
	"mercator-hq/auditor/pkg/runner"
	"mercator-hq/auditor/pkg/scoring"
	"mercator-hq/auditor/pkg/store"
)

var scoreFlags struct {
	systems []string
	profile string
	noGroup bool
}

var scoreCmd = &cobra.Command{
	Use:   "score [result-id|latest]",
	Short: "Score a result",
	Long: `Compute XCCDF scores for a result.

With a result ID (or "latest") the stored result is scored. Without one the
profile is evaluated first and the new result is scored. Rule weights come
from the profile's tailoring in the current benchmark; when the profile no
longer exists the weights recorded in the result are used.

Every supported scoring system is computed unless --system is given:
  urn:xccdf:scoring:default
  urn:xccdf:scoring:flat
  urn:xccdf:scoring:flat-unweighted
  urn:xccdf:scoring:absolute

Examples:
  # Evaluate the configured profile and score it
  auditor score

  # Score the newest stored result with the flat model only
  auditor score latest --system urn:xccdf:scoring:flat`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringSliceVar(&scoreFlags.systems, "system", nil, "scoring system URI (repeatable, default all)")
	scoreCmd.Flags().StringVarP(&scoreFlags.profile, "profile", "p", "", "profile to evaluate or to pick the latest result of")
	scoreCmd.Flags().BoolVar(&scoreFlags.noGroup, "no-groups", false, "omit the per-group breakdown")
}

func runScore(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := commandContext(cmd)

	r := a.runner()
	var rec *store.Record
	if len(args) == 1 {
		rec, err = findRecord(ctx, a.storage, args[0], scoreFlags.profile)
		if err != nil {
			return cli.NewCommandError("score", err)
		}
	} else {
		profile := scoreFlags.profile
		if profile == "" {
			profile = defaultProfile(a.cfg)
		}
		records, err := r.Run(ctx, runner.TriggerManual, profile)
		if err != nil {
			return cli.NewCommandError("score", err)
		}
		rec = records[0]
	}

	m, err := r.Load()
	if err != nil {
		return cli.NewCommandError("score", err)
	}
	p, err := m.PolicyByID(policyID(rec))
	if err != nil {
		a.logger.Warn("scoring with recorded weights", "profile_id", policyID(rec), "error", err)
		p = nil
	}

	systems := scoreFlags.systems
	if len(systems) == 0 {
		systems = scoring.Systems
	}
	scores := make([]*scoring.Score, 0, len(systems))
	for _, system := range systems {
		s, err := scoring.Compute(p, rec.Result, system)
		if errors.Is(err, scoring.ErrNoApplicableRules) {
			a.logger.Warn("no applicable rules to score", "system", system)
			continue
		}
		if err != nil {
			return cli.NewCommandError("score", fmt.Errorf("%s: %w", system, err))
		}
		scores = append(scores, s)
	}

	var breakdown map[string]*scoring.Score
	if !scoreFlags.noGroup {
		breakdown = scoring.Breakdown(p, rec.Result)
	}
	return writeOutput(cmd, cli.NewScoreReport(rec.ID, policyID(rec), scores, breakdown))
}
