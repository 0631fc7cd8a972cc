package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"

	"mercator-hq/auditor/pkg/checks"
	"mercator-hq/auditor/pkg/checks/script"
	"mercator-hq/auditor/pkg/cli"
	"mercator-hq/auditor/pkg/policy"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration, benchmark and check content",
	Long: `Check that everything an evaluation needs is in place without running any
check:
  - Configuration parses and passes validation
  - The benchmark document loads and is structurally sound
  - Every profile references existing items
  - Every check system has an enabled engine
  - Every referenced content file exists under engines.content_dir

Validation does not fetch. With engines.git set, run "auditor sync" first.

Examples:
  # Validate the default configuration
  auditor validate

  # Validate another benchmark with the same settings
  auditor validate --benchmark ./cis.yaml`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "✓ Configuration valid")

	m, err := a.runner().Load()
	if err != nil {
		return cli.NewCommandError("validate", err)
	}
	bench := m.Benchmark()
	fmt.Fprintf(out, "✓ Benchmark %s loaded (%d rules, %d profiles)\n", bench.ID, len(bench.Rules()), len(bench.Profiles))

	problems := validateModel(m, a.cfg.Engines.ContentDir)
	if len(problems) == 0 {
		fmt.Fprintln(out, "✓ Profiles, engines and content valid")
		return nil
	}

	reportProblems(out, problems)
	return cli.NewCommandError("validate", fmt.Errorf("%d problems found", len(problems)))
}

// validateModel lists invalid profiles, check systems without an engine
// and missing content files.
func validateModel(m *policy.Model, contentDir string) []string {
	var problems []string

	for _, profile := range m.Benchmark().Profiles {
		if _, err := m.PolicyByID(profile.ID); err != nil {
			problems = append(problems, fmt.Sprintf("profile %s: %v", profile.ID, err))
		}
	}

	missingEngine := make(map[string]bool)
	for _, sf := range m.SystemsAndFiles() {
		if _, ok := m.Engine(sf.System); !ok {
			if !missingEngine[sf.System] {
				missingEngine[sf.System] = true
				problems = append(problems, fmt.Sprintf("no engine enabled for check system %s", sf.System))
			}
			continue
		}
		if err := contentExists(contentDir, sf); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", sf.Href, err))
		}
	}
	return problems
}

// contentExists resolves a content href the way its engine does. Script
// hrefs carry arguments after the script path.
func contentExists(dir string, sf policy.SystemFile) error {
	href := sf.Href
	if sf.System == script.System {
		words, err := shellwords.Parse(href)
		if err != nil {
			return err
		}
		if len(words) == 0 {
			return errors.New("empty script href")
		}
		href = words[0]
	}

	path, err := checks.ContentPath(dir, href)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", checks.ErrContentNotFound, path)
	}
	return nil
}

func reportProblems(w io.Writer, problems []string) {
	fmt.Fprintf(w, "✗ %d problems found:\n", len(problems))
	for _, p := range problems {
		fmt.Fprintf(w, "  - %s\n", p)
	}
}
