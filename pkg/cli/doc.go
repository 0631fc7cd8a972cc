/*
Package cli provides command-line utilities for the auditor command.

Output Formatting:

Commands render view types (ResultView, RecordList, ScoreReport,
ProfileList, ResolvedPolicy) in one of four formats:

	formatter := cli.NewFormatter(cli.FormatYAML)
	if err := formatter.FormatTo(os.Stdout, cli.NewResultSet(records)); err != nil {
		return err
	}

Text output is produced by views implementing TextRenderer and CSV output
by views implementing CSVRenderer.

Progress Reporting:

RuleProgress draws a bar on stderr while rules finish. Its Rule method is a
policy output callback, so a runner advances it directly:

	progress := cli.NewProgressReporter(os.Stderr)
	r := runner.New(cfg, runner.WithProgress(progress))

Exit Codes:

ExitCode maps a command error to a process status. An evaluation whose
outcome is fail or error returns an *ExitError with ExitNonCompliant.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
