// Package logging builds the auditor's structured logger on log/slog.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Redact: true,
//	})
//
//	ctx = logging.WithBenchmarkID(ctx, bench.ID)
//	ctx = logging.WithTrigger(ctx, "cron")
//	logger.InfoContext(ctx, "evaluation scheduled")
//
// Records logged with a context carry benchmark_id, profile_id, result_id
// and trigger when present, plus trace_id and span_id of the active span.
//
// # Redaction
//
// With Redact set, attributes whose key names a secret (password, token,
// api_key and similar) are replaced by "***", and string values are scrubbed
// of bearer tokens, password assignments, PEM private keys and AWS access key
// IDs. Custom patterns from the configuration are applied after those.
package logging
