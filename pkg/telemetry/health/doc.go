// Package health serves liveness and readiness probes for the long-running
// auditor commands.
//
// Readiness aggregates named checks run concurrently with a per-check
// timeout. The auditor registers a store check (the result database answers)
// and, when configured, a freshness check that fails once the last completed
// evaluation is older than telemetry.health.max_result_age.
package health
