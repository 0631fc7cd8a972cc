// Package runner ties the evaluation pipeline together for the CLI and the
// scheduler: load the benchmark, register the configured checking engines,
// evaluate each selected profile, score the result under the configured
// scoring systems and save a store.Record.
package runner
