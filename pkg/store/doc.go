// Package store keeps the history of evaluation results.
//
// Each evaluation is saved as a Record: the indexed columns of the
// result (ID, benchmark, profile, trigger, outcome, timestamps), the scores
// computed for it, and the full result tree as a JSON document that decodes
// back into a *result.TestResult.
//
// # Backends
//
//   - MemoryStorage keeps records in a map. Nothing survives the process.
//   - SQLiteStorage persists to a database file through either
//     github.com/mattn/go-sqlite3 (driver "sqlite3", cgo) or
//     modernc.org/sqlite (driver "sqlite", pure Go). WAL mode and the busy
//     timeout are set in the DSN so every pooled connection carries them.
//
// Use New to pick the backend from configuration:
//
//	s, err := store.New(cfg.Store, logger)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	err = s.Save(ctx, store.NewRecord(res, scores, "manual"))
//	latest, err := store.Latest(ctx, s, store.Query{BenchmarkID: res.BenchmarkID()})
//
// # Retention
//
// Pruner deletes records older than retention.days and then the oldest
// records beyond retention.max_results. The scheduler package runs it on the
// retention.prune_schedule cron expression.
package store
