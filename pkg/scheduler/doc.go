// Package scheduler runs evaluations without a human at the keyboard.
//
// Scheduler drives two github.com/robfig/cron/v3 jobs: the periodic
// evaluation (schedule.cron) and the retention prune
// (store.retention.prune_schedule). A tick that arrives while the previous
// run of the same job is still going is skipped.
//
// Watcher uses github.com/fsnotify/fsnotify to re-evaluate when the
// benchmark document or the check content changes. Events are debounced so
// an editor save or a git checkout results in a single run.
package scheduler
