package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/auditor/pkg/telemetry/logging"
)

// RunFunc performs one evaluation run. trigger names what started it.
type RunFunc func(ctx context.Context, trigger string) error

// PruneFunc deletes expired results and reports how many were removed.
type PruneFunc func(ctx context.Context) (int64, error)

// PruneObserver receives the number of results each prune removed.
type PruneObserver interface {
	ObservePrune(n int)
}

// Scheduler runs evaluations and retention pruning on cron schedules.
type Scheduler struct {
	cron     *cron.Cron
	logger   *slog.Logger
	observer PruneObserver

	mu      sync.Mutex
	entries map[string]cron.EntryID
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// New creates an idle scheduler. The observer may be nil.
func New(logger *slog.Logger, observer PruneObserver) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		// SkipIfStillRunning drops a tick that arrives while the previous
		// run of the same job is still evaluating.
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:   logger.With("component", "scheduler"),
		observer: observer,
		entries:  make(map[string]cron.EntryID),
	}
}

// AddEvaluation schedules run on spec. Cron descriptors such as "@hourly"
// are accepted.
func (s *Scheduler) AddEvaluation(ctx context.Context, spec, trigger string, run RunFunc) error {
	return s.add("evaluation", spec, func() {
		ctx := logging.WithTrigger(ctx, trigger)
		start := time.Now()
		s.logger.InfoContext(ctx, "scheduled evaluation started")
		if err := run(ctx, trigger); err != nil {
			s.logger.ErrorContext(ctx, "scheduled evaluation failed", "error", err)
			return
		}
		s.logger.InfoContext(ctx, "scheduled evaluation completed", "duration", time.Since(start))
	})
}

// AddPrune schedules prune on spec. An empty spec disables pruning.
func (s *Scheduler) AddPrune(ctx context.Context, spec string, prune PruneFunc) error {
	if spec == "" {
		s.logger.Info("prune schedule not configured, skipping")
		return nil
	}
	return s.add("prune", spec, func() {
		deleted, err := prune(ctx)
		if err != nil {
			s.logger.Error("scheduled pruning failed", "error", err)
			return
		}
		if s.observer != nil {
			s.observer.ObservePrune(int(deleted))
		}
		if deleted > 0 {
			s.logger.Info("scheduled pruning completed", "deleted_count", deleted)
		} else {
			s.logger.Debug("scheduled pruning completed, no results deleted")
		}
	})
}

func (s *Scheduler) add(name, spec string, job func()) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
	}
	id, err := s.cron.AddFunc(spec, job)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	s.entries[name] = id
	s.logger.Info("job scheduled", "job", name, "schedule", spec)
	return nil
}

// Start begins running jobs. The scheduler stops when ctx is cancelled or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.logger.Info("scheduler started", "jobs", len(s.entries))

	go func(stop, done chan struct{}) {
		defer close(done)
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stop:
		}
	}(s.stop, s.done)
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	close(s.stop)
	s.logger.Info("scheduler stopped")
}

// IsRunning reports whether the scheduler has been started and not stopped.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next activation of the named job ("evaluation" or
// "prune"), or the zero time when it is not scheduled.
func (s *Scheduler) NextRun(name string) time.Time {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}
