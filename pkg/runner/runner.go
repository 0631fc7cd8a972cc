package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/auditor/pkg/benchmark"
	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/content"
	"mercator-hq/auditor/pkg/policy"
	"mercator-hq/auditor/pkg/scoring"
	"mercator-hq/auditor/pkg/store"
	"mercator-hq/auditor/pkg/telemetry/logging"
)

// Triggers name what started a run. They label logs, metrics and stored
// records.
const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
	TriggerWatch    = "watch"
)

// ScoreObserver receives the scores of every evaluation and the status of
// every run. *metrics.Collector implements it.
type ScoreObserver interface {
	ObserveScore(policyID, system string, value, maxValue float64)
	ObserveRun(trigger string, err error)
}

// Progress follows the rules of a run as they finish. Start receives the
// number of selected rules across every profile of the run.
type Progress interface {
	Start(total int64)
	Rule(msg *policy.RuleMessage) error
	Finish()
}

// ContentSyncer refreshes the check content before a run.
// *content.Repository implements it.
type ContentSyncer interface {
	Sync(ctx context.Context) (*content.SyncResult, error)
}

// Runner loads the configured benchmark, evaluates the selected profiles,
// scores the results and saves them. Runs are serialized.
type Runner struct {
	cfg        *config.Config
	storage    store.Storage
	observer   ScoreObserver
	progress   Progress
	syncer     ContentSyncer
	policyOpts []policy.Option
	logger     *slog.Logger

	mu      sync.Mutex
	lastMu  sync.RWMutex
	lastRun time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithStorage saves every record to s. Without it records are only returned.
func WithStorage(s store.Storage) Option {
	return func(r *Runner) { r.storage = s }
}

// WithObserver reports scores and run status to o.
func WithObserver(o ScoreObserver) Option {
	return func(r *Runner) { r.observer = o }
}

// WithProgress reports rule completion to p.
func WithProgress(p Progress) Option {
	return func(r *Runner) { r.progress = p }
}

// WithContentSync syncs check content with s before every run.
func WithContentSync(s ContentSyncer) Option {
	return func(r *Runner) { r.syncer = s }
}

// WithPolicyOptions passes opts to every policy model the runner builds.
func WithPolicyOptions(opts ...policy.Option) Option {
	return func(r *Runner) { r.policyOpts = append(r.policyOpts, opts...) }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// New creates a runner for cfg.
func New(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "runner")
	return r
}

// Load reads the benchmark and returns a model with the configured engines
// registered.
func (r *Runner) Load() (*policy.Model, error) {
	bench, err := benchmark.Load(r.cfg.Benchmark.Path)
	if err != nil {
		return nil, err
	}
	m, err := policy.NewModel(bench, r.policyOpts...)
	if err != nil {
		return nil, err
	}
	if err := RegisterEngines(m, r.cfg.Engines, r.logger); err != nil {
		return nil, err
	}
	return m, nil
}

// Profiles returns the profile IDs a run evaluates when none are given: the
// schedule's list, else the benchmark profile, else the default policy.
func (r *Runner) Profiles() []string {
	if len(r.cfg.Schedule.Profiles) > 0 {
		return r.cfg.Schedule.Profiles
	}
	if r.cfg.Benchmark.Profile != "" {
		return []string{r.cfg.Benchmark.Profile}
	}
	return []string{policy.DefaultPolicyID}
}

// Run reloads the benchmark and evaluates each profile in turn. A failing
// profile does not stop the others; their errors are joined. The records of
// the successful evaluations are returned in profile order.
func (r *Runner) Run(ctx context.Context, trigger string, profiles ...string) ([]*store.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(profiles) == 0 {
		profiles = r.Profiles()
	}
	ctx = logging.WithTrigger(ctx, trigger)

	records, err := r.run(ctx, trigger, profiles)
	if r.observer != nil {
		r.observer.ObserveRun(trigger, err)
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "run failed", "error", err)
	} else {
		r.lastMu.Lock()
		r.lastRun = time.Now()
		r.lastMu.Unlock()
	}
	return records, err
}

func (r *Runner) run(ctx context.Context, trigger string, profiles []string) ([]*store.Record, error) {
	if r.syncer != nil {
		res, err := r.syncer.Sync(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to sync content: %w", err)
		}
		r.logger.DebugContext(ctx, "content synced", "revision", res.ToSHA, "stale", res.Stale)
	}

	m, err := r.Load()
	if err != nil {
		return nil, err
	}
	ctx = logging.WithBenchmarkID(ctx, m.Benchmark().ID)

	if r.progress != nil {
		var total int64
		for _, id := range profiles {
			if p, err := m.PolicyByID(id); err == nil {
				total += int64(len(p.SelectedRules()))
			}
		}
		m.RegisterOutputCallback(r.progress.Rule)
		r.progress.Start(total)
		defer r.progress.Finish()
	}

	var (
		records []*store.Record
		errs    []error
	)
	for _, id := range profiles {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		rec, err := r.evaluate(logging.WithProfileID(ctx, id), m, id, trigger)
		if err != nil {
			errs = append(errs, fmt.Errorf("profile %s: %w", id, err))
			continue
		}
		records = append(records, rec)
	}
	return records, errors.Join(errs...)
}

func (r *Runner) evaluate(ctx context.Context, m *policy.Model, profileID, trigger string) (*store.Record, error) {
	p, err := m.PolicyByID(profileID)
	if err != nil {
		return nil, err
	}

	res, err := m.Evaluate(ctx, p)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithResultID(ctx, res.ID())

	scores := make([]*scoring.Score, 0, len(r.cfg.Scoring.Systems))
	for _, system := range r.cfg.Scoring.Systems {
		s, err := scoring.Compute(p, res, system)
		if errors.Is(err, scoring.ErrNoApplicableRules) {
			r.logger.DebugContext(ctx, "no applicable rules to score", "system", system)
			continue
		}
		if err != nil {
			return nil, err
		}
		scores = append(scores, s)
		if r.observer != nil {
			r.observer.ObserveScore(p.ID(), system, s.Value, s.Max)
		}
	}

	rec := store.NewRecord(res, scores, trigger)
	if r.storage != nil {
		if err := r.storage.Save(ctx, rec); err != nil {
			return nil, err
		}
	}

	r.logger.InfoContext(ctx, "result recorded",
		"outcome", res.Outcome().String(),
		"rules", len(res.RuleResults()),
		"scores", len(scores),
	)
	return rec, nil
}

// LastRun returns when the last successful run finished, or the zero time.
func (r *Runner) LastRun() time.Time {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()
	return r.lastRun
}
