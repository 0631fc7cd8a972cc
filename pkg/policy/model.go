package policy

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/auditor/pkg/benchmark"
	"mercator-hq/auditor/pkg/outcome"
)

// DefaultPolicyID is the ID of the policy that evaluates the benchmark's
// declared defaults without a profile.
const DefaultPolicyID = "(default)"

// resultIDPrefix follows the XCCDF naming convention for TestResult IDs.
const resultIDPrefix = "xccdf_mercator_testresult_"

// Recorder receives evaluation measurements.
type Recorder interface {
	ObserveEvaluation(policyID string, o outcome.Outcome, d time.Duration)
	ObserveRule(policyID string, o outcome.Outcome)
	ObserveCheck(system string, o outcome.Outcome, d time.Duration)
	ObserveEngineError(system string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveEvaluation(string, outcome.Outcome, time.Duration) {}
func (noopRecorder) ObserveRule(string, outcome.Outcome)                      {}
func (noopRecorder) ObserveCheck(string, outcome.Outcome, time.Duration)      {}
func (noopRecorder) ObserveEngineError(string)                                {}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the model's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithTracer sets the tracer used for evaluation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Model) {
		if tracer != nil {
			m.tracer = tracer
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Model) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

// Model binds a benchmark to its policies and checking engines.
type Model struct {
	bench *benchmark.Benchmark

	// mu guards the engine registry and callbacks. Evaluate holds it for
	// read for its whole run.
	mu              sync.RWMutex
	engines         map[string]CheckingEngine
	startCallbacks  []Callback
	outputCallbacks []Callback

	policiesMu sync.RWMutex
	policies   []*Policy
	invalid    map[string]error

	logger   *slog.Logger
	tracer   trace.Tracer
	recorder Recorder
	now      func() time.Time
}

// NewModel creates a model for b. It builds the default policy and one
// policy per profile. Profiles that fail validation are logged and reported
// by PolicyByID.
func NewModel(b *benchmark.Benchmark, opts ...Option) (*Model, error) {
	if b == nil {
		return nil, ErrNilBenchmark
	}

	m := &Model{
		bench:    b,
		engines:  make(map[string]CheckingEngine),
		invalid:  make(map[string]error),
		logger:   slog.Default(),
		tracer:   noop.NewTracerProvider().Tracer(""),
		recorder: noopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "policy", "benchmark_id", b.ID)

	if _, err := m.NewPolicy(nil); err != nil {
		return nil, err
	}
	for _, profile := range b.Profiles {
		if _, err := m.NewPolicy(profile); err != nil {
			m.logger.Warn("profile rejected", "profile_id", profile.ID, "error", err)
		}
	}

	m.logger.Info("policy model created",
		"rules", len(b.Rules()),
		"profiles", len(b.Profiles),
	)
	return m, nil
}

// Benchmark returns the benchmark the model evaluates. Callers must not
// modify it.
func (m *Model) Benchmark() *benchmark.Benchmark {
	return m.bench
}

// NewPolicy validates profile against the benchmark and adds a policy for
// it, replacing any policy with the same ID. A nil profile yields the
// default policy. Profiles need not belong to the benchmark, so external
// tailorings can be evaluated too.
func (m *Model) NewPolicy(profile *benchmark.Profile) (*Policy, error) {
	p := newPolicy(m, profile)
	err := p.validate()

	m.policiesMu.Lock()
	defer m.policiesMu.Unlock()

	if err != nil {
		m.invalid[p.id] = err
		return nil, err
	}
	delete(m.invalid, p.id)

	for i, existing := range m.policies {
		if existing.id == p.id {
			m.policies[i] = p
			return p, nil
		}
	}
	m.policies = append(m.policies, p)
	return p, nil
}

// PolicyByID returns the policy for a profile ID, or DefaultPolicyID. A
// profile that failed validation returns its *ValidationError.
func (m *Model) PolicyByID(id string) (*Policy, error) {
	m.policiesMu.RLock()
	defer m.policiesMu.RUnlock()

	if err, ok := m.invalid[id]; ok {
		return nil, err
	}
	for _, p := range m.policies {
		if p.id == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, id)
}

// DefaultPolicy returns the policy without a profile.
func (m *Model) DefaultPolicy() *Policy {
	p, err := m.PolicyByID(DefaultPolicyID)
	if err != nil {
		// NewModel guarantees its presence.
		panic(err)
	}
	return p
}

// Policies returns the valid policies in creation order.
func (m *Model) Policies() []*Policy {
	m.policiesMu.RLock()
	defer m.policiesMu.RUnlock()
	return append([]*Policy(nil), m.policies...)
}

// SystemFile is a check system and a content document it references.
type SystemFile struct {
	System string
	Href   string
}

// SystemsAndFiles lists every distinct (system, href) pair referenced by
// the benchmark's checks, in document order.
func (m *Model) SystemsAndFiles() []SystemFile {
	var out []SystemFile
	seen := make(map[SystemFile]bool)
	add := func(chk *benchmark.Check) {
		for _, ref := range chk.ContentRefs {
			sf := SystemFile{System: chk.System, Href: ref.Href}
			if ref.Href == "" || seen[sf] {
				continue
			}
			seen[sf] = true
			out = append(out, sf)
		}
	}
	for _, rule := range m.bench.Rules() {
		for _, chk := range rule.Checks {
			add(chk)
		}
		if rule.ComplexCheck != nil {
			rule.ComplexCheck.Walk(add)
		}
	}
	return out
}

// Files lists the distinct content hrefs referenced by the benchmark.
func (m *Model) Files() []string {
	var out []string
	seen := make(map[string]bool)
	for _, sf := range m.SystemsAndFiles() {
		if !seen[sf.Href] {
			seen[sf.Href] = true
			out = append(out, sf.Href)
		}
	}
	return out
}

func newResultID() string {
	return resultIDPrefix + uuid.NewString()
}
