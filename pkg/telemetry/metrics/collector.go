package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/outcome"
)

// defaultMaxCardinality bounds the policy and system label sets. Benchmarks
// define a bounded number of profiles, but check systems come from content.
const defaultMaxCardinality = 1000

// overflowLabel replaces label values rejected by the cardinality limiter.
const overflowLabel = "_other"

// Collector owns every auditor metric. It implements policy.Recorder so a
// model reports evaluations, rule results and check calls directly.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	evaluation *EvaluationMetrics
	check      *CheckMetrics
	run        *RunMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector registered with registry. A nil registry
// gets a fresh one. When cfg disables metrics every Observe method is a no-op.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = config.DefaultDurationBuckets
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		evaluation:         NewEvaluationMetrics(cfg, registry),
		check:              NewCheckMetrics(cfg, registry),
		run:                NewRunMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(defaultMaxCardinality),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.IsEnabled()
}

// label returns value, or overflowLabel once the limiter is full.
func (c *Collector) label(kind, value string) string {
	if c.cardinalityLimiter.Allow(kind + ":" + value) {
		return value
	}
	return overflowLabel
}

// ObserveEvaluation records a finished policy evaluation.
func (c *Collector) ObserveEvaluation(policyID string, o outcome.Outcome, d time.Duration) {
	if !c.enabled() {
		return
	}
	policyID = c.label("policy", policyID)
	c.evaluation.evaluationsTotal.WithLabelValues(policyID, o.String()).Inc()
	c.evaluation.evaluationDuration.WithLabelValues(policyID).Observe(d.Seconds())
	c.evaluation.lastEvaluation.WithLabelValues(policyID).SetToCurrentTime()
}

// ObserveRule records one rule result.
func (c *Collector) ObserveRule(policyID string, o outcome.Outcome) {
	if !c.enabled() {
		return
	}
	c.evaluation.ruleResultsTotal.WithLabelValues(c.label("policy", policyID), o.String()).Inc()
}

// ObserveCheck records one checking engine call.
func (c *Collector) ObserveCheck(system string, o outcome.Outcome, d time.Duration) {
	if !c.enabled() {
		return
	}
	c.check.checkDuration.WithLabelValues(c.label("system", system), o.String()).Observe(d.Seconds())
}

// ObserveEngineError records an engine call that failed or panicked.
func (c *Collector) ObserveEngineError(system string) {
	if !c.enabled() {
		return
	}
	c.check.engineErrorsTotal.WithLabelValues(c.label("system", system)).Inc()
}

// ObserveScore sets the latest score of a policy under a scoring system.
func (c *Collector) ObserveScore(policyID, system string, value, maxValue float64) {
	if !c.enabled() {
		return
	}
	policyID = c.label("policy", policyID)
	c.evaluation.score.WithLabelValues(policyID, system).Set(value)
	c.evaluation.scoreMax.WithLabelValues(policyID, system).Set(maxValue)
}

// ObserveRun records an unattended run started by trigger ("cron", "watch").
func (c *Collector) ObserveRun(trigger string, err error) {
	if !c.enabled() {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.run.runsTotal.WithLabelValues(trigger, status).Inc()
}

// ObservePrune records results removed by retention.
func (c *Collector) ObservePrune(n int) {
	if !c.enabled() {
		return
	}
	c.run.prunedTotal.Add(float64(n))
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter admitting maxCardinality values.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet is already known or still fits.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
