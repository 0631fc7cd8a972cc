package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/auditor/pkg/config"
)

// EvaluationMetrics tracks policy evaluations.
//
// Metrics:
//   - auditor_evaluations_total: evaluations by policy and overall outcome
//   - auditor_evaluation_duration_seconds: evaluation duration by policy
//   - auditor_last_evaluation_timestamp_seconds: end of the latest evaluation
//   - auditor_rule_results_total: rule results by policy and outcome
//   - auditor_score / auditor_score_max: latest score by policy and system
type EvaluationMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	lastEvaluation     *prometheus.GaugeVec
	ruleResultsTotal   *prometheus.CounterVec
	score              *prometheus.GaugeVec
	scoreMax           *prometheus.GaugeVec
}

// NewEvaluationMetrics creates and registers evaluation metrics.
func NewEvaluationMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *EvaluationMetrics {
	em := &EvaluationMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "evaluations_total",
				Help:      "Total number of policy evaluations",
			},
			[]string{"policy_id", "outcome"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of policy evaluations in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"policy_id"},
		),

		lastEvaluation: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "last_evaluation_timestamp_seconds",
				Help:      "Unix time of the latest completed evaluation",
			},
			[]string{"policy_id"},
		),

		ruleResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rule_results_total",
				Help:      "Total number of rule results by outcome",
			},
			[]string{"policy_id", "outcome"},
		),

		score: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "score",
				Help:      "Latest score of a policy",
			},
			[]string{"policy_id", "system"},
		),

		scoreMax: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "score_max",
				Help:      "Maximum possible score of a policy",
			},
			[]string{"policy_id", "system"},
		),
	}

	registry.MustRegister(
		em.evaluationsTotal,
		em.evaluationDuration,
		em.lastEvaluation,
		em.ruleResultsTotal,
		em.score,
		em.scoreMax,
	)

	return em
}

// CheckMetrics tracks checking engine calls.
//
// Metrics:
//   - auditor_check_duration_seconds: engine call duration by system and outcome
//   - auditor_engine_errors_total: failed or panicking engine calls by system
type CheckMetrics struct {
	checkDuration     *prometheus.HistogramVec
	engineErrorsTotal *prometheus.CounterVec
}

// NewCheckMetrics creates and registers check metrics.
func NewCheckMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *CheckMetrics {
	cm := &CheckMetrics{
		checkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "check_duration_seconds",
				Help:      "Duration of checking engine calls in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"system", "outcome"},
		),

		engineErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "engine_errors_total",
				Help:      "Total number of checking engine errors",
			},
			[]string{"system"},
		),
	}

	registry.MustRegister(cm.checkDuration, cm.engineErrorsTotal)

	return cm
}

// RunMetrics tracks unattended runs.
//
// Metrics:
//   - auditor_runs_total: scheduled and watch-triggered runs by status
//   - auditor_results_pruned_total: stored results removed by retention
type RunMetrics struct {
	runsTotal   *prometheus.CounterVec
	prunedTotal prometheus.Counter
}

// NewRunMetrics creates and registers run metrics.
func NewRunMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *RunMetrics {
	rm := &RunMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "runs_total",
				Help:      "Total number of unattended evaluation runs",
			},
			[]string{"trigger", "status"},
		),

		prunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "results_pruned_total",
				Help:      "Total number of stored results removed by retention",
			},
		),
	}

	registry.MustRegister(rm.runsTotal, rm.prunedTotal)

	return rm
}
