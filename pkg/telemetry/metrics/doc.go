// Package metrics exposes auditor metrics to Prometheus.
//
// A Collector implements policy.Recorder:
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	model, err := policy.NewModel(bench, policy.WithRecorder(collector))
//	http.Handle("/metrics", collector.Handler())
//
// Policy IDs and check systems become label values. A cardinality limiter
// folds values past the first thousand into "_other".
package metrics
