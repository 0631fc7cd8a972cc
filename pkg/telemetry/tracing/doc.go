// Package tracing sets up OpenTelemetry tracing for evaluations.
//
// The policy model opens a "policy.Evaluate" span per evaluation and a
// "policy.Rule" span per rule; this package only provides the tracer:
//
//	tracer, err := tracing.New(cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	model, err := policy.NewModel(bench, policy.WithTracer(tracer.Tracer()))
//
// Spans are exported over OTLP/gRPC. Sampling is parent based with an
// "always", "never" or trace ID "ratio" root sampler.
package tracing
