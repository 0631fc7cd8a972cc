// Package telemetry assembles the auditor's observability stack: the
// structured logger, the Prometheus collector, the OpenTelemetry tracer and
// the health checker, plus the HTTP listener that long-running commands use
// to expose metrics and probes.
//
//	tel, err := telemetry.New(cfg.Telemetry, telemetry.BuildInfo{Version: version}, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	model, err := policy.NewModel(bench, tel.PolicyOptions()...)
package telemetry
