package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/policy"
	"mercator-hq/auditor/pkg/telemetry/health"
	"mercator-hq/auditor/pkg/telemetry/logging"
	"mercator-hq/auditor/pkg/telemetry/metrics"
	"mercator-hq/auditor/pkg/telemetry/tracing"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string
	Commit  string
}

// Telemetry bundles the observability components built from configuration.
type Telemetry struct {
	cfg     config.TelemetryConfig
	build   BuildInfo
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	health  *health.Checker
	server  *http.Server
}

// New builds every component. Log records go to w.
func New(cfg config.TelemetryConfig, build BuildInfo, w io.Writer) (*Telemetry, error) {
	logger, err := logging.New(logging.FromConfig(cfg.Logging, w))
	if err != nil {
		return nil, err
	}

	tracer, err := tracing.New(cfg.Tracing, tracing.WithServiceVersion(build.Version))
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	return &Telemetry{
		cfg:     cfg,
		build:   build,
		logger:  logger,
		metrics: metrics.NewCollector(cfg.Metrics, nil),
		tracer:  tracer,
		health:  health.New(cfg.Health.CheckTimeout),
	}, nil
}

// Logger returns the structured logger.
func (t *Telemetry) Logger() *slog.Logger { return t.logger }

// Metrics returns the Prometheus collector.
func (t *Telemetry) Metrics() *metrics.Collector { return t.metrics }

// Tracer returns the tracer.
func (t *Telemetry) Tracer() *tracing.Tracer { return t.tracer }

// Health returns the health checker.
func (t *Telemetry) Health() *health.Checker { return t.health }

// PolicyOptions wires the logger, tracer and collector into a policy model.
func (t *Telemetry) PolicyOptions() []policy.Option {
	return []policy.Option{
		policy.WithLogger(t.logger),
		policy.WithTracer(t.tracer.Tracer()),
		policy.WithRecorder(t.metrics),
	}
}

// Handler returns the mux serving metrics and health endpoints.
func (t *Telemetry) Handler() http.Handler {
	mux := http.NewServeMux()
	if t.cfg.Metrics.IsEnabled() {
		mux.Handle(t.cfg.Metrics.Path, t.metrics.Handler())
	}
	t.health.Mount(mux, t.cfg.Health, t.build.Version, t.build.Commit)
	return mux
}

// Serve starts the HTTP listener in the background and returns the bound
// address. It does nothing when the listen address is "off".
func (t *Telemetry) Serve() (string, error) {
	if t.cfg.ListenAddress == config.ListenerDisabled || t.cfg.ListenAddress == "" {
		return "", nil
	}

	ln, err := net.Listen("tcp", t.cfg.ListenAddress)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", t.cfg.ListenAddress, err)
	}

	t.server = &http.Server{
		Handler:           t.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := t.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error("telemetry listener stopped", "component", "telemetry", "error", err)
		}
	}()

	t.logger.Info("telemetry listener started", "component", "telemetry", "address", ln.Addr().String())
	return ln.Addr().String(), nil
}

// Shutdown stops the listener and flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.server != nil {
		errs = append(errs, t.server.Shutdown(ctx))
	}
	errs = append(errs, t.tracer.Shutdown(ctx))
	return errors.Join(errs...)
}
