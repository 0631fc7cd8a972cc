package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/auditor/pkg/benchmark"
	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/outcome"
	"mercator-hq/auditor/pkg/policy"
	"mercator-hq/auditor/pkg/telemetry/logging"
)

func TestNew_Disabled(t *testing.T) {
	tr, err := New(config.TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tr.Enabled() {
		t.Error("expected disabled tracer")
	}

	_, span := tr.Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("noop tracer produced a valid span context")
	}
	span.End()

	if err := tr.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNew_OTLPExporter(t *testing.T) {
	tr, err := New(config.TracingConfig{
		Enabled:     true,
		Sampler:     SamplerAlways,
		Endpoint:    "localhost:4317",
		ServiceName: "test",
		OTLP:        config.OTLPConfig{Insecure: true, Timeout: time.Second},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !tr.Enabled() {
		t.Error("expected enabled tracer")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = tr.Shutdown(ctx)
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		ratio    float64
		wantErr  bool
	}{
		{name: "always", strategy: SamplerAlways},
		{name: "never", strategy: SamplerNever},
		{name: "ratio", strategy: SamplerRatio, ratio: 0.25},
		{name: "empty", strategy: ""},
		{name: "ratio too high", strategy: SamplerRatio, ratio: 1.5, wantErr: true},
		{name: "unknown", strategy: "sometimes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := createSampler(tt.strategy, tt.ratio)
			if (err != nil) != tt.wantErr {
				t.Fatalf("createSampler() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && s == nil {
				t.Error("expected sampler")
			}
		})
	}
}

func TestNeverSamplerDropsSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tr, err := New(config.TracingConfig{Enabled: true, Sampler: SamplerNever}, WithExporter(exp))
	if err != nil {
		t.Fatal(err)
	}

	_, span := tr.Start(context.Background(), "dropped")
	span.End()
	if err := tr.ForceFlush(context.Background()); err != nil {
		t.Fatal(err)
	}

	if n := len(exp.GetSpans()); n != 0 {
		t.Errorf("never sampler exported %d spans", n)
	}
}

func TestEvaluationSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tr, err := New(config.TracingConfig{Enabled: true, Sampler: SamplerAlways, ServiceName: "test"},
		WithExporter(exp), WithServiceVersion("1.2.3"))
	if err != nil {
		t.Fatal(err)
	}

	b, err := benchmark.New("xccdf_test_benchmark_trace", []*benchmark.Item{
		{
			ID:    "xccdf_test_rule_a",
			Type:  benchmark.TypeRule,
			Title: "A",
			Checks: []*benchmark.Check{{
				System:      "urn:test",
				ContentRefs: []benchmark.ContentRef{{Href: "a", Name: "a"}},
			}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	m, err := policy.NewModel(b, policy.WithTracer(tr.Tracer()), policy.WithLogger(logging.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	m.RegisterEngineFunc("urn:test", func(context.Context, policy.CheckRef, *policy.CheckContext) (outcome.Outcome, error) {
		return outcome.Pass, nil
	})

	if _, err := m.Evaluate(context.Background(), m.DefaultPolicy()); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if err := tr.ForceFlush(context.Background()); err != nil {
		t.Fatal(err)
	}

	spans := exp.GetSpans()
	byName := make(map[string]tracetest.SpanStub)
	for _, s := range spans {
		byName[s.Name] = s
	}

	eval, ok := byName["policy.Evaluate"]
	if !ok {
		t.Fatalf("missing policy.Evaluate span, got %d spans", len(spans))
	}
	rule, ok := byName["policy.Rule"]
	if !ok {
		t.Fatal("missing policy.Rule span")
	}
	if rule.Parent.SpanID() != eval.SpanContext.SpanID() {
		t.Error("rule span is not a child of the evaluation span")
	}

	found := false
	for _, kv := range rule.Attributes {
		if string(kv.Key) == "rule.outcome" && kv.Value.AsString() == "pass" {
			found = true
		}
	}
	if !found {
		t.Errorf("rule.outcome attribute missing: %v", rule.Attributes)
	}
}

func TestSetError(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tr, err := New(config.TracingConfig{Enabled: true}, WithExporter(exp))
	if err != nil {
		t.Fatal(err)
	}

	_, failed := tr.Start(context.Background(), "failed")
	SetError(failed, errors.New("boom"))
	failed.End()

	_, ok := tr.Start(context.Background(), "ok")
	SetError(ok, nil)
	ok.End()

	if err := tr.ForceFlush(context.Background()); err != nil {
		t.Fatal(err)
	}

	for _, s := range exp.GetSpans() {
		switch s.Name {
		case "failed":
			if s.Status.Code != codes.Error || len(s.Events) == 0 {
				t.Errorf("failed span status = %v, events = %d", s.Status, len(s.Events))
			}
		case "ok":
			if s.Status.Code != codes.Ok {
				t.Errorf("ok span status = %v", s.Status)
			}
		}
	}
}
