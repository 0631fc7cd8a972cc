package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// BenchmarkIDKey is the context key for benchmark IDs.
	BenchmarkIDKey contextKey = "benchmark_id"

	// ProfileIDKey is the context key for profile IDs.
	ProfileIDKey contextKey = "profile_id"

	// ResultIDKey is the context key for test result IDs.
	ResultIDKey contextKey = "result_id"

	// TriggerKey is the context key naming what started an evaluation
	// ("cli", "cron", "watch").
	TriggerKey contextKey = "trigger"
)

var contextKeys = []contextKey{BenchmarkIDKey, ProfileIDKey, ResultIDKey, TriggerKey}

// WithBenchmarkID adds a benchmark ID to the context.
func WithBenchmarkID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, BenchmarkIDKey, id)
}

// WithProfileID adds a profile ID to the context.
func WithProfileID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ProfileIDKey, id)
}

// WithResultID adds a test result ID to the context.
func WithResultID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ResultIDKey, id)
}

// WithTrigger records what started the current evaluation.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, TriggerKey, trigger)
}

// Get returns the string stored under key, or "".
func Get(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// contextAttrs extracts the logging fields held by ctx, including the
// active span's trace and span IDs.
func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var attrs []slog.Attr
	for _, key := range contextKeys {
		if v := Get(ctx, key); v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	return attrs
}
