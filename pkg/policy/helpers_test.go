package policy

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"mercator-hq/auditor/pkg/benchmark"
	"mercator-hq/auditor/pkg/outcome"
)

const (
	sysA = "urn:test:a"
	sysB = "urn:test:b"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestModel(t *testing.T, b *benchmark.Benchmark) *Model {
	t.Helper()
	m, err := NewModel(b, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	return m
}

func mustBenchmark(t *testing.T, items []*benchmark.Item, profiles ...*benchmark.Profile) *benchmark.Benchmark {
	t.Helper()
	b, err := benchmark.New("xccdf_test_benchmark", items, profiles...)
	if err != nil {
		t.Fatalf("benchmark.New() error = %v", err)
	}
	return b
}

// fixedEngine returns outcomes keyed by check name, and records calls.
type fixedEngine struct {
	outcomes map[string]outcome.Outcome
	errs     map[string]error
	calls    []CheckRef
	names    map[string][]string
}

func (e *fixedEngine) Evaluate(_ context.Context, ref CheckRef, _ *CheckContext) (outcome.Outcome, error) {
	e.calls = append(e.calls, ref)
	if err, ok := e.errs[ref.Name]; ok {
		return 0, err
	}
	if o, ok := e.outcomes[ref.Name]; ok {
		return o, nil
	}
	return outcome.NotChecked, nil
}

// queryEngine adds NameQuerier to fixedEngine.
type queryEngine struct {
	*fixedEngine
}

func (e queryEngine) NamesForHref(_ context.Context, href string) ([]string, error) {
	return e.names[href], nil
}

func check(system, href, name string) *benchmark.Check {
	return &benchmark.Check{
		System:      system,
		ContentRefs: []benchmark.ContentRef{{Href: href, Name: name}},
	}
}

func rule(id string, checks ...*benchmark.Check) *benchmark.Item {
	return &benchmark.Item{ID: id, Type: benchmark.TypeRule, Title: "Rule " + id, Checks: checks}
}

func group(id string, children ...*benchmark.Item) *benchmark.Item {
	return &benchmark.Item{ID: id, Type: benchmark.TypeGroup, Children: children}
}

func ruleIDs(items []*benchmark.Item) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
