package policy

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mercator-hq/auditor/pkg/benchmark"
	"mercator-hq/auditor/pkg/outcome"
)

func TestEvaluate_NoEngineIsNotChecked(t *testing.T) {
	m := newTestModel(t, mustBenchmark(t, []*benchmark.Item{rule("r1", check(sysA, "a", "x"))}))

	res, err := m.Evaluate(context.Background(), m.DefaultPolicy())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	rr, ok := res.Rule("r1")
	if !ok {
		t.Fatal("Rule(r1) missing")
	}
	if rr.Outcome != outcome.NotChecked {
		t.Errorf("outcome = %v, want notchecked", rr.Outcome)
	}
}

func TestEvaluate_SystemsCombine(t *testing.T) {
	tests := []struct {
		name   string
		checks []*benchmark.Check
		a, b   map[string]outcome.Outcome
		want   outcome.Outcome
	}{
		{
			name:   "fail and pass across systems",
			checks: []*benchmark.Check{check(sysA, "a", "c1"), check(sysB, "b", "c2")},
			a:      map[string]outcome.Outcome{"c1": outcome.Fail},
			b:      map[string]outcome.Outcome{"c2": outcome.Pass},
			want:   outcome.Fail,
		},
		{
			name:   "or within a system",
			checks: []*benchmark.Check{check(sysA, "a", "c1"), check(sysA, "a", "c2"), check(sysB, "b", "c3")},
			a:      map[string]outcome.Outcome{"c1": outcome.Fail, "c2": outcome.Pass},
			b:      map[string]outcome.Outcome{"c3": outcome.Pass},
			want:   outcome.Pass,
		},
		{
			name:   "error and pass",
			checks: []*benchmark.Check{check(sysA, "a", "c1"), check(sysB, "b", "c2")},
			a:      map[string]outcome.Outcome{"c1": outcome.Error},
			b:      map[string]outcome.Outcome{"c2": outcome.Pass},
			want:   outcome.Error,
		},
		{
			name:   "not applicable yields to pass",
			checks: []*benchmark.Check{check(sysA, "a", "c1"), check(sysB, "b", "c2")},
			a:      map[string]outcome.Outcome{"c1": outcome.NotApplicable},
			b:      map[string]outcome.Outcome{"c2": outcome.Pass},
			want:   outcome.Pass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t, mustBenchmark(t, []*benchmark.Item{rule("r1", tt.checks...)}))
			m.RegisterEngine(sysA, &fixedEngine{outcomes: tt.a})
			m.RegisterEngine(sysB, &fixedEngine{outcomes: tt.b})

			res, err := m.Evaluate(context.Background(), m.DefaultPolicy())
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			rr, _ := res.Rule("r1")
			if rr.Outcome != tt.want {
				t.Errorf("outcome = %v, want %v", rr.Outcome, tt.want)
			}
			if len(rr.Checks) != len(tt.checks) {
				t.Errorf("len(Checks) = %d, want %d", len(rr.Checks), len(tt.checks))
			}
		})
	}
}

type panicEngine struct{}

func (panicEngine) Evaluate(context.Context, CheckRef, *CheckContext) (outcome.Outcome, error) {
	panic("boom")
}

func TestEvaluate_EngineFailuresBecomeError(t *testing.T) {
	b := mustBenchmark(t, []*benchmark.Item{
		rule("r1", check(sysA, "a", "bad")),
		rule("r2", check(sysB, "b", "x")),
		rule("r3", check(sysA, "a", "good")),
	})
	m := newTestModel(t, b)
	m.RegisterEngine(sysA, &fixedEngine{
		outcomes: map[string]outcome.Outcome{"good": outcome.Pass},
		errs:     map[string]error{"bad": errors.New("content missing")},
	})
	m.RegisterEngine(sysB, panicEngine{})

	res, err := m.Evaluate(context.Background(), m.DefaultPolicy())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	want := map[string]outcome.Outcome{"r1": outcome.Error, "r2": outcome.Error, "r3": outcome.Pass}
	for id, o := range want {
		rr, _ := res.Rule(id)
		if rr.Outcome != o {
			t.Errorf("%s outcome = %v, want %v", id, rr.Outcome, o)
		}
	}
	r1, _ := res.Rule("r1")
	if !strings.Contains(r1.Checks[0].Error, "content missing") {
		t.Errorf("r1 check error = %q", r1.Checks[0].Error)
	}
	r2, _ := res.Rule("r2")
	if !strings.Contains(r2.Checks[0].Error, "panic") {
		t.Errorf("r2 check error = %q", r2.Checks[0].Error)
	}
}

func TestEvaluate_ComplexCheckAndNegate(t *testing.T) {
	b := mustBenchmark(t, []*benchmark.Item{
		{ID: "r1", Type: benchmark.TypeRule, ComplexCheck: &benchmark.ComplexCheck{
			Operator: outcome.OperatorOr,
			Checks:   []*benchmark.Check{check(sysA, "a", "f1")},
			Complex: []*benchmark.ComplexCheck{{
				Operator: outcome.OperatorAnd,
				Negate:   true,
				Checks:   []*benchmark.Check{check(sysA, "a", "f2"), check(sysA, "a", "p1")},
			}},
		}},
		{ID: "r2", Type: benchmark.TypeRule, Checks: []*benchmark.Check{{
			System: sysA, Negate: true,
			ContentRefs: []benchmark.ContentRef{{Href: "a", Name: "p1"}},
		}}},
	})
	m := newTestModel(t, b)
	m.RegisterEngine(sysA, &fixedEngine{outcomes: map[string]outcome.Outcome{
		"f1": outcome.Fail, "f2": outcome.Fail, "p1": outcome.Pass,
	}})

	res, err := m.Evaluate(context.Background(), m.DefaultPolicy())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	// r1: OR(fail, NOT(AND(fail, pass))) = OR(fail, pass) = pass
	if rr, _ := res.Rule("r1"); rr.Outcome != outcome.Pass {
		t.Errorf("r1 outcome = %v, want pass", rr.Outcome)
	}
	if rr, _ := res.Rule("r2"); rr.Outcome != outcome.Fail {
		t.Errorf("r2 outcome = %v, want fail", rr.Outcome)
	}
}

func TestEvaluate_ContentRefFallbackAndMultiCheck(t *testing.T) {
	b := mustBenchmark(t, []*benchmark.Item{
		{ID: "r1", Type: benchmark.TypeRule, Checks: []*benchmark.Check{{
			System: sysA,
			ContentRefs: []benchmark.ContentRef{
				{Href: "first", Name: "unknown"},
				{Href: "second", Name: "p1"},
				{Href: "third", Name: "f1"},
			},
		}}},
		{ID: "r2", Type: benchmark.TypeRule, Checks: []*benchmark.Check{{
			System:      sysA,
			MultiCheck:  true,
			ContentRefs: []benchmark.ContentRef{{Href: "suite"}},
		}}},
	})
	m := newTestModel(t, b)
	eng := &fixedEngine{
		outcomes: map[string]outcome.Outcome{"p1": outcome.Pass, "p2": outcome.Pass, "f1": outcome.Fail},
		names:    map[string][]string{"suite": {"p1", "p2", "f1"}},
	}
	m.RegisterEngine(sysA, queryEngine{eng})

	res, err := m.Evaluate(context.Background(), m.DefaultPolicy())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	r1, _ := res.Rule("r1")
	if r1.Outcome != outcome.Pass {
		t.Errorf("r1 outcome = %v, want pass", r1.Outcome)
	}
	if len(r1.Checks) != 2 {
		t.Errorf("r1 dispatched %d refs, want 2", len(r1.Checks))
	}

	r2, _ := res.Rule("r2")
	if r2.Outcome != outcome.Fail {
		t.Errorf("r2 outcome = %v, want fail", r2.Outcome)
	}
	if len(r2.Checks) != 3 {
		t.Errorf("r2 dispatched %d names, want 3", len(r2.Checks))
	}
}

func TestEvaluate_TailoringAndCallbacks(t *testing.T) {
	strict := &benchmark.Check{System: sysA, Selector: "strict",
		ContentRefs: []benchmark.ContentRef{{Href: "a", Name: "strict"}}}
	loose := &benchmark.Check{System: sysA,
		ContentRefs: []benchmark.ContentRef{{Href: "a", Name: "loose"}}}
	prof := &benchmark.Profile{ID: "p", RefineRules: []benchmark.RefineRule{
		{IDRef: "r1", Selector: "strict", Weight: benchmark.Float(3), Severity: "high"},
		{IDRef: "r2", Role: benchmark.RoleUnchecked},
	}}
	b := mustBenchmark(t, []*benchmark.Item{
		{ID: "r1", Type: benchmark.TypeRule, Title: "One", Checks: []*benchmark.Check{strict, loose}},
		{ID: "r2", Type: benchmark.TypeRule, Title: "Two", Checks: []*benchmark.Check{loose}},
	}, prof)
	m := newTestModel(t, b)
	eng := &fixedEngine{outcomes: map[string]outcome.Outcome{"strict": outcome.Fail, "loose": outcome.Pass}}
	m.RegisterEngine(sysA, eng)

	var started, finished []string
	m.RegisterStartCallback(func(msg *RuleMessage) error {
		started = append(started, msg.RuleID)
		return nil
	})
	m.RegisterOutputCallback(func(msg *RuleMessage) error {
		finished = append(finished, msg.RuleID+"="+msg.Outcome.String())
		return errors.New("ignored")
	})

	p, _ := m.PolicyByID("p")
	res, err := m.Evaluate(context.Background(), p)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	r1, _ := res.Rule("r1")
	if r1.Outcome != outcome.Fail || r1.Weight != 3 || r1.Severity != "high" {
		t.Errorf("r1 = %+v, want fail weight 3 severity high", r1)
	}
	r2, _ := res.Rule("r2")
	if r2.Outcome != outcome.NotChecked || len(r2.Checks) != 0 {
		t.Errorf("r2 = %+v, want notchecked without dispatch", r2)
	}
	if len(eng.calls) != 1 {
		t.Errorf("engine calls = %v, want 1", eng.calls)
	}

	if !equalStrings(started, []string{"r1", "r2"}) {
		t.Errorf("started = %v", started)
	}
	if !equalStrings(finished, []string{"r1=fail", "r2=notchecked"}) {
		t.Errorf("finished = %v", finished)
	}
	if res.ProfileID() != "p" || !strings.HasPrefix(res.ID(), resultIDPrefix) {
		t.Errorf("result ids = %q / %q", res.ID(), res.ProfileID())
	}
}

func TestEvaluate_ResultLeavesMatchSelection(t *testing.T) {
	b := mustBenchmark(t, []*benchmark.Item{
		group("g1", rule("r1", check(sysA, "a", "x")), rule("r2")),
		group("g2", &benchmark.Item{ID: "r3", Type: benchmark.TypeRule, Selected: benchmark.Bool(false)}, rule("r4")),
		rule("r5"),
	}, &benchmark.Profile{ID: "p", Selects: []benchmark.Select{{IDRef: "g1", Selected: false}, {IDRef: "r2", Selected: true}}})
	m := newTestModel(t, b)

	for _, p := range m.Policies() {
		res, err := m.Evaluate(context.Background(), p)
		if err != nil {
			t.Fatalf("Evaluate(%s) error = %v", p.ID(), err)
		}
		if got, want := res.RuleIDs(), ruleIDs(p.SelectedRules()); !equalStrings(got, want) {
			t.Errorf("policy %s: result rules = %v, selected = %v", p.ID(), got, want)
		}
		if got, ok := p.ResultByID(res.ID()); !ok || got != res {
			t.Errorf("ResultByID(%s) did not return the result", res.ID())
		}
	}
}

func TestEvaluate_ExportsReachEngine(t *testing.T) {
	b := mustBenchmark(t, []*benchmark.Item{
		{ID: "v", Type: benchmark.TypeValue, ValueType: benchmark.ValueTypeNumber, Values: map[string]string{"": "5"}},
		{ID: "r1", Type: benchmark.TypeRule, Checks: []*benchmark.Check{{
			System:  sysA,
			Exports: []benchmark.Export{{ValueID: "v", Name: "LIMIT"}},
		}}},
	}, &benchmark.Profile{ID: "p", SetValues: []benchmark.SetValue{{IDRef: "v", Value: "9"}}})
	m := newTestModel(t, b)

	var seen map[string]string
	m.RegisterEngineFunc(sysA, func(_ context.Context, _ CheckRef, cc *CheckContext) (outcome.Outcome, error) {
		seen = cc.ValueMap()
		return outcome.Pass, nil
	})

	p, _ := m.PolicyByID("p")
	if _, err := m.Evaluate(context.Background(), p); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if seen["LIMIT"] != "9" {
		t.Errorf("engine saw values %v, want LIMIT=9", seen)
	}
}

func TestEvaluate_FatalInit(t *testing.T) {
	m := newTestModel(t, mustBenchmark(t, []*benchmark.Item{rule("r1")}))
	p := m.DefaultPolicy()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Hold the slot so Acquire has to wait on the cancelled context.
	if err := p.slot.Acquire(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	res, err := m.Evaluate(ctx, p)
	p.slot.Release(1)

	var fe *FatalInitError
	if !errors.As(err, &fe) {
		t.Fatalf("Evaluate() error = %v, want *FatalInitError", err)
	}
	if res != nil {
		t.Error("Evaluate() returned a result with a fatal error")
	}
	if len(p.Results()) != 0 {
		t.Error("fatal evaluation was recorded in history")
	}

	other := newTestModel(t, mustBenchmark(t, []*benchmark.Item{rule("r1")}))
	if _, err := m.Evaluate(context.Background(), other.DefaultPolicy()); !errors.As(err, &fe) {
		t.Errorf("Evaluate(foreign policy) error = %v, want *FatalInitError", err)
	}
}

func TestEvaluate_CancelledMidRun(t *testing.T) {
	m := newTestModel(t, mustBenchmark(t, []*benchmark.Item{
		rule("r1", check(sysA, "a", "x")),
		rule("r2", check(sysA, "a", "y")),
	}))
	p := m.DefaultPolicy()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls int
	m.RegisterEngineFunc(sysA, func(context.Context, CheckRef, *CheckContext) (outcome.Outcome, error) {
		calls++
		cancel()
		return outcome.Pass, nil
	})

	res, err := m.Evaluate(ctx, p)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Evaluate() error = %v, want context.Canceled", err)
	}
	var fe *FatalInitError
	if errors.As(err, &fe) {
		t.Errorf("Evaluate() error = %v, want a plain cancellation once rules ran", err)
	}
	if res != nil || len(p.Results()) != 0 {
		t.Error("cancelled evaluation produced a result")
	}
	if calls != 1 {
		t.Errorf("engine called %d times, want 1", calls)
	}
}

func TestRegisterEngine_WaitsForEvaluation(t *testing.T) {
	m := newTestModel(t, mustBenchmark(t, []*benchmark.Item{rule("r1", check(sysA, "a", "x"))}))

	entered := make(chan struct{})
	release := make(chan struct{})
	m.RegisterEngineFunc(sysA, func(context.Context, CheckRef, *CheckContext) (outcome.Outcome, error) {
		close(entered)
		<-release
		return outcome.Pass, nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.Evaluate(context.Background(), m.DefaultPolicy())
	}()
	<-entered

	registered := make(chan struct{})
	go func() {
		m.RegisterEngine(sysB, &fixedEngine{})
		close(registered)
	}()

	select {
	case <-registered:
		t.Fatal("RegisterEngine returned while evaluation was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-done
	select {
	case <-registered:
	case <-time.After(time.Second):
		t.Fatal("RegisterEngine did not complete after evaluation")
	}
}
