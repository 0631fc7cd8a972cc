package policy

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/auditor/pkg/benchmark"
	"mercator-hq/auditor/pkg/outcome"
	"mercator-hq/auditor/pkg/result"
)

// Evaluate runs every selected rule of p and returns the result, which is
// also appended to p's history. Evaluate returns either a complete result or
// an error; a *FatalInitError means evaluation never started.
func (m *Model) Evaluate(ctx context.Context, p *Policy) (*result.TestResult, error) {
	if p == nil || p.model != m {
		id := ""
		if p != nil {
			id = p.id
		}
		return nil, &FatalInitError{PolicyID: id, Cause: ErrUnknownPolicy}
	}

	if err := p.slot.Acquire(ctx, 1); err != nil {
		return nil, &FatalInitError{PolicyID: p.id, Cause: err}
	}
	defer p.slot.Release(1)

	m.mu.RLock()
	defer m.mu.RUnlock()

	ctx, span := m.tracer.Start(ctx, "policy.Evaluate",
		trace.WithAttributes(
			attribute.String("benchmark.id", m.bench.ID),
			attribute.String("policy.id", p.id),
		),
	)
	defer span.End()

	start := m.now()
	logger := m.logger.With("policy_id", p.id)
	rules := p.SelectedRules()
	logger.InfoContext(ctx, "evaluation started", "selected_rules", len(rules))

	builder := result.NewBuilder(newResultID(), m.bench.ID, p.profileID(), start)
	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "evaluation cancelled")
			return nil, fmt.Errorf("evaluate policy %s: %w", p.id, err)
		}
		builder.AddRule(rule, m.evaluateRule(ctx, p, rule))
	}

	end := m.now()
	res := builder.Finish(end)
	p.appendResult(res)

	span.SetAttributes(
		attribute.String("result.id", res.ID()),
		attribute.String("result.outcome", res.Outcome().String()),
	)
	m.recorder.ObserveEvaluation(p.id, res.Outcome(), end.Sub(start))
	logger.InfoContext(ctx, "evaluation finished",
		"result_id", res.ID(),
		"outcome", res.Outcome().String(),
		"duration", end.Sub(start),
	)
	return res, nil
}

// ruleRun carries the state of one rule's dispatch.
type ruleRun struct {
	m        *Model
	p        *Policy
	rule     *benchmark.Item
	selector string
	checks   []result.CheckResult
}

func (m *Model) evaluateRule(ctx context.Context, p *Policy, rule *benchmark.Item) result.RuleResult {
	t := p.tailoring(rule)

	ctx, span := m.tracer.Start(ctx, "policy.Rule",
		trace.WithAttributes(attribute.String("rule.id", rule.ID)),
	)
	defer span.End()

	msg := &RuleMessage{PolicyID: p.id, RuleID: rule.ID, Title: rule.Title}
	m.notifyLocked("start", m.startCallbacks, msg)

	rr := result.RuleResult{
		Weight:   t.weight,
		Severity: t.severity,
		Role:     t.role,
		Time:     m.now(),
	}

	if t.role == benchmark.RoleUnchecked {
		rr.Outcome = outcome.NotChecked
	} else {
		run := &ruleRun{m: m, p: p, rule: rule, selector: t.selector}
		if rule.ComplexCheck != nil {
			rr.Outcome = run.complex(ctx, rule.ComplexCheck)
		} else {
			rr.Outcome = run.simple(ctx, checksFor(rule, t.selector))
		}
		rr.Checks = run.checks
	}

	span.SetAttributes(attribute.String("rule.outcome", rr.Outcome.String()))
	msg.Outcome = rr.Outcome
	m.notifyLocked("output", m.outputCallbacks, msg)
	m.recorder.ObserveRule(p.id, rr.Outcome)
	m.logger.DebugContext(ctx, "rule evaluated",
		"policy_id", p.id,
		"rule_id", rule.ID,
		"outcome", rr.Outcome.String(),
	)
	return rr
}

// simple ORs checks within a system and ANDs the systems.
func (r *ruleRun) simple(ctx context.Context, checks []*benchmark.Check) outcome.Outcome {
	var systems []string
	bySystem := make(map[string][]outcome.Outcome)
	for _, chk := range checks {
		if _, ok := bySystem[chk.System]; !ok {
			systems = append(systems, chk.System)
		}
		bySystem[chk.System] = append(bySystem[chk.System], r.check(ctx, chk))
	}

	perSystem := make([]outcome.Outcome, 0, len(systems))
	for _, system := range systems {
		perSystem = append(perSystem, outcome.Fold(outcome.OperatorOr, bySystem[system]...))
	}
	return outcome.Fold(outcome.OperatorAnd, perSystem...)
}

func (r *ruleRun) complex(ctx context.Context, cc *benchmark.ComplexCheck) outcome.Outcome {
	parts := make([]outcome.Outcome, 0, len(cc.Checks)+len(cc.Complex))
	for _, chk := range cc.Checks {
		parts = append(parts, r.check(ctx, chk))
	}
	for _, nested := range cc.Complex {
		parts = append(parts, r.complex(ctx, nested))
	}
	o := outcome.Fold(cc.Operator, parts...)
	if cc.Negate {
		o = outcome.Negate(o)
	}
	return o
}

// check evaluates one simple check, trying content refs in order until one
// yields something other than notchecked.
func (r *ruleRun) check(ctx context.Context, chk *benchmark.Check) outcome.Outcome {
	engine, ok := r.m.lookupLocked(chk.System)
	if !ok {
		r.m.logger.Debug("no engine for check system",
			"rule_id", r.rule.ID,
			"system", chk.System,
			"error", ErrEngineNotRegistered,
		)
		r.record(CheckRef{System: chk.System}, outcome.NotChecked, nil)
		return outcome.NotChecked
	}

	values, err := r.p.exports(chk)
	if err != nil {
		err = &EngineError{System: chk.System, RuleID: r.rule.ID, Cause: err}
		r.m.logger.Error("cannot bind check exports", "error", err)
		r.record(CheckRef{System: chk.System}, outcome.Error, err)
		return outcome.Error
	}
	cc := &CheckContext{
		PolicyID: r.p.id,
		RuleID:   r.rule.ID,
		Rule:     r.rule,
		Selector: r.selector,
		Values:   values,
	}

	refs := chk.ContentRefs
	if len(refs) == 0 {
		refs = []benchmark.ContentRef{{}}
	}

	o := outcome.NotChecked
	for _, cr := range refs {
		ref := CheckRef{System: chk.System, Href: cr.Href, Name: cr.Name}
		if chk.MultiCheck && ref.Name == "" {
			o = r.multi(ctx, engine, ref, cc)
		} else {
			o = r.call(ctx, engine, ref, cc)
		}
		if o != outcome.NotChecked {
			break
		}
	}

	if chk.Negate {
		o = outcome.Negate(o)
	}
	return o
}

// multi evaluates every name the engine reports for the href and ANDs them.
func (r *ruleRun) multi(ctx context.Context, engine CheckingEngine, ref CheckRef, cc *CheckContext) outcome.Outcome {
	q, ok := engine.(NameQuerier)
	if !ok {
		return r.call(ctx, engine, ref, cc)
	}
	names, err := q.NamesForHref(ctx, ref.Href)
	if err != nil {
		err = &EngineError{System: ref.System, RuleID: r.rule.ID, Href: ref.Href, Cause: err}
		r.m.logger.Error("name query failed", "error", err)
		r.m.recorder.ObserveEngineError(ref.System)
		r.record(ref, outcome.Error, err)
		return outcome.Error
	}
	outcomes := make([]outcome.Outcome, 0, len(names))
	for _, name := range names {
		named := ref
		named.Name = name
		outcomes = append(outcomes, r.call(ctx, engine, named, cc))
	}
	return outcome.Fold(outcome.OperatorAnd, outcomes...)
}

// call invokes the engine for one ref. Errors and panics become error.
func (r *ruleRun) call(ctx context.Context, engine CheckingEngine, ref CheckRef, cc *CheckContext) (o outcome.Outcome) {
	start := time.Now()
	var err error

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("engine panic: %v", rec)
			o = outcome.Error
		}
		if err != nil {
			err = &EngineError{System: ref.System, RuleID: r.rule.ID, Href: ref.Href, Name: ref.Name, Cause: err}
			r.m.logger.Error("check evaluation failed", "error", err)
			r.m.recorder.ObserveEngineError(ref.System)
		}
		r.m.recorder.ObserveCheck(ref.System, o, time.Since(start))
		r.record(ref, o, err)
	}()

	if s, ok := engine.(RuleStarter); ok {
		if err = s.Start(ctx, cc); err != nil {
			return outcome.Error
		}
	}

	o, err = engine.Evaluate(ctx, ref, cc)
	switch {
	case err != nil:
		o = outcome.Error
	case !o.Valid():
		err = fmt.Errorf("engine returned invalid outcome %d", int(o))
		o = outcome.Error
	}

	if f, ok := engine.(RuleFinisher); ok {
		f.Finish(ctx, cc, o)
	}
	return o
}

func (r *ruleRun) record(ref CheckRef, o outcome.Outcome, err error) {
	cr := result.CheckResult{
		System:  ref.System,
		Href:    ref.Href,
		Name:    ref.Name,
		Outcome: o,
	}
	if err != nil {
		cr.Error = err.Error()
	}
	r.checks = append(r.checks, cr)
}
