package policy

import (
	"context"

	"mercator-hq/auditor/pkg/benchmark"
	"mercator-hq/auditor/pkg/outcome"
)

// CheckRef identifies the content a check points at.
type CheckRef struct {
	System string
	Href   string
	Name   string
}

// CheckContext is the rule-level information handed to engines.
type CheckContext struct {
	PolicyID string
	RuleID   string
	Rule     *benchmark.Item
	Selector string

	// Values holds the exported value bindings, named by their export name.
	Values []*ValueBinding
}

// Value returns the exported binding with the given export name.
func (c *CheckContext) Value(name string) (*ValueBinding, bool) {
	for _, v := range c.Values {
		if v.Name() == name {
			return v, true
		}
	}
	return nil, false
}

// ValueMap returns exported values as name to literal.
func (c *CheckContext) ValueMap() map[string]string {
	out := make(map[string]string, len(c.Values))
	for _, v := range c.Values {
		out[v.Name()] = v.Value()
	}
	return out
}

// CheckingEngine evaluates checks of one system.
type CheckingEngine interface {
	Evaluate(ctx context.Context, ref CheckRef, cc *CheckContext) (outcome.Outcome, error)
}

// RuleStarter is implemented by engines that need to prepare before a check
// is evaluated.
type RuleStarter interface {
	Start(ctx context.Context, cc *CheckContext) error
}

// RuleFinisher is implemented by engines that want to observe the outcome of
// each check they evaluated.
type RuleFinisher interface {
	Finish(ctx context.Context, cc *CheckContext, o outcome.Outcome)
}

// NameQuerier is implemented by engines that can enumerate the check names
// inside a content document. It enables multi-check.
type NameQuerier interface {
	NamesForHref(ctx context.Context, href string) ([]string, error)
}

// EngineFunc adapts a function to CheckingEngine.
type EngineFunc func(ctx context.Context, ref CheckRef, cc *CheckContext) (outcome.Outcome, error)

// Evaluate calls f.
func (f EngineFunc) Evaluate(ctx context.Context, ref CheckRef, cc *CheckContext) (outcome.Outcome, error) {
	return f(ctx, ref, cc)
}

// RuleMessage is passed to start and output callbacks. Outcome is zero for
// start callbacks.
type RuleMessage struct {
	PolicyID string
	RuleID   string
	Title    string
	Outcome  outcome.Outcome
}

// Callback receives rule progress. A returned error is logged and does not
// affect evaluation.
type Callback func(*RuleMessage) error
