// Package policy evaluates a benchmark against a profile.
//
// A Model owns one benchmark, the policies derived from its profiles and the
// registry of checking engines. A Policy turns a profile into concrete
// selections and value bindings; Model.Evaluate dispatches every selected
// rule's checks to the engine registered for the check's system and folds the
// outcomes into a result.TestResult.
//
// # Selection
//
// A rule is evaluated when its effective selection is true. The effective
// flag of an item is the policy's explicit selection for that ID when one
// exists, and otherwise the parent's effective flag combined with the item's
// declared default. An explicit select on a rule therefore wins over a
// deselected ancestor group.
//
// # Values
//
// Policy.ResolveValue starts from the value item's default instance and
// operator, applies refine-value entries (operator and selector) and then
// set-value entries. Later entries win.
//
// # Dispatch
//
// For each selected rule:
//
//   - role "unchecked" reports notchecked without dispatching
//   - a complex check is folded with its own operator and negate flag
//   - otherwise simple checks are grouped by system; outcomes are ORed within
//     a system and the per-system outcomes are ANDed
//   - a check whose system has no engine reports notchecked
//   - an engine error or panic reports error for that check only
//
// Engines implement CheckingEngine and may also implement RuleStarter,
// RuleFinisher and NameQuerier.
//
// # Concurrency
//
// Evaluation is sequential. Each Policy admits one Evaluate or Resolve at a
// time, and engine registration waits for running evaluations to finish.
package policy
