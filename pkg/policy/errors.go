package policy

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownItem indicates a selection or refinement names an ID that is
	// not in the benchmark.
	ErrUnknownItem = errors.New("unknown item")

	// ErrUnknownValueID indicates a value lookup or set-value names an ID
	// that is not a value item.
	ErrUnknownValueID = errors.New("unknown value id")

	// ErrInvalidRefinement indicates a refine-value uses an operator that is
	// illegal for the value's type or a selector the value does not define.
	ErrInvalidRefinement = errors.New("invalid refinement")

	// ErrEngineNotRegistered indicates no engine handles a check system.
	ErrEngineNotRegistered = errors.New("checking engine not registered")

	// ErrUnknownPolicy indicates a policy ID that the model does not hold.
	ErrUnknownPolicy = errors.New("unknown policy")

	// ErrNilBenchmark indicates NewModel was called without a benchmark.
	ErrNilBenchmark = errors.New("benchmark is nil")
)

// ValidationError collects every reference problem found in a policy.
type ValidationError struct {
	PolicyID string
	Errors   []error
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("policy %s: validation error: %v", e.PolicyID, e.Errors[0])
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("policy %s: %d validation errors: %s", e.PolicyID, len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap returns the individual problems.
func (e *ValidationError) Unwrap() []error {
	return e.Errors
}

// RefinementError describes a refine-value that cannot be applied.
type RefinementError struct {
	ValueID  string
	Operator string
	Selector string
	Reason   string
}

// Error returns the error message.
func (e *RefinementError) Error() string {
	return fmt.Sprintf("refine-value %q: %s", e.ValueID, e.Reason)
}

// Unwrap returns ErrInvalidRefinement.
func (e *RefinementError) Unwrap() error {
	return ErrInvalidRefinement
}

// EngineError wraps a failure reported by a checking engine.
type EngineError struct {
	System string
	RuleID string
	Href   string
	Name   string
	Cause  error
}

// Error returns the error message.
func (e *EngineError) Error() string {
	target := e.Href
	if e.Name != "" {
		target += "#" + e.Name
	}
	return fmt.Sprintf("rule %s: engine %s failed on %q: %v", e.RuleID, e.System, target, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// FatalInitError is returned by Evaluate when evaluation cannot start. No
// result is produced.
type FatalInitError struct {
	PolicyID string
	Cause    error
}

// Error returns the error message.
func (e *FatalInitError) Error() string {
	return fmt.Sprintf("policy %s: cannot start evaluation: %v", e.PolicyID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *FatalInitError) Unwrap() error {
	return e.Cause
}
