// Package scoring computes XCCDF scores from a test result.
package scoring

import (
	"errors"
	"fmt"

	"mercator-hq/auditor/pkg/benchmark"
	"mercator-hq/auditor/pkg/outcome"
	"mercator-hq/auditor/pkg/policy"
	"mercator-hq/auditor/pkg/result"
)

// Scoring system URIs.
const (
	SystemDefault        = "urn:xccdf:scoring:default"
	SystemFlat           = "urn:xccdf:scoring:flat"
	SystemFlatUnweighted = "urn:xccdf:scoring:flat-unweighted"
	SystemAbsolute       = "urn:xccdf:scoring:absolute"
)

// Systems lists the supported scoring systems.
var Systems = []string{SystemDefault, SystemFlat, SystemFlatUnweighted, SystemAbsolute}

// flatMax is the maximum score of the normalized systems.
const flatMax = 100.0

var (
	// ErrNoApplicableRules indicates every rule was excluded from scoring.
	ErrNoApplicableRules = errors.New("no applicable rules to score")

	// ErrUnknownScoringSystem indicates an unsupported scoring URI.
	ErrUnknownScoringSystem = errors.New("unknown scoring system")

	// ErrNilResult indicates Compute was called without a result.
	ErrNilResult = errors.New("result is nil")
)

// Score is the outcome of one scoring system.
type Score struct {
	System string  `json:"system"`
	Value  float64 `json:"value"`
	Max    float64 `json:"max"`
}

// Percent returns Value as a percentage of Max.
func (s *Score) Percent() float64 {
	if s.Max == 0 {
		return 0
	}
	return s.Value / s.Max * 100
}

// String formats the score as value/max.
func (s *Score) String() string {
	return fmt.Sprintf("%.2f/%.2f", s.Value, s.Max)
}

// Compute computes the score of r under system. When p is given only rules
// p still selects are scored, weighted by p's tailoring; otherwise the
// weights recorded in the result are used. When every rule is excluded
// Compute returns ErrNoApplicableRules with a zero score.
func Compute(p *policy.Policy, r *result.TestResult, system string) (*Score, error) {
	if r == nil {
		return nil, ErrNilResult
	}

	var value, max float64
	counted := 0
	allPass := true

	for _, rule := range r.RuleResults() {
		earned, ok := counts(p, rule)
		if !ok {
			continue
		}
		counted++
		weight := ruleWeight(p, rule)
		if system == SystemFlatUnweighted {
			weight = 1
		}
		max += weight
		if earned {
			value += weight
		} else {
			allPass = false
		}
	}

	s := &Score{System: system}
	switch system {
	case SystemDefault, SystemFlat, SystemFlatUnweighted, SystemAbsolute:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScoringSystem, system)
	}
	if counted == 0 {
		return s, ErrNoApplicableRules
	}

	switch system {
	case SystemDefault:
		s.Value, s.Max = value, max
	case SystemFlat, SystemFlatUnweighted:
		s.Max = flatMax
		if max > 0 {
			s.Value = value / max * flatMax
		}
	case SystemAbsolute:
		s.Max = 1
		if allPass {
			s.Value = 1
		}
	}
	return s, nil
}

// ScoreAll computes every system in Systems. Systems that cannot be scored
// are skipped; the first error is returned alongside the scores.
func ScoreAll(p *policy.Policy, r *result.TestResult) ([]*Score, error) {
	var scores []*Score
	var firstErr error
	for _, system := range Systems {
		s, err := Compute(p, r, system)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		scores = append(scores, s)
	}
	return scores, firstErr
}

// counts reports whether a rule takes part in scoring and whether it earns
// its weight.
func counts(p *policy.Policy, n *result.Node) (earned, ok bool) {
	if n.Role == benchmark.RoleUnscored {
		return false, false
	}
	if p != nil {
		if selected, err := p.IsSelected(n.ID); err != nil || !selected {
			return false, false
		}
	}
	switch n.Outcome {
	case outcome.Pass, outcome.Fixed:
		return true, true
	case outcome.Fail, outcome.Error, outcome.Unknown:
		return false, true
	default:
		return false, false
	}
}

func ruleWeight(p *policy.Policy, n *result.Node) float64 {
	if p != nil {
		if w, err := p.Weight(n.ID); err == nil {
			return w
		}
	}
	return n.Weight
}

// Breakdown returns the default-system score of every group in r that has
// at least one scored rule, keyed by group ID. Rules p no longer selects are
// left out.
func Breakdown(p *policy.Policy, r *result.TestResult) map[string]*Score {
	out := make(map[string]*Score)
	var sum func(n *result.Node) (value, max float64, counted int)
	sum = func(n *result.Node) (float64, float64, int) {
		if n.Kind == result.KindRule {
			earned, ok := counts(p, n)
			if !ok {
				return 0, 0, 0
			}
			w := ruleWeight(p, n)
			if earned {
				return w, w, 1
			}
			return 0, w, 1
		}
		var value, max float64
		var counted int
		for _, child := range n.Children {
			v, m, c := sum(child)
			value, max, counted = value+v, max+m, counted+c
		}
		if counted > 0 {
			out[n.ID] = &Score{System: SystemDefault, Value: value, Max: max}
		}
		return value, max, counted
	}
	for _, n := range r.Nodes() {
		sum(n)
	}
	return out
}
