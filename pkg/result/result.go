package result

import (
	"encoding/json"
	"time"

	"mercator-hq/auditor/pkg/benchmark"
	"mercator-hq/auditor/pkg/outcome"
)

// NodeKind distinguishes group nodes from rule leaves.
type NodeKind string

const (
	KindGroup NodeKind = "group"
	KindRule  NodeKind = "rule"
)

// CheckResult records the outcome of one dispatched check.
type CheckResult struct {
	System  string          `json:"system"`
	Href    string          `json:"href,omitempty"`
	Name    string          `json:"name,omitempty"`
	Outcome outcome.Outcome `json:"outcome"`
	Error   string          `json:"error,omitempty"`
}

// Node is a group or rule in the result tree.
type Node struct {
	ID       string           `json:"id"`
	Kind     NodeKind         `json:"kind"`
	Title    string           `json:"title,omitempty"`
	Outcome  outcome.Outcome  `json:"outcome"`
	Operator outcome.Operator `json:"operator,omitempty"`

	// Rule attributes after tailoring.
	Weight   float64        `json:"weight,omitempty"`
	Severity string         `json:"severity,omitempty"`
	Role     benchmark.Role `json:"role,omitempty"`
	Checks   []CheckResult  `json:"checks,omitempty"`
	Time     time.Time      `json:"time,omitempty"`

	Children []*Node `json:"children,omitempty"`
}

// RuleResult is the tailored outcome of one rule, as handed to the Builder.
type RuleResult struct {
	Outcome  outcome.Outcome
	Weight   float64
	Severity string
	Role     benchmark.Role
	Checks   []CheckResult
	Time     time.Time
}

// Clone returns a deep copy of n and its subtree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Checks = append([]CheckResult(nil), n.Checks...)
	c.Children = cloneNodes(n.Children)
	return &c
}

func cloneNodes(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// TestResult is the immutable outcome tree of one evaluation. Accessors
// returning nodes hand out copies.
type TestResult struct {
	id          string
	benchmarkID string
	profileID   string
	startTime   time.Time
	endTime     time.Time
	outcome     outcome.Outcome
	nodes       []*Node

	index map[string]*Node
	rules []*Node
}

// ID returns the result identifier.
func (r *TestResult) ID() string { return r.id }

// BenchmarkID returns the evaluated benchmark.
func (r *TestResult) BenchmarkID() string { return r.benchmarkID }

// ProfileID returns the evaluated profile, empty for benchmark defaults.
func (r *TestResult) ProfileID() string { return r.profileID }

// StartTime returns when evaluation began.
func (r *TestResult) StartTime() time.Time { return r.startTime }

// EndTime returns when evaluation finished.
func (r *TestResult) EndTime() time.Time { return r.endTime }

// Outcome returns the benchmark-level outcome.
func (r *TestResult) Outcome() outcome.Outcome { return r.outcome }

// Nodes returns the top-level nodes in document order.
func (r *TestResult) Nodes() []*Node {
	return cloneNodes(r.nodes)
}

// RuleResults returns the rule leaves in evaluation order.
func (r *TestResult) RuleResults() []*Node {
	return cloneNodes(r.rules)
}

// Node returns the group or rule node with the given ID.
func (r *TestResult) Node(id string) (*Node, bool) {
	n, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Rule returns the rule leaf with the given ID.
func (r *TestResult) Rule(id string) (*Node, bool) {
	n, ok := r.index[id]
	if !ok || n.Kind != KindRule {
		return nil, false
	}
	return n.Clone(), true
}

// Group returns the group node with the given ID.
func (r *TestResult) Group(id string) (*Node, bool) {
	n, ok := r.index[id]
	if !ok || n.Kind != KindGroup {
		return nil, false
	}
	return n.Clone(), true
}

// RuleIDs returns the IDs of every rule leaf in evaluation order.
func (r *TestResult) RuleIDs() []string {
	ids := make([]string, len(r.rules))
	for i, n := range r.rules {
		ids[i] = n.ID
	}
	return ids
}

// Walk visits a copy of every node depth-first. depth is 0 for top-level
// nodes. Returning an error from fn stops the walk.
func (r *TestResult) Walk(fn func(n *Node, depth int) error) error {
	return walkNodes(cloneNodes(r.nodes), fn)
}

func walkNodes(nodes []*Node, fn func(n *Node, depth int) error) error {
	var walk func(nodes []*Node, depth int) error
	walk = func(nodes []*Node, depth int) error {
		for _, n := range nodes {
			if err := fn(n, depth); err != nil {
				return err
			}
			if err := walk(n.Children, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(nodes, 0)
}

// Counts tallies rule outcomes.
func (r *TestResult) Counts() map[outcome.Outcome]int {
	counts := make(map[outcome.Outcome]int)
	for _, n := range r.rules {
		counts[n.Outcome]++
	}
	return counts
}

type testResultJSON struct {
	ID          string          `json:"id"`
	BenchmarkID string          `json:"benchmark_id"`
	ProfileID   string          `json:"profile_id,omitempty"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	Outcome     outcome.Outcome `json:"outcome"`
	Nodes       []*Node         `json:"nodes"`
}

// MarshalJSON implements json.Marshaler.
func (r *TestResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(testResultJSON{
		ID:          r.id,
		BenchmarkID: r.benchmarkID,
		ProfileID:   r.profileID,
		StartTime:   r.startTime,
		EndTime:     r.endTime,
		Outcome:     r.outcome,
		Nodes:       r.nodes,
	})
}

// UnmarshalJSON implements json.Unmarshaler. It rebuilds the lookup index so
// a decoded result behaves like one produced by a Builder.
func (r *TestResult) UnmarshalJSON(data []byte) error {
	var doc testResultJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*r = TestResult{
		id:          doc.ID,
		benchmarkID: doc.BenchmarkID,
		profileID:   doc.ProfileID,
		startTime:   doc.StartTime,
		endTime:     doc.EndTime,
		outcome:     doc.Outcome,
		nodes:       doc.Nodes,
	}
	r.reindex()
	return nil
}

func (r *TestResult) reindex() {
	r.index = make(map[string]*Node)
	r.rules = nil
	_ = walkNodes(r.nodes, func(n *Node, _ int) error {
		r.index[n.ID] = n
		if n.Kind == KindRule {
			r.rules = append(r.rules, n)
		}
		return nil
	})
}
