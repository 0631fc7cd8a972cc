package result

import (
	"time"

	"mercator-hq/auditor/pkg/benchmark"
	"mercator-hq/auditor/pkg/outcome"
)

// Builder assembles a TestResult. Rules must be added in document order so
// that group nodes appear in the order of their first evaluated rule.
type Builder struct {
	res      *TestResult
	finished bool
}

// NewBuilder starts a result.
func NewBuilder(id, benchmarkID, profileID string, start time.Time) *Builder {
	return &Builder{
		res: &TestResult{
			id:          id,
			benchmarkID: benchmarkID,
			profileID:   profileID,
			startTime:   start,
			index:       make(map[string]*Node),
		},
	}
}

// AddRule records the outcome of rule under its ancestor groups, creating
// group nodes as needed. Adding the same rule twice replaces the earlier
// outcome.
func (b *Builder) AddRule(rule *benchmark.Item, rr RuleResult) {
	if b.finished {
		panic("result: AddRule called after Finish")
	}

	if existing, ok := b.res.index[rule.ID]; ok && existing.Kind == KindRule {
		fillRule(existing, rule, rr)
		return
	}

	leaf := &Node{ID: rule.ID, Kind: KindRule}
	fillRule(leaf, rule, rr)
	b.res.index[rule.ID] = leaf
	b.res.rules = append(b.res.rules, leaf)

	siblings := &b.res.nodes
	ancestors := rule.Ancestors()
	for i := len(ancestors) - 1; i >= 0; i-- {
		group := ancestors[i]
		node, ok := b.res.index[group.ID]
		if !ok {
			node = &Node{
				ID:       group.ID,
				Kind:     KindGroup,
				Title:    group.Title,
				Operator: group.GroupOperator(),
			}
			b.res.index[group.ID] = node
			*siblings = append(*siblings, node)
		}
		siblings = &node.Children
	}
	*siblings = append(*siblings, leaf)
}

func fillRule(n *Node, rule *benchmark.Item, rr RuleResult) {
	n.Title = rule.Title
	n.Outcome = rr.Outcome
	n.Weight = rr.Weight
	n.Severity = rr.Severity
	n.Role = rr.Role
	n.Checks = append([]CheckResult(nil), rr.Checks...)
	n.Time = rr.Time
}

// Finish folds group outcomes bottom-up and returns the completed result.
// The Builder must not be used afterwards.
func (b *Builder) Finish(end time.Time) *TestResult {
	b.finished = true
	b.res.endTime = end

	top := make([]outcome.Outcome, 0, len(b.res.nodes))
	for _, n := range b.res.nodes {
		top = append(top, foldNode(n))
	}
	b.res.outcome = outcome.Fold(outcome.OperatorAnd, top...)
	return b.res
}

func foldNode(n *Node) outcome.Outcome {
	if n.Kind == KindRule {
		return n.Outcome
	}
	children := make([]outcome.Outcome, 0, len(n.Children))
	for _, c := range n.Children {
		children = append(children, foldNode(c))
	}
	n.Outcome = outcome.Fold(n.Operator, children...)
	return n.Outcome
}
