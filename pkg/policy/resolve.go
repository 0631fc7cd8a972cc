package policy

import (
	"context"
	"fmt"

	"mercator-hq/auditor/pkg/benchmark"
)

// Resolve returns a detached copy of the benchmark with p's tailoring baked
// in: effective selections, refined rule attributes and bound values. The
// copy carries no profiles. The model's benchmark is not modified.
func (m *Model) Resolve(ctx context.Context, p *Policy) (*benchmark.Benchmark, error) {
	if p == nil || p.model != m {
		return nil, ErrUnknownPolicy
	}
	if err := p.slot.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("resolve policy %s: %w", p.id, err)
	}
	defer p.slot.Release(1)

	effective := p.effectiveSelections()
	c := m.bench.Clone()
	c.Profiles = nil

	if err := c.Walk(func(item *benchmark.Item) error {
		return p.tailorInto(item, effective)
	}); err != nil {
		return nil, err
	}
	return c, nil
}

// TailorItem returns a tailored copy of one item and its descendants.
func (m *Model) TailorItem(p *Policy, id string) (*benchmark.Item, error) {
	if p == nil || p.model != m {
		return nil, ErrUnknownPolicy
	}
	item, ok := m.bench.Item(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}

	effective := p.effectiveSelections()
	c := item.Clone()
	var tailor func(it *benchmark.Item) error
	tailor = func(it *benchmark.Item) error {
		if err := p.tailorInto(it, effective); err != nil {
			return err
		}
		for _, child := range it.Children {
			if err := tailor(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := tailor(c); err != nil {
		return nil, err
	}
	return c, nil
}

// tailorInto rewrites a cloned item's attributes to their resolved form.
func (p *Policy) tailorInto(item *benchmark.Item, effective map[string]bool) error {
	switch item.Type {
	case benchmark.TypeGroup:
		item.Selected = benchmark.Bool(effective[item.ID])
		t := p.tailoring(item)
		item.Weight = benchmark.Float(t.weight)

	case benchmark.TypeRule:
		item.Selected = benchmark.Bool(effective[item.ID])
		t := p.tailoring(item)
		item.Weight = benchmark.Float(t.weight)
		item.Severity = t.severity
		item.Role = t.role
		if item.ComplexCheck == nil {
			item.Checks = checksFor(item, t.selector)
		}

	case benchmark.TypeValue:
		vb, err := p.ResolveValue(item.ID)
		if err != nil {
			return err
		}
		item.ValueOperator = vb.Operator()
		item.Values = map[string]string{"": vb.Value()}
	}
	return nil
}
