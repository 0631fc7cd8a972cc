package benchmark

import (
	"fmt"
)

// Benchmark is the root of the item tree.
type Benchmark struct {
	ID          string
	Title       string
	Description string
	Version     string

	// Items are the top-level items in document order.
	Items []*Item

	// Profiles in document order, with extends already flattened.
	Profiles []*Profile

	index map[string]*Item
}

// New builds a benchmark from top-level items and profiles. It links parent
// pointers, indexes items by ID and flattens profile inheritance. Structural
// problems (duplicate IDs, children under rules, bad value types) are
// reported together as a *StructureError.
func New(id string, items []*Item, profiles ...*Profile) (*Benchmark, error) {
	b := &Benchmark{
		ID:       id,
		Items:    items,
		Profiles: profiles,
	}
	if err := b.build(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Benchmark) build() error {
	b.index = make(map[string]*Item)
	var problems []string

	var link func(parent *Item, items []*Item)
	link = func(parent *Item, items []*Item) {
		for _, item := range items {
			item.Parent = parent
			if item.ID == "" {
				problems = append(problems, fmt.Sprintf("%s without id", item.Type))
			} else if _, dup := b.index[item.ID]; dup {
				problems = append(problems, fmt.Sprintf("%v: %q", ErrDuplicateID, item.ID))
			} else {
				b.index[item.ID] = item
			}
			problems = append(problems, checkItem(item)...)
			link(item, item.Children)
		}
	}
	link(nil, b.Items)

	if err := b.flattenProfiles(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return &StructureError{BenchmarkID: b.ID, Errors: problems}
	}
	return nil
}

func checkItem(item *Item) []string {
	var problems []string
	switch item.Type {
	case TypeGroup:
	case TypeRule:
		if len(item.Children) > 0 {
			problems = append(problems, fmt.Sprintf("rule %q cannot contain items", item.ID))
		}
		if !item.Role.Valid() {
			problems = append(problems, fmt.Sprintf("rule %q: unknown role %q", item.ID, item.Role))
		}
	case TypeValue:
		if len(item.Children) > 0 {
			problems = append(problems, fmt.Sprintf("value %q cannot contain items", item.ID))
		}
		if !item.ValueType.Valid() {
			problems = append(problems, fmt.Sprintf("value %q: unknown type %q", item.ID, item.ValueType))
		} else if item.ValueOperator != "" && !item.ValueOperator.LegalFor(item.ValueType) {
			problems = append(problems, fmt.Sprintf("value %q: operator %q not legal for type %s", item.ID, item.ValueOperator, item.ValueType))
		}
	default:
		problems = append(problems, fmt.Sprintf("item %q: unknown type %d", item.ID, int(item.Type)))
	}
	return problems
}

// flattenProfiles prepends every ancestor's entries to each profile so later
// lookups never have to follow extends.
func (b *Benchmark) flattenProfiles() error {
	byID := make(map[string]*Profile, len(b.Profiles))
	for _, p := range b.Profiles {
		byID[p.ID] = p
	}

	done := make(map[string]bool)
	visiting := make(map[string]bool)

	var flatten func(p *Profile) error
	flatten = func(p *Profile) error {
		if done[p.ID] || p.Extends == "" {
			done[p.ID] = true
			return nil
		}
		if visiting[p.ID] {
			return fmt.Errorf("%w at %q", ErrProfileCycle, p.ID)
		}
		visiting[p.ID] = true
		parent, ok := byID[p.Extends]
		if !ok {
			return fmt.Errorf("profile %q extends %w %q", p.ID, ErrUnknownProfile, p.Extends)
		}
		if err := flatten(parent); err != nil {
			return err
		}
		p.Selects = append(append([]Select{}, parent.Selects...), p.Selects...)
		p.RefineRules = append(append([]RefineRule{}, parent.RefineRules...), p.RefineRules...)
		p.RefineValues = append(append([]RefineValue{}, parent.RefineValues...), p.RefineValues...)
		p.SetValues = append(append([]SetValue{}, parent.SetValues...), p.SetValues...)
		done[p.ID] = true
		return nil
	}

	for _, p := range b.Profiles {
		if err := flatten(p); err != nil {
			return err
		}
	}
	return nil
}

// Item returns the item with the given ID.
func (b *Benchmark) Item(id string) (*Item, bool) {
	item, ok := b.index[id]
	return item, ok
}

// Profile returns the profile with the given ID.
func (b *Benchmark) Profile(id string) (*Profile, error) {
	for _, p := range b.Profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, id)
}

// Walk visits every item depth-first in document order. Returning an error
// from fn stops the walk.
func (b *Benchmark) Walk(fn func(*Item) error) error {
	var walk func(items []*Item) error
	walk = func(items []*Item) error {
		for _, item := range items {
			if err := fn(item); err != nil {
				return err
			}
			if err := walk(item.Children); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(b.Items)
}

// Rules returns every rule in document order.
func (b *Benchmark) Rules() []*Item {
	var rules []*Item
	_ = b.Walk(func(item *Item) error {
		if item.Type == TypeRule {
			rules = append(rules, item)
		}
		return nil
	})
	return rules
}

// Values returns every value item in document order.
func (b *Benchmark) Values() []*Item {
	var values []*Item
	_ = b.Walk(func(item *Item) error {
		if item.Type == TypeValue {
			values = append(values, item)
		}
		return nil
	})
	return values
}

// Clone returns a deep copy with its own parent links and index. Profiles are
// copied as well; the copy shares nothing mutable with b.
func (b *Benchmark) Clone() *Benchmark {
	c := &Benchmark{
		ID:          b.ID,
		Title:       b.Title,
		Description: b.Description,
		Version:     b.Version,
		Items:       cloneItems(b.Items),
		index:       make(map[string]*Item, len(b.index)),
	}
	for _, p := range b.Profiles {
		c.Profiles = append(c.Profiles, p.clone())
	}

	var link func(parent *Item, items []*Item)
	link = func(parent *Item, items []*Item) {
		for _, item := range items {
			item.Parent = parent
			c.index[item.ID] = item
			link(item, item.Children)
		}
	}
	link(nil, c.Items)
	return c
}

func cloneItems(items []*Item) []*Item {
	if items == nil {
		return nil
	}
	out := make([]*Item, len(items))
	for idx, item := range items {
		out[idx] = item.Clone()
	}
	return out
}

// Clone returns a deep copy of the item and its descendants. The copy's
// Parent is nil.
func (i *Item) Clone() *Item {
	c := *i
	c.Parent = nil
	if i.Selected != nil {
		v := *i.Selected
		c.Selected = &v
	}
	if i.Weight != nil {
		v := *i.Weight
		c.Weight = &v
	}
	if i.Values != nil {
		c.Values = make(map[string]string, len(i.Values))
		for k, v := range i.Values {
			c.Values[k] = v
		}
	}
	c.Checks = cloneChecks(i.Checks)
	if i.ComplexCheck != nil {
		c.ComplexCheck = i.ComplexCheck.clone()
	}
	c.Children = cloneItems(i.Children)
	for _, child := range c.Children {
		child.Parent = &c
	}
	return &c
}

func cloneChecks(checks []*Check) []*Check {
	if checks == nil {
		return nil
	}
	out := make([]*Check, len(checks))
	for idx, chk := range checks {
		cp := *chk
		cp.ContentRefs = append([]ContentRef(nil), chk.ContentRefs...)
		cp.Exports = append([]Export(nil), chk.Exports...)
		out[idx] = &cp
	}
	return out
}

func (c *ComplexCheck) clone() *ComplexCheck {
	cp := &ComplexCheck{
		Operator: c.Operator,
		Negate:   c.Negate,
		Checks:   cloneChecks(c.Checks),
	}
	for _, nested := range c.Complex {
		cp.Complex = append(cp.Complex, nested.clone())
	}
	return cp
}

func (p *Profile) clone() *Profile {
	cp := *p
	cp.Selects = append([]Select(nil), p.Selects...)
	cp.RefineRules = append([]RefineRule(nil), p.RefineRules...)
	cp.RefineValues = append([]RefineValue(nil), p.RefineValues...)
	cp.SetValues = append([]SetValue(nil), p.SetValues...)
	return &cp
}

// Bool returns a pointer to v, for declaring Item.Selected.
func Bool(v bool) *bool {
	return &v
}

// Float returns a pointer to v, for declaring Item.Weight.
func Float(v float64) *float64 {
	return &v
}
