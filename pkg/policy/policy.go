package policy

import (
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"mercator-hq/auditor/pkg/benchmark"
	"mercator-hq/auditor/pkg/result"
)

// Policy is a profile applied to the model's benchmark.
type Policy struct {
	model   *Model
	id      string
	profile *benchmark.Profile

	// slot admits one Evaluate or Resolve at a time.
	slot *semaphore.Weighted

	mu        sync.RWMutex
	selects   []benchmark.Select
	setValues []benchmark.SetValue
	results   []*result.TestResult
}

func newPolicy(m *Model, profile *benchmark.Profile) *Policy {
	p := &Policy{
		model:   m,
		id:      DefaultPolicyID,
		profile: profile,
		slot:    semaphore.NewWeighted(1),
	}
	if profile != nil {
		p.id = profile.ID
		p.selects = append(p.selects, profile.Selects...)
	}
	return p
}

// ID returns the profile ID, or DefaultPolicyID.
func (p *Policy) ID() string { return p.id }

// Profile returns the profile, nil for the default policy.
func (p *Policy) Profile() *benchmark.Profile { return p.profile }

// Model returns the owning model.
func (p *Policy) Model() *Model { return p.model }

func (p *Policy) profileID() string {
	if p.profile == nil {
		return ""
	}
	return p.profile.ID
}

// validate checks that every ID the profile references exists with the
// right item type.
func (p *Policy) validate() error {
	if p.profile == nil {
		return nil
	}
	b := p.model.bench
	var errs []error

	selectable := func(kind, id string) {
		item, ok := b.Item(id)
		if !ok {
			errs = append(errs, fmt.Errorf("%s %w %q", kind, ErrUnknownItem, id))
			return
		}
		if item.Type == benchmark.TypeValue {
			errs = append(errs, fmt.Errorf("%s %q: %w: value items cannot be selected", kind, id, ErrUnknownItem))
		}
	}
	valueRef := func(kind, id string) {
		item, ok := b.Item(id)
		if !ok {
			errs = append(errs, fmt.Errorf("%s %w %q", kind, ErrUnknownItem, id))
			return
		}
		if item.Type != benchmark.TypeValue {
			errs = append(errs, fmt.Errorf("%s %w %q: item is a %s", kind, ErrUnknownValueID, id, item.Type))
		}
	}

	for _, sel := range p.profile.Selects {
		selectable("select", sel.IDRef)
	}
	for _, rr := range p.profile.RefineRules {
		selectable("refine-rule", rr.IDRef)
		if !rr.Role.Valid() {
			errs = append(errs, fmt.Errorf("refine-rule %q: unknown role %q", rr.IDRef, rr.Role))
		}
	}
	for _, rv := range p.profile.RefineValues {
		valueRef("refine-value", rv.IDRef)
	}
	for _, sv := range p.profile.SetValues {
		valueRef("set-value", sv.IDRef)
	}

	if len(errs) > 0 {
		return &ValidationError{PolicyID: p.id, Errors: errs}
	}
	return nil
}

// AddSelect records an explicit selection. Later selections of the same ID
// win.
func (p *Policy) AddSelect(id string, selected bool) error {
	item, ok := p.model.bench.Item(id)
	if !ok || item.Type == benchmark.TypeValue {
		return &ValidationError{
			PolicyID: p.id,
			Errors:   []error{fmt.Errorf("select %w %q", ErrUnknownItem, id)},
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selects = append(p.selects, benchmark.Select{IDRef: id, Selected: selected})
	return nil
}

// SetSelected explicitly selects id.
func (p *Policy) SetSelected(id string) error {
	return p.AddSelect(id, true)
}

// Selects returns the explicit selections in the order they were added.
func (p *Policy) Selects() []benchmark.Select {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]benchmark.Select(nil), p.selects...)
}

// SelectByID returns the winning explicit selection for id.
func (p *Policy) SelectByID(id string) (benchmark.Select, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for i := len(p.selects) - 1; i >= 0; i-- {
		if p.selects[i].IDRef == id {
			return p.selects[i], true
		}
	}
	return benchmark.Select{}, false
}

func (p *Policy) explicitSelections() map[string]bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	explicit := make(map[string]bool, len(p.selects))
	for _, sel := range p.selects {
		explicit[sel.IDRef] = sel.Selected
	}
	return explicit
}

// effectiveSelections computes the selection flag of every group and rule.
func (p *Policy) effectiveSelections() map[string]bool {
	explicit := p.explicitSelections()
	effective := make(map[string]bool)

	var walk func(items []*benchmark.Item, inherited bool)
	walk = func(items []*benchmark.Item, inherited bool) {
		for _, item := range items {
			if item.Type == benchmark.TypeValue {
				continue
			}
			flag, ok := explicit[item.ID]
			if !ok {
				flag = inherited && item.SelectedByDefault()
			}
			effective[item.ID] = flag
			walk(item.Children, flag)
		}
	}
	walk(p.model.bench.Items, true)
	return effective
}

// SelectedRules returns the rules this policy evaluates, in document order.
func (p *Policy) SelectedRules() []*benchmark.Item {
	effective := p.effectiveSelections()
	var rules []*benchmark.Item
	for _, rule := range p.model.bench.Rules() {
		if effective[rule.ID] {
			rules = append(rules, rule)
		}
	}
	return rules
}

// IsSelected reports the effective selection of a group or rule.
func (p *Policy) IsSelected(id string) (bool, error) {
	item, ok := p.model.bench.Item(id)
	if !ok || item.Type == benchmark.TypeValue {
		return false, fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	explicit := p.explicitSelections()

	chain := append([]*benchmark.Item{item}, item.Ancestors()...)
	flag := true
	for i := len(chain) - 1; i >= 0; i-- {
		if sel, ok := explicit[chain[i].ID]; ok {
			flag = sel
		} else {
			flag = flag && chain[i].SelectedByDefault()
		}
	}
	return flag, nil
}

// ruleTailoring is the outcome of refine-rule entries for one item.
type ruleTailoring struct {
	weight   float64
	severity string
	role     benchmark.Role
	selector string
}

func (p *Policy) tailoring(item *benchmark.Item) ruleTailoring {
	t := ruleTailoring{
		weight:   item.EffectiveWeight(),
		severity: item.Severity,
		role:     item.EffectiveRole(),
	}
	if p.profile == nil {
		return t
	}
	for _, rr := range p.profile.RefineRules {
		if rr.IDRef != item.ID {
			continue
		}
		if rr.Weight != nil {
			t.weight = *rr.Weight
		}
		if rr.Severity != "" {
			t.severity = rr.Severity
		}
		if rr.Role != "" {
			t.role = rr.Role
		}
		if rr.Selector != "" {
			t.selector = rr.Selector
		}
	}
	return t
}

// Weight returns the tailored weight of a rule or group.
func (p *Policy) Weight(id string) (float64, error) {
	item, ok := p.model.bench.Item(id)
	if !ok || item.Type == benchmark.TypeValue {
		return 0, fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	return p.tailoring(item).weight, nil
}

// Role returns the tailored role of a rule.
func (p *Policy) Role(id string) (benchmark.Role, error) {
	item, ok := p.model.bench.Item(id)
	if !ok || item.Type != benchmark.TypeRule {
		return "", fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	return p.tailoring(item).role, nil
}

// checksFor returns the simple checks that apply under selector. Checks
// declared for selector win; otherwise the unselected checks are used.
func checksFor(rule *benchmark.Item, selector string) []*benchmark.Check {
	var matched, fallback []*benchmark.Check
	for _, chk := range rule.Checks {
		switch chk.Selector {
		case selector:
			matched = append(matched, chk)
		case "":
			fallback = append(fallback, chk)
		}
	}
	if len(matched) > 0 {
		return matched
	}
	return fallback
}

func (p *Policy) appendResult(r *result.TestResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, r)
}

// Results returns every result produced for this policy, oldest first.
func (p *Policy) Results() []*result.TestResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*result.TestResult(nil), p.results...)
}

// ResultByID returns a result from the policy's history.
func (p *Policy) ResultByID(id string) (*result.TestResult, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, r := range p.results {
		if r.ID() == id {
			return r, true
		}
	}
	return nil, false
}
