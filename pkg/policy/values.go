package policy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mercator-hq/auditor/pkg/benchmark"
)

// ValueBinding is a value item resolved under a policy.
type ValueBinding struct {
	name     string
	valueID  string
	value    string
	typ      benchmark.ValueType
	operator benchmark.ValueOperator
	selector string
	setValue bool
}

// Name returns the export name, or the value ID when the binding was not
// produced for a check export.
func (v *ValueBinding) Name() string { return v.name }

// ValueID returns the ID of the value item.
func (v *ValueBinding) ValueID() string { return v.valueID }

// Value returns the resolved literal.
func (v *ValueBinding) Value() string { return v.value }

// Type returns the declared value type.
func (v *ValueBinding) Type() benchmark.ValueType { return v.typ }

// Operator returns the comparison operator checks should apply.
func (v *ValueBinding) Operator() benchmark.ValueOperator { return v.operator }

// Selector returns the instance selector the literal was taken from.
func (v *ValueBinding) Selector() string { return v.selector }

// IsSetValue reports whether the literal came from a set-value.
func (v *ValueBinding) IsSetValue() bool { return v.setValue }

func (v *ValueBinding) named(name string) *ValueBinding {
	cp := *v
	cp.name = name
	return &cp
}

// Equal reports whether two bindings carry the same resolution.
func (v *ValueBinding) Equal(o *ValueBinding) bool {
	if v == nil || o == nil {
		return v == o
	}
	return *v == *o
}

// ResolveValue computes the binding of a value item under this policy.
func (p *Policy) ResolveValue(valueID string) (*ValueBinding, error) {
	item, ok := p.model.bench.Item(valueID)
	if !ok || item.Type != benchmark.TypeValue {
		return nil, fmt.Errorf("%w: %q", ErrUnknownValueID, valueID)
	}

	vb := &ValueBinding{
		name:     valueID,
		valueID:  valueID,
		typ:      item.ValueType,
		operator: item.ValueOperator,
	}
	if vb.operator == "" {
		vb.operator = benchmark.OpEquals
	}

	if p.profile != nil {
		for _, rv := range p.profile.RefineValues {
			if rv.IDRef != valueID {
				continue
			}
			if rv.Operator != "" {
				if !rv.Operator.LegalFor(item.ValueType) {
					return nil, &RefinementError{
						ValueID:  valueID,
						Operator: string(rv.Operator),
						Reason:   fmt.Sprintf("operator %q is not legal for %s values", rv.Operator, item.ValueType),
					}
				}
				vb.operator = rv.Operator
			}
			if rv.Selector != "" {
				if _, ok := item.Values[rv.Selector]; !ok {
					return nil, &RefinementError{
						ValueID:  valueID,
						Selector: rv.Selector,
						Reason:   fmt.Sprintf("selector %q is not defined", rv.Selector),
					}
				}
				vb.selector = rv.Selector
			}
		}
	}
	vb.value = item.Values[vb.selector]

	if p.profile != nil {
		for _, sv := range p.profile.SetValues {
			if sv.IDRef == valueID {
				vb.value = sv.Value
				vb.setValue = true
			}
		}
	}

	p.mu.RLock()
	for _, sv := range p.setValues {
		if sv.IDRef == valueID {
			vb.value = sv.Value
			vb.setValue = true
		}
	}
	p.mu.RUnlock()

	return vb, nil
}

// SetValue overrides the literal of a value item for this policy. It takes
// precedence over the profile's set-value entries.
func (p *Policy) SetValue(valueID, value string) error {
	item, ok := p.model.bench.Item(valueID)
	if !ok || item.Type != benchmark.TypeValue {
		return fmt.Errorf("%w: %q", ErrUnknownValueID, valueID)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setValues = append(p.setValues, benchmark.SetValue{IDRef: valueID, Value: value})
	return nil
}

// Values resolves every value the policy refers to: those named by the
// profile and those exported by checks of selected rules. The order is
// first reference.
func (p *Policy) Values() ([]*ValueBinding, error) {
	var ids []string
	seen := make(map[string]bool)
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if p.profile != nil {
		for _, rv := range p.profile.RefineValues {
			add(rv.IDRef)
		}
		for _, sv := range p.profile.SetValues {
			add(sv.IDRef)
		}
	}
	p.mu.RLock()
	for _, sv := range p.setValues {
		add(sv.IDRef)
	}
	p.mu.RUnlock()

	for _, rule := range p.SelectedRules() {
		addExports := func(chk *benchmark.Check) {
			for _, exp := range chk.Exports {
				add(exp.ValueID)
			}
		}
		for _, chk := range rule.Checks {
			addExports(chk)
		}
		if rule.ComplexCheck != nil {
			rule.ComplexCheck.Walk(addExports)
		}
	}

	out := make([]*ValueBinding, 0, len(ids))
	for _, id := range ids {
		vb, err := p.ResolveValue(id)
		if err != nil {
			return nil, err
		}
		out = append(out, vb)
	}
	return out, nil
}

// exports resolves the values a check exports, named as the engine expects.
func (p *Policy) exports(chk *benchmark.Check) ([]*ValueBinding, error) {
	if len(chk.Exports) == 0 {
		return nil, nil
	}
	out := make([]*ValueBinding, 0, len(chk.Exports))
	for _, exp := range chk.Exports {
		vb, err := p.ResolveValue(exp.ValueID)
		if err != nil {
			return nil, err
		}
		name := exp.Name
		if name == "" {
			name = exp.ValueID
		}
		out = append(out, vb.named(name))
	}
	return out, nil
}

// listSeparator splits string values for subset-of and superset-of.
const listSeparator = ","

// Compare applies the binding's operator with actual on the left and the
// bound literal on the right.
func (v *ValueBinding) Compare(actual string) (bool, error) {
	switch v.typ {
	case benchmark.ValueTypeNumber:
		return compareNumber(v.operator, actual, v.value)
	case benchmark.ValueTypeBoolean:
		return compareBool(v.operator, actual, v.value)
	default:
		return compareString(v.operator, actual, v.value)
	}
}

func compareNumber(op benchmark.ValueOperator, actual, expected string) (bool, error) {
	a, err := strconv.ParseFloat(strings.TrimSpace(actual), 64)
	if err != nil {
		return false, fmt.Errorf("actual %q is not a number: %w", actual, err)
	}
	e, err := strconv.ParseFloat(strings.TrimSpace(expected), 64)
	if err != nil {
		return false, fmt.Errorf("bound value %q is not a number: %w", expected, err)
	}
	switch op {
	case benchmark.OpEquals:
		return a == e, nil
	case benchmark.OpNotEqual:
		return a != e, nil
	case benchmark.OpGreaterThan:
		return a > e, nil
	case benchmark.OpLessThan:
		return a < e, nil
	default:
		return false, fmt.Errorf("operator %q not supported for numbers", op)
	}
}

func compareBool(op benchmark.ValueOperator, actual, expected string) (bool, error) {
	a, err := strconv.ParseBool(strings.TrimSpace(actual))
	if err != nil {
		return false, fmt.Errorf("actual %q is not a boolean: %w", actual, err)
	}
	e, err := strconv.ParseBool(strings.TrimSpace(expected))
	if err != nil {
		return false, fmt.Errorf("bound value %q is not a boolean: %w", expected, err)
	}
	switch op {
	case benchmark.OpEquals:
		return a == e, nil
	case benchmark.OpNotEqual:
		return a != e, nil
	default:
		return false, fmt.Errorf("operator %q not supported for booleans", op)
	}
}

func compareString(op benchmark.ValueOperator, actual, expected string) (bool, error) {
	switch op {
	case benchmark.OpEquals:
		return actual == expected, nil
	case benchmark.OpNotEqual:
		return actual != expected, nil
	case benchmark.OpPatternMatch:
		re, err := regexp.Compile(expected)
		if err != nil {
			return false, fmt.Errorf("invalid pattern %q: %w", expected, err)
		}
		return re.MatchString(actual), nil
	case benchmark.OpSubsetOf:
		return containsAll(splitList(expected), splitList(actual)), nil
	case benchmark.OpSupersetOf:
		return containsAll(splitList(actual), splitList(expected)), nil
	default:
		return false, fmt.Errorf("operator %q not supported for strings", op)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, listSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// containsAll reports whether every element of sub is in set.
func containsAll(set, sub []string) bool {
	members := make(map[string]bool, len(set))
	for _, s := range set {
		members[s] = true
	}
	for _, s := range sub {
		if !members[s] {
			return false
		}
	}
	return true
}
