package benchmark

import (
	"fmt"

	"mercator-hq/auditor/pkg/outcome"
)

// ItemType identifies the kind of node in the item tree.
type ItemType int

const (
	// TypeGroup is a container of rules, values and other groups.
	TypeGroup ItemType = iota + 1
	// TypeRule is a single checkable requirement.
	TypeRule
	// TypeValue is a named, typed parameter that checks can import.
	TypeValue
)

// String returns the lower-case XCCDF element name.
func (t ItemType) String() string {
	switch t {
	case TypeGroup:
		return "group"
	case TypeRule:
		return "rule"
	case TypeValue:
		return "value"
	default:
		return fmt.Sprintf("itemtype(%d)", int(t))
	}
}

// Role controls how a rule takes part in evaluation and scoring.
type Role string

const (
	// RoleFull rules are checked and scored. This is the default.
	RoleFull Role = "full"
	// RoleUnscored rules are checked but excluded from scores.
	RoleUnscored Role = "unscored"
	// RoleUnchecked rules are not dispatched and report notchecked.
	RoleUnchecked Role = "unchecked"
)

// Valid reports whether r is a known role. The empty role is valid and means
// RoleFull.
func (r Role) Valid() bool {
	switch r {
	case "", RoleFull, RoleUnscored, RoleUnchecked:
		return true
	}
	return false
}

// ValueType is the declared type of a value item.
type ValueType string

const (
	ValueTypeNumber  ValueType = "number"
	ValueTypeString  ValueType = "string"
	ValueTypeBoolean ValueType = "boolean"
)

// Valid reports whether t is a known value type.
func (t ValueType) Valid() bool {
	switch t {
	case ValueTypeNumber, ValueTypeString, ValueTypeBoolean:
		return true
	}
	return false
}

// ValueOperator is the comparison a check should apply to a bound value.
type ValueOperator string

const (
	OpEquals       ValueOperator = "equals"
	OpNotEqual     ValueOperator = "not-equal"
	OpGreaterThan  ValueOperator = "greater-than"
	OpLessThan     ValueOperator = "less-than"
	OpPatternMatch ValueOperator = "pattern-match"
	OpSubsetOf     ValueOperator = "subset-of"
	OpSupersetOf   ValueOperator = "superset-of"
)

var legalOperators = map[ValueType][]ValueOperator{
	ValueTypeNumber:  {OpEquals, OpNotEqual, OpGreaterThan, OpLessThan},
	ValueTypeString:  {OpEquals, OpNotEqual, OpPatternMatch, OpSubsetOf, OpSupersetOf},
	ValueTypeBoolean: {OpEquals, OpNotEqual},
}

// LegalFor reports whether op may be used with values of type t.
func (op ValueOperator) LegalFor(t ValueType) bool {
	for _, legal := range legalOperators[t] {
		if legal == op {
			return true
		}
	}
	return false
}

// Item is a node of the benchmark tree. Which fields are meaningful depends
// on Type.
type Item struct {
	ID          string
	Type        ItemType
	Title       string
	Description string

	// Parent is nil for top-level items.
	Parent *Item

	// Selected is the declared default selection. Nil means selected.
	Selected *bool

	// Weight is the declared scoring weight. Nil means 1.0.
	Weight *float64

	// Children holds the nested items of a group in document order.
	Children []*Item

	// Operator folds child results of a group. Empty means AND.
	Operator outcome.Operator

	// Rule attributes.
	Severity     string
	Role         Role
	Checks       []*Check
	ComplexCheck *ComplexCheck

	// Value attributes. Values maps a selector to a literal; the empty
	// selector is the default instance.
	ValueType     ValueType
	ValueOperator ValueOperator
	Values        map[string]string
}

// SelectedByDefault returns the declared selection, true when undeclared.
func (i *Item) SelectedByDefault() bool {
	if i.Selected == nil {
		return true
	}
	return *i.Selected
}

// EffectiveWeight returns the declared weight, 1.0 when undeclared.
func (i *Item) EffectiveWeight() float64 {
	if i.Weight == nil {
		return 1.0
	}
	return *i.Weight
}

// EffectiveRole returns the declared role, RoleFull when undeclared.
func (i *Item) EffectiveRole() Role {
	if i.Role == "" {
		return RoleFull
	}
	return i.Role
}

// GroupOperator returns the operator used to fold a group's children.
func (i *Item) GroupOperator() outcome.Operator {
	if i.Operator == "" {
		return outcome.OperatorAnd
	}
	return i.Operator
}

// DefaultValue returns the literal of the default ("") instance.
func (i *Item) DefaultValue() string {
	return i.Values[""]
}

// Ancestors returns the chain of parents from the nearest to the top-level
// group.
func (i *Item) Ancestors() []*Item {
	var chain []*Item
	for p := i.Parent; p != nil; p = p.Parent {
		chain = append(chain, p)
	}
	return chain
}

// Check references content evaluated by a checking engine.
type Check struct {
	ID         string
	System     string
	Selector   string
	Negate     bool
	MultiCheck bool

	// ContentRefs are alternatives tried in order.
	ContentRefs []ContentRef

	// Exports bind value items to names understood by the engine.
	Exports []Export
}

// ContentRef points at a named check inside a content document.
type ContentRef struct {
	Href string
	Name string
}

// Export maps a value item to the name an engine imports it under.
type Export struct {
	ValueID string
	Name    string
}

// ComplexCheck combines checks and nested complex checks with a boolean
// operator.
type ComplexCheck struct {
	Operator outcome.Operator
	Negate   bool
	Checks   []*Check
	Complex  []*ComplexCheck
}

// Walk calls fn for every simple check reachable from c.
func (c *ComplexCheck) Walk(fn func(*Check)) {
	for _, chk := range c.Checks {
		fn(chk)
	}
	for _, nested := range c.Complex {
		nested.Walk(fn)
	}
}

// Profile is a named tailoring of the benchmark.
type Profile struct {
	ID          string
	Title       string
	Description string

	// Extends names the parent profile. Entries of the parent precede the
	// profile's own entries once the benchmark is built.
	Extends string

	Selects      []Select
	RefineRules  []RefineRule
	RefineValues []RefineValue
	SetValues    []SetValue
}

// Select overrides the selection of a group or rule.
type Select struct {
	IDRef    string
	Selected bool
}

// RefineRule overrides rule attributes. Zero fields leave the attribute
// untouched.
type RefineRule struct {
	IDRef    string
	Weight   *float64
	Severity string
	Role     Role
	Selector string
}

// RefineValue picks a value instance and comparison operator.
type RefineValue struct {
	IDRef    string
	Selector string
	Operator ValueOperator
}

// SetValue overrides the literal of a value.
type SetValue struct {
	IDRef string
	Value string
}
