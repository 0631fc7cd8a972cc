package benchmark

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mercator-hq/auditor/pkg/outcome"
)

type document struct {
	ID          string            `yaml:"id"`
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	Version     string            `yaml:"version"`
	Items       []itemDocument    `yaml:"items"`
	Profiles    []profileDocument `yaml:"profiles"`
}

type itemDocument struct {
	Type        string         `yaml:"type"`
	ID          string         `yaml:"id"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Selected    *bool          `yaml:"selected"`
	Weight      *float64       `yaml:"weight"`
	Operator    string         `yaml:"operator"`
	Items       []itemDocument `yaml:"items"`

	Severity     string                `yaml:"severity"`
	Role         string                `yaml:"role"`
	Checks       []checkDocument       `yaml:"checks"`
	ComplexCheck *complexCheckDocument `yaml:"complex_check"`

	ValueType string            `yaml:"value_type"`
	Value     *string           `yaml:"value"`
	Instances map[string]string `yaml:"instances"`
}

type checkDocument struct {
	ID         string `yaml:"id"`
	System     string `yaml:"system"`
	Selector   string `yaml:"selector"`
	Negate     bool   `yaml:"negate"`
	MultiCheck bool   `yaml:"multi_check"`
	Content    []struct {
		Href string `yaml:"href"`
		Name string `yaml:"name"`
	} `yaml:"content"`
	Exports []struct {
		Value string `yaml:"value"`
		Name  string `yaml:"name"`
	} `yaml:"exports"`
}

type complexCheckDocument struct {
	Operator string                 `yaml:"operator"`
	Negate   bool                   `yaml:"negate"`
	Checks   []checkDocument        `yaml:"checks"`
	Complex  []complexCheckDocument `yaml:"complex"`
}

type profileDocument struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Extends     string `yaml:"extends"`
	Select      []struct {
		IDRef    string `yaml:"idref"`
		Selected bool   `yaml:"selected"`
	} `yaml:"select"`
	RefineRule []struct {
		IDRef    string   `yaml:"idref"`
		Weight   *float64 `yaml:"weight"`
		Severity string   `yaml:"severity"`
		Role     string   `yaml:"role"`
		Selector string   `yaml:"selector"`
	} `yaml:"refine_rule"`
	RefineValue []struct {
		IDRef    string `yaml:"idref"`
		Selector string `yaml:"selector"`
		Operator string `yaml:"operator"`
	} `yaml:"refine_value"`
	SetValue []struct {
		IDRef string `yaml:"idref"`
		Value string `yaml:"value"`
	} `yaml:"set_value"`
}

// Load reads and builds a benchmark from a YAML document on disk.
func Load(path string) (*Benchmark, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Cause: err}
	}
	b, err := Parse(data)
	if err != nil {
		return nil, &LoadError{Path: path, Cause: err}
	}
	return b, nil
}

// Parse builds a benchmark from a YAML document.
func Parse(data []byte) (*Benchmark, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse benchmark document: %w", err)
	}
	if doc.ID == "" {
		return nil, fmt.Errorf("benchmark document has no id")
	}

	items, err := convertItems(doc.Items)
	if err != nil {
		return nil, err
	}

	profiles := make([]*Profile, 0, len(doc.Profiles))
	for _, pd := range doc.Profiles {
		p, err := convertProfile(pd)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	b, err := New(doc.ID, items, profiles...)
	if err != nil {
		return nil, err
	}
	b.Title = doc.Title
	b.Description = doc.Description
	b.Version = doc.Version
	return b, nil
}

func convertItems(docs []itemDocument) ([]*Item, error) {
	items := make([]*Item, 0, len(docs))
	for _, d := range docs {
		item, err := convertItem(d)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func convertItem(d itemDocument) (*Item, error) {
	item := &Item{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Selected:    d.Selected,
		Weight:      d.Weight,
	}

	switch d.Type {
	case "group":
		item.Type = TypeGroup
		op, err := outcome.ParseOperator(d.Operator)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", d.ID, err)
		}
		item.Operator = op
		children, err := convertItems(d.Items)
		if err != nil {
			return nil, err
		}
		item.Children = children

	case "rule":
		item.Type = TypeRule
		item.Severity = d.Severity
		item.Role = Role(d.Role)
		for _, cd := range d.Checks {
			item.Checks = append(item.Checks, convertCheck(cd))
		}
		if d.ComplexCheck != nil {
			cc, err := convertComplexCheck(*d.ComplexCheck)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", d.ID, err)
			}
			item.ComplexCheck = cc
		}

	case "value":
		item.Type = TypeValue
		item.ValueType = ValueType(d.ValueType)
		if item.ValueType == "" {
			item.ValueType = ValueTypeString
		}
		item.ValueOperator = ValueOperator(d.Operator)
		if item.ValueOperator == "" {
			item.ValueOperator = OpEquals
		}
		item.Values = make(map[string]string, len(d.Instances)+1)
		for selector, v := range d.Instances {
			item.Values[selector] = v
		}
		if d.Value != nil {
			item.Values[""] = *d.Value
		}

	default:
		return nil, fmt.Errorf("item %q: unknown type %q", d.ID, d.Type)
	}

	return item, nil
}

func convertCheck(d checkDocument) *Check {
	chk := &Check{
		ID:         d.ID,
		System:     d.System,
		Selector:   d.Selector,
		Negate:     d.Negate,
		MultiCheck: d.MultiCheck,
	}
	for _, c := range d.Content {
		chk.ContentRefs = append(chk.ContentRefs, ContentRef{Href: c.Href, Name: c.Name})
	}
	for _, e := range d.Exports {
		chk.Exports = append(chk.Exports, Export{ValueID: e.Value, Name: e.Name})
	}
	return chk
}

func convertComplexCheck(d complexCheckDocument) (*ComplexCheck, error) {
	op, err := outcome.ParseOperator(d.Operator)
	if err != nil {
		return nil, fmt.Errorf("complex check: %w", err)
	}
	cc := &ComplexCheck{Operator: op, Negate: d.Negate}
	for _, cd := range d.Checks {
		cc.Checks = append(cc.Checks, convertCheck(cd))
	}
	for _, nested := range d.Complex {
		n, err := convertComplexCheck(nested)
		if err != nil {
			return nil, err
		}
		cc.Complex = append(cc.Complex, n)
	}
	return cc, nil
}

func convertProfile(d profileDocument) (*Profile, error) {
	if d.ID == "" {
		return nil, fmt.Errorf("profile without id")
	}
	p := &Profile{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Extends:     d.Extends,
	}
	for _, s := range d.Select {
		p.Selects = append(p.Selects, Select{IDRef: s.IDRef, Selected: s.Selected})
	}
	for _, r := range d.RefineRule {
		role := Role(r.Role)
		if !role.Valid() {
			return nil, fmt.Errorf("profile %q: refine-rule %q: unknown role %q", d.ID, r.IDRef, r.Role)
		}
		p.RefineRules = append(p.RefineRules, RefineRule{
			IDRef:    r.IDRef,
			Weight:   r.Weight,
			Severity: r.Severity,
			Role:     role,
			Selector: r.Selector,
		})
	}
	for _, r := range d.RefineValue {
		p.RefineValues = append(p.RefineValues, RefineValue{
			IDRef:    r.IDRef,
			Selector: r.Selector,
			Operator: ValueOperator(r.Operator),
		})
	}
	for _, s := range d.SetValue {
		p.SetValues = append(p.SetValues, SetValue{IDRef: s.IDRef, Value: s.Value})
	}
	return p, nil
}
