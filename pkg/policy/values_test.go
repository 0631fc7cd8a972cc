package policy

import (
	"errors"
	"testing"

	"mercator-hq/auditor/pkg/benchmark"
)

func valueBenchmark(t *testing.T, profiles ...*benchmark.Profile) *benchmark.Benchmark {
	t.Helper()
	return mustBenchmark(t, []*benchmark.Item{
		{ID: "min_len", Type: benchmark.TypeValue, ValueType: benchmark.ValueTypeNumber,
			ValueOperator: benchmark.OpGreaterThan,
			Values:        map[string]string{"": "8", "strict": "14"}},
		{ID: "algo", Type: benchmark.TypeValue, ValueType: benchmark.ValueTypeString,
			Values: map[string]string{"": "sha512"}},
		{ID: "enabled", Type: benchmark.TypeValue, ValueType: benchmark.ValueTypeBoolean,
			Values: map[string]string{"": "true"}},
		{ID: "r1", Type: benchmark.TypeRule, Checks: []*benchmark.Check{{
			System:  sysA,
			Exports: []benchmark.Export{{ValueID: "min_len", Name: "MIN"}, {ValueID: "algo"}},
		}}},
	}, profiles...)
}

func TestResolveValue(t *testing.T) {
	tests := []struct {
		name      string
		profile   *benchmark.Profile
		id        string
		wantValue string
		wantOp    benchmark.ValueOperator
		wantSet   bool
	}{
		{
			name:      "defaults",
			id:        "min_len",
			wantValue: "8",
			wantOp:    benchmark.OpGreaterThan,
		},
		{
			name:      "undeclared operator is equals",
			id:        "algo",
			wantValue: "sha512",
			wantOp:    benchmark.OpEquals,
		},
		{
			name: "refine value selects instance and operator",
			profile: &benchmark.Profile{ID: "p", RefineValues: []benchmark.RefineValue{
				{IDRef: "min_len", Selector: "strict", Operator: benchmark.OpEquals},
			}},
			id:        "min_len",
			wantValue: "14",
			wantOp:    benchmark.OpEquals,
		},
		{
			name: "last refinement wins",
			profile: &benchmark.Profile{ID: "p", RefineValues: []benchmark.RefineValue{
				{IDRef: "min_len", Selector: "strict", Operator: benchmark.OpEquals},
				{IDRef: "min_len", Operator: benchmark.OpLessThan},
			}},
			id:        "min_len",
			wantValue: "14",
			wantOp:    benchmark.OpLessThan,
		},
		{
			name: "set value overrides selector",
			profile: &benchmark.Profile{ID: "p",
				RefineValues: []benchmark.RefineValue{{IDRef: "min_len", Selector: "strict"}},
				SetValues:    []benchmark.SetValue{{IDRef: "min_len", Value: "20"}, {IDRef: "min_len", Value: "22"}},
			},
			id:        "min_len",
			wantValue: "22",
			wantOp:    benchmark.OpGreaterThan,
			wantSet:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var profiles []*benchmark.Profile
			policyID := DefaultPolicyID
			if tt.profile != nil {
				profiles = append(profiles, tt.profile)
				policyID = tt.profile.ID
			}
			m := newTestModel(t, valueBenchmark(t, profiles...))
			p, err := m.PolicyByID(policyID)
			if err != nil {
				t.Fatalf("PolicyByID() error = %v", err)
			}

			vb, err := p.ResolveValue(tt.id)
			if err != nil {
				t.Fatalf("ResolveValue() error = %v", err)
			}
			if vb.Value() != tt.wantValue {
				t.Errorf("Value() = %q, want %q", vb.Value(), tt.wantValue)
			}
			if vb.Operator() != tt.wantOp {
				t.Errorf("Operator() = %q, want %q", vb.Operator(), tt.wantOp)
			}
			if vb.IsSetValue() != tt.wantSet {
				t.Errorf("IsSetValue() = %v, want %v", vb.IsSetValue(), tt.wantSet)
			}
		})
	}
}

func TestResolveValue_Idempotent(t *testing.T) {
	prof := &benchmark.Profile{ID: "p",
		RefineValues: []benchmark.RefineValue{{IDRef: "min_len", Selector: "strict"}},
		SetValues:    []benchmark.SetValue{{IDRef: "algo", Value: "sha256"}},
	}
	m := newTestModel(t, valueBenchmark(t, prof))
	p, _ := m.PolicyByID("p")

	for _, id := range []string{"min_len", "algo", "enabled"} {
		first, err := p.ResolveValue(id)
		if err != nil {
			t.Fatalf("ResolveValue(%q) error = %v", id, err)
		}
		second, err := p.ResolveValue(id)
		if err != nil {
			t.Fatalf("ResolveValue(%q) error = %v", id, err)
		}
		if !first.Equal(second) {
			t.Errorf("ResolveValue(%q) not idempotent: %+v vs %+v", id, first, second)
		}
		if first == second {
			t.Errorf("ResolveValue(%q) returned a shared binding", id)
		}
	}
}

func TestResolveValue_Errors(t *testing.T) {
	tests := []struct {
		name    string
		profile *benchmark.Profile
		id      string
		wantErr error
	}{
		{
			name:    "unknown id",
			id:      "missing",
			wantErr: ErrUnknownValueID,
		},
		{
			name:    "rule is not a value",
			id:      "r1",
			wantErr: ErrUnknownValueID,
		},
		{
			name: "illegal operator for type",
			profile: &benchmark.Profile{ID: "p", RefineValues: []benchmark.RefineValue{
				{IDRef: "enabled", Operator: benchmark.OpGreaterThan},
			}},
			id:      "enabled",
			wantErr: ErrInvalidRefinement,
		},
		{
			name: "pattern match on number",
			profile: &benchmark.Profile{ID: "p", RefineValues: []benchmark.RefineValue{
				{IDRef: "min_len", Operator: benchmark.OpPatternMatch},
			}},
			id:      "min_len",
			wantErr: ErrInvalidRefinement,
		},
		{
			name: "unknown selector",
			profile: &benchmark.Profile{ID: "p", RefineValues: []benchmark.RefineValue{
				{IDRef: "algo", Selector: "fips"},
			}},
			id:      "algo",
			wantErr: ErrInvalidRefinement,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var profiles []*benchmark.Profile
			policyID := DefaultPolicyID
			if tt.profile != nil {
				profiles = append(profiles, tt.profile)
				policyID = tt.profile.ID
			}
			m := newTestModel(t, valueBenchmark(t, profiles...))
			p, err := m.PolicyByID(policyID)
			if err != nil {
				t.Fatalf("PolicyByID() error = %v", err)
			}

			_, err = p.ResolveValue(tt.id)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ResolveValue() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == ErrInvalidRefinement {
				var re *RefinementError
				if !errors.As(err, &re) || re.ValueID != tt.id {
					t.Errorf("error = %#v, want *RefinementError for %q", err, tt.id)
				}
			}
		})
	}
}

func TestPolicy_SetValueAndValues(t *testing.T) {
	prof := &benchmark.Profile{ID: "p", SetValues: []benchmark.SetValue{{IDRef: "enabled", Value: "false"}}}
	m := newTestModel(t, valueBenchmark(t, prof))
	p, _ := m.PolicyByID("p")

	if err := p.SetValue("algo", "sha384"); err != nil {
		t.Fatalf("SetValue() error = %v", err)
	}
	if err := p.SetValue("r1", "x"); !errors.Is(err, ErrUnknownValueID) {
		t.Errorf("SetValue(r1) error = %v, want ErrUnknownValueID", err)
	}

	values, err := p.Values()
	if err != nil {
		t.Fatalf("Values() error = %v", err)
	}
	got := make(map[string]string)
	var order []string
	for _, vb := range values {
		got[vb.ValueID()] = vb.Value()
		order = append(order, vb.ValueID())
	}
	if want := []string{"enabled", "algo", "min_len"}; !equalStrings(order, want) {
		t.Errorf("Values() order = %v, want %v", order, want)
	}
	if got["algo"] != "sha384" || got["enabled"] != "false" || got["min_len"] != "8" {
		t.Errorf("Values() = %v", got)
	}
}

func TestPolicy_Substitute(t *testing.T) {
	m := newTestModel(t, valueBenchmark(t))
	p := m.DefaultPolicy()

	got, err := p.Substitute(`Passwords must exceed <sub idref="min_len"/> chars using <sub idref="algo" />.`)
	if err != nil {
		t.Fatalf("Substitute() error = %v", err)
	}
	if want := "Passwords must exceed 8 chars using sha512."; got != want {
		t.Errorf("Substitute() = %q, want %q", got, want)
	}

	if _, err := p.Substitute(`<sub idref="nope"/>`); !errors.Is(err, ErrUnknownValueID) {
		t.Errorf("Substitute(unknown) error = %v, want ErrUnknownValueID", err)
	}
}

func TestValueBinding_Compare(t *testing.T) {
	tests := []struct {
		name   string
		typ    benchmark.ValueType
		op     benchmark.ValueOperator
		bound  string
		actual string
		want   bool
		errs   bool
	}{
		{"number greater", benchmark.ValueTypeNumber, benchmark.OpGreaterThan, "8", "12", true, false},
		{"number less", benchmark.ValueTypeNumber, benchmark.OpLessThan, "8", "12", false, false},
		{"number not equal", benchmark.ValueTypeNumber, benchmark.OpNotEqual, "8", "8.0", false, false},
		{"number parse error", benchmark.ValueTypeNumber, benchmark.OpEquals, "8", "eight", false, true},
		{"bool equals", benchmark.ValueTypeBoolean, benchmark.OpEquals, "true", "1", true, false},
		{"string pattern", benchmark.ValueTypeString, benchmark.OpPatternMatch, "^sha(256|512)$", "sha512", true, false},
		{"string bad pattern", benchmark.ValueTypeString, benchmark.OpPatternMatch, "(", "x", false, true},
		{"subset of", benchmark.ValueTypeString, benchmark.OpSubsetOf, "a,b,c", "b, a", true, false},
		{"not subset of", benchmark.ValueTypeString, benchmark.OpSubsetOf, "a,b", "a,d", false, false},
		{"superset of", benchmark.ValueTypeString, benchmark.OpSupersetOf, "a,b", "a,b,c", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vb := &ValueBinding{typ: tt.typ, operator: tt.op, value: tt.bound}
			got, err := vb.Compare(tt.actual)
			if (err != nil) != tt.errs {
				t.Fatalf("Compare() error = %v, wantErr %v", err, tt.errs)
			}
			if got != tt.want {
				t.Errorf("Compare(%q) = %v, want %v", tt.actual, got, tt.want)
			}
		})
	}
}
