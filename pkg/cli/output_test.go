package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"mercator-hq/auditor/pkg/benchmark"
	"mercator-hq/auditor/pkg/outcome"
	"mercator-hq/auditor/pkg/result"
	"mercator-hq/auditor/pkg/scoring"
	"mercator-hq/auditor/pkg/store"
)

func init() {
	color.NoColor = true
}

func testRecord(t *testing.T) *store.Record {
	t.Helper()
	b, err := benchmark.New("xccdf_test_benchmark_cli",
		[]*benchmark.Item{
			{ID: "xccdf_test_group_ssh", Type: benchmark.TypeGroup, Title: "SSH", Children: []*benchmark.Item{
				{ID: "xccdf_test_rule_root_login", Type: benchmark.TypeRule, Title: "Disable root login"},
			}},
			{ID: "xccdf_test_rule_motd", Type: benchmark.TypeRule, Title: "Message of the day"},
		})
	if err != nil {
		t.Fatal(err)
	}

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	builder := result.NewBuilder("xccdf_test_testresult_1", b.ID, "xccdf_test_profile_base", start)
	outcomes := map[string]outcome.Outcome{
		"xccdf_test_rule_root_login": outcome.Fail,
		"xccdf_test_rule_motd":       outcome.Pass,
	}
	for _, rule := range b.Rules() {
		rr := result.RuleResult{Outcome: outcomes[rule.ID], Weight: 1, Severity: "high"}
		if rule.ID == "xccdf_test_rule_root_login" {
			rr.Checks = []result.CheckResult{{
				System: "urn:mercator:check:cel", Href: "ssh.yaml", Name: "root_login",
				Outcome: outcome.Error, Error: "no such file",
			}}
		}
		builder.AddRule(rule, rr)
	}
	res := builder.Finish(start.Add(1500 * time.Millisecond))

	return store.NewRecord(res, []*scoring.Score{
		{System: scoring.SystemFlat, Value: 50, Max: 100},
	}, "manual")
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    OutputFormat
		wantErr bool
	}{
		{input: "", want: FormatText},
		{input: "text", want: FormatText},
		{input: "JSON", want: FormatJSON},
		{input: " yaml ", want: FormatYAML},
		{input: "csv", want: FormatCSV},
		{input: "junit", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) {
					t.Errorf("error type = %T, want *ConfigError", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format OutputFormat
		want   string
	}{
		{FormatText, "*cli.TextFormatter"},
		{FormatJSON, "*cli.JSONFormatter"},
		{FormatYAML, "*cli.YAMLFormatter"},
		{FormatCSV, "*cli.CSVFormatter"},
		{"unknown", "*cli.TextFormatter"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			got := NewFormatter(tt.format)
			if name := fmt.Sprintf("%T", got); name != tt.want {
				t.Errorf("NewFormatter(%q) = %s, want %s", tt.format, name, tt.want)
			}
		})
	}
}

func TestResultView_Text(t *testing.T) {
	view := NewResultView(testRecord(t))

	var buf bytes.Buffer
	if err := NewFormatter(FormatText).FormatTo(&buf, view); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"Result xccdf_test_testresult_1",
		"Profile:   xccdf_test_profile_base",
		"Outcome:   fail",
		"flat",
		"50.00/100.00",
		"xccdf_test_rule_root_login",
		"no such file",
		"Totals: pass=1 fail=1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestResultView_Rules(t *testing.T) {
	view := NewResultView(testRecord(t))

	if len(view.Rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(view.Rules))
	}
	if view.Rules[0].Group != "xccdf_test_group_ssh" {
		t.Errorf("first rule group = %q, want xccdf_test_group_ssh", view.Rules[0].Group)
	}
	if view.Rules[1].Group != "" {
		t.Errorf("top-level rule group = %q, want empty", view.Rules[1].Group)
	}
	if view.Duration != "1.5s" {
		t.Errorf("Duration = %q, want 1.5s", view.Duration)
	}
	if view.Counts["fail"] != 1 || view.Counts["pass"] != 1 {
		t.Errorf("Counts = %v", view.Counts)
	}
}

func TestResultView_JSONAndYAML(t *testing.T) {
	view := NewResultView(testRecord(t))

	data, err := NewFormatter(FormatJSON).Format(view)
	if err != nil {
		t.Fatal(err)
	}
	var fromJSON map[string]any
	if err := json.Unmarshal(data, &fromJSON); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if fromJSON["outcome"] != "fail" {
		t.Errorf("json outcome = %v, want fail", fromJSON["outcome"])
	}

	data, err = NewFormatter(FormatYAML).Format(view)
	if err != nil {
		t.Fatal(err)
	}
	var fromYAML map[string]any
	if err := yaml.Unmarshal(data, &fromYAML); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if fromYAML["profile_id"] != "xccdf_test_profile_base" {
		t.Errorf("yaml profile_id = %v", fromYAML["profile_id"])
	}
	rules, ok := fromYAML["rules"].([]any)
	if !ok || len(rules) != 2 {
		t.Errorf("yaml rules = %v, want 2 entries", fromYAML["rules"])
	}
}

func TestCSVFormatter(t *testing.T) {
	view := NewResultSet([]*store.Record{testRecord(t)})

	data, err := NewFormatter(FormatCSV).Format(view)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header plus 2", len(rows))
	}
	if rows[0][2] != "rule_id" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][2] != "xccdf_test_rule_root_login" || rows[1][4] != "fail" {
		t.Errorf("first row = %v", rows[1])
	}

	f := &CSVFormatter{NoHeader: true}
	data, _ = f.Format(view)
	if strings.Contains(string(data), "rule_id") {
		t.Error("NoHeader still wrote the header")
	}
}

func TestCSVFormatter_Unsupported(t *testing.T) {
	if _, err := NewFormatter(FormatCSV).Format(map[string]int{"a": 1}); err == nil {
		t.Error("CSV formatting of a plain map succeeded")
	}
}

func TestTextFormatter_Fallback(t *testing.T) {
	data, err := NewFormatter(FormatText).Format(42)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "42\n" {
		t.Errorf("Format(42) = %q", data)
	}
}

func TestRecordList(t *testing.T) {
	rec := testRecord(t)

	tests := []struct {
		name    string
		records []*store.Record
		want    []string
	}{
		{
			name:    "empty",
			records: nil,
			want:    []string{"No results found."},
		},
		{
			name:    "one record",
			records: []*store.Record{rec},
			want:    []string{"xccdf_test_testresult_1", "manual", "fail", "flat=50.00/100.00", "Showing 1 of 3 results"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewRecordList(tt.records, 3).RenderText(&buf); err != nil {
				t.Fatal(err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestScoreReport(t *testing.T) {
	report := NewScoreReport("r1", "p1",
		[]*scoring.Score{{System: scoring.SystemDefault, Value: 75, Max: 100}},
		map[string]*scoring.Score{
			"g-b": {System: scoring.SystemDefault, Value: 1, Max: 2},
			"g-a": {System: scoring.SystemDefault, Value: 2, Max: 2},
		})

	if len(report.Groups) != 2 || report.Groups[0].Group != "g-a" {
		t.Errorf("groups not sorted: %+v", report.Groups)
	}
	if report.Groups[1].Percent != 50 {
		t.Errorf("g-b percent = %v, want 50", report.Groups[1].Percent)
	}

	rows := report.CSVRows()
	if len(rows) != 3 {
		t.Fatalf("got %d CSV rows, want 3", len(rows))
	}
	if rows[0][2] != scoring.SystemDefault || rows[0][3] != "75.00" {
		t.Errorf("first row = %v", rows[0])
	}

	var buf bytes.Buffer
	if err := report.RenderText(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "75.0%") {
		t.Errorf("text output missing percentage:\n%s", buf.String())
	}
}

func TestResolvedPolicy(t *testing.T) {
	b, err := benchmark.New("bench",
		[]*benchmark.Item{
			{ID: "r1", Type: benchmark.TypeRule, Severity: "low", Checks: []*benchmark.Check{
				{System: "urn:mercator:check:cel"}, {System: "urn:mercator:check:cel"},
			}},
			{ID: "r2", Type: benchmark.TypeRule, Selected: benchmark.Bool(false), Weight: benchmark.Float(3)},
			{ID: "v1", Type: benchmark.TypeValue, ValueType: benchmark.ValueTypeNumber, Values: map[string]string{"": "600"}},
		})
	if err != nil {
		t.Fatal(err)
	}

	v := NewResolvedPolicy("p", b)
	if len(v.Rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(v.Rules))
	}
	if !v.Rules[0].Selected || v.Rules[1].Selected {
		t.Errorf("selection = %v/%v, want true/false", v.Rules[0].Selected, v.Rules[1].Selected)
	}
	if len(v.Rules[0].Systems) != 1 {
		t.Errorf("systems = %v, want one distinct entry", v.Rules[0].Systems)
	}
	if v.Rules[1].Weight != 3 || v.Rules[0].Role != "full" {
		t.Errorf("rules = %+v", v.Rules)
	}
	if len(v.Values) != 1 || v.Values[0].Value != "600" {
		t.Errorf("values = %+v", v.Values)
	}
}
