package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestScore(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "score", "-p", "(default)", "-o", "json", "--config", f.config)
	if err != nil {
		t.Fatal(err)
	}

	var report struct {
		ProfileID string `json:"profile_id"`
		Scores    []struct {
			System string  `json:"system"`
			Value  float64 `json:"value"`
			Max    float64 `json:"max"`
		} `json:"scores"`
		Groups []struct {
			Group string  `json:"group"`
			Value float64 `json:"value"`
			Max   float64 `json:"max"`
		} `json:"groups"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}

	want := map[string][2]float64{
		"urn:xccdf:scoring:default":         {1, 4},
		"urn:xccdf:scoring:flat":            {25, 100},
		"urn:xccdf:scoring:flat-unweighted": {50, 100},
		"urn:xccdf:scoring:absolute":        {0, 1},
	}
	if len(report.Scores) != len(want) {
		t.Fatalf("got %d scores, want %d", len(report.Scores), len(want))
	}
	for _, s := range report.Scores {
		w := want[s.System]
		if s.Value != w[0] || s.Max != w[1] {
			t.Errorf("%s = %v/%v, want %v/%v", s.System, s.Value, s.Max, w[0], w[1])
		}
	}
	if len(report.Groups) != 1 || report.Groups[0].Group != "xccdf_test_group_files" {
		t.Errorf("groups = %+v", report.Groups)
	}
}

func TestScore_StoredResult(t *testing.T) {
	f := newFixture(t)
	if _, err := execute(t, "eval", "xccdf_test_profile_motd", "--config", f.config); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "score", "latest", "--system", "urn:xccdf:scoring:flat", "--no-groups", "--config", f.config)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "urn:xccdf:scoring:flat") || !strings.Contains(out, "100.00") {
		t.Errorf("score output:\n%s", out)
	}
	if strings.Contains(out, "GROUP") {
		t.Errorf("--no-groups still printed groups:\n%s", out)
	}
}

func TestResolve(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "resolve", "xccdf_test_profile_motd", "-o", "json", "--config", f.config)
	if err != nil {
		t.Fatal(err)
	}

	var resolved struct {
		ProfileID string `json:"profile_id"`
		Rules     []struct {
			ID       string  `json:"id"`
			Selected bool    `json:"selected"`
			Weight   float64 `json:"weight"`
		} `json:"rules"`
	}
	if err := json.Unmarshal([]byte(out), &resolved); err != nil {
		t.Fatal(err)
	}
	selected := make(map[string]bool)
	for _, r := range resolved.Rules {
		selected[r.ID] = r.Selected
	}
	if !selected["xccdf_test_rule_motd"] || selected["xccdf_test_rule_banner"] {
		t.Errorf("selection = %v, want motd only", selected)
	}

	if _, err := execute(t, "resolve", "xccdf_test_profile_missing", "--config", f.config); err == nil {
		t.Error("resolve of an unknown profile succeeded")
	}
}

func TestProfiles(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "profiles", "--config", f.config)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Benchmark xccdf_test_benchmark_cli", "(default)", "xccdf_test_profile_motd", "MOTD only"} {
		if !strings.Contains(out, want) {
			t.Errorf("profiles output missing %q:\n%s", want, out)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(t *testing.T, f *fixture)
		wantErr bool
		want    string
	}{
		{
			name: "valid",
			want: "✓ Profiles, engines and content valid",
		},
		{
			name: "missing content",
			mutate: func(t *testing.T, f *fixture) {
				if err := os.Remove(filepath.Join(f.contentDir, "checks.yaml")); err != nil {
					t.Fatal(err)
				}
			},
			wantErr: true,
			want:    "checks.yaml",
		},
		{
			name: "engine disabled",
			mutate: func(t *testing.T, f *fixture) {
				data, _ := os.ReadFile(f.config)
				cfg := strings.Replace(string(data), "engines:\n", "engines:\n  cel:\n    enabled: false\n", 1)
				writeFile(t, f.config, cfg)
			},
			wantErr: true,
			want:    "no engine enabled for check system urn:mercator:check:cel",
		},
		{
			name: "profile references unknown rule",
			mutate: func(t *testing.T, f *fixture) {
				bench := benchmarkYAML + "  - id: xccdf_test_profile_broken\n    select:\n      - idref: xccdf_test_rule_nope\n        selected: true\n"
				writeFile(t, f.benchmark, bench)
			},
			wantErr: true,
			want:    "profile xccdf_test_profile_broken",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.mutate != nil {
				tt.mutate(t, f)
			}
			out, err := execute(t, "validate", "--config", f.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate error = %v, wantErr %v\n%s", err, tt.wantErr, out)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("validate output missing %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestCompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, err := execute(t, "completion", shell)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(out, "auditor") {
				t.Errorf("%s completion does not mention auditor", shell)
			}
		})
	}
}
