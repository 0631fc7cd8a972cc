package main

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestResults(t *testing.T) {
	f := newFixture(t)

	for _, profile := range []string{"xccdf_test_profile_motd", "(default)"} {
		if _, err := execute(t, "eval", profile, "--no-exit-code", "--config", f.config); err != nil {
			t.Fatalf("eval %s: %v", profile, err)
		}
	}

	t.Run("list", func(t *testing.T) {
		out, err := execute(t, "results", "list", "--config", f.config)
		if err != nil {
			t.Fatal(err)
		}
		for _, want := range []string{"xccdf_test_profile_motd", "manual", "flat=100.00/100.00", "Showing 2 of 2 results"} {
			if !strings.Contains(out, want) {
				t.Errorf("list output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("list csv filtered", func(t *testing.T) {
		out, err := execute(t, "results", "list", "--outcome", "fail", "-o", "csv", "--config", f.config)
		if err != nil {
			t.Fatal(err)
		}
		rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 2 || rows[1][5] != "fail" {
			t.Errorf("rows = %v, want header plus one failing result", rows)
		}
	})

	t.Run("show latest", func(t *testing.T) {
		out, err := execute(t, "results", "show", "latest", "-p", "xccdf_test_profile_motd", "-o", "json", "--config", f.config)
		if err != nil {
			t.Fatal(err)
		}
		var view struct {
			ProfileID string `json:"profile_id"`
			Outcome   string `json:"outcome"`
		}
		if err := json.Unmarshal([]byte(out), &view); err != nil {
			t.Fatal(err)
		}
		if view.ProfileID != "xccdf_test_profile_motd" || view.Outcome != "pass" {
			t.Errorf("show latest = %+v", view)
		}
	})

	t.Run("show unknown", func(t *testing.T) {
		if _, err := execute(t, "results", "show", "xccdf_missing", "--config", f.config); err == nil {
			t.Error("show of an unknown result succeeded")
		}
	})

	t.Run("prune", func(t *testing.T) {
		out, err := execute(t, "results", "prune", "--days", "0", "--max-results", "1", "--config", f.config)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, "Deleted 1 results") {
			t.Errorf("prune output = %q", out)
		}

		out, err = execute(t, "results", "list", "-o", "json", "--config", f.config)
		if err != nil {
			t.Fatal(err)
		}
		var list struct {
			Total int `json:"total"`
		}
		if err := json.Unmarshal([]byte(out), &list); err != nil {
			t.Fatal(err)
		}
		if list.Total != 1 {
			t.Errorf("total after prune = %d, want 1", list.Total)
		}
	})
}

func TestParseTimeFlag(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		value   string
		want    time.Time
		wantNil bool
		wantErr bool
	}{
		{value: "", wantNil: true},
		{value: "24h", want: now.Add(-24 * time.Hour)},
		{value: "90m", want: now.Add(-90 * time.Minute)},
		{value: "2026-04-01T00:00:00Z", want: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
		{value: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := parseTimeFlag("since", tt.value, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTimeFlag(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.wantNil {
				if got != nil {
					t.Errorf("parseTimeFlag(%q) = %v, want nil", tt.value, got)
				}
				return
			}
			if got == nil || !got.Equal(tt.want) {
				t.Errorf("parseTimeFlag(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestBuildResultsQuery_Invalid(t *testing.T) {
	resetFlags()
	resultsFlags.outcome = "sideways"
	if _, err := buildResultsQuery(time.Now()); err == nil {
		t.Error("unknown outcome accepted")
	}

	resetFlags()
	resultsFlags.limit = -5
	if _, err := buildResultsQuery(time.Now()); err == nil {
		t.Error("negative limit accepted")
	}
}
