package expr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"mercator-hq/auditor/pkg/benchmark"
	"mercator-hq/auditor/pkg/outcome"
	"mercator-hq/auditor/pkg/policy"
)

const content = `
checks:
  - name: shadow_exists
    expr: fileExists("/etc/shadow")
  - name: shadow_mode
    expr: fileMode("/etc/shadow") == 416
  - name: sha512
    expr: fileContains("/etc/login.defs", "ENCRYPT_METHOD SHA512")
  - name: root_login
    applicable: fileExists("/etc/ssh/sshd_config")
    expr: fileMatches("/etc/ssh/sshd_config", "(?m)^PermitRootLogin\\s+no$")
  - name: min_len
    expr: int(values.MIN_LEN) >= 12
  - name: no_tty
    expr: fileLines("/etc/securetty").all(l, !l.startsWith("tty"))
  - name: container
    expr: 'env("container") == "" ? "pass" : "notapplicable"'
`

func setup(t *testing.T) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	contentDir := t.TempDir()

	write := func(p, data string, mode os.FileMode) {
		full := filepath.Join(root, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(data), mode); err != nil {
			t.Fatal(err)
		}
		if err := os.Chmod(full, mode); err != nil {
			t.Fatal(err)
		}
	}
	write("etc/shadow", "root:*:19000::::::\n", 0o640)
	write("etc/login.defs", "ENCRYPT_METHOD SHA512\n", 0o644)
	write("etc/securetty", "console\nttyS0\n", 0o600)

	if err := os.WriteFile(filepath.Join(contentDir, "base.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	e, err := New(Config{
		ContentDir: contentDir,
		Root:       root,
		Getenv:     func(string) string { return "" },
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e, contentDir
}

func checkContext() *policy.CheckContext {
	return &policy.CheckContext{PolicyID: "p", RuleID: "r"}
}

func TestEngine_Evaluate(t *testing.T) {
	e, _ := setup(t)

	tests := []struct {
		name string
		want outcome.Outcome
	}{
		{"shadow_exists", outcome.Pass},
		{"shadow_mode", outcome.Pass},
		{"sha512", outcome.Pass},
		{"root_login", outcome.NotApplicable},
		{"no_tty", outcome.Fail},
		{"container", outcome.Pass},
		{"undefined", outcome.NotChecked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(context.Background(),
				policy.CheckRef{System: System, Href: "base.yaml", Name: tt.name},
				checkContext())
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestEngine_Errors(t *testing.T) {
	e, dir := setup(t)
	ctx := context.Background()

	if _, err := e.Evaluate(ctx, policy.CheckRef{Href: "missing.yaml", Name: "x"}, checkContext()); err == nil {
		t.Error("Evaluate(missing content) succeeded")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("checks:\n  - name: broken\n    expr: 'fileExists('\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Evaluate(ctx, policy.CheckRef{Href: "bad.yaml", Name: "broken"}, checkContext()); !errors.Is(err, ErrCompile) {
		t.Errorf("Evaluate(bad) error = %v, want ErrCompile", err)
	}

	typed := filepath.Join(dir, "typed.yaml")
	if err := os.WriteFile(typed, []byte("checks:\n  - name: number\n    expr: '1 + 1'\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	o, err := e.Evaluate(ctx, policy.CheckRef{Href: "typed.yaml"}, checkContext())
	if !errors.Is(err, ErrResultType) || o != outcome.Error {
		t.Errorf("Evaluate(typed) = %v, %v, want error outcome with ErrResultType", o, err)
	}
}

func TestEngine_NamesForHref(t *testing.T) {
	e, _ := setup(t)
	names, err := e.NamesForHref(context.Background(), "base.yaml")
	if err != nil {
		t.Fatalf("NamesForHref() error = %v", err)
	}
	if len(names) != 7 || names[0] != "shadow_exists" || names[6] != "container" {
		t.Errorf("NamesForHref() = %v", names)
	}
}

// TestEngine_WithModel drives the engine through a policy model so exported
// values reach the expression.
func TestEngine_WithModel(t *testing.T) {
	e, _ := setup(t)

	b, err := benchmark.New("bench", []*benchmark.Item{
		{ID: "min_len", Type: benchmark.TypeValue, ValueType: benchmark.ValueTypeNumber,
			Values: map[string]string{"": "8", "strict": "14"}},
		{ID: "r_min_len", Type: benchmark.TypeRule, Checks: []*benchmark.Check{{
			System:      System,
			ContentRefs: []benchmark.ContentRef{{Href: "base.yaml", Name: "min_len"}},
			Exports:     []benchmark.Export{{ValueID: "min_len", Name: "MIN_LEN"}},
		}}},
		{ID: "r_all", Type: benchmark.TypeRule, Checks: []*benchmark.Check{{
			System:      System,
			MultiCheck:  true,
			ContentRefs: []benchmark.ContentRef{{Href: "base.yaml"}},
			Exports:     []benchmark.Export{{ValueID: "min_len", Name: "MIN_LEN"}},
		}}},
	}, &benchmark.Profile{ID: "strict", RefineValues: []benchmark.RefineValue{{IDRef: "min_len", Selector: "strict"}}})
	if err != nil {
		t.Fatalf("benchmark.New() error = %v", err)
	}

	m, err := policy.NewModel(b, policy.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	m.RegisterEngine(System, e)

	tests := []struct {
		policyID string
		minLen   outcome.Outcome
		all      outcome.Outcome
	}{
		{policy.DefaultPolicyID, outcome.Fail, outcome.Fail},
		{"strict", outcome.Pass, outcome.Fail},
	}
	for _, tt := range tests {
		t.Run(tt.policyID, func(t *testing.T) {
			p, err := m.PolicyByID(tt.policyID)
			if err != nil {
				t.Fatalf("PolicyByID() error = %v", err)
			}
			res, err := m.Evaluate(context.Background(), p)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if rr, _ := res.Rule("r_min_len"); rr.Outcome != tt.minLen {
				t.Errorf("r_min_len = %v, want %v", rr.Outcome, tt.minLen)
			}
			if rr, _ := res.Rule("r_all"); rr.Outcome != tt.all {
				t.Errorf("r_all = %v, want %v", rr.Outcome, tt.all)
			}
		})
	}
}
