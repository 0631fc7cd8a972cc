package file

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"mercator-hq/auditor/pkg/outcome"
	"mercator-hq/auditor/pkg/policy"
)

func setup(t *testing.T, content string) *Engine {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	root := t.TempDir()
	contentDir := t.TempDir()

	mk := func(p string, mode os.FileMode) {
		full := filepath.Join(root, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("data"), mode); err != nil {
			t.Fatal(err)
		}
		if err := os.Chmod(full, mode); err != nil {
			t.Fatal(err)
		}
	}
	mk("etc/shadow", 0o640)
	mk("etc/passwd", 0o644)
	mk("etc/cron.d/job1", 0o644)
	mk("etc/cron.d/job2", 0o666)
	mk("usr/bin/su", 0o755|os.ModeSetuid)

	if err := os.WriteFile(filepath.Join(contentDir, "files.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return New(Config{ContentDir: contentDir, Root: root}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const tests = `
tests:
  - name: shadow_mode
    path: /etc
    filename: shadow
    state:
      type: regular
      mode_max: 0640
  - name: passwd_too_strict
    path: /etc
    filename: passwd
    state:
      mode_max: 0600
  - name: cron_not_world_writable
    path: /etc/cron.d
    pattern: "^job"
    state:
      owrite: false
  - name: cron_some_safe
    path: /etc/cron.d
    pattern: "^job"
    check: at_least_one
    state:
      owrite: false
  - name: su_setuid
    path: /usr/bin
    filename: su
    state:
      suid: true
      oexec: true
  - name: no_rhosts
    path: /root
    filename: .rhosts
    existence: none_exist
  - name: missing_required
    path: /etc
    filenames: [shadow, gshadow]
    existence: all_exist
  - name: etc_is_dir
    path: /etc
    state:
      type: directory
  - name: absent_any
    path: /nope
    pattern: ".*"
    existence: any_exist
`

func TestEngine_Evaluate(t *testing.T) {
	e := setup(t, tests)

	want := map[string]outcome.Outcome{
		"shadow_mode":             outcome.Pass,
		"passwd_too_strict":       outcome.Fail,
		"cron_not_world_writable": outcome.Fail,
		"cron_some_safe":          outcome.Pass,
		"su_setuid":               outcome.Pass,
		"no_rhosts":               outcome.Pass,
		"missing_required":        outcome.Fail,
		"etc_is_dir":              outcome.Pass,
		"absent_any":              outcome.Pass,
		"undefined":               outcome.NotChecked,
	}
	for name, o := range want {
		t.Run(name, func(t *testing.T) {
			got, err := e.Evaluate(context.Background(), policy.CheckRef{Href: "files.yaml", Name: name}, nil)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got != o {
				t.Errorf("Evaluate(%s) = %v, want %v", name, got, o)
			}
		})
	}
}

func TestEngine_NamesForHref(t *testing.T) {
	e := setup(t, tests)
	names, err := e.NamesForHref(context.Background(), "files.yaml")
	if err != nil {
		t.Fatalf("NamesForHref() error = %v", err)
	}
	if len(names) != 9 || names[0] != "shadow_mode" {
		t.Errorf("NamesForHref() = %v", names)
	}
}

func TestEngine_InvalidDocuments(t *testing.T) {
	docs := map[string]string{
		"no name":       "tests:\n  - path: /etc\n",
		"no path":       "tests:\n  - name: x\n",
		"bad pattern":   "tests:\n  - name: x\n    path: /etc\n    pattern: '('\n",
		"two targets":   "tests:\n  - name: x\n    path: /etc\n    filename: a\n    pattern: b\n",
		"bad existence": "tests:\n  - name: x\n    path: /etc\n    existence: some\n",
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			e := setup(t, doc)
			_, err := e.Evaluate(context.Background(), policy.CheckRef{Href: "files.yaml", Name: "x"}, nil)
			if !errors.Is(err, ErrInvalidTest) {
				t.Errorf("Evaluate() error = %v, want ErrInvalidTest", err)
			}
		})
	}
}

func TestCollect_ItemMetadata(t *testing.T) {
	e := setup(t, tests)
	items, missing, err := e.Collect(&Test{Path: "/etc", Filename: "shadow"})
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if missing != 0 || len(items) != 1 {
		t.Fatalf("Collect() = %d items, %d missing", len(items), missing)
	}
	item := items[0]
	if item.Type != TypeRegular || item.Size != 4 || item.Mode != 0o640 {
		t.Errorf("item = %+v", item)
	}
	if item.Path != "/etc" || item.Filename != "shadow" {
		t.Errorf("item path = %s/%s", item.Path, item.Filename)
	}
	if item.UserID != int64(os.Getuid()) {
		t.Errorf("UserID = %d, want %d", item.UserID, os.Getuid())
	}
}
