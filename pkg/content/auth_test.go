package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"mercator-hq/auditor/pkg/config"
)

func TestNewAuthProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.GitAuthConfig
		wantType string
		wantErr  bool
	}{
		{name: "empty", cfg: config.GitAuthConfig{}, wantType: "none"},
		{name: "none", cfg: config.GitAuthConfig{Type: "none"}, wantType: "none"},
		{name: "token", cfg: config.GitAuthConfig{Type: "token", Token: "t"}, wantType: "token"},
		{name: "token missing", cfg: config.GitAuthConfig{Type: "token"}, wantErr: true},
		{name: "ssh", cfg: config.GitAuthConfig{Type: "ssh", SSHKeyPath: "/k"}, wantType: "ssh"},
		{name: "ssh missing key", cfg: config.GitAuthConfig{Type: "ssh"}, wantErr: true},
		{name: "unknown", cfg: config.GitAuthConfig{Type: "kerberos"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewAuthProvider(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewAuthProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && p.Type() != tt.wantType {
				t.Errorf("Type() = %s, want %s", p.Type(), tt.wantType)
			}
		})
	}
}

func TestTokenAuth(t *testing.T) {
	auth, err := (&TokenAuth{token: "s3cret"}).Auth()
	if err != nil {
		t.Fatal(err)
	}
	basic, ok := auth.(*http.BasicAuth)
	if !ok {
		t.Fatalf("Auth() = %T, want *http.BasicAuth", auth)
	}
	if basic.Password != "s3cret" {
		t.Errorf("password = %q, want the token", basic.Password)
	}

	if _, err := (&TokenAuth{}).Auth(); err == nil {
		t.Error("Auth() accepted an empty token")
	}
}

func TestSSHAuth_Errors(t *testing.T) {
	dir := t.TempDir()
	open := filepath.Join(dir, "open_key")
	if err := os.WriteFile(open, []byte("not a key"), 0o644); err != nil {
		t.Fatal(err)
	}
	garbage := filepath.Join(dir, "garbage_key")
	if err := os.WriteFile(garbage, []byte("not a key"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{name: "missing file", path: filepath.Join(dir, "absent")},
		{name: "permissions too open", path: open},
		{name: "unparseable key", path: garbage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := (&SSHAuth{keyPath: tt.path}).Auth(); err == nil {
				t.Error("Auth() error = nil")
			}
		})
	}
}
