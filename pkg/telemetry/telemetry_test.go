package telemetry

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/outcome"
)

func testConfig() config.TelemetryConfig {
	cfg := config.Default().Telemetry
	cfg.ListenAddress = "127.0.0.1:0"
	return cfg
}

func TestNew_InvalidLogging(t *testing.T) {
	cfg := testConfig()
	cfg.Logging.Level = "loud"
	if _, err := New(cfg, BuildInfo{}, io.Discard); err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestServe(t *testing.T) {
	var logs bytes.Buffer
	tel, err := New(testConfig(), BuildInfo{Version: "1.0.0", Commit: "abc"}, &logs)
	if err != nil {
		t.Fatal(err)
	}
	defer tel.Shutdown(context.Background())

	tel.Metrics().ObserveEvaluation("p", outcome.Pass, time.Millisecond)

	addr, err := tel.Serve()
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	for path, want := range map[string]string{
		"/metrics": "auditor_evaluations_total",
		"/health":  `"status":"ok"`,
		"/ready":   `"status":"ready"`,
		"/version": `"version":"1.0.0"`,
	} {
		resp, err := http.Get("http://" + addr + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), want) {
			t.Errorf("GET %s = %d %q, want body containing %q", path, resp.StatusCode, body, want)
		}
	}

	if !strings.Contains(logs.String(), "telemetry listener started") {
		t.Errorf("listener start not logged: %s", logs.String())
	}
}

func TestServe_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.ListenAddress = config.ListenerDisabled
	tel, err := New(cfg, BuildInfo{}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}

	addr, err := tel.Serve()
	if err != nil || addr != "" {
		t.Errorf("Serve() = %q, %v; want no listener", addr, err)
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestPolicyOptions(t *testing.T) {
	tel, err := New(testConfig(), BuildInfo{}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(tel.PolicyOptions()); got != 3 {
		t.Errorf("PolicyOptions() returned %d options, want 3", got)
	}
}
