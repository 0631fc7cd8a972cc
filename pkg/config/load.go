package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "AUDITOR_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration and applies defaults without validating.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention AUDITOR_SECTION_FIELD (e.g., AUDITOR_STORE_BACKEND).
// Environment variables always take precedence over file-based configuration.
//
// An empty path skips the file and starts from defaults.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		cfg, err = Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func getenv(name string) string {
	return os.Getenv(EnvPrefix + name)
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Benchmark overrides
	if val := getenv("BENCHMARK_PATH"); val != "" {
		cfg.Benchmark.Path = val
	}
	if val := getenv("BENCHMARK_PROFILE"); val != "" {
		cfg.Benchmark.Profile = val
	}

	// Engine overrides
	if val := getenv("ENGINES_CONTENT_DIR"); val != "" {
		cfg.Engines.ContentDir = val
	}
	if val := getenv("ENGINES_ROOT"); val != "" {
		cfg.Engines.Root = val
	}
	overrideToggle("ENGINES_CEL_ENABLED", &cfg.Engines.CEL)
	overrideToggle("ENGINES_SCRIPT_ENABLED", &cfg.Engines.Script.EngineToggle)
	overrideToggle("ENGINES_FILE_ENABLED", &cfg.Engines.File)
	if val := getenv("ENGINES_SCRIPT_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Engines.Script.Timeout = d
		}
	}

	if val := getenv("ENGINES_GIT_REPOSITORY"); val != "" {
		cfg.Engines.Git.Repository = val
	}
	if val := getenv("ENGINES_GIT_BRANCH"); val != "" {
		cfg.Engines.Git.Branch = val
	}
	if val := getenv("ENGINES_GIT_TOKEN"); val != "" {
		cfg.Engines.Git.Auth.Token = val
		if cfg.Engines.Git.Auth.Type == "" || cfg.Engines.Git.Auth.Type == DefaultGitAuthType {
			cfg.Engines.Git.Auth.Type = "token"
		}
	}

	if val := getenv("SCORING_SYSTEMS"); val != "" {
		cfg.Scoring.Systems = splitList(val)
	}

	// Store overrides
	if val := getenv("STORE_BACKEND"); val != "" {
		cfg.Store.Backend = val
	}
	if val := getenv("STORE_SQLITE_PATH"); val != "" {
		cfg.Store.SQLite.Path = val
	}
	if val := getenv("STORE_SQLITE_DRIVER"); val != "" {
		cfg.Store.SQLite.Driver = val
	}
	if val := getenv("STORE_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Store.Retention.Days = i
		}
	}

	// Schedule overrides
	if val := getenv("SCHEDULE_CRON"); val != "" {
		cfg.Schedule.Cron = val
	}
	if val := getenv("SCHEDULE_PROFILES"); val != "" {
		cfg.Schedule.Profiles = splitList(val)
	}
	if val := getenv("SCHEDULE_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Schedule.Watch = b
		}
	}
	if val := getenv("SCHEDULE_DEBOUNCE"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Schedule.Debounce = d
		}
	}

	// Telemetry overrides
	if val := getenv("TELEMETRY_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.ListenAddress = val
	}
	if val := getenv("TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := getenv("TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := getenv("TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = &b
		}
	}
	if val := getenv("TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
	if val := getenv("TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := getenv("TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
	if val := getenv("TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func overrideToggle(name string, t *EngineToggle) {
	val := getenv(name)
	if val == "" {
		return
	}
	if b, err := strconv.ParseBool(val); err == nil {
		t.Enabled = &b
	}
}

func splitList(val string) []string {
	var out []string
	for _, s := range strings.Split(val, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
