package config

import "time"

// Config is the root configuration structure for the auditor.
// It selects the benchmark to evaluate, the checking engines to register,
// the scoring systems to compute and where results are kept.
type Config struct {
	// Benchmark names the benchmark document and the default profile.
	Benchmark BenchmarkConfig `yaml:"benchmark"`

	// Engines contains configuration for the built-in checking engines.
	Engines EnginesConfig `yaml:"engines"`

	// Scoring lists the scoring systems computed for every result.
	Scoring ScoringConfig `yaml:"scoring"`

	// Store contains configuration for result history storage.
	Store StoreConfig `yaml:"store"`

	// Schedule contains configuration for periodic and watch-mode evaluation.
	Schedule ScheduleConfig `yaml:"schedule"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// BenchmarkConfig selects the benchmark document to load.
type BenchmarkConfig struct {
	// Path is the benchmark YAML file.
	// Default: "./benchmark.yaml"
	Path string `yaml:"path"`

	// Profile is the profile evaluated when none is given on the command
	// line. Empty means the default policy.
	Profile string `yaml:"profile"`
}

// EnginesConfig contains configuration for the checking engines.
type EnginesConfig struct {
	// ContentDir is the directory check content hrefs are resolved against.
	// Default: "./content"
	ContentDir string `yaml:"content_dir"`

	// Root is prefixed to every path inspected on the target system.
	// Empty means the local root filesystem.
	Root string `yaml:"root"`

	// CEL configures the expression engine.
	CEL EngineToggle `yaml:"cel"`

	// Script configures the script check engine.
	Script ScriptEngineConfig `yaml:"script"`

	// File configures the file probe engine.
	File EngineToggle `yaml:"file"`

	// Git keeps ContentDir in sync with a git repository.
	Git GitContentConfig `yaml:"git"`
}

// GitContentConfig clones check content into ContentDir and pulls it
// before every run.
type GitContentConfig struct {
	// Repository is the clone URL or a local path. Empty disables syncing.
	Repository string `yaml:"repository"`

	// Branch is the branch to check out.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Depth limits the clone history. Zero clones everything.
	Depth int `yaml:"depth"`

	// Timeout bounds a single clone or pull.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// Auth contains repository credentials.
	Auth GitAuthConfig `yaml:"auth"`
}

// Enabled reports whether content is synced from git.
func (g GitContentConfig) Enabled() bool {
	return g.Repository != ""
}

// GitAuthConfig contains git authentication configuration.
type GitAuthConfig struct {
	// Type selects the method.
	// Options: "none", "token", "ssh"
	// Default: "none"
	Type string `yaml:"type"`

	// Token is an HTTPS access token. Prefer AUDITOR_ENGINES_GIT_TOKEN.
	Token string `yaml:"token"`

	// SSHKeyPath is a private key file with 0600 permissions.
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase unlocks an encrypted key.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// EngineToggle enables or disables a single engine.
type EngineToggle struct {
	// Enabled registers the engine with every model.
	// Default: true
	Enabled *bool `yaml:"enabled"`
}

// IsEnabled reports whether the engine should be registered.
func (t EngineToggle) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// ScriptEngineConfig configures the script check engine.
type ScriptEngineConfig struct {
	EngineToggle `yaml:",inline"`

	// Timeout bounds a single script run.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// Env contains extra variables passed to every script.
	Env map[string]string `yaml:"env"`
}

// ScoringConfig lists the scoring systems to compute.
type ScoringConfig struct {
	// Systems contains scoring system URIs.
	// Default: ["urn:xccdf:scoring:default"]
	Systems []string `yaml:"systems"`
}

// StoreConfig contains configuration for result history storage.
type StoreConfig struct {
	// Backend specifies the storage backend.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention contains result retention configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/results.db"
	Path string `yaml:"path"`

	// Driver is the database/sql driver name.
	// Options: "sqlite3" (cgo), "sqlite" (pure Go)
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 4
	MaxOpenConns int `yaml:"max_open_conns"`

	// WALMode enables Write-Ahead Logging mode.
	// Default: true
	WALMode *bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig controls how long stored results are kept.
type RetentionConfig struct {
	// Days is the age after which results are pruned.
	// Default: 90
	Days int `yaml:"days"`

	// MaxResults caps the number of stored results. Zero is unlimited.
	MaxResults int `yaml:"max_results"`

	// PruneSchedule is a cron expression for the prune job.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// ScheduleConfig controls unattended evaluations.
type ScheduleConfig struct {
	// Cron is the evaluation schedule used by "auditor schedule".
	// Default: "@hourly"
	Cron string `yaml:"cron"`

	// Profiles evaluated on every run. Empty means the benchmark profile.
	Profiles []string `yaml:"profiles"`

	// Watch re-evaluates whenever the benchmark or content changes.
	Watch bool `yaml:"watch"`

	// Debounce collapses bursts of file events into one evaluation.
	// Default: 500ms
	Debounce time.Duration `yaml:"debounce"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// ListenAddress is where long-running commands serve metrics and health
	// endpoints. "off" disables the listener.
	// Default: "127.0.0.1:9464"
	ListenAddress string `yaml:"listen_address"`

	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// ListenerDisabled is the ListenAddress value that turns the listener off.
const ListenerDisabled = "off"

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// Redact masks secrets (tokens, passwords, keys) in log attributes.
	Redact bool `yaml:"redact"`

	// RedactPatterns contains custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "auditor"
	Namespace string `yaml:"namespace"`

	// DurationBuckets defines histogram buckets for evaluation and check
	// durations (seconds).
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// IsEnabled reports whether metrics are collected.
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "mercator-auditor"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout is the timeout for individual readiness checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`

	// MaxResultAge marks the service unready when the last completed
	// evaluation is older than this. Zero disables the check.
	MaxResultAge time.Duration `yaml:"max_result_age"`
}
