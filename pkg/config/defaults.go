package config

import "time"

// Default values for configuration fields.
const (
	// Benchmark defaults
	DefaultBenchmarkPath = "./benchmark.yaml"

	// Engine defaults
	DefaultContentDir    = "./content"
	DefaultScriptTimeout = 30 * time.Second
	DefaultGitBranch     = "main"
	DefaultGitTimeout    = 60 * time.Second
	DefaultGitAuthType   = "none"

	// Scoring defaults
	DefaultScoringSystem = "urn:xccdf:scoring:default"

	// Store defaults
	DefaultStoreBackend           = "sqlite"
	DefaultSQLitePath             = "data/results.db"
	DefaultSQLiteDriver           = "sqlite3"
	DefaultSQLiteMaxOpenConns     = 4
	DefaultSQLiteWALMode          = true
	DefaultSQLiteBusyTimeout      = 5 * time.Second
	DefaultRetentionDays          = 90
	DefaultRetentionPruneSchedule = "0 3 * * *"

	// Schedule defaults
	DefaultScheduleCron     = "@hourly"
	DefaultScheduleDebounce = 500 * time.Millisecond

	// Telemetry defaults
	DefaultTelemetryListenAddress = "127.0.0.1:9464"
	DefaultLoggingLevel           = "info"
	DefaultLoggingFormat          = "text"
	DefaultPrometheusPath         = "/metrics"
	DefaultMetricsNamespace       = "auditor"
	DefaultTracingSampler         = "ratio"
	DefaultTracingSampleRatio     = 1.0
	DefaultTracingServiceName     = "mercator-auditor"
	DefaultOTLPTimeout            = 10 * time.Second
	DefaultLivenessPath           = "/health"
	DefaultReadinessPath          = "/ready"
	DefaultHealthCheckTimeout     = 5 * time.Second
)

// DefaultDurationBuckets are the histogram buckets used when none are configured.
var DefaultDurationBuckets = []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	if cfg.Benchmark.Path == "" {
		cfg.Benchmark.Path = DefaultBenchmarkPath
	}

	// Engine defaults
	if cfg.Engines.ContentDir == "" {
		cfg.Engines.ContentDir = DefaultContentDir
	}
	if cfg.Engines.Script.Timeout == 0 {
		cfg.Engines.Script.Timeout = DefaultScriptTimeout
	}
	if cfg.Engines.Git.Branch == "" {
		cfg.Engines.Git.Branch = DefaultGitBranch
	}
	if cfg.Engines.Git.Timeout == 0 {
		cfg.Engines.Git.Timeout = DefaultGitTimeout
	}
	if cfg.Engines.Git.Auth.Type == "" {
		cfg.Engines.Git.Auth.Type = DefaultGitAuthType
	}

	if len(cfg.Scoring.Systems) == 0 {
		cfg.Scoring.Systems = []string{DefaultScoringSystem}
	}

	// Store defaults
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = DefaultStoreBackend
	}
	if cfg.Store.SQLite.Path == "" {
		cfg.Store.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Store.SQLite.Driver == "" {
		cfg.Store.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.Store.SQLite.MaxOpenConns == 0 {
		cfg.Store.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	// WAL mode is a pointer so an explicit false survives defaulting.
	if cfg.Store.SQLite.WALMode == nil {
		wal := DefaultSQLiteWALMode
		cfg.Store.SQLite.WALMode = &wal
	}
	if cfg.Store.SQLite.BusyTimeout == 0 {
		cfg.Store.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Store.Retention.Days == 0 {
		cfg.Store.Retention.Days = DefaultRetentionDays
	}
	if cfg.Store.Retention.PruneSchedule == "" {
		cfg.Store.Retention.PruneSchedule = DefaultRetentionPruneSchedule
	}

	// Schedule defaults
	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = DefaultScheduleCron
	}
	if cfg.Schedule.Debounce == 0 {
		cfg.Schedule.Debounce = DefaultScheduleDebounce
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.ListenAddress == "" {
		t.ListenAddress = DefaultTelemetryListenAddress
	}

	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}

	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultPrometheusPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(t.Metrics.DurationBuckets) == 0 {
		t.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}

	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.OTLP.Timeout == 0 {
		t.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}

	if t.Health.LivenessPath == "" {
		t.Health.LivenessPath = DefaultLivenessPath
	}
	if t.Health.ReadinessPath == "" {
		t.Health.ReadinessPath = DefaultReadinessPath
	}
	if t.Health.CheckTimeout == 0 {
		t.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
