// Package config provides configuration management for the auditor.
//
// Configuration is read from a YAML file, completed with defaults, overridden
// from the environment and validated:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("auditor.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention AUDITOR_SECTION_FIELD.
// For example:
//
//   - AUDITOR_BENCHMARK_PATH overrides benchmark.path
//   - AUDITOR_STORE_BACKEND overrides store.backend
//   - AUDITOR_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// List values such as AUDITOR_SCORING_SYSTEMS are comma separated.
//
// # Validation
//
// Validation collects every problem before failing:
//
//	configuration validation failed with 2 errors:
//	  - store.backend: backend must be "memory" or "sqlite", got "postgres"
//	  - schedule.cron: invalid cron expression: ...
//
// # Example Configuration
//
//	benchmark:
//	  path: ./benchmarks/linux.yaml
//	  profile: server
//
//	engines:
//	  content_dir: ./benchmarks/content
//	  script:
//	    timeout: 10s
//
//	scoring:
//	  systems: [urn:xccdf:scoring:default, urn:xccdf:scoring:flat]
//
//	store:
//	  backend: sqlite
//	  sqlite:
//	    path: data/results.db
//
//	schedule:
//	  cron: "*/30 * * * *"
package config
