// Package config defines the application configuration, loaded from
// environment variables via github.com/caarlos0/env.
package config

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files:
//   - database.go: Postgres and Redis configuration
//   - pipeline.go: enrichment pipeline stage configuration
//   - clients.go: LLM, retrieval, and ingestion client configuration
//   - digest.go: email digest configuration
//   - observability.go: metrics configuration
type AppConfig struct {
	// IsDev controls development mode behavior (plain-text logs, relaxed checks).
	IsDev bool `env:"DEV" envDefault:"false"`

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// Pipeline stage configuration
	Pipeline PipelineConfig

	// External client configuration
	LLM       LLMConfig       `envPrefix:"LLM_"`
	Retrieval RetrievalConfig `envPrefix:"RETRIEVAL_"`
	Ingest    IngestConfig    `envPrefix:"INGEST_"`

	// Email digest configuration
	Digest DigestConfig `envPrefix:"DIGEST_"`

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Pipeline.Sanitize()
	c.Retrieval.Sanitize()
	c.Ingest.Sanitize()
	c.Digest.Sanitize()
	c.Observability.Sanitize()
}
