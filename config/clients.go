package config

import (
	"strings"
	"time"
)

// LLMConfig contains configuration for the OpenAI-compatible language model
// client used for keyword extraction and fitness analysis.
type LLMConfig struct {
	// APIKey authenticates against the LLM provider. Falls back to the
	// provider library's own OPENAI_API_KEY handling when empty.
	APIKey string `env:"API_KEY"`

	// BaseURL overrides the provider endpoint (useful for proxies and tests).
	BaseURL string `env:"BASE_URL"`

	// KeywordModel is the low-cost model used for keyword extraction.
	KeywordModel string `env:"KEYWORD_MODEL" envDefault:"gpt-3.5-turbo"`

	// AnalysisModel is the higher-capability model used for fitness analysis.
	AnalysisModel string `env:"ANALYSIS_MODEL" envDefault:"gpt-4o"`
}

// RetrievalConfig contains configuration for the personal-RAG retrieval
// service and its connection recovery guard.
type RetrievalConfig struct {
	// URL is the query endpoint of the retrieval service.
	URL string `env:"URL" envDefault:"http://localhost:8000/query"`

	// Timeout bounds a single retrieval query.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"120s"`

	// ProbeHost and ProbePort locate the backing vector store for the
	// TCP reachability probe run between retries.
	ProbeHost string `env:"PROBE_HOST" envDefault:"localhost"`
	ProbePort int    `env:"PROBE_PORT" envDefault:"19530"`

	// ProbeTimeout bounds the reachability probe.
	ProbeTimeout time.Duration `env:"PROBE_TIMEOUT" envDefault:"2s"`

	// MaxAttempts is the retry budget for connectivity failures.
	MaxAttempts int `env:"MAX_ATTEMPTS" envDefault:"3"`

	// SkipRecovery disables the recovery guard entirely (pass-through, no
	// retry) for environments where the retrieval service is known
	// unavailable and enrichment should degrade rather than block.
	SkipRecovery bool `env:"SKIP_RECOVERY" envDefault:"false"`
}

// Sanitize applies guardrails to retrieval configuration values.
func (r *RetrievalConfig) Sanitize() {
	r.URL = strings.TrimSpace(r.URL)
	if r.Timeout <= 0 {
		r.Timeout = 120 * time.Second
	}
	if r.ProbeTimeout <= 0 {
		r.ProbeTimeout = 2 * time.Second
	}
	if r.MaxAttempts < 1 {
		r.MaxAttempts = 1
	}
}

// IngestConfig contains configuration for the Apify-style scraping
// collaborator that supplies raw job postings.
type IngestConfig struct {
	// BaseURL is the scraping platform API root.
	BaseURL string `env:"BASE_URL" envDefault:"https://api.apify.com/v2"`

	// Token authenticates API calls.
	Token string `env:"TOKEN"`

	// TaskID identifies the scraping task to trigger.
	TaskID string `env:"TASK_ID"`

	// PollInterval is how often to check run status while waiting.
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"10s"`

	// MaxWait caps how long to wait for a scraping run to finish.
	MaxWait time.Duration `env:"MAX_WAIT" envDefault:"5m"`
}

// Sanitize applies guardrails to ingest configuration values.
func (i *IngestConfig) Sanitize() {
	i.BaseURL = strings.TrimRight(strings.TrimSpace(i.BaseURL), "/")
	if i.PollInterval < time.Second {
		i.PollInterval = time.Second
	}
	if i.MaxWait < i.PollInterval {
		i.MaxWait = i.PollInterval
	}
}

// Enabled returns true when the ingest collaborator is configured.
func (i *IngestConfig) Enabled() bool {
	return i.Token != "" && i.TaskID != ""
}
