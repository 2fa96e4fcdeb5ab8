package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPipelineConfig_Sanitize(t *testing.T) {
	cfg := PipelineConfig{
		KeywordBatchSize:   0,
		RetrievalBatchSize: -5,
		AnalysisBatchSize:  0,
		ScoreBatchSize:     0,
		RetrievalCallDelay: -time.Second,
		UpdateDelay:        -time.Second,
	}
	cfg.Sanitize()

	assert.Equal(t, 1, cfg.KeywordBatchSize)
	assert.Equal(t, 1, cfg.RetrievalBatchSize)
	assert.Equal(t, 1, cfg.AnalysisBatchSize)
	assert.Equal(t, 1, cfg.ScoreBatchSize)
	assert.Equal(t, time.Duration(0), cfg.RetrievalCallDelay)
	assert.Equal(t, time.Duration(0), cfg.UpdateDelay)
	assert.Equal(t, "debug_logs", cfg.ArtifactDir)
}

func TestRetrievalConfig_Sanitize(t *testing.T) {
	cfg := RetrievalConfig{URL: "  http://localhost:8000/query  ", MaxAttempts: 0}
	cfg.Sanitize()

	assert.Equal(t, "http://localhost:8000/query", cfg.URL)
	assert.Equal(t, 120*time.Second, cfg.Timeout)
	assert.Equal(t, 2*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 1, cfg.MaxAttempts)
}

func TestIngestConfig_SanitizeAndEnabled(t *testing.T) {
	cfg := IngestConfig{
		BaseURL:      "https://api.apify.com/v2/ ",
		PollInterval: time.Millisecond,
		MaxWait:      0,
	}
	cfg.Sanitize()

	assert.Equal(t, "https://api.apify.com/v2", cfg.BaseURL)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, cfg.PollInterval, cfg.MaxWait)

	assert.False(t, cfg.Enabled())
	cfg.Token = "tok"
	cfg.TaskID = "task"
	assert.True(t, cfg.Enabled())
}

func TestDigestConfig_SanitizeAndEnabled(t *testing.T) {
	cfg := DigestConfig{Username: "bot@example.com", TopN: -1}
	cfg.Sanitize()

	// sender falls back to the SMTP username
	assert.Equal(t, "bot@example.com", cfg.Sender)
	assert.Equal(t, 7, cfg.TopN)
	assert.Equal(t, "emails", cfg.OutputDir)

	assert.False(t, cfg.Enabled())
	cfg.SMTPHost = "smtp.example.com"
	cfg.Recipient = "me@example.com"
	assert.True(t, cfg.Enabled())
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "   "}
	cfg.Sanitize()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.IsEnabled())

	cfg = ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "127.0.0.1:8125"}
	cfg.Sanitize()
	assert.True(t, cfg.IsEnabled())
}

func TestRedisConfig_LockEnabled(t *testing.T) {
	cfg := RedisConfig{}
	assert.False(t, cfg.LockEnabled())
	cfg.URI = "redis://localhost:6379/0"
	assert.True(t, cfg.LockEnabled())
}
