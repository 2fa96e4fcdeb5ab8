package config

import "time"

// PipelineConfig contains enrichment pipeline stage configuration.
//
// The batch limits bound per-run cost against the external services'
// latency and rate limits; the delays are deliberate load-shedding for the
// retrieval service, not incidental latency.
type PipelineConfig struct {
	// KeywordBatchSize is the maximum number of records processed by the
	// keyword extraction stage per run.
	KeywordBatchSize int `env:"PIPELINE_KEYWORD_BATCH_SIZE" envDefault:"50"`

	// RetrievalBatchSize is the maximum number of records processed by the
	// retrieval-context stage per run.
	RetrievalBatchSize int `env:"PIPELINE_RETRIEVAL_BATCH_SIZE" envDefault:"25"`

	// AnalysisBatchSize is the maximum number of records processed by the
	// fitness analysis stage per run.
	AnalysisBatchSize int `env:"PIPELINE_ANALYSIS_BATCH_SIZE" envDefault:"25"`

	// ScoreBatchSize is the maximum number of records processed by the
	// score backfill stage per run.
	ScoreBatchSize int `env:"PIPELINE_SCORE_BATCH_SIZE" envDefault:"50"`

	// RetrievalCallDelay is the pause before each retrieval-context query.
	RetrievalCallDelay time.Duration `env:"PIPELINE_RETRIEVAL_CALL_DELAY" envDefault:"15s"`

	// UpdateDelay is the politeness pause after each successful write in the
	// retrieval and analysis stages. Keyword extraction is not throttled.
	UpdateDelay time.Duration `env:"PIPELINE_UPDATE_DELAY" envDefault:"1s"`

	// ArtifactDir is where raw retrieval responses are written for debugging,
	// one JSON file per job id.
	ArtifactDir string `env:"PIPELINE_ARTIFACT_DIR" envDefault:"debug_logs"`
}

// Sanitize applies guardrails to pipeline configuration values.
func (p *PipelineConfig) Sanitize() {
	if p.KeywordBatchSize < 1 {
		p.KeywordBatchSize = 1
	}
	if p.RetrievalBatchSize < 1 {
		p.RetrievalBatchSize = 1
	}
	if p.AnalysisBatchSize < 1 {
		p.AnalysisBatchSize = 1
	}
	if p.ScoreBatchSize < 1 {
		p.ScoreBatchSize = 1
	}
	if p.RetrievalCallDelay < 0 {
		p.RetrievalCallDelay = 0
	}
	if p.UpdateDelay < 0 {
		p.UpdateDelay = 0
	}
	if p.ArtifactDir == "" {
		p.ArtifactDir = "debug_logs"
	}
}
