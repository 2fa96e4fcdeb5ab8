package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jobsift/jobsift/config"
	"github.com/jobsift/jobsift/internal/core"
	"github.com/jobsift/jobsift/internal/domain/model"
	"github.com/jobsift/jobsift/internal/observability/statsd"
	"github.com/jobsift/jobsift/internal/recovery"
	"github.com/jobsift/jobsift/internal/score"
)

// retrievalQueryTemplate phrases the stored keywords as a first-person
// query against the personal knowledge corpus.
const retrievalQueryTemplate = "My experience and skills related to these technologies and skills: %s"

// PipelineServiceOptions groups dependencies for PipelineService.
type PipelineServiceOptions struct {
	Store     core.JobStore         // Required: job persistence
	Keywords  core.KeywordExtractor // Required: keyword stage client
	Retriever core.Retriever        // Required: retrieval stage client
	Analyzer  core.FitnessAnalyzer  // Required: analysis stage client
	Source    core.PostingSource    // Optional: scraping collaborator
	Artifacts core.ArtifactWriter   // Optional: retrieval debug artifacts
	Config    config.PipelineConfig
	Recovery  recovery.Policy // Retry policy for retrieval calls
	Logger    *slog.Logger    // Optional: structured logger
	Metrics   statsd.Sink     // Optional: metrics sink
}

// PipelineService runs the enrichment pipeline over the jobs table.
//
// Each run executes the stages in dependency order: ingest (optional),
// keyword extraction, retrieval context, fitness analysis, and score
// backfill. Every stage selects its own eligible records, so a record
// enriched by one stage can be picked up by the next stage in the same run.
// Stages advance records independently; a failure on one record is logged
// and skipped, never blocking the rest of the batch.
type PipelineService struct {
	store     core.JobStore
	keywords  core.KeywordExtractor
	retriever core.Retriever
	analyzer  core.FitnessAnalyzer
	source    core.PostingSource
	artifacts core.ArtifactWriter
	config    config.PipelineConfig
	recovery  recovery.Policy
	logger    *slog.Logger
	metrics   statsd.Sink
}

// RunOptions selects which optional stages a run executes.
type RunOptions struct {
	// SkipIngest leaves existing records as the only input.
	SkipIngest bool
	// SkipRetrieval skips the retrieval-context stage, leaving its records
	// for a later run. Downstream stages still run on already-enriched rows.
	SkipRetrieval bool
}

// Summary reports per-stage counts for one pipeline run.
type Summary struct {
	Ingested   int
	Keywords   int
	Retrievals int
	Analyses   int
	Scores     int
	Failures   int
	Elapsed    time.Duration
}

// NewPipelineService constructs a PipelineService.
func NewPipelineService(opts PipelineServiceOptions) (*PipelineService, error) {
	if opts.Store == nil {
		return nil, errors.New("JobStore is required")
	}
	if opts.Keywords == nil {
		return nil, errors.New("KeywordExtractor is required")
	}
	if opts.Retriever == nil {
		return nil, errors.New("Retriever is required")
	}
	if opts.Analyzer == nil {
		return nil, errors.New("FitnessAnalyzer is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "pipeline_service")
	}

	return &PipelineService{
		store:     opts.Store,
		keywords:  opts.Keywords,
		retriever: opts.Retriever,
		analyzer:  opts.Analyzer,
		source:    opts.Source,
		artifacts: opts.Artifacts,
		config:    opts.Config,
		recovery:  opts.Recovery,
		logger:    logger,
		metrics:   opts.Metrics,
	}, nil
}

// Run executes one pipeline pass. It returns the per-stage summary along
// with the first hard error; per-record failures are counted, not returned.
func (s *PipelineService) Run(ctx context.Context, opts RunOptions) (Summary, error) {
	start := time.Now()
	var summary Summary

	if !opts.SkipIngest && s.source != nil {
		n, err := s.runIngest(ctx)
		summary.Ingested = n
		if err != nil {
			// ingest failure leaves existing records processable
			s.logError(ctx, "ingest failed, continuing with stored records", err)
			summary.Failures++
		}
	}

	type stageStep struct {
		label string
		skip  bool
		fn    func(context.Context) (stageOutcome, error)
		count *int
	}

	steps := []stageStep{
		{label: "keywords", fn: s.runKeywordStage, count: &summary.Keywords},
		{label: "retrieval", skip: opts.SkipRetrieval, fn: s.runRetrievalStage, count: &summary.Retrievals},
		{label: "analysis", fn: s.runAnalysisStage, count: &summary.Analyses},
		{label: "score_backfill", fn: s.runScoreBackfill, count: &summary.Scores},
	}

	for _, step := range steps {
		if step.skip {
			s.logInfo(ctx, "stage skipped", "stage", step.label)
			continue
		}
		outcome, err := step.fn(ctx)
		*step.count = outcome.processed
		summary.Failures += outcome.failed
		s.count("pipeline."+step.label+".processed", int64(outcome.processed))
		s.count("pipeline."+step.label+".failed", int64(outcome.failed))
		if err != nil {
			summary.Elapsed = time.Since(start)
			return summary, fmt.Errorf("%s stage: %w", step.label, err)
		}
	}

	summary.Elapsed = time.Since(start)
	if s.metrics != nil {
		s.metrics.Timing("pipeline.run", summary.Elapsed, nil)
	}
	s.logInfo(ctx, "pipeline run complete",
		"ingested", summary.Ingested,
		"keywords", summary.Keywords,
		"retrievals", summary.Retrievals,
		"analyses", summary.Analyses,
		"scores", summary.Scores,
		"failures", summary.Failures,
		"elapsed", summary.Elapsed,
	)
	return summary, nil
}

// stageOutcome counts one stage's per-record results.
type stageOutcome struct {
	processed int
	failed    int
}

func (s *PipelineService) runIngest(ctx context.Context) (int, error) {
	postings, err := s.source.FetchPostings(ctx)
	if err != nil {
		return 0, err
	}
	if len(postings) == 0 {
		return 0, nil
	}
	inserted, err := s.store.InsertPostings(ctx, postings)
	if err != nil {
		return 0, err
	}
	s.count("pipeline.ingest.inserted", int64(inserted))
	s.logInfo(ctx, "ingest complete", "fetched", len(postings), "inserted", inserted)
	return inserted, nil
}

func (s *PipelineService) runKeywordStage(ctx context.Context) (stageOutcome, error) {
	var out stageOutcome

	jobs, err := s.store.ListMissingKeywords(ctx, s.config.KeywordBatchSize)
	if err != nil {
		return out, fmt.Errorf("list records: %w", err)
	}
	s.logInfo(ctx, "keyword stage starting", "eligible", len(jobs))

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		keywords, err := s.keywords.ExtractKeywords(ctx, job.Title, job.Description)
		if err != nil {
			out.failed++
			s.logError(ctx, "keyword extraction failed", err, "job_id", job.JobID)
			continue
		}
		if err := s.store.SetKeyword(ctx, job.JobID, keywords); err != nil {
			out.failed++
			s.logError(ctx, "keyword write failed", err, "job_id", job.JobID)
			continue
		}
		out.processed++
		s.logInfo(ctx, "keywords stored", "job_id", job.JobID, "keywords", keywords)
	}
	return out, nil
}

func (s *PipelineService) runRetrievalStage(ctx context.Context) (stageOutcome, error) {
	var out stageOutcome

	jobs, err := s.store.ListMissingRetrieval(ctx, s.config.RetrievalBatchSize)
	if err != nil {
		return out, fmt.Errorf("list records: %w", err)
	}
	s.logInfo(ctx, "retrieval stage starting", "eligible", len(jobs))

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if job.Keyword == nil || *job.Keyword == "" {
			out.failed++
			s.logError(ctx, "record selected without keywords", errors.New("empty keyword column"),
				"job_id", job.JobID)
			continue
		}

		// Pace queries so the retrieval service is never hit back to back.
		if err := s.pause(ctx, s.config.RetrievalCallDelay); err != nil {
			return out, err
		}

		query := fmt.Sprintf(retrievalQueryTemplate, *job.Keyword)
		result, err := recovery.Do(ctx, s.recovery, func(ctx context.Context) (*model.RetrievalResult, error) {
			return s.retriever.Retrieve(ctx, query)
		})
		if err != nil {
			out.failed++
			s.logError(ctx, "retrieval query failed", err, "job_id", job.JobID)
			continue
		}

		if s.artifacts != nil && len(result.Raw) > 0 {
			// artifacts are diagnostics; a write failure never blocks enrichment
			if err := s.artifacts.WriteRetrievalArtifact(job.JobID, result.Raw); err != nil {
				s.logError(ctx, "artifact write failed", err, "job_id", job.JobID)
			}
		}

		if err := s.store.SetRetrievalInfo(ctx, job.JobID, result.Answer); err != nil {
			out.failed++
			s.logError(ctx, "retrieval write failed", err, "job_id", job.JobID)
			continue
		}
		out.processed++
		s.logInfo(ctx, "retrieval context stored", "job_id", job.JobID, "sources", len(result.Sources))
		if err := s.pause(ctx, s.config.UpdateDelay); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (s *PipelineService) runAnalysisStage(ctx context.Context) (stageOutcome, error) {
	var out stageOutcome

	jobs, err := s.store.ListMissingAnalysis(ctx, s.config.AnalysisBatchSize)
	if err != nil {
		return out, fmt.Errorf("list records: %w", err)
	}
	s.logInfo(ctx, "analysis stage starting", "eligible", len(jobs))

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		analysis, err := s.analyzer.AnalyzeFitness(ctx, job)
		if err != nil {
			out.failed++
			s.logError(ctx, "fitness analysis failed", err, "job_id", job.JobID)
			continue
		}
		if err := s.store.SetAnalysis(ctx, job.JobID, analysis.Text, analysis.Fit); err != nil {
			out.failed++
			s.logError(ctx, "analysis write failed", err, "job_id", job.JobID)
			continue
		}
		out.processed++
		if analysis.Fit != nil {
			s.logInfo(ctx, "analysis stored", "job_id", job.JobID,
				"score", analysis.Fit.Score, "is_best_fit", analysis.Fit.IsBestFit)
		} else {
			s.logInfo(ctx, "analysis stored without extractable score", "job_id", job.JobID)
		}
		if err := s.pause(ctx, s.config.UpdateDelay); err != nil {
			return out, err
		}
	}
	return out, nil
}

// runScoreBackfill re-reads stored analyses whose score column is still
// NULL and derives the score from the text. Zero scores are left NULL: a
// zero from the extractor is indistinguishable from a miss, so the record
// stays visible to future backfill passes.
func (s *PipelineService) runScoreBackfill(ctx context.Context) (stageOutcome, error) {
	var out stageOutcome

	jobs, err := s.store.ListMissingScore(ctx, s.config.ScoreBatchSize)
	if err != nil {
		return out, fmt.Errorf("list records: %w", err)
	}
	s.logInfo(ctx, "score backfill starting", "eligible", len(jobs))

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if job.GPTAnalysis == nil {
			continue
		}

		value, ok := score.Extract(*job.GPTAnalysis)
		if !ok || value == 0 {
			s.logInfo(ctx, "no score found in analysis", "job_id", job.JobID)
			continue
		}

		fit := model.ScoredFit{Score: value, IsBestFit: score.IsBestFit(value)}
		if err := s.store.SetScore(ctx, job.JobID, fit); err != nil {
			out.failed++
			s.logError(ctx, "score write failed", err, "job_id", job.JobID)
			continue
		}
		out.processed++
		s.logInfo(ctx, "score backfilled", "job_id", job.JobID,
			"score", fit.Score, "is_best_fit", fit.IsBestFit)
	}
	return out, nil
}

// pause sleeps for d unless the context ends first.
func (s *PipelineService) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (s *PipelineService) count(name string, value int64) {
	if s.metrics != nil && value != 0 {
		s.metrics.Count(name, value, nil)
	}
}

func (s *PipelineService) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

func (s *PipelineService) logError(ctx context.Context, msg string, err error, args ...any) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, msg, append([]any{"error", err}, args...)...)
	}
}
