package core

import (
	"context"
	"time"

	"github.com/jobsift/jobsift/internal/domain/model"
)

// This file contains the port definitions between the pipeline service layer
// and its collaborators (store, external clients, lock). Services depend on
// these interfaces, not concrete implementations.

// JobStore defines typed access to job records, keyed by the external job id.
// The List* selections implement the stage eligibility predicates and must
// respect the given limit, ordered oldest-first by creation time.
type JobStore interface {
	// InsertPostings stores raw postings, skipping duplicates by job id.
	// Returns the number of newly inserted records.
	InsertPostings(ctx context.Context, postings []model.RawPosting) (int, error)

	// ListMissingKeywords selects records with keyword IS NULL.
	ListMissingKeywords(ctx context.Context, limit int) ([]*model.JobRecord, error)
	// ListMissingRetrieval selects records with keyword set and rag_info IS NULL.
	ListMissingRetrieval(ctx context.Context, limit int) ([]*model.JobRecord, error)
	// ListMissingAnalysis selects records with rag_info set and gpt_analysis IS NULL.
	ListMissingAnalysis(ctx context.Context, limit int) ([]*model.JobRecord, error)
	// ListMissingScore selects records with gpt_analysis set and score IS NULL.
	ListMissingScore(ctx context.Context, limit int) ([]*model.JobRecord, error)

	SetKeyword(ctx context.Context, jobID, keyword string) error
	SetRetrievalInfo(ctx context.Context, jobID, ragInfo string) error
	// SetAnalysis writes the analysis text, best-fit flag, and score in one
	// update. A nil score leaves the score column NULL so the backfill
	// stage can retry extraction later.
	SetAnalysis(ctx context.Context, jobID, analysis string, scored *model.ScoredFit) error
	// SetScore writes a backfilled score and its derived best-fit flag.
	SetScore(ctx context.Context, jobID string, scored model.ScoredFit) error
}

// KeywordExtractor extracts a short comma-joined list of technical terms
// from a job posting.
type KeywordExtractor interface {
	ExtractKeywords(ctx context.Context, title, description string) (string, error)
}

// Retriever answers a natural-language query against the personal knowledge
// corpus with an answer and supporting source references.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (*model.RetrievalResult, error)
}

// FitnessAnalyzer produces a free-text fitness analysis of a job against
// the stored retrieval context, with the score derived from the text.
type FitnessAnalyzer interface {
	AnalyzeFitness(ctx context.Context, job *model.JobRecord) (*model.FitnessAnalysis, error)
}

// ArtifactWriter persists raw retrieval responses for offline debugging.
// Artifacts are diagnostic only and never read back by the pipeline.
type ArtifactWriter interface {
	WriteRetrievalArtifact(jobID string, raw []byte) error
}

// PostingSource is the scraping collaborator: it triggers a scrape run and
// returns the resulting raw postings.
type PostingSource interface {
	FetchPostings(ctx context.Context) ([]model.RawPosting, error)
}

// RunLock enforces the single-pipeline-instance scheduling discipline.
type RunLock interface {
	// TryLock acquires the pipeline lease; false means another run holds it.
	TryLock(ctx context.Context) (bool, error)
	// Unlock releases the lease if this instance still holds it.
	Unlock(ctx context.Context) error
}

// DigestStore provides the read side of the email digest, which operates on
// the same jobs relation independently of the pipeline stages.
type DigestStore interface {
	// TopJobsSince returns up to limit jobs created after since, ordered by
	// score descending with unscored jobs last.
	TopJobsSince(ctx context.Context, since time.Time, limit int) ([]*model.JobRecord, error)
	// LastDigestRun returns the previous digest timestamp, or zero when the
	// digest has never run.
	LastDigestRun(ctx context.Context) (time.Time, error)
	// RecordDigestRun persists the digest timestamp after a successful send.
	RecordDigestRun(ctx context.Context, at time.Time) error
}

// DigestSender delivers a rendered digest.
type DigestSender interface {
	Send(ctx context.Context, subject, htmlBody string) error
}
