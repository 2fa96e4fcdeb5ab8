// Package model defines the core data types used throughout the jobsift
// enrichment pipeline.
package model

import "time"

// Stage identifies how far a job record has advanced through the enrichment
// lattice. The stage is derived from which enrichment columns are set; the
// pipeline only ever moves records forward.
type Stage string

const (
	// StageIngested means the record has only its raw posting data.
	StageIngested Stage = "ingested"
	// StageKeywordDone means keywords have been extracted.
	StageKeywordDone Stage = "keyword_done"
	// StageRetrievalDone means personal-fit retrieval context is stored.
	StageRetrievalDone Stage = "retrieval_done"
	// StageAnalyzedComplete means the fitness analysis and score are stored.
	StageAnalyzedComplete Stage = "analyzed"
)

// JobRecord is the unit of work for the enrichment pipeline.
//
// The internal ID is store-assigned and opaque; all pipeline writes are
// keyed by the external JobID so updates remain valid even if internal
// identifiers are regenerated.
type JobRecord struct {
	ID          string `json:"id"          db:"id"`
	JobID       string `json:"job_id"      db:"job_id"`
	Title       string `json:"title"       db:"title"`
	Description string `json:"description" db:"description"`

	// Enrichment columns, nullable until their stage has run.
	Keyword     *string  `json:"keyword,omitempty"      db:"keyword"`
	RAGInfo     *string  `json:"rag_info,omitempty"     db:"rag_info"`
	GPTAnalysis *string  `json:"gpt_analysis,omitempty" db:"gpt_analysis"`
	IsBestFit   *bool    `json:"is_best_fit,omitempty"  db:"is_best_fit"`
	Score       *float64 `json:"score,omitempty"        db:"score"`

	// Display columns passed through from the scraper to the digest.
	CompanyName     *string    `json:"company_name,omitempty"     db:"company_name"`
	Location        *string    `json:"location,omitempty"         db:"location"`
	Salary          *string    `json:"salary,omitempty"           db:"salary"`
	ExperienceLevel *string    `json:"experience_level,omitempty" db:"experience_level"`
	Sector          *string    `json:"sector,omitempty"           db:"sector"`
	WorkType        *string    `json:"work_type,omitempty"        db:"work_type"`
	ContractType    *string    `json:"contract_type,omitempty"    db:"contract_type"`
	ApplyURL        *string    `json:"apply_url,omitempty"        db:"apply_url"`
	JobURL          *string    `json:"job_url,omitempty"          db:"job_url"`
	CompanyURL      *string    `json:"company_url,omitempty"      db:"company_url"`
	PublishedAt     *time.Time `json:"published_at,omitempty"     db:"published_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Stage derives the record's pipeline stage from its enrichment columns.
// Deriving it once per read keeps the null-check lattice in one place.
func (j *JobRecord) Stage() Stage {
	switch {
	case j.GPTAnalysis != nil:
		return StageAnalyzedComplete
	case j.RAGInfo != nil:
		return StageRetrievalDone
	case j.Keyword != nil:
		return StageKeywordDone
	default:
		return StageIngested
	}
}

// Scored reports whether a numeric score has been extracted for the record.
func (j *JobRecord) Scored() bool {
	return j.Score != nil
}

// RawPosting is a job posting as delivered by the scraping collaborator,
// normalized to the columns the store understands. Optional display fields
// are passed through untouched.
type RawPosting struct {
	JobID       string
	Title       string
	Description string

	CompanyName     *string
	Location        *string
	Salary          *string
	ExperienceLevel *string
	Sector          *string
	WorkType        *string
	ContractType    *string
	ApplyURL        *string
	JobURL          *string
	CompanyURL      *string
	PublishedAt     *time.Time
}

// Valid reports whether the posting carries the minimum fields the pipeline
// needs. Invalid postings are dropped at ingestion.
func (p *RawPosting) Valid() bool {
	return p.JobID != "" && p.Title != ""
}
