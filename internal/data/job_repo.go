package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jobsift/jobsift/internal/core"
	"github.com/jobsift/jobsift/internal/data/pgxutil"
	"github.com/jobsift/jobsift/internal/domain/model"
)

var (
	_ core.JobStore    = (*JobRepo)(nil)
	_ core.DigestStore = (*JobRepo)(nil)
)

var (
	// ErrJobNotFound is returned when an update targets a job id that does not exist.
	ErrJobNotFound = errors.New("job not found")
)

// RepoConfig holds configuration options for the job repository.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobRepo provides database operations for job records. All writes are
// keyed by the external job_id, never the internal id, so updates stay
// valid even if internal identifiers are regenerated.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a new JobRepo instance with the given database
// connection and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &JobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const jobColumns = `
  id,
  job_id,
  title,
  description,
  keyword,
  rag_info,
  gpt_analysis,
  is_best_fit,
  score,
  company_name,
  location,
  salary,
  experience_level,
  sector,
  work_type,
  contract_type,
  apply_url,
  job_url,
  company_url,
  published_at,
  created_at,
  updated_at
`

// Stage eligibility predicates. Oldest records first so a backlog drains in
// ingestion order across repeated bounded runs.
const (
	jobsMissingKeywordsQuery = `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE keyword IS NULL
		ORDER BY created_at
		LIMIT $1`

	jobsMissingRetrievalQuery = `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE keyword IS NOT NULL AND rag_info IS NULL
		ORDER BY created_at
		LIMIT $1`

	jobsMissingAnalysisQuery = `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE rag_info IS NOT NULL AND gpt_analysis IS NULL
		ORDER BY created_at
		LIMIT $1`

	jobsMissingScoreQuery = `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE gpt_analysis IS NOT NULL AND score IS NULL
		ORDER BY created_at
		LIMIT $1`

	topJobsSinceQuery = `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE created_at > $1
		ORDER BY score DESC NULLS LAST
		LIMIT $2`
)

// InsertPostings stores raw postings, skipping any whose job_id already
// exists. Each posting is inserted independently so one bad row does not
// abort the batch. Returns the number of newly inserted records.
func (r *JobRepo) InsertPostings(ctx context.Context, postings []model.RawPosting) (int, error) {
	inserted := 0
	now := r.timeProvider.Now().UTC()

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		for i := range postings {
			p := &postings[i]
			if !p.Valid() {
				continue
			}
			_, execErr := conn.Exec(ctx, `
				INSERT INTO jobs (
					job_id, title, description,
					company_name, location, salary, experience_level, sector,
					work_type, contract_type, apply_url, job_url, company_url,
					published_at, created_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
				p.JobID, p.Title, p.Description,
				p.CompanyName, p.Location, p.Salary, p.ExperienceLevel, p.Sector,
				p.WorkType, p.ContractType, p.ApplyURL, p.JobURL, p.CompanyURL,
				p.PublishedAt, now,
			)
			if execErr != nil {
				if isUniqueViolation(execErr) {
					// already ingested on a previous run
					continue
				}
				// Each posting is independent; a bad row must not abort the batch.
				if r.logger != nil {
					r.logger.ErrorContext(ctx, "insert posting failed",
						"job_id", p.JobID, "error", execErr)
				}
				continue
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return inserted, err
	}
	return inserted, nil
}

// ListMissingKeywords selects records with no extracted keywords.
func (r *JobRepo) ListMissingKeywords(ctx context.Context, limit int) ([]*model.JobRecord, error) {
	return r.listEligible(ctx, jobsMissingKeywordsQuery, limit, "list jobs missing keywords")
}

// ListMissingRetrieval selects records with keywords but no retrieval context.
func (r *JobRepo) ListMissingRetrieval(ctx context.Context, limit int) ([]*model.JobRecord, error) {
	return r.listEligible(ctx, jobsMissingRetrievalQuery, limit, "list jobs missing retrieval context")
}

// ListMissingAnalysis selects records with retrieval context but no analysis.
func (r *JobRepo) ListMissingAnalysis(ctx context.Context, limit int) ([]*model.JobRecord, error) {
	return r.listEligible(ctx, jobsMissingAnalysisQuery, limit, "list jobs missing analysis")
}

// ListMissingScore selects analyzed records whose score failed to extract.
func (r *JobRepo) ListMissingScore(ctx context.Context, limit int) ([]*model.JobRecord, error) {
	return r.listEligible(ctx, jobsMissingScoreQuery, limit, "list jobs missing score")
}

func (r *JobRepo) listEligible(
	ctx context.Context,
	query string,
	limit int,
	label string,
) ([]*model.JobRecord, error) {
	if limit <= 0 {
		limit = 1
	}

	var rowsOut []model.JobRecord
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.JobRecord])
		return err
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}

	res := make([]*model.JobRecord, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// SetKeyword writes the extracted keyword list for a job.
func (r *JobRepo) SetKeyword(ctx context.Context, jobID, keyword string) error {
	return r.updateByJobID(ctx, jobID, `
		UPDATE jobs
		SET keyword = $1, updated_at = $2
		WHERE job_id = $3`,
		keyword, r.timeProvider.Now().UTC(), jobID)
}

// SetRetrievalInfo writes the retrieval-context answer for a job.
func (r *JobRepo) SetRetrievalInfo(ctx context.Context, jobID, ragInfo string) error {
	return r.updateByJobID(ctx, jobID, `
		UPDATE jobs
		SET rag_info = $1, updated_at = $2
		WHERE job_id = $3`,
		ragInfo, r.timeProvider.Now().UTC(), jobID)
}

// SetAnalysis writes the analysis text, best-fit flag, and score as one
// update. A nil scored leaves score NULL (and best-fit false) so the
// backfill stage can retry extraction against the stored text.
func (r *JobRepo) SetAnalysis(ctx context.Context, jobID, analysis string, scored *model.ScoredFit) error {
	var (
		score   *float64
		bestFit bool
	)
	if scored != nil {
		score = &scored.Score
		bestFit = scored.IsBestFit
	}
	return r.updateByJobID(ctx, jobID, `
		UPDATE jobs
		SET gpt_analysis = $1, is_best_fit = $2, score = $3, updated_at = $4
		WHERE job_id = $5`,
		analysis, bestFit, score, r.timeProvider.Now().UTC(), jobID)
}

// SetScore writes a backfilled score and its derived best-fit flag.
func (r *JobRepo) SetScore(ctx context.Context, jobID string, scored model.ScoredFit) error {
	return r.updateByJobID(ctx, jobID, `
		UPDATE jobs
		SET score = $1, is_best_fit = $2, updated_at = $3
		WHERE job_id = $4`,
		scored.Score, scored.IsBestFit, r.timeProvider.Now().UTC(), jobID)
}

func (r *JobRepo) updateByJobID(ctx context.Context, jobID, query string, args ...any) error {
	var affected int64
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	}); err != nil {
		return fmt.Errorf("update job %s: %w", jobID, err)
	}
	if affected == 0 {
		return fmt.Errorf("update job %s: %w", jobID, ErrJobNotFound)
	}
	return nil
}

// TopJobsSince returns up to limit jobs created after since, best scores
// first with unscored jobs last.
func (r *JobRepo) TopJobsSince(ctx context.Context, since time.Time, limit int) ([]*model.JobRecord, error) {
	if limit <= 0 {
		limit = 7
	}

	var rowsOut []model.JobRecord
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, topJobsSinceQuery, since.UTC(), limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.JobRecord])
		return err
	}); err != nil {
		return nil, fmt.Errorf("list top jobs: %w", err)
	}

	res := make([]*model.JobRecord, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (duplicate job_id).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
