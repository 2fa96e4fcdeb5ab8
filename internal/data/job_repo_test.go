package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jobsift/jobsift/internal/domain/model"
	"github.com/jobsift/jobsift/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T, db *sql.DB) *JobRepo {
	t.Helper()
	return NewJobRepo(db, RepoConfig{})
}

func posting(id, title string) model.RawPosting {
	company := "Acme"
	return model.RawPosting{
		JobID:       id,
		Title:       title,
		Description: "builds things",
		CompanyName: &company,
	}
}

func TestJobRepo_InsertPostings(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := newTestRepo(t, db)
		ctx := context.Background()

		n, err := repo.InsertPostings(ctx, []model.RawPosting{
			posting("j1", "Engineer"),
			posting("j2", "Analyst"),
			{JobID: "", Title: "invalid"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		// duplicates are skipped, new rows still land
		n, err = repo.InsertPostings(ctx, []model.RawPosting{
			posting("j1", "Engineer"),
			posting("j3", "Architect"),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		jobs, err := repo.ListMissingKeywords(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, jobs, 3)
		require.NotNil(t, jobs[0].CompanyName)
		assert.Equal(t, "Acme", *jobs[0].CompanyName)
	})
}

func TestJobRepo_StagePredicates(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := newTestRepo(t, db)
		ctx := context.Background()

		_, err := repo.InsertPostings(ctx, []model.RawPosting{posting("j1", "Engineer")})
		require.NoError(t, err)

		// fresh record is only eligible for the keyword stage
		assertEligible(t, repo, ctx, 1, 0, 0, 0)

		require.NoError(t, repo.SetKeyword(ctx, "j1", "Go, Postgres"))
		assertEligible(t, repo, ctx, 0, 1, 0, 0)

		require.NoError(t, repo.SetRetrievalInfo(ctx, "j1", "relevant experience"))
		assertEligible(t, repo, ctx, 0, 0, 1, 0)

		// analysis without an extractable score leaves the record in the
		// backfill set
		require.NoError(t, repo.SetAnalysis(ctx, "j1", "no numeric rating", nil))
		assertEligible(t, repo, ctx, 0, 0, 0, 1)

		require.NoError(t, repo.SetScore(ctx, "j1", model.ScoredFit{Score: 7.5, IsBestFit: true}))
		assertEligible(t, repo, ctx, 0, 0, 0, 0)

		jobs, err := repo.TopJobsSince(ctx, time.Now().Add(-time.Hour), 10)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		require.NotNil(t, jobs[0].Score)
		assert.Equal(t, 7.5, *jobs[0].Score)
		require.NotNil(t, jobs[0].IsBestFit)
		assert.True(t, *jobs[0].IsBestFit)
		assert.Equal(t, model.StageAnalyzedComplete, jobs[0].Stage())
	})
}

func TestJobRepo_SetAnalysisWithScore(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := newTestRepo(t, db)
		ctx := context.Background()

		_, err := repo.InsertPostings(ctx, []model.RawPosting{posting("j1", "Engineer")})
		require.NoError(t, err)
		require.NoError(t, repo.SetKeyword(ctx, "j1", "Go"))
		require.NoError(t, repo.SetRetrievalInfo(ctx, "j1", "ctx"))

		require.NoError(t, repo.SetAnalysis(ctx, "j1", "Score: 8.5/10",
			&model.ScoredFit{Score: 8.5, IsBestFit: true}))

		// scored in one write, nothing left for the backfill pass
		missing, err := repo.ListMissingScore(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, missing)
	})
}

func TestJobRepo_ListRespectsLimitAndOrder(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		clock := NewFixedTimeProvider(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
		repo := NewJobRepo(db, RepoConfig{TimeProvider: clock})
		ctx := context.Background()

		for _, id := range []string{"old", "mid", "new"} {
			_, err := repo.InsertPostings(ctx, []model.RawPosting{posting(id, "Engineer "+id)})
			require.NoError(t, err)
			clock.AddTime(time.Hour)
		}

		jobs, err := repo.ListMissingKeywords(ctx, 2)
		require.NoError(t, err)
		require.Len(t, jobs, 2)
		assert.Equal(t, "old", jobs[0].JobID)
		assert.Equal(t, "mid", jobs[1].JobID)
	})
}

func TestJobRepo_UpdateUnknownJob(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := newTestRepo(t, db)
		err := repo.SetKeyword(context.Background(), "missing", "Go")
		require.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestJobRepo_TopJobsSince(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := newTestRepo(t, db)
		ctx := context.Background()

		_, err := repo.InsertPostings(ctx, []model.RawPosting{
			posting("low", "Low"), posting("high", "High"), posting("none", "None"),
		})
		require.NoError(t, err)
		require.NoError(t, repo.SetScore(ctx, "low", model.ScoredFit{Score: 4.0}))
		require.NoError(t, repo.SetScore(ctx, "high", model.ScoredFit{Score: 9.0, IsBestFit: true}))

		jobs, err := repo.TopJobsSince(ctx, time.Now().Add(-time.Hour), 10)
		require.NoError(t, err)
		require.Len(t, jobs, 3)
		assert.Equal(t, "high", jobs[0].JobID)
		assert.Equal(t, "low", jobs[1].JobID)
		// unscored rows sort last
		assert.Equal(t, "none", jobs[2].JobID)
	})
}

func TestJobRepo_DigestRuns(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := newTestRepo(t, db)
		ctx := context.Background()

		last, err := repo.LastDigestRun(ctx)
		require.NoError(t, err)
		assert.True(t, last.IsZero())

		first := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
		require.NoError(t, repo.RecordDigestRun(ctx, first))

		last, err = repo.LastDigestRun(ctx)
		require.NoError(t, err)
		assert.WithinDuration(t, first, last, time.Second)

		// later runs overwrite the single bookkeeping row
		second := first.Add(24 * time.Hour)
		require.NoError(t, repo.RecordDigestRun(ctx, second))
		last, err = repo.LastDigestRun(ctx)
		require.NoError(t, err)
		assert.WithinDuration(t, second, last, time.Second)
	})
}

func assertEligible(t *testing.T, repo *JobRepo, ctx context.Context, kw, rag, analysis, sc int) {
	t.Helper()

	jobs, err := repo.ListMissingKeywords(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, jobs, kw, "keyword stage")

	jobs, err = repo.ListMissingRetrieval(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, jobs, rag, "retrieval stage")

	jobs, err = repo.ListMissingAnalysis(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, jobs, analysis, "analysis stage")

	jobs, err = repo.ListMissingScore(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, jobs, sc, "score backfill stage")
}
