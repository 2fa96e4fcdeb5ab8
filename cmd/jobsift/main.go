// Command jobsift runs one pass of the job enrichment pipeline and, when
// configured, sends the email digest of top-scored matches.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jobsift/jobsift/config"
	"github.com/jobsift/jobsift/internal/bootstrap"
	"github.com/jobsift/jobsift/internal/service"
	"github.com/redis/go-redis/v9"
)

type cliFlags struct {
	testMode   bool
	noRAG      bool
	noProbe    bool
	noIngest   bool
	sendDigest bool
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.BoolVar(&f.testMode, "test", false, "process a single record per stage")
	flag.BoolVar(&f.noRAG, "no-rag", false, "skip the retrieval-context stage")
	flag.BoolVar(&f.noProbe, "no-probe", false, "disable the retrieval recovery guard")
	flag.BoolVar(&f.noIngest, "no-ingest", false, "skip scraping, process stored records only")
	flag.BoolVar(&f.sendDigest, "digest", true, "send the email digest after the pipeline run")
	flag.Parse()
	return f
}

func main() {
	flags := parseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.Error("load config failed", "error", err)
		os.Exit(1)
	}
	logger := bootstrap.InitLogger(cfg.IsDev)

	if err := run(ctx, cfg, flags, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.AppConfig, flags cliFlags, logger *slog.Logger) error {
	applyFlags(&cfg, flags)

	logger.InfoContext(ctx, "starting jobsift",
		"db_host", cfg.Postgres.Host,
		"db_name", cfg.Postgres.Name,
		"test_mode", flags.testMode,
		"retrieval_enabled", !flags.noRAG,
		"digest_enabled", flags.sendDigest && cfg.Digest.Enabled(),
	)

	db, redisClient, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close database failed", "error", cerr)
		}
	}()
	if redisClient != nil {
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	if cfg.Postgres.RunMigrationsOnStart {
		if err := bootstrap.RunMigrations(ctx, db, logger); err != nil {
			return err
		}
	}

	services, err := bootstrap.BuildServices(cfg, db, redisClient, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := services.Metrics.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close metrics client failed", "error", cerr)
		}
	}()

	if services.Lock != nil {
		held, err := services.Lock.TryLock(ctx)
		if err != nil {
			return err
		}
		if !held {
			logger.InfoContext(ctx, "another pipeline run holds the lock, exiting")
			return nil
		}
		defer func() {
			if uerr := services.Lock.Unlock(context.WithoutCancel(ctx)); uerr != nil {
				logger.ErrorContext(ctx, "release run lock failed", "error", uerr)
			}
		}()
	}

	summary, err := services.Pipeline.Run(ctx, flags.runOptions())
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}
	logger.InfoContext(ctx, "pipeline summary",
		"ingested", summary.Ingested,
		"keywords", summary.Keywords,
		"retrievals", summary.Retrievals,
		"analyses", summary.Analyses,
		"scores", summary.Scores,
		"failures", summary.Failures,
	)

	if flags.sendDigest && services.Digest != nil {
		if err := runDigest(ctx, services.Digest, logger); err != nil {
			return err
		}
	}
	return nil
}

// runOptions derives the stage selection from the command-line flags. Test
// mode processes stored records only, without triggering a scraping run.
func (f cliFlags) runOptions() service.RunOptions {
	return service.RunOptions{
		SkipIngest:    f.noIngest || f.testMode,
		SkipRetrieval: f.noRAG,
	}
}

// runDigest delivers the digest. A failed delivery is logged but never
// fails the process: the enrichment work is already committed, the saved
// copy exists, and the unadvanced window means the next run retries.
func runDigest(ctx context.Context, digest *service.DigestService, logger *slog.Logger) error {
	if err := digest.Run(ctx); err != nil {
		logger.ErrorContext(ctx, "digest send failed", "error", err)
		return nil
	}
	logger.InfoContext(ctx, "digest run complete")
	return nil
}

// applyFlags folds command-line overrides into the loaded configuration.
func applyFlags(cfg *config.AppConfig, flags cliFlags) {
	if flags.testMode {
		cfg.Pipeline.KeywordBatchSize = 1
		cfg.Pipeline.RetrievalBatchSize = 1
		cfg.Pipeline.AnalysisBatchSize = 1
		cfg.Pipeline.ScoreBatchSize = 1
	}
	if flags.noProbe {
		cfg.Retrieval.SkipRecovery = true
	}
}

//nolint:ireturn // redis.UniversalClient keeps client selection flexible.
func connect(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) (*sql.DB, redis.UniversalClient, error) {
	db, err := bootstrap.ConnectDB(cfg.Postgres, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}

	var redisClient redis.UniversalClient
	if cfg.Redis.LockEnabled() {
		redisClient, err = bootstrap.ConnectRedis(cfg.Redis, logger)
		if err != nil {
			if cerr := db.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close database after redis connect failure", "error", cerr)
				err = errors.Join(err, cerr)
			}
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
	}
	return db, redisClient, nil
}
