package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jobsift/jobsift/config"
	"github.com/jobsift/jobsift/internal/adapters/artifacts"
	"github.com/jobsift/jobsift/internal/adapters/ingest"
	"github.com/jobsift/jobsift/internal/adapters/llm"
	"github.com/jobsift/jobsift/internal/adapters/mailer"
	"github.com/jobsift/jobsift/internal/adapters/retrieval"
	"github.com/jobsift/jobsift/internal/adapters/runlock"
	"github.com/jobsift/jobsift/internal/core"
	"github.com/jobsift/jobsift/internal/data"
	"github.com/jobsift/jobsift/internal/observability/statsd"
	"github.com/jobsift/jobsift/internal/recovery"
	"github.com/jobsift/jobsift/internal/service"
	"github.com/redis/go-redis/v9"
)

// Services holds the wired application services.
type Services struct {
	Pipeline *service.PipelineService
	Digest   *service.DigestService
	Lock     core.RunLock // nil when Redis is not configured
	Metrics  *statsd.Client
}

// BuildServices wires repositories, clients, and services from configuration.
// The redis client may be nil; the run lock is then omitted.
func BuildServices(
	cfg config.AppConfig,
	db *sql.DB,
	redisClient redis.UniversalClient,
	logger *slog.Logger,
) (*Services, error) {
	metrics, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.Observability.Metrics.IsEnabled(),
		Address: cfg.Observability.Metrics.StatsdAddress,
		Prefix:  "jobsift",
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create statsd client: %w", err)
	}

	repo := data.NewJobRepo(db, data.RepoConfig{Logger: logger})

	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return nil, err
	}

	retrievalClient, err := retrieval.NewClient(retrieval.Config{
		URL:     cfg.Retrieval.URL,
		Timeout: cfg.Retrieval.Timeout,
	})
	if err != nil {
		return nil, err
	}

	artifactWriter, err := artifacts.NewWriter(cfg.Pipeline.ArtifactDir)
	if err != nil {
		return nil, err
	}

	var source core.PostingSource
	if cfg.Ingest.Enabled() {
		ingestClient, err := ingest.NewClient(cfg.Ingest, logger)
		if err != nil {
			return nil, err
		}
		source = ingestClient
	}

	policy := recovery.Policy{
		MaxAttempts: cfg.Retrieval.MaxAttempts,
		Probe: recovery.TCPProbe(
			cfg.Retrieval.ProbeHost, cfg.Retrieval.ProbePort, cfg.Retrieval.ProbeTimeout),
		Disabled: cfg.Retrieval.SkipRecovery,
		Logger:   logger,
	}

	pipeline, err := service.NewPipelineService(service.PipelineServiceOptions{
		Store:     repo,
		Keywords:  llmClient,
		Retriever: retrievalClient,
		Analyzer:  llmClient,
		Source:    source,
		Artifacts: artifactWriter,
		Config:    cfg.Pipeline,
		Recovery:  policy,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		return nil, err
	}

	svcs := &Services{Pipeline: pipeline, Metrics: metrics}

	if cfg.Digest.Enabled() {
		sender, err := mailer.New(cfg.Digest)
		if err != nil {
			return nil, err
		}
		digest, err := service.NewDigestService(service.DigestServiceOptions{
			Store:   repo,
			Sender:  sender,
			Config:  cfg.Digest,
			Logger:  logger,
			Metrics: metrics,
		})
		if err != nil {
			return nil, err
		}
		svcs.Digest = digest
	}

	if redisClient != nil {
		svcs.Lock = runlock.New(redisClient, "jobsift:pipeline:lock", cfg.Redis.LockTTL)
	}

	return svcs, nil
}
