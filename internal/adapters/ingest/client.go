// Package ingest implements the scraping collaborator client: it triggers a
// scraping task run on an Apify-style actor platform, waits for it to
// finish, and fetches the resulting raw job postings.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jobsift/jobsift/config"
	"github.com/jobsift/jobsift/internal/domain/model"
)

// Terminal run statuses reported by the platform.
const (
	runStatusSucceeded = "SUCCEEDED"
	runStatusFailed    = "FAILED"
	runStatusAborted   = "ABORTED"
	runStatusTimedOut  = "TIMED-OUT"
)

var (
	// ErrRunFailed is returned when the scraping run finishes in a failure state.
	ErrRunFailed = errors.New("scraping run failed")
	// ErrRunTimeout is returned when the run does not finish within the wait budget.
	ErrRunTimeout = errors.New("timed out waiting for scraping run")
)

// Client talks to the scraping platform API.
type Client struct {
	baseURL      string
	token        string
	taskID       string
	pollInterval time.Duration
	maxWait      time.Duration
	client       *http.Client
	logger       *slog.Logger
}

// NewClient builds an ingest client from configuration.
func NewClient(cfg config.IngestConfig, logger *slog.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("ingest requires a token and task id")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		token:        cfg.Token,
		taskID:       cfg.TaskID,
		pollInterval: cfg.PollInterval,
		maxWait:      cfg.MaxWait,
		client:       &http.Client{Timeout: 60 * time.Second},
		logger:       logger.With("component", "ingest"),
	}, nil
}

type runInfo struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

type runEnvelope struct {
	Data runInfo `json:"data"`
}

// FetchPostings triggers the scraping task, waits for it to complete, and
// returns the normalized postings from its dataset.
func (c *Client) FetchPostings(ctx context.Context) ([]model.RawPosting, error) {
	run, err := c.triggerRun(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "scraping run started", "run_id", run.ID)

	run, err = c.waitForRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	if run.DefaultDatasetID == "" {
		return nil, errors.New("scraping run finished without a dataset")
	}

	items, err := c.fetchDatasetItems(ctx, run.DefaultDatasetID)
	if err != nil {
		return nil, err
	}

	postings := NormalizeItems(items, c.logger)
	c.logger.InfoContext(ctx, "scraping run complete",
		"run_id", run.ID, "items", len(items), "postings", len(postings))
	return postings, nil
}

func (c *Client) triggerRun(ctx context.Context) (*runInfo, error) {
	u := fmt.Sprintf("%s/actor-tasks/%s/runs?token=%s", c.baseURL, c.taskID, c.token)
	var env runEnvelope
	if err := c.doJSON(ctx, http.MethodPost, u, &env); err != nil {
		return nil, fmt.Errorf("trigger scraping run: %w", err)
	}
	if env.Data.ID == "" {
		return nil, errors.New("trigger scraping run: no run id in response")
	}
	return &env.Data, nil
}

func (c *Client) waitForRun(ctx context.Context, runID string) (*runInfo, error) {
	deadline := time.Now().Add(c.maxWait)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		u := fmt.Sprintf("%s/actor-runs/%s?token=%s", c.baseURL, runID, c.token)
		var env runEnvelope
		if err := c.doJSON(ctx, http.MethodGet, u, &env); err != nil {
			// transient status-poll failures are retried until the deadline
			c.logger.WarnContext(ctx, "run status check failed", "run_id", runID, "error", err)
		} else {
			switch env.Data.Status {
			case runStatusSucceeded:
				return &env.Data, nil
			case runStatusFailed, runStatusAborted, runStatusTimedOut:
				return nil, fmt.Errorf("%w: status %s", ErrRunFailed, env.Data.Status)
			}
			c.logger.InfoContext(ctx, "scraping run in progress",
				"run_id", runID, "status", env.Data.Status)
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: run %s", ErrRunTimeout, runID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) fetchDatasetItems(ctx context.Context, datasetID string) ([]map[string]any, error) {
	u := fmt.Sprintf("%s/datasets/%s/items?token=%s&format=json", c.baseURL, datasetID, c.token)
	var items []map[string]any
	if err := c.doJSON(ctx, http.MethodGet, u, &items); err != nil {
		return nil, fmt.Errorf("fetch dataset items: %w", err)
	}
	return items, nil
}

func (c *Client) doJSON(ctx context.Context, method, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}
