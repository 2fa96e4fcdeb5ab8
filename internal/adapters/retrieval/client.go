// Package retrieval implements the HTTP client for the personal-RAG
// retrieval-context service.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jobsift/jobsift/internal/domain/model"
)

// ErrEmptyAnswer is returned when the service responds without an answer.
var ErrEmptyAnswer = errors.New("retrieval service returned no answer")

// maxResponseBytes caps how much of a response body is read; retrieval
// answers are a few KB, so anything larger indicates a misbehaving server.
const maxResponseBytes = 1 << 20

// Config captures the retrieval endpoint settings the client needs.
type Config struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

// Client queries the retrieval service with a natural-language query and
// returns its answer plus supporting sources. It performs no retries; the
// caller wraps invocations with the connection recovery guard.
type Client struct {
	url    string
	client *http.Client
}

// NewClient builds a retrieval client. Callers should pass a sanitized config.
func NewClient(cfg Config) (*Client, error) {
	u := strings.TrimSpace(cfg.URL)
	if u == "" {
		return nil, errors.New("retrieval service url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{url: u, client: hc}, nil
}

type queryRequest struct {
	Query string `json:"query"`
}

// Retrieve posts the query and decodes the {answer, sources} response. The
// raw body is carried on the result for the per-job debug artifact.
func (c *Client) Retrieve(ctx context.Context, query string) (*model.RetrievalResult, error) {
	body, err := json.Marshal(queryRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("encode retrieval query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build retrieval request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query retrieval service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read retrieval response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("retrieval service returned status %d: %s",
			resp.StatusCode, summarize(raw))
	}

	var result model.RetrievalResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode retrieval response: %w", err)
	}
	if strings.TrimSpace(result.Answer) == "" {
		return nil, ErrEmptyAnswer
	}

	result.Raw = raw
	return &result, nil
}

// summarize trims a response body to a log-friendly size.
func summarize(body []byte) string {
	const maxLen = 200
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
