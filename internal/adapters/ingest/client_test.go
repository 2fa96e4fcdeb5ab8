package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jobsift/jobsift/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIngestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(config.IngestConfig{
		BaseURL:      baseURL,
		Token:        "tok",
		TaskID:       "task1",
		PollInterval: 5 * time.Millisecond,
		MaxWait:      time.Second,
	}, nil)
	require.NoError(t, err)
	return c
}

func TestFetchPostings(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/actor-tasks/task1/runs":
			require.Equal(t, "tok", r.URL.Query().Get("token"))
			fmt.Fprint(w, `{"data": {"id": "run1", "status": "RUNNING"}}`)
		case r.URL.Path == "/actor-runs/run1":
			if polls.Add(1) < 2 {
				fmt.Fprint(w, `{"data": {"id": "run1", "status": "RUNNING"}}`)
				return
			}
			fmt.Fprint(w, `{"data": {"id": "run1", "status": "SUCCEEDED", "defaultDatasetId": "ds1"}}`)
		case r.URL.Path == "/datasets/ds1/items":
			fmt.Fprint(w, `[
				{"id": "j1", "title": "Go Engineer", "description": "services"},
				{"title": "no id, skipped"}
			]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestIngestClient(t, srv.URL)
	got, err := c.FetchPostings(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "j1", got[0].JobID)
	assert.Equal(t, "Go Engineer", got[0].Title)
	assert.GreaterOrEqual(t, polls.Load(), int32(2))
}

func TestFetchPostings_RunFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			fmt.Fprint(w, `{"data": {"id": "run1", "status": "RUNNING"}}`)
			return
		}
		fmt.Fprint(w, `{"data": {"id": "run1", "status": "FAILED"}}`)
	}))
	defer srv.Close()

	c := newTestIngestClient(t, srv.URL)
	_, err := c.FetchPostings(context.Background())
	require.ErrorIs(t, err, ErrRunFailed)
}

func TestFetchPostings_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			fmt.Fprint(w, `{"data": {"id": "run1", "status": "RUNNING"}}`)
			return
		}
		fmt.Fprint(w, `{"data": {"id": "run1", "status": "RUNNING"}}`)
	}))
	defer srv.Close()

	c, err := NewClient(config.IngestConfig{
		BaseURL:      srv.URL,
		Token:        "tok",
		TaskID:       "task1",
		PollInterval: 5 * time.Millisecond,
		MaxWait:      25 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	_, err = c.FetchPostings(context.Background())
	require.ErrorIs(t, err, ErrRunTimeout)
}

func TestFetchPostings_TriggerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestIngestClient(t, srv.URL)
	_, err := c.FetchPostings(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trigger scraping run")
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(config.IngestConfig{BaseURL: "http://x"}, nil)
	require.Error(t, err)
}
