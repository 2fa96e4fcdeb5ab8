package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jobsift/jobsift/config"
	"github.com/jobsift/jobsift/internal/core"
	"github.com/jobsift/jobsift/internal/data"
	"github.com/jobsift/jobsift/internal/domain/model"
	"github.com/jobsift/jobsift/internal/observability/statsd"
)

// defaultDigestWindow bounds the first digest when no previous run is
// recorded.
const defaultDigestWindow = 7 * 24 * time.Hour

const digestTemplateText = `<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: Arial, sans-serif; color: #222; }
  .job { border: 1px solid #ddd; border-radius: 6px; padding: 12px; margin-bottom: 14px; }
  .title { font-size: 16px; font-weight: bold; }
  .meta { color: #666; font-size: 13px; margin: 4px 0; }
  .score { display: inline-block; color: #fff; border-radius: 4px; padding: 2px 8px; font-size: 13px; }
  .analysis { font-size: 13px; margin-top: 8px; white-space: pre-line; }
  .bestfit { color: #2e7d32; font-weight: bold; font-size: 13px; }
  .links { margin-top: 8px; font-size: 13px; }
  .links a { margin-right: 12px; }
</style>
</head>
<body>
<h2>Top Job Matches</h2>
<p>{{ .Count }} new jobs since {{ .Since.Format "Jan 2, 2006" }}.</p>
{{ range .Jobs }}
<div class="job">
  <div class="title">{{ if .JobURL }}<a href="{{ deref .JobURL }}">{{ .Title }}</a>{{ else }}{{ .Title }}{{ end }}</div>
  <div class="meta">
    {{ if .CompanyName }}{{ deref .CompanyName }}{{ end }}
    {{ if .Location }} | {{ deref .Location }}{{ end }}
    {{ if .Salary }} | {{ deref .Salary }}{{ end }}
    {{ if .PublishedAt }} | Published {{ day .PublishedAt }}{{ end }}
  </div>
  <div class="meta">
    {{ if .ExperienceLevel }}{{ deref .ExperienceLevel }}{{ end }}
    {{ if .Sector }} | {{ deref .Sector }}{{ end }}
    {{ if .WorkType }} | {{ deref .WorkType }}{{ end }}
    {{ if .ContractType }} | {{ deref .ContractType }}{{ end }}
  </div>
  {{ if .Score }}<span class="score" style="background-color: {{ scoreColor .Score }}">Score: {{ printf "%.1f" (derefF .Score) }}/10</span>{{ end }}
  {{ if .IsBestFit }}{{ if deref2 .IsBestFit }} <span class="bestfit">Best fit</span>{{ end }}{{ end }}
  {{ if .GPTAnalysis }}<div class="analysis">{{ excerpt (deref .GPTAnalysis) }}</div>{{ end }}
  <div class="links">
    {{ if .ApplyURL }}<a href="{{ deref .ApplyURL }}">Apply</a>{{ end }}
    {{ if .CompanyURL }}<a href="{{ deref .CompanyURL }}">Company</a>{{ end }}
  </div>
</div>
{{ end }}
</body>
</html>
`

var digestTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"deref":  func(s *string) string { return *s },
	"derefF": func(f *float64) float64 { return *f },
	"deref2": func(b *bool) bool { return *b },
	"day":    func(t *time.Time) string { return t.Format("Jan 2, 2006") },
	"scoreColor": func(f *float64) string {
		switch {
		case *f >= 7:
			return "#2e7d32"
		case *f >= 5:
			return "#ef6c00"
		default:
			return "#c62828"
		}
	},
	"excerpt": excerpt,
}).Parse(digestTemplateText))

// excerpt trims an analysis to a digest-friendly length on a word boundary.
func excerpt(s string) string {
	const maxLen = 600
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	for i := len(cut) - 1; i > maxLen-80 && i > 0; i-- {
		if cut[i] == ' ' {
			cut = cut[:i]
			break
		}
	}
	return cut + "..."
}

// DigestServiceOptions groups dependencies for DigestService.
type DigestServiceOptions struct {
	Store   core.DigestStore  // Required: digest reads and run bookkeeping
	Sender  core.DigestSender // Required: mail delivery
	Config  config.DigestConfig
	Time    data.TimeProvider // Optional: defaults to wall clock
	Logger  *slog.Logger      // Optional: structured logger
	Metrics statsd.Sink       // Optional: metrics sink
}

// DigestService emails the top-scored jobs that arrived since the last
// digest. It reads the same jobs relation the pipeline writes but never
// participates in stage transitions.
type DigestService struct {
	store   core.DigestStore
	sender  core.DigestSender
	config  config.DigestConfig
	time    data.TimeProvider
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewDigestService constructs a DigestService.
func NewDigestService(opts DigestServiceOptions) (*DigestService, error) {
	if opts.Store == nil {
		return nil, errors.New("DigestStore is required")
	}
	if opts.Sender == nil {
		return nil, errors.New("DigestSender is required")
	}

	tp := opts.Time
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "digest_service")
	}

	return &DigestService{
		store:   opts.Store,
		sender:  opts.Sender,
		config:  opts.Config,
		time:    tp,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// digestData feeds the HTML template.
type digestData struct {
	Count int
	Since time.Time
	Jobs  []*model.JobRecord
}

// Run sends one digest. The last-run timestamp is only advanced after a
// successful send, so a failed delivery leaves the window intact for the
// next attempt. A window with no jobs sends nothing and keeps the window.
func (s *DigestService) Run(ctx context.Context) error {
	now := s.time.Now()

	since, err := s.store.LastDigestRun(ctx)
	if err != nil {
		return fmt.Errorf("read last digest run: %w", err)
	}
	if since.IsZero() {
		since = now.Add(-defaultDigestWindow)
	}

	jobs, err := s.store.TopJobsSince(ctx, since, s.config.TopN)
	if err != nil {
		return fmt.Errorf("select digest jobs: %w", err)
	}
	if len(jobs) == 0 {
		if s.logger != nil {
			s.logger.InfoContext(ctx, "no new jobs for digest", "since", since)
		}
		return nil
	}

	html, err := s.render(digestData{Count: len(jobs), Since: since, Jobs: jobs})
	if err != nil {
		return err
	}

	if s.config.OutputDir != "" {
		if err := s.saveCopy(now, html); err != nil && s.logger != nil {
			// the local copy is a convenience, delivery still proceeds
			s.logger.WarnContext(ctx, "saving digest copy failed", "error", err)
		}
	}

	subject := fmt.Sprintf("Top %d Job Matches - %s", len(jobs), now.Format("Jan 2, 2006"))
	if err := s.sender.Send(ctx, subject, html); err != nil {
		return fmt.Errorf("send digest: %w", err)
	}

	if err := s.store.RecordDigestRun(ctx, now); err != nil {
		return fmt.Errorf("record digest run: %w", err)
	}

	if s.metrics != nil {
		s.metrics.Count("digest.sent", 1, nil)
		s.metrics.Gauge("digest.jobs", float64(len(jobs)), nil)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "digest sent", "jobs", len(jobs), "since", since)
	}
	return nil
}

func (s *DigestService) render(d digestData) (string, error) {
	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}

func (s *DigestService) saveCopy(now time.Time, html string) error {
	if err := os.MkdirAll(s.config.OutputDir, 0o755); err != nil {
		return err
	}
	name := filepath.Join(s.config.OutputDir,
		fmt.Sprintf("digest_%s.html", now.Format("20060102_150405")))
	return os.WriteFile(name, []byte(html), 0o644)
}
