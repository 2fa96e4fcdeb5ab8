package ingest

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/jobsift/jobsift/internal/domain/model"
)

// fieldExpr maps a posting field to a JMESPath expression over a raw dataset
// item. Fallback alternatives handle the naming drift between scraper
// versions (camelCase vs snake_case, nested company objects).
type fieldExpr struct {
	expr string
	set  func(*model.RawPosting, string)
}

var postingFields = []fieldExpr{
	{"id || jobId || job_id", func(p *model.RawPosting, v string) { p.JobID = v }},
	{"title || jobTitle", func(p *model.RawPosting, v string) { p.Title = v }},
	{"description || descriptionText || jobDescription", func(p *model.RawPosting, v string) { p.Description = v }},
	{"companyName || company.name || company_name", func(p *model.RawPosting, v string) { p.CompanyName = &v }},
	{"location || jobLocation", func(p *model.RawPosting, v string) { p.Location = &v }},
	{"salary || salaryInfo", func(p *model.RawPosting, v string) { p.Salary = &v }},
	{"experienceLevel || seniorityLevel", func(p *model.RawPosting, v string) { p.ExperienceLevel = &v }},
	{"sector || industries", func(p *model.RawPosting, v string) { p.Sector = &v }},
	{"workType || employmentType", func(p *model.RawPosting, v string) { p.WorkType = &v }},
	{"contractType", func(p *model.RawPosting, v string) { p.ContractType = &v }},
	{"applyUrl || applicationUrl", func(p *model.RawPosting, v string) { p.ApplyURL = &v }},
	{"link || url || jobUrl", func(p *model.RawPosting, v string) { p.JobURL = &v }},
	{"companyUrl || company.url", func(p *model.RawPosting, v string) { p.CompanyURL = &v }},
	{"publishedAt || postedAt || postedTime", func(p *model.RawPosting, v string) {
		if ts, ok := parseTimestamp(v); ok {
			p.PublishedAt = &ts
		}
	}},
}

// NormalizeItems converts raw dataset items into postings. Items without an
// identifier or title cannot enter the pipeline and are dropped with a log
// line rather than failing the batch.
func NormalizeItems(items []map[string]any, logger *slog.Logger) []model.RawPosting {
	if logger == nil {
		logger = slog.Default()
	}

	postings := make([]model.RawPosting, 0, len(items))
	for i, item := range items {
		p := normalizeItem(item)
		if !p.Valid() {
			logger.Warn("skipping dataset item without job id or title", "index", i)
			continue
		}
		postings = append(postings, p)
	}
	return postings
}

func normalizeItem(item map[string]any) model.RawPosting {
	var p model.RawPosting
	for _, f := range postingFields {
		if v := searchString(f.expr, item); v != "" {
			f.set(&p, v)
		}
	}
	return p
}

// searchString evaluates a JMESPath expression and stringifies scalar
// results. Numeric identifiers are common in scraped payloads.
func searchString(expr string, item map[string]any) string {
	got, err := jmespath.Search(expr, item)
	if err != nil || got == nil {
		return ""
	}
	switch v := got.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return ""
	}
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(v string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
