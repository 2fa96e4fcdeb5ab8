// Package llm implements keyword extraction and fitness analysis against an
// OpenAI-compatible chat-completion API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jobsift/jobsift/config"
	"github.com/jobsift/jobsift/internal/domain/model"
	"github.com/jobsift/jobsift/internal/score"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// descriptionCharBudget bounds how much of a job description is sent to the
// model, keeping prompt cost predictable for very long postings.
const descriptionCharBudget = 4000

// ErrEmptyCompletion is returned when the model responds with no content.
var ErrEmptyCompletion = errors.New("model returned empty completion")

const keywordSystemPrompt = "You are a job keyword extraction assistant. " +
	"Extract only the most relevant technical skills and software tools from job descriptions."

const keywordPromptTemplate = `Extract 5-7 relevant technical keywords or skills from the following job posting.
Focus on technical skills, technologies, programming languages, frameworks, and qualifications.
Return ONLY a comma-separated list of keywords and nothing else.

Job Title: %s

Job Description:
%s`

const analysisSystemPrompt = "You are a career advisor helping to match job opportunities " +
	"with a candidate's experience and skills. Provide honest and practical analysis of fit."

const analysisPromptTemplate = `Analyze this job opportunity against my experience and knowledge to determine if it's a good fit.

Job Details:
Title: %s

Job Description:
%s

My Relevant Experience and Skills (from Personal Knowledge Database):
%s

Please provide a detailed analysis including:
1. A score from 1-10 with 1 digit after the decimal point indicating how good of a fit this job is (format as "Score: X/10")
2. Key strengths where my experience and skills match the job requirements
3. Gaps where I lack experience or skills required for the job
4. Overall assessment of fit and specific recommendations

Note: The information about my experience is provided as raw document chunks. Extract and use only the relevant information from these chunks when evaluating the fit.`

// Client calls the chat-completion API with two model tiers: a low-cost
// model for keyword extraction (deterministic-leaning, tight token cap) and
// a higher-capability model for the prose fitness analysis.
type Client struct {
	model         llms.Model
	keywordModel  string
	analysisModel string
}

// NewClient constructs the LLM client from configuration. The provider is
// created once and reused across calls.
func NewClient(cfg config.LLMConfig) (*Client, error) {
	var opts []openai.Option
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	m, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}

	return &Client{
		model:         m,
		keywordModel:  cfg.KeywordModel,
		analysisModel: cfg.AnalysisModel,
	}, nil
}

// ExtractKeywords asks the low-cost model for a short comma-joined list of
// technical terms for the posting.
func (c *Client) ExtractKeywords(ctx context.Context, title, description string) (string, error) {
	prompt := fmt.Sprintf(keywordPromptTemplate, title, truncate(description, descriptionCharBudget))

	content, err := c.complete(ctx, keywordSystemPrompt, prompt,
		llms.WithModel(c.keywordModel),
		llms.WithTemperature(0.3),
		llms.WithMaxTokens(100),
	)
	if err != nil {
		return "", fmt.Errorf("extract keywords: %w", err)
	}

	// Models occasionally return one keyword per line; normalize to the
	// comma-joined form the rest of the pipeline expects.
	keywords := strings.ReplaceAll(strings.TrimSpace(content), "\n", ", ")
	if keywords == "" {
		return "", fmt.Errorf("extract keywords: %w", ErrEmptyCompletion)
	}
	return keywords, nil
}

// AnalyzeFitness asks the higher-capability model for a prose fit analysis
// of the job against the stored retrieval context, then derives the numeric
// score from the text.
func (c *Client) AnalyzeFitness(ctx context.Context, job *model.JobRecord) (*model.FitnessAnalysis, error) {
	ragInfo := ""
	if job.RAGInfo != nil {
		ragInfo = *job.RAGInfo
	}
	prompt := fmt.Sprintf(analysisPromptTemplate,
		job.Title, truncate(job.Description, descriptionCharBudget), ragInfo)

	content, err := c.complete(ctx, analysisSystemPrompt, prompt,
		llms.WithModel(c.analysisModel),
		llms.WithTemperature(0.7),
	)
	if err != nil {
		return nil, fmt.Errorf("analyze fitness: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("analyze fitness: %w", ErrEmptyCompletion)
	}

	analysis := &model.FitnessAnalysis{Text: content}
	if s, ok := score.Extract(content); ok {
		analysis.Fit = &model.ScoredFit{Score: s, IsBestFit: score.IsBestFit(s)}
	}
	return analysis, nil
}

func (c *Client) complete(
	ctx context.Context,
	systemPrompt, userPrompt string,
	opts ...llms.CallOption,
) (string, error) {
	msgs := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, userPrompt),
	}

	resp, err := c.model.GenerateContent(ctx, msgs, opts...)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Content, nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
