package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jobsift/jobsift/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// fakeModel scripts a single completion response.
type fakeModel struct {
	content  string
	err      error
	lastMsgs []llms.MessageContent
}

func (f *fakeModel) GenerateContent(
	_ context.Context,
	messages []llms.MessageContent,
	_ ...llms.CallOption,
) (*llms.ContentResponse, error) {
	f.lastMsgs = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.content}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	resp, err := f.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}, opts...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func newTestClient(m llms.Model) *Client {
	return &Client{model: m, keywordModel: "small", analysisModel: "large"}
}

func TestExtractKeywords_NormalizesNewlines(t *testing.T) {
	fake := &fakeModel{content: "Python\nSQL\nDocker"}
	c := newTestClient(fake)

	got, err := c.ExtractKeywords(context.Background(), "Data Engineer", "builds pipelines")
	require.NoError(t, err)
	assert.Equal(t, "Python, SQL, Docker", got)
}

func TestExtractKeywords_EmptyCompletion(t *testing.T) {
	c := newTestClient(&fakeModel{content: "   \n "})

	_, err := c.ExtractKeywords(context.Background(), "Engineer", "desc")
	require.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestExtractKeywords_TruncatesDescription(t *testing.T) {
	fake := &fakeModel{content: "Go"}
	c := newTestClient(fake)

	long := strings.Repeat("x", descriptionCharBudget+500)
	_, err := c.ExtractKeywords(context.Background(), "Engineer", long)
	require.NoError(t, err)

	require.Len(t, fake.lastMsgs, 2)
	userMsg := fake.lastMsgs[1]
	text, ok := userMsg.Parts[0].(llms.TextContent)
	require.True(t, ok)
	assert.NotContains(t, text.Text, strings.Repeat("x", descriptionCharBudget+1))
	assert.Contains(t, text.Text, strings.Repeat("x", descriptionCharBudget))
}

func TestAnalyzeFitness_ExtractsScore(t *testing.T) {
	fake := &fakeModel{content: "Strong match overall. Score: 8.5/10. Gaps: none worth noting."}
	c := newTestClient(fake)

	rag := "10 years of Go and Postgres"
	job := &model.JobRecord{Title: "Backend Engineer", Description: "Go services", RAGInfo: &rag}

	got, err := c.AnalyzeFitness(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, fake.content, got.Text)
	require.NotNil(t, got.Fit)
	assert.InDelta(t, 8.5, got.Fit.Score, 0.0001)
	assert.True(t, got.Fit.IsBestFit)
}

func TestAnalyzeFitness_NoScoreLeavesFitNil(t *testing.T) {
	c := newTestClient(&fakeModel{content: "Hard to say, the posting is vague."})

	got, err := c.AnalyzeFitness(context.Background(), &model.JobRecord{Title: "Engineer"})
	require.NoError(t, err)
	assert.Nil(t, got.Fit)
}

func TestAnalyzeFitness_ModelError(t *testing.T) {
	boom := errors.New("rate limited")
	c := newTestClient(&fakeModel{err: boom})

	_, err := c.AnalyzeFitness(context.Background(), &model.JobRecord{Title: "Engineer"})
	require.ErrorIs(t, err, boom)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "", truncate("abc", 0))
}
