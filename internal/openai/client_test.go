package openai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockProviderAPI is a mock implementation of ProviderAPI
type MockProviderAPI struct {
	mock.Mock
}

func (m *MockProviderAPI) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockProviderAPI) CreateCompletion(ctx context.Context, system, user string, maxTokens int) (string, error) {
	args := m.Called(ctx, system, user, maxTokens)
	return args.String(0), args.Error(1)
}

func fakeEmbedding(dims int) []float32 {
	v := make([]float32, dims)
	for i := range v {
		v[i] = 0.01
	}
	return v
}

func TestGenerateEmbedding_Success(t *testing.T) {
	api := new(MockProviderAPI)
	api.On("CreateEmbedding", mock.Anything, "budget discussion").Return(fakeEmbedding(1536), nil)

	client := NewClientWithAPI(api)
	embedding := client.GenerateEmbedding(context.Background(), "budget discussion")

	assert.Len(t, embedding, 1536)
	api.AssertExpectations(t)
}

func TestGenerateEmbedding_Unconfigured(t *testing.T) {
	client := NewClient("")

	embedding := client.GenerateEmbedding(context.Background(), "anything")

	assert.Empty(t, embedding)
	assert.False(t, client.Configured())
}

func TestGenerateEmbedding_ProviderError(t *testing.T) {
	api := new(MockProviderAPI)
	api.On("CreateEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("rate limited"))

	client := NewClientWithAPI(api)
	embedding := client.GenerateEmbedding(context.Background(), "anything")

	assert.Empty(t, embedding)
}

func TestGenerateEmbedding_WrongDimensions(t *testing.T) {
	api := new(MockProviderAPI)
	api.On("CreateEmbedding", mock.Anything, mock.Anything).Return(fakeEmbedding(512), nil)

	client := NewClientWithAPI(api)
	embedding := client.GenerateEmbedding(context.Background(), "anything")

	assert.Empty(t, embedding)
}

func TestGenerateEmbedding_EmptyText(t *testing.T) {
	api := new(MockProviderAPI)

	client := NewClientWithAPI(api)
	embedding := client.GenerateEmbedding(context.Background(), "   ")

	assert.Empty(t, embedding)
	api.AssertNotCalled(t, "CreateEmbedding", mock.Anything, mock.Anything)
}

func TestExtractKeywords_Success(t *testing.T) {
	api := new(MockProviderAPI)
	api.On("CreateCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("Budget, Deadline , sprint planning,  rollout", nil)

	client := NewClientWithAPI(api)
	keywords := client.ExtractKeywords(context.Background(), "irrelevant")

	assert.Equal(t, []string{"budget", "deadline", "sprint planning", "rollout"}, keywords)
}

func TestExtractKeywords_CapsAtSeven(t *testing.T) {
	api := new(MockProviderAPI)
	api.On("CreateCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("a, b, c, d, e, f, g, h, i", nil)

	client := NewClientWithAPI(api)
	keywords := client.ExtractKeywords(context.Background(), "irrelevant")

	assert.Len(t, keywords, 7)
}

func TestExtractKeywords_FallbackOnError(t *testing.T) {
	api := new(MockProviderAPI)
	api.On("CreateCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("provider down"))

	client := NewClientWithAPI(api)
	keywords := client.ExtractKeywords(context.Background(),
		"The migration deadline moved because the database upgrade slipped")

	assert.Equal(t, []string{"migration", "deadline", "moved", "database", "upgrade"}, keywords)
}

func TestHeuristicKeywords(t *testing.T) {
	keywords := heuristicKeywords("We decided that the budget budget caps at $50k this quarter")

	// short tokens, stop words and duplicates are dropped; order preserved
	assert.Equal(t, []string{"decided", "budget", "caps", "quarter"}, keywords)
}

func TestHeuristicKeywords_TakesFirstFive(t *testing.T) {
	keywords := heuristicKeywords("alpha bravo charlie delta echo foxtrot golf")

	assert.Equal(t, []string{"alpha", "bravo", "charlie", "delta", "echo"}, keywords)
}

func TestSummarize_Success(t *testing.T) {
	api := new(MockProviderAPI)
	api.On("CreateCompletion", mock.Anything, mock.Anything, mock.Anything, summaryMaxTokens).
		Return("The team capped the budget at $50k.", nil)

	client := NewClientWithAPI(api)
	summary := client.Summarize(context.Background(), "long meeting transcript...")

	assert.Equal(t, "The team capped the budget at $50k.", summary)
}

func TestSummarize_FallbackTruncates(t *testing.T) {
	api := new(MockProviderAPI)
	api.On("CreateCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("provider down"))

	client := NewClientWithAPI(api)
	long := strings.Repeat("a", 150)
	summary := client.Summarize(context.Background(), long)

	assert.Len(t, summary, 100)
	assert.True(t, strings.HasSuffix(summary, "..."))
	assert.Equal(t, strings.Repeat("a", 97), summary[:97])
}

func TestSummarize_FallbackKeepsShortContent(t *testing.T) {
	client := NewClient("")

	summary := client.Summarize(context.Background(), "short note")

	assert.Equal(t, "short note", summary)
}

func TestEnrich_PartialFailure(t *testing.T) {
	api := new(MockProviderAPI)
	// Embedding succeeds, completions fail
	api.On("CreateEmbedding", mock.Anything, mock.Anything).Return(fakeEmbedding(1536), nil)
	api.On("CreateCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("provider down"))

	client := NewClientWithAPI(api)
	enrichment := client.Enrich(context.Background(), "We agreed to ship the rollout next sprint")

	assert.Len(t, enrichment.Embedding, 1536)
	assert.NotEmpty(t, enrichment.Keywords) // heuristic fallback
	assert.NotEmpty(t, enrichment.Summary)  // truncation fallback
}

func TestEnrich_Unconfigured(t *testing.T) {
	client := NewClient("")

	enrichment := client.Enrich(context.Background(), "We agreed to ship the rollout next sprint")

	assert.Empty(t, enrichment.Embedding)
	assert.Equal(t, []string{"agreed", "ship", "rollout", "next", "sprint"}, enrichment.Keywords)
	assert.Equal(t, "We agreed to ship the rollout next sprint", enrichment.Summary)
}
