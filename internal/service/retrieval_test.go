package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/parley-hq/parley/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockSearchRepository is a mock implementation of SearchRepository
type MockSearchRepository struct {
	mock.Mock
}

func (m *MockSearchRepository) HybridSearch(ctx context.Context, embedding []float32, queryText, scopeID string, threshold float64, limit int) ([]*domain.SearchResult, error) {
	args := m.Called(ctx, embedding, queryText, scopeID, threshold, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SearchResult), args.Error(1)
}

func (m *MockSearchRepository) TextSearch(ctx context.Context, queryText, scopeID string, limit int) ([]*domain.SearchResult, error) {
	args := m.Called(ctx, queryText, scopeID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SearchResult), args.Error(1)
}

func (m *MockSearchRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeItem), args.Error(1)
}

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) []float32 {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]float32)
}

func testEmbedding() []float32 {
	return make([]float32, domain.EmbeddingDimensions)
}

func searchResult(id, content string, contentType domain.ContentType, similarity float64) *domain.SearchResult {
	return &domain.SearchResult{
		ID:          id,
		MeetingID:   "meeting-1",
		Content:     content,
		ContentType: contentType,
		Source:      domain.SourceUser,
		CreatedAt:   time.Now().UTC(),
		Similarity:  similarity,
	}
}

func TestSemanticSearch_Defaults(t *testing.T) {
	repo := new(MockSearchRepository)
	embedder := new(MockEmbeddingClient)

	embedding := testEmbedding()
	want := []*domain.SearchResult{searchResult("a", "budget capped", domain.ContentTypeSummary, 0.92)}

	embedder.On("GenerateEmbedding", mock.Anything, "budget").Return(embedding)
	repo.On("HybridSearch", mock.Anything, embedding, "budget", "", 0.7, 10).Return(want, nil)

	svc := NewRetrievalService(repo, embedder)
	results := svc.SemanticSearch(context.Background(), "budget", "", SearchOptions{})

	assert.Equal(t, want, results)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "TextSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSemanticSearch_EmptyEmbeddingMatchesTextSearch(t *testing.T) {
	repo := new(MockSearchRepository)
	embedder := new(MockEmbeddingClient)

	want := []*domain.SearchResult{searchResult("a", "budget capped", domain.ContentTypeFact, 0)}

	embedder.On("GenerateEmbedding", mock.Anything, "budget").Return(nil)
	repo.On("TextSearch", mock.Anything, "budget", "meeting-1", 10).Return(want, nil)

	svc := NewRetrievalService(repo, embedder)
	results := svc.SemanticSearch(context.Background(), "budget", "meeting-1", SearchOptions{})

	// With no embedding available the results must be exactly the text
	// search results for the same query/scope/limit
	direct, err := repo.TextSearch(context.Background(), "budget", "meeting-1", 10)
	assert.NoError(t, err)
	assert.Equal(t, direct, results)
	repo.AssertNotCalled(t, "HybridSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSemanticSearch_FallsBackOnStoreFailure(t *testing.T) {
	repo := new(MockSearchRepository)
	embedder := new(MockEmbeddingClient)

	want := []*domain.SearchResult{searchResult("a", "budget capped", domain.ContentTypeFact, 0)}

	embedder.On("GenerateEmbedding", mock.Anything, "budget").Return(testEmbedding())
	repo.On("HybridSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("rpc timeout"))
	repo.On("TextSearch", mock.Anything, "budget", "", 10).Return(want, nil)

	svc := NewRetrievalService(repo, embedder)
	results := svc.SemanticSearch(context.Background(), "budget", "", SearchOptions{})

	assert.Equal(t, want, results)
	repo.AssertExpectations(t)
}

func TestSemanticSearch_DoubleFailureReturnsEmpty(t *testing.T) {
	repo := new(MockSearchRepository)
	embedder := new(MockEmbeddingClient)

	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testEmbedding())
	repo.On("HybridSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("rpc timeout"))
	repo.On("TextSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("store down"))

	svc := NewRetrievalService(repo, embedder)
	results := svc.SemanticSearch(context.Background(), "budget", "", SearchOptions{})

	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSemanticSearch_CustomOptions(t *testing.T) {
	repo := new(MockSearchRepository)
	embedder := new(MockEmbeddingClient)

	embedding := testEmbedding()
	embedder.On("GenerateEmbedding", mock.Anything, "decisions").Return(embedding)
	repo.On("HybridSearch", mock.Anything, embedding, "decisions", "project-1", 0.4, 20).
		Return([]*domain.SearchResult{}, nil)

	svc := NewRetrievalService(repo, embedder)
	svc.SemanticSearch(context.Background(), "decisions", "project-1", SearchOptions{Limit: 20, Threshold: 0.4})

	repo.AssertExpectations(t)
}

func TestBuildAIContext_FormatsRankedLines(t *testing.T) {
	repo := new(MockSearchRepository)
	embedder := new(MockEmbeddingClient)

	results := []*domain.SearchResult{
		searchResult("a", "Budget capped at $50k", domain.ContentTypeSummary, 0.95),
		searchResult("b", "Why was the cap chosen?", domain.ContentTypeQuestion, 0.81),
	}

	embedder.On("GenerateEmbedding", mock.Anything, "budget").Return(testEmbedding())
	repo.On("HybridSearch", mock.Anything, mock.Anything, "budget", "", 0.7, contextSearchLimit).
		Return(results, nil)

	svc := NewRetrievalService(repo, embedder)
	built := svc.BuildAIContext(context.Background(), "budget", "", 2000)

	assert.Equal(t, "[SUMMARY] Budget capped at $50k\n[QUESTION] Why was the cap chosen?\n", built)
}

func TestBuildAIContext_RespectsTokenBudget(t *testing.T) {
	repo := new(MockSearchRepository)
	embedder := new(MockEmbeddingClient)

	// Each line costs roughly (len+3)/4 tokens; make the second overflow
	results := []*domain.SearchResult{
		searchResult("a", strings.Repeat("a", 60), domain.ContentTypeFact, 0.9),
		searchResult("b", strings.Repeat("b", 400), domain.ContentTypeFact, 0.8),
		searchResult("c", strings.Repeat("c", 20), domain.ContentTypeFact, 0.7),
	}

	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testEmbedding())
	repo.On("HybridSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(results, nil)

	svc := NewRetrievalService(repo, embedder)
	built := svc.BuildAIContext(context.Background(), "anything", "", 30)

	// Budget never exceeded
	assert.LessOrEqual(t, estimateTokens(built), 30)
	// Stops at the first overflowing item, no partial truncation
	assert.Contains(t, built, strings.Repeat("a", 60))
	assert.NotContains(t, built, "b")
	assert.NotContains(t, built, "c")
}

func TestBuildAIContext_SentinelOnZeroResults(t *testing.T) {
	repo := new(MockSearchRepository)
	embedder := new(MockEmbeddingClient)

	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testEmbedding())
	repo.On("HybridSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*domain.SearchResult{}, nil)

	svc := NewRetrievalService(repo, embedder)
	built := svc.BuildAIContext(context.Background(), "unicorns", "", 0)

	assert.Equal(t, NoKnowledgeSentinel, built)
}

func TestFindSimilar_RequiresEmbedding(t *testing.T) {
	repo := new(MockSearchRepository)
	embedder := new(MockEmbeddingClient)

	item := domain.NewKnowledgeItem("item-1", "meeting-1", "no embedding yet",
		domain.ContentTypeFact, domain.SourceUser, "user-1", "", time.Now().UTC())
	repo.On("GetByID", mock.Anything, "item-1").Return(item, nil)

	svc := NewRetrievalService(repo, embedder)
	results := svc.FindSimilar(context.Background(), "item-1", 5)

	assert.Empty(t, results)
	// No fallback: hybrid search must never run without a source embedding
	repo.AssertNotCalled(t, "HybridSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "TextSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFindSimilar_ExcludesSourceItem(t *testing.T) {
	repo := new(MockSearchRepository)
	embedder := new(MockEmbeddingClient)

	item := domain.NewKnowledgeItem("item-1", "meeting-1", "budget cap discussion",
		domain.ContentTypeFact, domain.SourceUser, "user-1", "", time.Now().UTC())
	item.Embedding = testEmbedding()

	returned := []*domain.SearchResult{
		searchResult("item-1", "budget cap discussion", domain.ContentTypeFact, 1.0),
		searchResult("item-2", "budget carryover", domain.ContentTypeFact, 0.8),
		searchResult("item-3", "budget review", domain.ContentTypeFact, 0.7),
	}

	repo.On("GetByID", mock.Anything, "item-1").Return(item, nil)
	repo.On("HybridSearch", mock.Anything, item.Embedding, item.Content, "", SimilarItemThreshold, 3).
		Return(returned, nil)

	svc := NewRetrievalService(repo, embedder)
	results := svc.FindSimilar(context.Background(), "item-1", 2)

	assert.Len(t, results, 2)
	for _, r := range results {
		assert.NotEqual(t, "item-1", r.ID)
	}
}

func TestFindSimilar_SourceNotFound(t *testing.T) {
	repo := new(MockSearchRepository)
	embedder := new(MockEmbeddingClient)

	repo.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrKnowledgeItemNotFound)

	svc := NewRetrievalService(repo, embedder)
	results := svc.FindSimilar(context.Background(), "missing", 5)

	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, estimateTokens(""))
	assert.Equal(t, 1, estimateTokens("abc"))
	assert.Equal(t, 1, estimateTokens("abcd"))
	assert.Equal(t, 2, estimateTokens("abcde"))
}
