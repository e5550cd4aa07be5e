package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/parley-hq/parley/internal/domain"
	"github.com/parley-hq/parley/internal/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockEnrichmentClient is a mock implementation of EnrichmentClient
type MockEnrichmentClient struct {
	mock.Mock
}

func (m *MockEnrichmentClient) Enrich(ctx context.Context, content string) openai.Enrichment {
	args := m.Called(ctx, content)
	return args.Get(0).(openai.Enrichment)
}

// MockEnrichmentRepository is a mock implementation of EnrichmentRepository
type MockEnrichmentRepository struct {
	mock.Mock
}

func (m *MockEnrichmentRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeItem), args.Error(1)
}

func (m *MockEnrichmentRepository) UpdateEnrichment(ctx context.Context, id string, embedding []float32, keywords []string, summary string) error {
	args := m.Called(ctx, id, embedding, keywords, summary)
	return args.Error(0)
}

func pendingItem() *domain.KnowledgeItem {
	return domain.NewKnowledgeItem("item-1", "meeting-1",
		"We agreed to ship the rollout next sprint",
		domain.ContentTypeSummary, domain.SourceUser, "user-1", "", time.Now().UTC())
}

func TestEnrichItem_Success(t *testing.T) {
	client := new(MockEnrichmentClient)
	repo := new(MockEnrichmentRepository)

	item := pendingItem()
	enrichment := openai.Enrichment{
		Embedding: make([]float32, domain.EmbeddingDimensions),
		Keywords:  []string{"rollout", "sprint"},
		Summary:   "Shipping next sprint",
	}

	repo.On("GetByID", mock.Anything, "item-1").Return(item, nil)
	client.On("Enrich", mock.Anything, item.Content).Return(enrichment)
	repo.On("UpdateEnrichment", mock.Anything, "item-1", enrichment.Embedding, enrichment.Keywords, enrichment.Summary).Return(nil)

	svc := NewEnrichmentService(client, repo)
	err := svc.EnrichItem(context.Background(), "item-1")

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	client.AssertExpectations(t)
}

func TestEnrichItem_PartialEnrichmentStored(t *testing.T) {
	client := new(MockEnrichmentClient)
	repo := new(MockEnrichmentRepository)

	item := pendingItem()
	// Embedding derivation failed; keywords and summary still persist
	partial := openai.Enrichment{
		Keywords: []string{"rollout", "sprint"},
		Summary:  "Shipping next sprint",
	}

	repo.On("GetByID", mock.Anything, "item-1").Return(item, nil)
	client.On("Enrich", mock.Anything, item.Content).Return(partial)
	repo.On("UpdateEnrichment", mock.Anything, "item-1", []float32(nil), partial.Keywords, partial.Summary).Return(nil)

	svc := NewEnrichmentService(client, repo)
	err := svc.EnrichItem(context.Background(), "item-1")

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestEnrichItem_FetchFailure(t *testing.T) {
	client := new(MockEnrichmentClient)
	repo := new(MockEnrichmentRepository)

	repo.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrKnowledgeItemNotFound)

	svc := NewEnrichmentService(client, repo)
	err := svc.EnrichItem(context.Background(), "missing")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch knowledge item")
	client.AssertNotCalled(t, "Enrich", mock.Anything, mock.Anything)
}

func TestEnrichItem_UpdateFailure(t *testing.T) {
	client := new(MockEnrichmentClient)
	repo := new(MockEnrichmentRepository)

	item := pendingItem()
	repo.On("GetByID", mock.Anything, "item-1").Return(item, nil)
	client.On("Enrich", mock.Anything, mock.Anything).Return(openai.Enrichment{})
	repo.On("UpdateEnrichment", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("connection reset"))

	svc := NewEnrichmentService(client, repo)
	err := svc.EnrichItem(context.Background(), "item-1")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to update enrichment")
}
