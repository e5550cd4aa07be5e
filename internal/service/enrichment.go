package service

import (
	"context"
	"fmt"

	"github.com/parley-hq/parley/internal/domain"
	"github.com/parley-hq/parley/internal/openai"
	"github.com/parley-hq/parley/internal/telemetry"
)

// EnrichmentClient defines the provider surface for deriving an item's
// embedding, keywords and summary in one concurrent pass.
type EnrichmentClient interface {
	Enrich(ctx context.Context, content string) openai.Enrichment
}

// EnrichmentRepository defines the store surface for persisting enrichment
type EnrichmentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error)
	UpdateEnrichment(ctx context.Context, id string, embedding []float32, keywords []string, summary string) error
}

// EnrichmentService derives and persists enrichment for knowledge items.
// It never mutates content, content type, source or meeting ownership.
type EnrichmentService struct {
	client EnrichmentClient
	repo   EnrichmentRepository
}

// NewEnrichmentService creates a new EnrichmentService instance
func NewEnrichmentService(client EnrichmentClient, repo EnrichmentRepository) *EnrichmentService {
	return &EnrichmentService{client: client, repo: repo}
}

// EnrichItem enriches a single knowledge item by ID. Partial enrichment is
// acceptable: whatever the provider produced gets stored, and an item whose
// embedding derivation failed remains eligible for a later run.
func (s *EnrichmentService) EnrichItem(ctx context.Context, itemID string) error {
	ctx, span := telemetry.StartSpan(ctx, "EnrichmentService.EnrichItem", telemetry.SpanAttributes{
		ItemID:    itemID,
		Operation: "enrich",
	})
	defer span.End()

	item, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to fetch knowledge item: %w", err)
	}

	enrichment := s.client.Enrich(ctx, item.Content)

	if err := s.repo.UpdateEnrichment(ctx, itemID, enrichment.Embedding, enrichment.Keywords, enrichment.Summary); err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to update enrichment: %w", err)
	}

	return nil
}
