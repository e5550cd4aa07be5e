package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/parley-hq/parley/internal/domain"
	"github.com/parley-hq/parley/internal/telemetry"
)

// KnowledgeRepository defines the store surface for knowledge item ingestion
type KnowledgeRepository interface {
	Create(ctx context.Context, item *domain.KnowledgeItem) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error)
}

// CreateInput carries the fields needed to capture a knowledge item
type CreateInput struct {
	MeetingID   string
	Content     string
	ContentType domain.ContentType
	Source      domain.KnowledgeSource
	CreatorID   string
	ProjectID   string
}

// KnowledgeService handles knowledge item ingestion and lookup. Items are
// stored unenriched; the background worker picks them up afterwards.
type KnowledgeService struct {
	repo KnowledgeRepository
}

// NewKnowledgeService creates a new KnowledgeService instance
func NewKnowledgeService(repo KnowledgeRepository) *KnowledgeService {
	return &KnowledgeService{repo: repo}
}

// Create validates and stores a new knowledge item
func (s *KnowledgeService) Create(ctx context.Context, input CreateInput) (*domain.KnowledgeItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Create", telemetry.SpanAttributes{
		MeetingID: input.MeetingID,
		ProjectID: input.ProjectID,
		Operation: "create",
	})
	defer span.End()

	item := domain.NewKnowledgeItem(
		uuid.NewString(),
		input.MeetingID,
		input.Content,
		input.ContentType,
		input.Source,
		input.CreatorID,
		input.ProjectID,
		time.Now().UTC(),
	)

	if err := domain.ValidateKnowledgeItem(item); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid knowledge item", err)
	}

	if err := s.repo.Create(ctx, item); err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStoreFailure, "failed to create knowledge item", err)
	}

	return item, nil
}

// GetByID fetches a knowledge item by ID
func (s *KnowledgeService) GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.GetByID", telemetry.SpanAttributes{
		ItemID:    id,
		Operation: "get",
	})
	defer span.End()

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch knowledge item: %w", err)
	}
	return item, nil
}
