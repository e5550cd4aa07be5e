package jobs

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/parley-hq/parley/internal/domain"
	"github.com/parley-hq/parley/internal/telemetry"
)

const (
	// DefaultBatchSize caps how many items one cycle enriches
	DefaultBatchSize = 5

	// interItemDelay spaces provider calls so one cycle cannot burst
	// through the upstream rate limit
	interItemDelay = 100 * time.Millisecond
)

// PendingItemRepository defines the interface for finding items awaiting enrichment
type PendingItemRepository interface {
	ItemsNeedingEnrichment(ctx context.Context, limit int) ([]*domain.KnowledgeItem, error)
}

// ItemEnricher defines the interface for enriching a single item
type ItemEnricher interface {
	EnrichItem(ctx context.Context, itemID string) error
}

// EnrichmentProcessor enriches knowledge items in small sequential batches.
// Cycles are single-flight: if a cycle is still running when the next tick
// fires, the new cycle is skipped rather than overlapped.
type EnrichmentProcessor struct {
	repo      PendingItemRepository
	enricher  ItemEnricher
	batchSize int
	itemDelay time.Duration

	running atomic.Bool
}

// NewEnrichmentProcessor creates a new EnrichmentProcessor instance
func NewEnrichmentProcessor(repo PendingItemRepository, enricher ItemEnricher, batchSize int) *EnrichmentProcessor {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &EnrichmentProcessor{
		repo:      repo,
		enricher:  enricher,
		batchSize: batchSize,
		itemDelay: interItemDelay,
	}
}

// ProcessJobs implements the JobProcessor interface
func (p *EnrichmentProcessor) ProcessJobs(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		log.Println("Enrichment cycle already running, skipping")
		return nil
	}
	defer p.running.Store(false)

	items, err := p.repo.ItemsNeedingEnrichment(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch items needing enrichment: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	log.Printf("Enriching %d knowledge items", len(items))

	for i, item := range items {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.itemDelay):
			}
		}

		// A failed item stays unenriched and gets picked up again later
		if err := p.enricher.EnrichItem(ctx, item.ID); err != nil {
			log.Printf("Error enriching item %s: %v", item.ID, err)
			telemetry.CaptureError(ctx, err)
			continue
		}
		log.Printf("Item %s enriched", item.ID)
	}

	return nil
}
