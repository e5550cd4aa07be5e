package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/parley-hq/parley/internal/domain"
	"github.com/parley-hq/parley/internal/telemetry"
)

const (
	// DefaultSearchLimit is the result cap when the caller does not set one
	DefaultSearchLimit = 10
	// DefaultSearchThreshold is the default minimum similarity (1 - cosine distance)
	DefaultSearchThreshold = 0.7
	// SimilarItemThreshold trades precision for recall on find-similar lookups
	SimilarItemThreshold = 0.6
	// DefaultSimilarLimit caps find-similar results
	DefaultSimilarLimit = 5
	// DefaultContextTokens is the default token budget for assembled context
	DefaultContextTokens = 2000

	// contextSearchLimit is the wider internal limit used when assembling
	// context, so the budget loop has enough candidates to fill from.
	contextSearchLimit = 15
)

// NoKnowledgeSentinel is returned by BuildAIContext when nothing matched.
// Callers must special-case it rather than treat it as contextual content.
const NoKnowledgeSentinel = "No relevant knowledge found."

// SearchRepository defines the store gateway surface the retrieval engine needs
type SearchRepository interface {
	HybridSearch(ctx context.Context, embedding []float32, queryText, scopeID string, threshold float64, limit int) ([]*domain.SearchResult, error)
	TextSearch(ctx context.Context, queryText, scopeID string, limit int) ([]*domain.SearchResult, error)
	GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error)
}

// EmbeddingClient defines the provider surface the retrieval engine needs.
// An empty result means "no embedding available", never a fatal condition.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) []float32
}

// SearchOptions tunes a semantic search. Zero values select the defaults.
type SearchOptions struct {
	Limit     int
	Threshold float64
}

// RetrievalService is the hybrid retrieval engine: vector search merged with
// keyword matching, one text-search fallback, and token-budgeted context
// assembly. Every public method returns a value; degradation is never an error.
type RetrievalService struct {
	repo      SearchRepository
	embedding EmbeddingClient
}

// NewRetrievalService creates a new RetrievalService instance
func NewRetrievalService(repo SearchRepository, embedding EmbeddingClient) *RetrievalService {
	return &RetrievalService{repo: repo, embedding: embedding}
}

// searchFunc is one attempt at producing ranked results
type searchFunc func(ctx context.Context) ([]*domain.SearchResult, error)

// withFallback composes a primary search with exactly one fallback. The
// fallback policy is uniform across the engine: primary once, fallback once,
// then give up.
func withFallback(primary, fallback searchFunc) searchFunc {
	return func(ctx context.Context) ([]*domain.SearchResult, error) {
		results, err := primary(ctx)
		if err == nil {
			return results, nil
		}
		log.Printf("primary search failed, falling back to text search: %v", err)
		return fallback(ctx)
	}
}

func (s *RetrievalService) hybrid(embedding []float32, query, scopeID string, threshold float64, limit int) searchFunc {
	return func(ctx context.Context) ([]*domain.SearchResult, error) {
		return s.repo.HybridSearch(ctx, embedding, query, scopeID, threshold, limit)
	}
}

func (s *RetrievalService) textOnly(query, scopeID string, limit int) searchFunc {
	return func(ctx context.Context) ([]*domain.SearchResult, error) {
		return s.repo.TextSearch(ctx, query, scopeID, limit)
	}
}

// SemanticSearch runs hybrid vector+keyword search for query, optionally
// scoped to a meeting or project. When no embedding is available the text
// search runs directly; when the hybrid query fails it falls back to text
// search once. A double failure yields an empty result set.
func (s *RetrievalService) SemanticSearch(ctx context.Context, query, scopeID string, opts SearchOptions) []*domain.SearchResult {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.SemanticSearch", telemetry.SpanAttributes{
		MeetingID: scopeID,
		Operation: "search",
	})
	defer span.End()

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultSearchThreshold
	}

	search := s.textOnly(query, scopeID, limit)
	if embedding := s.embedding.GenerateEmbedding(ctx, query); len(embedding) > 0 {
		search = withFallback(
			s.hybrid(embedding, query, scopeID, threshold, limit),
			s.textOnly(query, scopeID, limit),
		)
	}

	results, err := search(ctx)
	if err != nil {
		log.Printf("search failed with no remaining fallback: %v", err)
		return []*domain.SearchResult{}
	}
	if results == nil {
		results = []*domain.SearchResult{}
	}
	return results
}

// BuildAIContext assembles a token-budgeted context block for a language
// model: "[TYPE] content" lines in ranking order, stopping before the first
// item that would exceed maxTokens. Token cost is estimated as ceil(len/4).
func (s *RetrievalService) BuildAIContext(ctx context.Context, query, scopeID string, maxTokens int) string {
	if maxTokens <= 0 {
		maxTokens = DefaultContextTokens
	}

	results := s.SemanticSearch(ctx, query, scopeID, SearchOptions{Limit: contextSearchLimit})
	if len(results) == 0 {
		return NoKnowledgeSentinel
	}

	var b strings.Builder
	used := 0
	for _, r := range results {
		line := fmt.Sprintf("[%s] %s\n", strings.ToUpper(string(r.ContentType)), r.Content)
		cost := estimateTokens(line)
		if used+cost > maxTokens {
			break
		}
		b.WriteString(line)
		used += cost
	}
	return b.String()
}

// FindSimilar returns items semantically close to an existing one. The
// source item must already carry an embedding; without one there is no
// fallback, since there is no query text to search by.
func (s *RetrievalService) FindSimilar(ctx context.Context, itemID string, limit int) []*domain.SearchResult {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.FindSimilar", telemetry.SpanAttributes{
		ItemID:    itemID,
		Operation: "find_similar",
	})
	defer span.End()

	if limit <= 0 {
		limit = DefaultSimilarLimit
	}

	item, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		log.Printf("find similar: failed to fetch source item %s: %v", itemID, err)
		return []*domain.SearchResult{}
	}
	if len(item.Embedding) == 0 {
		return []*domain.SearchResult{}
	}

	// limit+1 so the source item can be dropped from its own results
	results, err := s.repo.HybridSearch(ctx, item.Embedding, item.Content, "", SimilarItemThreshold, limit+1)
	if err != nil {
		log.Printf("find similar: hybrid search failed: %v", err)
		return []*domain.SearchResult{}
	}

	filtered := make([]*domain.SearchResult, 0, limit)
	for _, r := range results {
		if r.ID == itemID {
			continue
		}
		filtered = append(filtered, r)
		if len(filtered) == limit {
			break
		}
	}
	return filtered
}

// estimateTokens approximates the token count of text as ceil(len/4)
func estimateTokens(text string) int {
	return (len(text) + 3) / 4
}
