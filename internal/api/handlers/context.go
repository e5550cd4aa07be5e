package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/parley-hq/parley/internal/api"
	"github.com/parley-hq/parley/internal/domain"
	"github.com/parley-hq/parley/internal/service"
)

type RetrievalEngine interface {
	SemanticSearch(ctx context.Context, query, scopeID string, opts service.SearchOptions) []*domain.SearchResult
	BuildAIContext(ctx context.Context, query, scopeID string, maxTokens int) string
}

// ContextHandler serves direct retrieval: raw semantic search and assembled
// model context. Both degrade instead of failing, so these endpoints only
// ever 4xx on malformed input.
type ContextHandler struct {
	engine RetrievalEngine
}

func NewContextHandler(engine RetrievalEngine) *ContextHandler {
	return &ContextHandler{engine: engine}
}

type SearchRequest struct {
	Query     string  `json:"query"`
	ScopeID   string  `json:"scope_id,omitempty"`
	Limit     int     `json:"limit,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
}

type SearchResultResponse struct {
	ID           string  `json:"id"`
	MeetingID    string  `json:"meeting_id"`
	Content      string  `json:"content"`
	ContentType  string  `json:"content_type"`
	Source       string  `json:"source"`
	Similarity   float64 `json:"similarity"`
	KeywordMatch bool    `json:"keyword_match"`
	CreatedAt    string  `json:"created_at"`
}

type SearchResponse struct {
	Results []*SearchResultResponse `json:"results"`
	Count   int                     `json:"count"`
}

type ContextRequest struct {
	Query     string `json:"query"`
	ScopeID   string `json:"scope_id,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

type ContextResponse struct {
	Context string `json:"context"`
}

func searchResultsToResponse(results []*domain.SearchResult) []*SearchResultResponse {
	responses := make([]*SearchResultResponse, len(results))
	for i, r := range results {
		responses[i] = &SearchResultResponse{
			ID:           r.ID,
			MeetingID:    r.MeetingID,
			Content:      r.Content,
			ContentType:  string(r.ContentType),
			Source:       string(r.Source),
			Similarity:   r.Similarity,
			KeywordMatch: r.KeywordMatch,
			CreatedAt:    r.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	return responses
}

func (h *ContextHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	results := h.engine.SemanticSearch(r.Context(), req.Query, req.ScopeID, service.SearchOptions{
		Limit:     req.Limit,
		Threshold: req.Threshold,
	})

	api.Success(w, http.StatusOK, SearchResponse{
		Results: searchResultsToResponse(results),
		Count:   len(results),
	})
}

func (h *ContextHandler) BuildContext(w http.ResponseWriter, r *http.Request) {
	var req ContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	built := h.engine.BuildAIContext(r.Context(), req.Query, req.ScopeID, req.MaxTokens)

	api.Success(w, http.StatusOK, ContextResponse{Context: built})
}
