package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/parley-hq/parley/internal/api"
	"github.com/parley-hq/parley/internal/domain"
	"github.com/parley-hq/parley/internal/service"
)

type KnowledgeService interface {
	Create(ctx context.Context, input service.CreateInput) (*domain.KnowledgeItem, error)
	GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error)
}

type SimilarFinder interface {
	FindSimilar(ctx context.Context, itemID string, limit int) []*domain.SearchResult
}

type KnowledgeHandler struct {
	svc     KnowledgeService
	similar SimilarFinder
}

func NewKnowledgeHandler(svc KnowledgeService, similar SimilarFinder) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc, similar: similar}
}

type CreateKnowledgeRequest struct {
	MeetingID   string `json:"meeting_id"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
	Source      string `json:"source"`
	CreatorID   string `json:"creator_id"`
	ProjectID   string `json:"project_id,omitempty"`
}

type KnowledgeResponse struct {
	ID              string   `json:"id"`
	MeetingID       string   `json:"meeting_id"`
	Content         string   `json:"content"`
	ContentType     string   `json:"content_type"`
	Source          string   `json:"source"`
	Keywords        []string `json:"keywords,omitempty"`
	Summary         string   `json:"summary,omitempty"`
	RelevanceScore  float64  `json:"relevance_score"`
	CreatorID       string   `json:"creator_id,omitempty"`
	ProjectID       string   `json:"project_id,omitempty"`
	NeedsEnrichment bool     `json:"needs_enrichment"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

func knowledgeToResponse(item *domain.KnowledgeItem) *KnowledgeResponse {
	return &KnowledgeResponse{
		ID:              item.ID,
		MeetingID:       item.MeetingID,
		Content:         item.Content,
		ContentType:     string(item.ContentType),
		Source:          string(item.Source),
		Keywords:        item.Keywords,
		Summary:         item.Summary,
		RelevanceScore:  item.RelevanceScore,
		CreatorID:       item.CreatorID,
		ProjectID:       item.ProjectID,
		NeedsEnrichment: item.NeedsEnrichment(),
		CreatedAt:       item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *KnowledgeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.MeetingID == "" {
		api.Error(w, http.StatusBadRequest, "meeting_id is required")
		return
	}
	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	contentType := domain.ContentType(req.ContentType)
	if req.ContentType == "" {
		contentType = domain.ContentTypeFact
	}
	source := domain.KnowledgeSource(req.Source)
	if req.Source == "" {
		source = domain.SourceUser
	}

	item, err := h.svc.Create(r.Context(), service.CreateInput{
		MeetingID:   req.MeetingID,
		Content:     req.Content,
		ContentType: contentType,
		Source:      source,
		CreatorID:   req.CreatorID,
		ProjectID:   req.ProjectID,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, knowledgeToResponse(item))
}

func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	item, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, knowledgeToResponse(item))
}

func (h *KnowledgeHandler) Similar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	results := h.similar.FindSimilar(r.Context(), id, 0)

	api.Success(w, http.StatusOK, map[string]any{
		"similar": searchResultsToResponse(results),
		"count":   len(results),
	})
}
