package domain

import (
	"fmt"
	"time"
)

// EmbeddingDimensions is the fixed length of knowledge item embeddings.
const EmbeddingDimensions = 1536

// MaxKeywords is the maximum number of keywords stored per item.
const MaxKeywords = 7

// ContentType represents the kind of knowledge captured in an item
type ContentType string

const (
	ContentTypeFact     ContentType = "fact"
	ContentTypeContext  ContentType = "context"
	ContentTypeSummary  ContentType = "summary"
	ContentTypeQuestion ContentType = "question"
	ContentTypeAnswer   ContentType = "answer"
)

// KnowledgeSource represents where a knowledge item originated
type KnowledgeSource string

const (
	SourceUser     KnowledgeSource = "user"
	SourceAI       KnowledgeSource = "ai"
	SourceDocument KnowledgeSource = "document"
)

// KnowledgeItem represents a unit of captured meeting knowledge.
// Content, ContentType, Source and MeetingID are immutable after creation;
// enrichment only ever sets Embedding, Keywords, Summary and UpdatedAt.
type KnowledgeItem struct {
	ID             string
	MeetingID      string
	Content        string
	ContentType    ContentType
	Source         KnowledgeSource
	Embedding      []float32 // nil until enrichment runs
	Keywords       []string  // nil or up to MaxKeywords lowercase terms
	Summary        string    // empty or a short one-sentence condensation
	RelevanceScore float64   // reserved ranking boost, defaults to 1.0
	CreatorID      string
	ProjectID      string // optional; broadens visibility to project members
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewKnowledgeItem creates a new KnowledgeItem with the default relevance score
func NewKnowledgeItem(
	id, meetingID, content string,
	contentType ContentType,
	source KnowledgeSource,
	creatorID, projectID string,
	createdAt time.Time,
) *KnowledgeItem {
	return &KnowledgeItem{
		ID:             id,
		MeetingID:      meetingID,
		Content:        content,
		ContentType:    contentType,
		Source:         source,
		RelevanceScore: 1.0,
		CreatorID:      creatorID,
		ProjectID:      projectID,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
}

// NeedsEnrichment reports whether the item is still eligible for enrichment.
// An item with an embedding but no keywords/summary is a valid terminal state.
func (k *KnowledgeItem) NeedsEnrichment() bool {
	return len(k.Embedding) == 0
}

// ValidateKnowledgeItem validates a KnowledgeItem instance
func ValidateKnowledgeItem(k *KnowledgeItem) error {
	if k == nil {
		return fmt.Errorf("knowledge item cannot be nil")
	}

	if k.ID == "" {
		return fmt.Errorf("%w: knowledge item ID is required", ErrMissingRequiredField)
	}

	if k.MeetingID == "" {
		return fmt.Errorf("%w: knowledge item MeetingID is required", ErrMissingRequiredField)
	}

	if k.Content == "" {
		return fmt.Errorf("%w: knowledge item Content is required", ErrMissingRequiredField)
	}

	if !isValidContentType(k.ContentType) {
		return fmt.Errorf("%w: knowledge item ContentType is invalid: %s", ErrInvalidContentType, k.ContentType)
	}

	if !isValidKnowledgeSource(k.Source) {
		return fmt.Errorf("%w: knowledge item Source is invalid: %s", ErrInvalidKnowledgeSource, k.Source)
	}

	if len(k.Embedding) != 0 && len(k.Embedding) != EmbeddingDimensions {
		return fmt.Errorf("knowledge item Embedding must have %d dimensions, got %d", EmbeddingDimensions, len(k.Embedding))
	}

	if len(k.Keywords) > MaxKeywords {
		return fmt.Errorf("knowledge item Keywords cannot exceed %d entries", MaxKeywords)
	}

	return nil
}

// isValidContentType checks if a ContentType is valid
func isValidContentType(t ContentType) bool {
	switch t {
	case ContentTypeFact, ContentTypeContext, ContentTypeSummary,
		ContentTypeQuestion, ContentTypeAnswer:
		return true
	}
	return false
}

// isValidKnowledgeSource checks if a KnowledgeSource is valid
func isValidKnowledgeSource(s KnowledgeSource) bool {
	switch s {
	case SourceUser, SourceAI, SourceDocument:
		return true
	}
	return false
}
