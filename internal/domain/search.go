package domain

import "time"

// SearchResult is a knowledge item projected with ranking metadata.
// Similarity is 1 - cosine distance (higher is better); KeywordMatch marks
// rows that qualified through trigram keyword matching instead of vector
// distance. Results are ephemeral and never persisted.
type SearchResult struct {
	ID          string
	MeetingID   string
	Content     string
	ContentType ContentType
	Source      KnowledgeSource
	CreatedAt   time.Time

	Similarity   float64
	KeywordMatch bool
}
