package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parley-hq/parley/internal/domain"
	"github.com/pgvector/pgvector-go"
)

// trigramMatchThreshold is the pg_trgm similarity above which keywords are
// considered a lexical match regardless of vector distance.
const trigramMatchThreshold = 0.3

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// KnowledgeRepository is the sole gateway to the relational+vector store.
// It computes nothing itself; ranking and threshold arithmetic live in the
// hybrid search query so the rest of the engine sees one RPC-shaped contract.
type KnowledgeRepository struct {
	db dbtx
}

func NewKnowledgeRepository(pool *pgxpool.Pool) *KnowledgeRepository {
	return &KnowledgeRepository{db: pool}
}

func NewKnowledgeRepositoryWithTx(tx pgx.Tx) *KnowledgeRepository {
	return &KnowledgeRepository{db: tx}
}

func (r *KnowledgeRepository) Create(ctx context.Context, k *domain.KnowledgeItem) error {
	var embedding any
	if len(k.Embedding) > 0 {
		embedding = pgvector.NewVector(k.Embedding)
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_items (id, meeting_id, content, content_type, source, embedding, keywords, summary, relevance_score, creator_id, project_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		k.ID, k.MeetingID, k.Content, k.ContentType, k.Source, embedding,
		nullableStrings(k.Keywords), nullableString(k.Summary), k.RelevanceScore,
		k.CreatorID, nullableString(k.ProjectID), k.CreatedAt, k.UpdatedAt,
	)
	return err
}

func (r *KnowledgeRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	var k domain.KnowledgeItem
	var embedding *pgvector.Vector
	var summary, projectID *string
	err := r.db.QueryRow(ctx,
		`SELECT id, meeting_id, content, content_type, source, embedding, keywords, summary, relevance_score, creator_id, project_id, created_at, updated_at
		 FROM knowledge_items WHERE id = $1`,
		id,
	).Scan(&k.ID, &k.MeetingID, &k.Content, &k.ContentType, &k.Source, &embedding,
		&k.Keywords, &summary, &k.RelevanceScore, &k.CreatorID, &projectID, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrKnowledgeItemNotFound
		}
		return nil, err
	}
	if embedding != nil {
		k.Embedding = embedding.Slice()
	}
	if summary != nil {
		k.Summary = *summary
	}
	if projectID != nil {
		k.ProjectID = *projectID
	}
	return &k, nil
}

// HybridSearch ranks items by cosine similarity merged with trigram keyword
// matching in one pass. Similarity is defined as 1 - cosine distance, so a
// row qualifies when its distance is below 1 - threshold; a trigram keyword
// match qualifies a row regardless of vector distance. Ordering: similarity
// desc, keyword match desc, recency desc.
func (r *KnowledgeRepository) HybridSearch(
	ctx context.Context,
	embedding []float32,
	queryText, scopeID string,
	threshold float64,
	limit int,
) ([]*domain.SearchResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, meeting_id, content, content_type, source, created_at,
		        1 - (embedding <=> $1) AS similarity,
		        COALESCE(similarity(array_to_string(keywords, ' '), $2) > $5, false) AS keyword_match
		 FROM knowledge_items
		 WHERE embedding IS NOT NULL
		   AND ($3::text IS NULL OR meeting_id = $3 OR project_id = $3)
		   AND ((embedding <=> $1) < 1 - $4
		        OR COALESCE(similarity(array_to_string(keywords, ' '), $2) > $5, false))
		 ORDER BY similarity DESC, keyword_match DESC, created_at DESC
		 LIMIT $6`,
		pgvector.NewVector(embedding), queryText, nullableString(scopeID),
		threshold, trigramMatchThreshold, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.SearchResult
	for rows.Next() {
		var sr domain.SearchResult
		if err := rows.Scan(&sr.ID, &sr.MeetingID, &sr.Content, &sr.ContentType,
			&sr.Source, &sr.CreatedAt, &sr.Similarity, &sr.KeywordMatch); err != nil {
			return nil, err
		}
		results = append(results, &sr)
	}
	return results, rows.Err()
}

// TextSearch is the lexical fallback: full-text match over content, scoped
// when scopeID is given, newest first. Results carry no similarity or
// keyword-match semantics.
func (r *KnowledgeRepository) TextSearch(ctx context.Context, queryText, scopeID string, limit int) ([]*domain.SearchResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, meeting_id, content, content_type, source, created_at
		 FROM knowledge_items
		 WHERE ($2::text IS NULL OR meeting_id = $2 OR project_id = $2)
		   AND (to_tsvector('english', content) @@ plainto_tsquery('english', $1)
		        OR content ILIKE '%' || $1 || '%')
		 ORDER BY created_at DESC
		 LIMIT $3`,
		queryText, nullableString(scopeID), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.SearchResult
	for rows.Next() {
		var sr domain.SearchResult
		if err := rows.Scan(&sr.ID, &sr.MeetingID, &sr.Content, &sr.ContentType,
			&sr.Source, &sr.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, &sr)
	}
	return results, rows.Err()
}

// UpdateEnrichment persists derived fields by id. Content, content type,
// source and meeting are never touched. Empty derivations store as NULL so
// an item whose embedding failed stays eligible for a later run.
func (r *KnowledgeRepository) UpdateEnrichment(ctx context.Context, id string, embedding []float32, keywords []string, summary string) error {
	var vec any
	if len(embedding) > 0 {
		vec = pgvector.NewVector(embedding)
	}
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_items SET embedding = $1, keywords = $2, summary = $3, updated_at = $4 WHERE id = $5`,
		vec, nullableStrings(keywords), nullableString(summary), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrKnowledgeItemNotFound
	}
	return nil
}

// ItemsNeedingEnrichment returns up to batchSize items without embeddings,
// most recent first.
func (r *KnowledgeRepository) ItemsNeedingEnrichment(ctx context.Context, batchSize int) ([]*domain.KnowledgeItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, meeting_id, content, content_type, source, relevance_score, creator_id, project_id, created_at, updated_at
		 FROM knowledge_items
		 WHERE embedding IS NULL
		 ORDER BY created_at DESC
		 LIMIT $1`,
		batchSize,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.KnowledgeItem
	for rows.Next() {
		var k domain.KnowledgeItem
		var projectID *string
		if err := rows.Scan(&k.ID, &k.MeetingID, &k.Content, &k.ContentType, &k.Source,
			&k.RelevanceScore, &k.CreatorID, &projectID, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, err
		}
		if projectID != nil {
			k.ProjectID = *projectID
		}
		items = append(items, &k)
	}
	return items, rows.Err()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
