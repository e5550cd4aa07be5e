package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/parley-hq/parley/internal/domain"
	"github.com/parley-hq/parley/internal/service"
)

const (
	// decisionThreshold is deliberately loose: decision language varies a lot
	decisionThreshold = 0.5
	// actionItemThreshold is looser still, action items are often terse
	actionItemThreshold = 0.4
	// topicThreshold casts the widest net for topic summaries
	topicThreshold = 0.3
	// similarThreshold for cross-discussion similarity
	similarThreshold = 0.6

	defaultToolLimit  = 5
	topicSummaryLimit = 20
	maxKeyPoints      = 5
)

// decisionMarkers qualify a result as a decision when its content type is
// not already summary
var decisionMarkers = []string{"decision", "decided", "agreed"}

// actionMarkers qualify a result as an action item
var actionMarkers = []string{"action", "task", "todo", "assignment", "responsible", "deadline"}

// decodeParams round-trips the raw parameter map through JSON into a typed
// struct. Wrong value types surface as a decode error, not a panic.
func decodeParams(params map[string]any, dst any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}

func missingParam(name string) *domain.ToolResult {
	return domain.ToolFailure(fmt.Sprintf("missing required parameter: %s", name))
}

func containsAny(content string, markers []string) bool {
	lower := strings.ToLower(content)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// resultMap serializes a search result for tool output
func resultMap(r *domain.SearchResult) map[string]any {
	return map[string]any{
		"id":            r.ID,
		"meeting_id":    r.MeetingID,
		"content":       r.Content,
		"content_type":  r.ContentType,
		"source":        r.Source,
		"similarity":    r.Similarity,
		"keyword_match": r.KeywordMatch,
		"created_at":    r.CreatedAt,
	}
}

func resultMaps(results []*domain.SearchResult) []map[string]any {
	out := make([]map[string]any, 0, len(results))
	for _, r := range results {
		out = append(out, resultMap(r))
	}
	return out
}

// SearchKnowledgeParams are the parameters for search_meeting_knowledge
type SearchKnowledgeParams struct {
	Query       string `json:"query" jsonschema:"the search query text"`
	ContentType string `json:"content_type,omitempty" jsonschema:"optional filter: fact, context, summary, question or answer"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 5"`
}

func newSearchKnowledgeTool(retrieval Retriever) (*Tool, error) {
	schema, err := jsonschema.For[SearchKnowledgeParams](nil)
	if err != nil {
		return nil, err
	}

	return &Tool{
		Name:        "search_meeting_knowledge",
		Description: "Search the meeting knowledge base for content relevant to a query",
		Schema:      schema,
		execute: func(ctx context.Context, scopeID string, params map[string]any) *domain.ToolResult {
			var p SearchKnowledgeParams
			if err := decodeParams(params, &p); err != nil {
				return domain.ToolFailure(err.Error())
			}
			if strings.TrimSpace(p.Query) == "" {
				return missingParam("query")
			}
			limit := p.Limit
			if limit <= 0 {
				limit = defaultToolLimit
			}

			results := retrieval.SemanticSearch(ctx, p.Query, scopeID, service.SearchOptions{})

			filtered := make([]*domain.SearchResult, 0, limit)
			for _, r := range results {
				if p.ContentType != "" && string(r.ContentType) != p.ContentType {
					continue
				}
				filtered = append(filtered, r)
				if len(filtered) == limit {
					break
				}
			}

			return domain.ToolSuccess(map[string]any{
				"results": resultMaps(filtered),
				"count":   len(filtered),
			})
		},
	}, nil
}

// RecallDecisionsParams are the parameters for recall_decisions
type RecallDecisionsParams struct {
	Topic string `json:"topic" jsonschema:"the topic the decision was about"`
}

func newRecallDecisionsTool(retrieval Retriever) (*Tool, error) {
	schema, err := jsonschema.For[RecallDecisionsParams](nil)
	if err != nil {
		return nil, err
	}

	return &Tool{
		Name:        "recall_decisions",
		Description: "Recall decisions made about a topic in past discussions",
		Schema:      schema,
		execute: func(ctx context.Context, scopeID string, params map[string]any) *domain.ToolResult {
			var p RecallDecisionsParams
			if err := decodeParams(params, &p); err != nil {
				return domain.ToolFailure(err.Error())
			}
			if strings.TrimSpace(p.Topic) == "" {
				return missingParam("topic")
			}

			query := fmt.Sprintf("decision about %s", p.Topic)
			results := retrieval.SemanticSearch(ctx, query, scopeID, service.SearchOptions{
				Threshold: decisionThreshold,
			})

			decisions := make([]*domain.SearchResult, 0, len(results))
			for _, r := range results {
				if r.ContentType == domain.ContentTypeSummary || containsAny(r.Content, decisionMarkers) {
					decisions = append(decisions, r)
				}
			}

			return domain.ToolSuccess(map[string]any{
				"decisions": resultMaps(decisions),
				"count":     len(decisions),
			})
		},
	}, nil
}

// ActionItemsParams are the parameters for get_action_items
type ActionItemsParams struct {
	Assignee string `json:"assignee,omitempty" jsonschema:"optionally narrow to one assignee"`
}

func newActionItemsTool(retrieval Retriever) (*Tool, error) {
	schema, err := jsonschema.For[ActionItemsParams](nil)
	if err != nil {
		return nil, err
	}

	return &Tool{
		Name:        "get_action_items",
		Description: "Collect action items and assigned tasks from meeting knowledge",
		Schema:      schema,
		execute: func(ctx context.Context, scopeID string, params map[string]any) *domain.ToolResult {
			var p ActionItemsParams
			if err := decodeParams(params, &p); err != nil {
				return domain.ToolFailure(err.Error())
			}

			query := "action item task"
			if p.Assignee != "" {
				query = fmt.Sprintf("action item task %s", p.Assignee)
			}

			results := retrieval.SemanticSearch(ctx, query, scopeID, service.SearchOptions{
				Threshold: actionItemThreshold,
			})

			items := make([]*domain.SearchResult, 0, len(results))
			for _, r := range results {
				if containsAny(r.Content, actionMarkers) {
					items = append(items, r)
				}
			}

			return domain.ToolSuccess(map[string]any{
				"action_items": resultMaps(items),
				"count":        len(items),
			})
		},
	}, nil
}

// SummarizeTopicParams are the parameters for summarize_topic
type SummarizeTopicParams struct {
	Topic string `json:"topic" jsonschema:"the topic to summarize"`
}

func newSummarizeTopicTool(retrieval Retriever) (*Tool, error) {
	schema, err := jsonschema.For[SummarizeTopicParams](nil)
	if err != nil {
		return nil, err
	}

	return &Tool{
		Name:        "summarize_topic",
		Description: "Summarize everything known about a topic across discussions",
		Schema:      schema,
		execute: func(ctx context.Context, scopeID string, params map[string]any) *domain.ToolResult {
			var p SummarizeTopicParams
			if err := decodeParams(params, &p); err != nil {
				return domain.ToolFailure(err.Error())
			}
			if strings.TrimSpace(p.Topic) == "" {
				return missingParam("topic")
			}

			results := retrieval.SemanticSearch(ctx, p.Topic, scopeID, service.SearchOptions{
				Threshold: topicThreshold,
				Limit:     topicSummaryLimit,
			})

			// A topic nobody discussed is still a successful answer
			if len(results) == 0 {
				return domain.ToolSuccess(map[string]any{
					"summary":       fmt.Sprintf("No discussions found about '%s' in the knowledge base.", p.Topic),
					"related_items": []map[string]any{},
				})
			}

			breakdown := make(map[string]int)
			for _, r := range results {
				breakdown[string(r.ContentType)]++
			}

			keyPoints := make([]string, 0, maxKeyPoints)
			for _, r := range results[:min(maxKeyPoints, len(results))] {
				keyPoints = append(keyPoints, r.Content)
			}

			return domain.ToolSuccess(map[string]any{
				"summary":       fmt.Sprintf("Found %d discussions about '%s'.", len(results), p.Topic),
				"breakdown":     breakdown,
				"key_points":    keyPoints,
				"related_items": resultMaps(results),
			})
		},
	}, nil
}

// SimilarDiscussionsParams are the parameters for find_similar_discussions
type SimilarDiscussionsParams struct {
	ReferenceText string `json:"reference_text" jsonschema:"the text to find similar discussions for"`
	Scope         string `json:"scope,omitempty" jsonschema:"current_meeting or all_meetings, default current_meeting"`
}

func newSimilarDiscussionsTool(retrieval Retriever) (*Tool, error) {
	schema, err := jsonschema.For[SimilarDiscussionsParams](nil)
	if err != nil {
		return nil, err
	}

	return &Tool{
		Name:        "find_similar_discussions",
		Description: "Find past discussions similar to a piece of reference text",
		Schema:      schema,
		execute: func(ctx context.Context, scopeID string, params map[string]any) *domain.ToolResult {
			var p SimilarDiscussionsParams
			if err := decodeParams(params, &p); err != nil {
				return domain.ToolFailure(err.Error())
			}
			if strings.TrimSpace(p.ReferenceText) == "" {
				return missingParam("reference_text")
			}

			searchScope := scopeID
			switch p.Scope {
			case "", "current_meeting":
			case "all_meetings":
				searchScope = ""
			default:
				return domain.ToolFailure(fmt.Sprintf("invalid scope: %s", p.Scope))
			}

			results := retrieval.SemanticSearch(ctx, p.ReferenceText, searchScope, service.SearchOptions{
				Threshold: similarThreshold,
			})

			return domain.ToolSuccess(map[string]any{
				"similar": resultMaps(results),
				"count":   len(results),
			})
		},
	}, nil
}
