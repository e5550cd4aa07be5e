// Package tools exposes the knowledge engine as a fixed registry of named,
// schema-described tools a conversational agent can invoke mid-dialogue.
// Nothing in this package propagates an error or panic past the dispatch
// boundary: every outcome is a structured ToolResult the agent can narrate.
package tools

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/parley-hq/parley/internal/domain"
	"github.com/parley-hq/parley/internal/service"
	"github.com/parley-hq/parley/internal/telemetry"
)

// Retriever defines the retrieval engine surface tools compose
type Retriever interface {
	SemanticSearch(ctx context.Context, query, scopeID string, opts service.SearchOptions) []*domain.SearchResult
}

// Tool is a named, schema-described executor in the registry
type Tool struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema

	execute func(ctx context.Context, scopeID string, params map[string]any) *domain.ToolResult
}

// ToolSchema is the discoverable description of one tool
type ToolSchema struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

// Registry is the fixed set of tools backed by one retrieval engine.
// Dispatch calls are stateless and safe to run concurrently across
// independent conversations.
type Registry struct {
	tools map[string]*Tool
	order []string
}

// NewRegistry builds the fixed tool registry over a retrieval engine
func NewRegistry(retrieval Retriever) (*Registry, error) {
	r := &Registry{tools: make(map[string]*Tool)}

	for _, build := range []func(Retriever) (*Tool, error){
		newSearchKnowledgeTool,
		newRecallDecisionsTool,
		newActionItemsTool,
		newSummarizeTopicTool,
		newSimilarDiscussionsTool,
	} {
		tool, err := build(retrieval)
		if err != nil {
			return nil, fmt.Errorf("failed to build tool registry: %w", err)
		}
		r.tools[tool.Name] = tool
		r.order = append(r.order, tool.Name)
	}

	return r, nil
}

// Schemas returns the discoverable tool descriptions in registration order
func (r *Registry) Schemas() []ToolSchema {
	schemas := make([]ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		schemas = append(schemas, ToolSchema{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Schema,
		})
	}
	return schemas
}

// Dispatch executes a tool call against the registry. scopeID is the calling
// conversation's meeting; tools that search the current meeting use it.
// Unknown names, bad parameters and downstream failures all come back as
// structured failures, never as errors or panics.
func (r *Registry) Dispatch(ctx context.Context, scopeID string, call domain.ToolCall) (result *domain.ToolResult) {
	ctx, span := telemetry.StartSpan(ctx, "Registry.Dispatch", telemetry.SpanAttributes{
		MeetingID: scopeID,
		Tool:      call.Name,
		Operation: "dispatch",
	})
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			result = domain.ToolFailure(fmt.Sprintf("tool %s failed: %v", call.Name, rec))
		}
	}()

	tool, ok := r.tools[call.Name]
	if !ok {
		return domain.ToolFailure(fmt.Sprintf("Unknown tool: %s", call.Name))
	}

	return tool.execute(ctx, scopeID, call.Parameters)
}
