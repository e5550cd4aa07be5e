package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/parley-hq/parley/internal/api"
	"github.com/parley-hq/parley/internal/domain"
	"github.com/parley-hq/parley/internal/tools"
)

type ToolRegistry interface {
	Schemas() []tools.ToolSchema
	Dispatch(ctx context.Context, scopeID string, call domain.ToolCall) *domain.ToolResult
}

// ToolsHandler exposes tool discovery and execution. Execution always
// answers 200 with a ToolResult; tool-level failures live inside the
// result, not in the HTTP status.
type ToolsHandler struct {
	registry ToolRegistry
}

func NewToolsHandler(registry ToolRegistry) *ToolsHandler {
	return &ToolsHandler{registry: registry}
}

type ExecuteToolRequest struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
	MeetingID  string         `json:"meeting_id,omitempty"`
}

func (h *ToolsHandler) List(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string]any{
		"tools": h.registry.Schemas(),
	})
}

func (h *ToolsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	result := h.registry.Dispatch(r.Context(), req.MeetingID, domain.ToolCall{
		Name:       req.Name,
		Parameters: req.Parameters,
	})

	api.Success(w, http.StatusOK, result)
}
