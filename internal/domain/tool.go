package domain

// ToolCall is a single tool invocation from the conversational agent
type ToolCall struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

// ToolResult is the structured outcome of a tool invocation. Tools never
// propagate errors past this envelope; a failed call is Success=false with
// a narratable Error string.
type ToolResult struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ToolSuccess creates a successful ToolResult carrying data
func ToolSuccess(data any) *ToolResult {
	return &ToolResult{Success: true, Data: data}
}

// ToolFailure creates a failed ToolResult with an error message
func ToolFailure(message string) *ToolResult {
	return &ToolResult{Success: false, Error: message}
}
