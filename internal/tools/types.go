// Package tools provides the sandboxed tool layer for crew agents.
//
// Each tool is standalone, carries a JSON schema for its arguments, and
// returns a tagged Result instead of bare strings, so callers can branch
// on failure kind without parsing messages.
//
// Architecture:
//
//	Role → ToolContract → Registry.GetMultiple() → Tool.Execute()
package tools

import (
	"context"
)

// ToolCategory classifies tools for contract-based filtering.
type ToolCategory string

const (
	// CategoryFiles covers workspace file operations.
	CategoryFiles ToolCategory = "/files"

	// CategoryTest covers syntax checking and functional API testing.
	CategoryTest ToolCategory = "/test"

	// CategoryGeneral is for tools usable by any role.
	CategoryGeneral ToolCategory = "/general"
)

// Property describes a single parameter property for JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	// Items describes array element schema (required for type="array")
	Items *PropertyItems `json:"items,omitempty"`
}

// PropertyItems describes the schema for array elements.
type PropertyItems struct {
	Type string `json:"type"`
}

// ToolSchema defines the JSON schema for tool arguments.
// This enables agent tool calling with proper validation.
type ToolSchema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc is the signature for tool execution.
// The Result carries the domain outcome; the error is reserved for
// infrastructure failures (the tool itself could not run).
type ExecuteFunc func(ctx context.Context, args map[string]any) (Result, error)

// Tool defines a modular tool that any agent role can use.
// Tools are registered in the Registry and selected per role
// by the runtime's tool contracts.
type Tool struct {
	// Name is the unique identifier for the tool.
	// Must match the names listed in a role's ToolContract.
	Name string

	// Description explains what the tool does.
	// Used for agent tool calling and documentation.
	Description string

	// Category classifies the tool for contract filtering.
	Category ToolCategory

	// Execute runs the tool with the given arguments.
	Execute ExecuteFunc

	// Schema defines the expected arguments.
	Schema ToolSchema

	// Priority is used when multiple tools match.
	// Higher priority tools are preferred (default 50).
	Priority int
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// WithPriority returns a copy of the tool with the given priority.
func (t *Tool) WithPriority(priority int) *Tool {
	copy := *t
	copy.Priority = priority
	return &copy
}

// Invocation wraps the outcome of one tool execution with metadata.
type Invocation struct {
	// ToolName identifies which tool was executed.
	ToolName string

	// Result is the tagged outcome from the tool.
	Result Result

	// Error is set if the invocation itself failed.
	Error error

	// DurationMs is how long execution took.
	DurationMs int64
}

// IsSuccess returns true if the tool executed without infrastructure error.
// A Result with StatusError still counts as a successful invocation.
func (i *Invocation) IsSuccess() bool {
	return i.Error == nil
}
