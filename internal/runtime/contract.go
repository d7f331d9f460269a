// Package runtime defines the boundary to the external agent engine:
// the tool invocation contract it consumes, the declarative task list it
// executes, and the sequencer that drives tasks through an Engine in
// dependency order. The engine's internal delegation and retry behavior
// is deliberately not modeled here.
package runtime

import (
	"context"
	"sort"

	"crewforge/internal/tools"
)

// Invoker is the sole capability handed to an engine: it can call
// registered tools by name and read their tagged results.
type Invoker interface {
	InvokeTool(ctx context.Context, name string, args map[string]any) (tools.Result, error)
}

// RegistryInvoker adapts a tool registry to the Invoker boundary.
type RegistryInvoker struct {
	registry *tools.Registry
}

// NewRegistryInvoker wraps the given registry.
func NewRegistryInvoker(registry *tools.Registry) *RegistryInvoker {
	return &RegistryInvoker{registry: registry}
}

// InvokeTool executes a named tool. Domain failures come back inside
// the Result; the error covers unknown tools, bad arguments, and other
// infrastructure faults.
func (ri *RegistryInvoker) InvokeTool(ctx context.Context, name string, args map[string]any) (tools.Result, error) {
	inv, err := ri.registry.Execute(ctx, name, args)
	if err != nil {
		if inv != nil {
			return inv.Result, err
		}
		return tools.Result{}, err
	}
	return inv.Result, nil
}

// ToolContract is the declared surface of one tool: everything an
// engine needs to decide when and how to call it.
type ToolContract struct {
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description" yaml:"description"`
	Category    string           `json:"category" yaml:"category"`
	Schema      tools.ToolSchema `json:"schema" yaml:"schema"`
}

// Contracts exports the invocation contract of every registered tool,
// sorted by name for stable output.
func Contracts(registry *tools.Registry) []ToolContract {
	all := registry.All()
	contracts := make([]ToolContract, 0, len(all))
	for _, tool := range all {
		contracts = append(contracts, ToolContract{
			Name:        tool.Name,
			Description: tool.Description,
			Category:    string(tool.Category),
			Schema:      tool.Schema,
		})
	}
	sort.Slice(contracts, func(i, j int) bool {
		return contracts[i].Name < contracts[j].Name
	})
	return contracts
}
