package core

import (
	"crewforge/internal/tools"
	"crewforge/internal/workspace"
)

// RegisterAll registers all workspace filesystem tools with the given registry.
func RegisterAll(registry *tools.Registry, ws *workspace.Workspace) error {
	allTools := []*tools.Tool{
		// File operations
		ReadFileTool(ws),
		WriteFileTool(ws),
		EditFileTool(ws),
		DeleteFileTool(ws),
		ListFilesTool(ws),

		// Search operations
		GlobTool(ws),
		GrepTool(ws),
	}

	for _, tool := range allTools {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}

	return nil
}
