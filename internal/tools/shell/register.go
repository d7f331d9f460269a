package shell

import (
	"crewforge/internal/proc"
	"crewforge/internal/tools"
	"crewforge/internal/workspace"
)

// RegisterAll registers the shell execution tools with the given registry.
func RegisterAll(registry *tools.Registry, ws *workspace.Workspace, runner proc.Runner) error {
	return registry.Register(RunCommandTool(ws, runner))
}
