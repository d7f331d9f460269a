package webtest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"crewforge/internal/logging"
	"crewforge/internal/proc"
	"crewforge/internal/tools"
	"crewforge/internal/workspace"
)

// SyntaxChecker runs syntax-only compiles of Python files in the workspace.
type SyntaxChecker struct {
	ws     *workspace.Workspace
	runner proc.Runner

	// PythonBin is the interpreter used for py_compile.
	PythonBin string

	// Timeout bounds a single compile run.
	Timeout time.Duration
}

// NewSyntaxChecker creates a checker using the given interpreter.
func NewSyntaxChecker(ws *workspace.Workspace, runner proc.Runner, pythonBin string) *SyntaxChecker {
	if pythonBin == "" {
		pythonBin = "python3"
	}
	return &SyntaxChecker{
		ws:        ws,
		runner:    runner,
		PythonBin: pythonBin,
		Timeout:   30 * time.Second,
	}
}

// Check compiles one file and reports pass/fail with captured diagnostics.
// The compile runs exactly once; its diagnostic stream is captured on the
// same run rather than re-invoking the interpreter for output.
func (c *SyntaxChecker) Check(ctx context.Context, filePath string) (tools.Result, error) {
	logging.Syntax("check_syntax: %s", filePath)

	abs, err := c.ws.Resolve(filePath)
	if err != nil {
		return pathFailure(filePath, err), nil
	}

	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return tools.Errf(tools.KindNotFound, "file not found for testing: %s", filePath), nil
		}
		return tools.Errf(tools.KindIO, "failed to stat file: %v", err), nil
	}

	res, err := c.runner.Run(ctx, proc.Command{
		Binary:           c.PythonBin,
		Arguments:        []string{"-m", "py_compile", abs},
		WorkingDirectory: filepath.Dir(abs),
		Timeout:          c.Timeout,
		Tag:              "check_syntax",
	})
	if err != nil {
		return tools.Result{}, err
	}

	if res.IsError() {
		logging.Get(logging.CategorySyntax).Warn("py_compile could not run: %s", res.Error)
		return tools.Errf(tools.KindIO, "failed to run %s: %s", c.PythonBin, res.Error), nil
	}
	if res.Killed {
		return tools.Errf(tools.KindIO, "syntax check timed out: %s", res.KillReason), nil
	}

	if res.ExitCode == 0 {
		logging.Syntax("check_syntax passed: %s", filePath)
		return tools.OkPayload("Python syntax check passed!", SyntaxReport{Passed: true}), nil
	}

	output := res.Output()
	logging.Syntax("check_syntax failed: %s (exit %d)", filePath, res.ExitCode)
	return tools.OkPayload("Python syntax check failed!\n"+output, SyntaxReport{Passed: false, Output: output}), nil
}

// CheckSyntaxTool wraps the checker as a registrable tool.
func CheckSyntaxTool(checker *SyntaxChecker) *tools.Tool {
	return &tools.Tool{
		Name:        "check_syntax",
		Description: "Check a Python file for syntax errors without executing it",
		Category:    tools.CategoryTest,
		Priority:    75,
		Execute: func(ctx context.Context, args map[string]any) (tools.Result, error) {
			filePath, _ := args["file_path"].(string)
			if filePath == "" {
				return tools.Errf(tools.KindInvalidArgument, "file_path is required"), nil
			}
			return checker.Check(ctx, filePath)
		},
		Schema: tools.ToolSchema{
			Required: []string{"file_path"},
			Properties: map[string]tools.Property{
				"file_path": {
					Type:        "string",
					Description: "The Python file to check, relative to the workspace root",
				},
			},
		},
	}
}

// pathFailure maps a workspace resolution error to a tagged result.
func pathFailure(path string, err error) tools.Result {
	var escErr *workspace.EscapeError
	if errors.As(err, &escErr) {
		return tools.Errf(tools.KindInvalidArgument, "%v", err)
	}
	return tools.Errf(tools.KindIO, "failed to resolve path %s: %v", path, err)
}
