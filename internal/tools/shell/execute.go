package shell

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"crewforge/internal/logging"
	"crewforge/internal/proc"
	"crewforge/internal/tools"
	"crewforge/internal/workspace"
)

// defaultCommandTimeout bounds a run_command invocation unless the caller
// asks for less.
const defaultCommandTimeout = 60 * time.Second

// CommandReport is the structured payload of a run_command result.
type CommandReport struct {
	Command   string `json:"command"`
	ExitCode  int    `json:"exit_code"`
	Output    string `json:"output"`
	Truncated bool   `json:"truncated,omitempty"`
}

// RunCommandTool returns a tool for executing shell commands inside the
// workspace.
func RunCommandTool(ws *workspace.Workspace, runner proc.Runner) *tools.Tool {
	return &tools.Tool{
		Name:        "run_command",
		Description: "Execute a shell command in the workspace and return its output",
		Category:    tools.CategoryGeneral,
		Priority:    70,
		Execute: func(ctx context.Context, args map[string]any) (tools.Result, error) {
			return executeRunCommand(ctx, ws, runner, args)
		},
		Schema: tools.ToolSchema{
			Required: []string{"command"},
			Properties: map[string]tools.Property{
				"command": {
					Type:        "string",
					Description: "The command to execute",
				},
				"working_dir": {
					Type:        "string",
					Description: "Working directory relative to the workspace root (default: the root)",
				},
				"timeout_seconds": {
					Type:        "integer",
					Description: "Timeout in seconds (default: 60)",
					Default:     60,
				},
			},
		},
	}
}

func executeRunCommand(ctx context.Context, ws *workspace.Workspace, runner proc.Runner, args map[string]any) (tools.Result, error) {
	command, _ := args["command"].(string)
	if command == "" {
		return tools.Errf(tools.KindInvalidArgument, "command is required"), nil
	}

	dir := ws.Root()
	if wd, ok := args["working_dir"].(string); ok && wd != "" {
		abs, err := ws.Resolve(wd)
		if err != nil {
			return dirFailure(wd, err), nil
		}
		dir = abs
	}

	timeout := defaultCommandTimeout
	if secs, ok := intArg(args, "timeout_seconds"); ok && secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}

	logging.ShellDebug("run_command: cmd=%q, dir=%s, timeout=%s", command, dir, timeout)

	res, err := runner.Run(ctx, proc.Command{
		Binary:           shellBinary(),
		Arguments:        shellArgs(command),
		WorkingDirectory: dir,
		Timeout:          timeout,
		Tag:              "run_command",
	})
	if err != nil {
		return tools.Result{}, err
	}

	if res.IsError() {
		logging.Shell("run_command could not run: %s", res.Error)
		return tools.Errf(tools.KindIO, "failed to run command: %s", res.Error), nil
	}
	if res.Killed {
		return tools.Errf(tools.KindIO, "command timed out: %s", res.KillReason), nil
	}

	output := res.Stdout
	if res.Stderr != "" {
		if output != "" {
			output += "\n--- stderr ---\n"
		}
		output += res.Stderr
	}
	if res.Truncated {
		output += "\n[output truncated]"
	}

	report := CommandReport{
		Command:   command,
		ExitCode:  res.ExitCode,
		Output:    output,
		Truncated: res.Truncated,
	}

	if res.ExitCode != 0 {
		logging.Shell("run_command exited %d: %q", res.ExitCode, command)
		return tools.OkPayload(fmt.Sprintf("command exited with status %d\n%s", res.ExitCode, output), report), nil
	}

	logging.Shell("run_command completed: %q (%d bytes output)", command, len(output))
	if output == "" {
		return tools.OkPayload("(no output)", report), nil
	}
	return tools.OkPayload(output, report), nil
}

// dirFailure maps a workspace resolution error to a tagged result.
func dirFailure(dir string, err error) tools.Result {
	var escErr *workspace.EscapeError
	if errors.As(err, &escErr) {
		logging.ShellDebug("rejected working_dir: %v", err)
		return tools.Errf(tools.KindInvalidArgument, "%v", err)
	}
	return tools.Errf(tools.KindIO, "failed to resolve working_dir %s: %v", dir, err)
}

// intArg extracts an integer argument, accepting JSON float64 and Go ints.
func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func shellBinary() string {
	if runtime.GOOS == "windows" {
		return "cmd"
	}
	return "sh"
}

func shellArgs(command string) []string {
	if runtime.GOOS == "windows" {
		return []string{"/C", command}
	}
	return []string{"-c", command}
}
