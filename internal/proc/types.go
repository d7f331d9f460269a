// Package proc is the subprocess layer for crewforge tools. Everything that
// touches the outside world through a child process goes through here: the
// Python syntax checker, the uvicorn server under test, and any future tool
// that shells out.
//
// Design principles:
//   - Run-to-completion and long-lived processes share one Command type
//   - Output capture is always size-capped
//   - A non-zero exit is a result, not an infrastructure error
package proc

import (
	"time"
)

// Command represents a subprocess to be executed.
type Command struct {
	// Binary is the executable to run (e.g., "python3", "uvicorn").
	Binary string `json:"binary"`

	// Arguments are the command-line arguments.
	Arguments []string `json:"arguments"`

	// WorkingDirectory is the directory to execute in.
	// If empty, uses the runner's default working directory.
	WorkingDirectory string `json:"working_directory,omitempty"`

	// Environment variables to set (in KEY=VALUE format).
	// These are merged with the runner's allowed environment.
	Environment []string `json:"environment,omitempty"`

	// Stdin provides input to the command's standard input.
	Stdin string `json:"stdin,omitempty"`

	// Timeout is the maximum execution time for Run.
	// Zero means use the runner's default. Ignored by Start.
	Timeout time.Duration `json:"timeout,omitempty"`

	// MaxOutputBytes caps captured stdout and stderr size each.
	// Zero means use the runner's default.
	MaxOutputBytes int64 `json:"max_output_bytes,omitempty"`

	// Tag labels this execution for logs and audit events.
	Tag string `json:"tag,omitempty"`
}

// CommandString returns the full command as a string (for display/logging).
func (c Command) CommandString() string {
	if len(c.Arguments) == 0 {
		return c.Binary
	}
	result := c.Binary
	for _, arg := range c.Arguments {
		result += " " + arg
	}
	return result
}

// Result is the comprehensive output of a run-to-completion execution.
type Result struct {
	// Success indicates whether the command completed without error.
	// Note: A command that runs but returns non-zero exit code has Success=true.
	// Success=false means the execution infrastructure failed.
	Success bool `json:"success"`

	// ExitCode is the command's exit code (-1 if not available).
	ExitCode int `json:"exit_code"`

	// Stdout is the captured standard output.
	Stdout string `json:"stdout"`

	// Stderr is the captured standard error.
	Stderr string `json:"stderr"`

	// Duration is how long the command ran.
	Duration time.Duration `json:"duration"`

	// StartedAt is when execution began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when execution completed.
	FinishedAt time.Time `json:"finished_at"`

	// Killed indicates the command was forcibly terminated.
	Killed bool `json:"killed"`

	// KillReason explains why the command was killed.
	KillReason string `json:"kill_reason,omitempty"`

	// Truncated indicates output was truncated due to size limits.
	Truncated bool `json:"truncated"`

	// TruncatedBytes is how many bytes were discarded.
	TruncatedBytes int64 `json:"truncated_bytes,omitempty"`

	// Error contains any infrastructure-level error message.
	Error string `json:"error,omitempty"`
}

// IsError returns true if the execution failed (infrastructure error).
func (r *Result) IsError() bool {
	return !r.Success || r.Error != ""
}

// IsNonZeroExit returns true if the command ran but returned non-zero.
func (r *Result) IsNonZeroExit() bool {
	return r.Success && r.ExitCode != 0
}

// Output returns stdout and stderr joined for display.
func (r *Result) Output() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// EventType categorizes runner audit events.
type EventType string

const (
	EventStart    EventType = "start"
	EventComplete EventType = "complete"
	EventKilled   EventType = "killed"
	EventError    EventType = "error"
)

// Event represents an execution event for the audit trail.
type Event struct {
	// Type is the event category.
	Type EventType `json:"type"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Command is the command being executed.
	Command Command `json:"command"`

	// Result is the execution result (for complete/killed/error events).
	Result *Result `json:"result,omitempty"`
}

// Config is the configuration for creating runners.
type Config struct {
	// DefaultWorkingDir is used when Command.WorkingDirectory is empty.
	DefaultWorkingDir string `json:"default_working_dir"`

	// DefaultTimeout is used when no timeout is specified.
	DefaultTimeout time.Duration `json:"default_timeout"`

	// MaxTimeout caps all timeout values.
	MaxTimeout time.Duration `json:"max_timeout"`

	// AllowedEnvironment lists environment variables to pass through.
	AllowedEnvironment []string `json:"allowed_environment"`

	// MaxOutputBytes caps output capture per stream (default 4MB).
	MaxOutputBytes int64 `json:"max_output_bytes"`
}

// DefaultConfig returns sensible defaults for Python tooling subprocesses.
func DefaultConfig() Config {
	return Config{
		DefaultWorkingDir: ".",
		DefaultTimeout:    30 * time.Second,
		MaxTimeout:        10 * time.Minute,
		MaxOutputBytes:    4 * 1024 * 1024, // 4MB
		AllowedEnvironment: []string{
			"PATH", "HOME", "USER", "LANG", "LC_ALL", "TMPDIR", "TEMP", "TMP",
			"PYTHONPATH", "PYTHONHOME", "VIRTUAL_ENV", "SYSTEMROOT",
		},
	}
}

// merge combines this config with command-specific settings.
// Command settings override config defaults.
func (c Config) merge(cmd Command) Command {
	result := cmd

	if result.WorkingDirectory == "" {
		result.WorkingDirectory = c.DefaultWorkingDir
	}

	if result.Timeout == 0 {
		result.Timeout = c.DefaultTimeout
	}
	if c.MaxTimeout > 0 && result.Timeout > c.MaxTimeout {
		result.Timeout = c.MaxTimeout
	}

	if result.MaxOutputBytes == 0 {
		result.MaxOutputBytes = c.MaxOutputBytes
	}

	return result
}
