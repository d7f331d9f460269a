package proc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"crewforge/internal/logging"
)

// Runner is the interface for subprocess execution.
type Runner interface {
	// Run executes a command to completion and returns a comprehensive result.
	// The context can be used for cancellation.
	Run(ctx context.Context, cmd Command) (*Result, error)

	// Start launches a long-lived process and returns a handle to it.
	// The process is killed when the context is canceled.
	Start(ctx context.Context, cmd Command) (*Process, error)

	// Validate checks if a command can be executed by this runner.
	// Returns nil if valid, or an error explaining why not.
	Validate(cmd Command) error
}

// ExecRunner executes commands directly on the host using os/exec.
type ExecRunner struct {
	mu     sync.RWMutex
	config Config

	// auditCallback is called for execution events
	auditCallback func(Event)
}

// NewExecRunner creates a new runner with default config.
func NewExecRunner() *ExecRunner {
	logging.ProcDebug("Creating ExecRunner with default config")
	return NewExecRunnerWithConfig(DefaultConfig())
}

// NewExecRunnerWithConfig creates a new runner with custom config.
func NewExecRunnerWithConfig(config Config) *ExecRunner {
	logging.ProcDebug("Creating ExecRunner with config: timeout=%s, maxOutput=%d bytes",
		config.DefaultTimeout, config.MaxOutputBytes)
	return &ExecRunner{
		config: config,
	}
}

// SetAuditCallback sets the callback for audit events.
func (r *ExecRunner) SetAuditCallback(callback func(Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auditCallback = callback
}

// emitAudit emits an audit event if a callback is registered.
func (r *ExecRunner) emitAudit(event Event) {
	r.mu.RLock()
	callback := r.auditCallback
	r.mu.RUnlock()

	if callback != nil {
		callback(event)
	}
}

// Validate checks if a command can be executed.
func (r *ExecRunner) Validate(cmd Command) error {
	if cmd.Binary == "" {
		return fmt.Errorf("binary is required")
	}
	return nil
}

// Run executes a command to completion on the host.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	timer := logging.StartTimer(logging.CategoryProc, "Command execution")
	defer timer.Stop()

	logging.Proc("Executing command: %s", cmd.CommandString())

	if err := r.Validate(cmd); err != nil {
		logging.ProcWarn("Command validation failed: %s %v - %v", cmd.Binary, cmd.Arguments, err)
		return nil, err
	}

	cmd = r.config.merge(cmd)

	logging.ProcDebug("Executing: %s %v (dir=%s, timeout=%s)",
		cmd.Binary, cmd.Arguments, cmd.WorkingDirectory, cmd.Timeout)

	result := &Result{
		ExitCode: -1,
	}

	r.emitAudit(Event{
		Type:      EventStart,
		Timestamp: time.Now(),
		Command:   cmd,
	})

	execCtx, cancel := context.WithTimeout(ctx, cmd.Timeout)
	defer cancel()

	execCmd := exec.CommandContext(execCtx, cmd.Binary, cmd.Arguments...)
	execCmd.Dir = cmd.WorkingDirectory
	execCmd.Env = r.buildEnvironment(cmd.Environment)

	if cmd.Stdin != "" {
		logging.ProcDebug("Providing stdin input (%d bytes)", len(cmd.Stdin))
		execCmd.Stdin = strings.NewReader(cmd.Stdin)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdoutBuf, max: cmd.MaxOutputBytes}
	stderrLimited := &limitedWriter{w: &stderrBuf, max: cmd.MaxOutputBytes}

	execCmd.Stdout = stdoutLimited
	execCmd.Stderr = stderrLimited

	result.StartedAt = time.Now()
	logging.ProcDebug("Starting process: %s", cmd.Binary)

	err := execCmd.Run()

	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)
	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()

	if stdoutLimited.truncated || stderrLimited.truncated {
		result.Truncated = true
		result.TruncatedBytes = stdoutLimited.discarded + stderrLimited.discarded
		logging.ProcWarn("Command output truncated: %d bytes discarded", result.TruncatedBytes)
	}

	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			result.Killed = true
			result.KillReason = fmt.Sprintf("timeout after %s", cmd.Timeout)
			result.Success = true // Infrastructure worked, command was killed
			logging.ProcWarn("Command killed (timeout): %s after %s", cmd.Binary, cmd.Timeout)
			r.emitAudit(Event{
				Type:      EventKilled,
				Timestamp: time.Now(),
				Command:   cmd,
				Result:    result,
			})
		} else if execCtx.Err() == context.Canceled {
			result.Killed = true
			result.KillReason = "context canceled"
			result.Success = true
			logging.ProcDebug("Command canceled: %s", cmd.Binary)
			r.emitAudit(Event{
				Type:      EventKilled,
				Timestamp: time.Now(),
				Command:   cmd,
				Result:    result,
			})
		} else if exitErr, ok := err.(*exec.ExitError); ok {
			result.Success = true // Command ran, just returned non-zero
			result.ExitCode = exitErr.ExitCode()
			logging.ProcDebug("Command exited non-zero: %s -> %d", cmd.Binary, result.ExitCode)
		} else {
			result.Success = false
			result.Error = err.Error()
			logging.ProcError("Command failed: %s - %v", cmd.Binary, err)
			r.emitAudit(Event{
				Type:      EventError,
				Timestamp: time.Now(),
				Command:   cmd,
				Result:    result,
			})
			return result, nil
		}
	} else {
		result.Success = true
		result.ExitCode = 0
		logging.ProcDebug("Command succeeded with exit code 0")
	}

	r.emitAudit(Event{
		Type:      EventComplete,
		Timestamp: time.Now(),
		Command:   cmd,
		Result:    result,
	})

	logging.Proc("Command completed: %s -> exit=%d, duration=%s, stdout=%d bytes",
		cmd.Binary, result.ExitCode, result.Duration, len(result.Stdout))

	return result, nil
}

// buildEnvironment creates the environment variable list.
func (r *ExecRunner) buildEnvironment(cmdEnv []string) []string {
	env := make([]string, 0)

	for _, key := range r.config.AllowedEnvironment {
		if val := os.Getenv(key); val != "" {
			env = append(env, fmt.Sprintf("%s=%s", key, val))
		}
	}

	env = append(env, cmdEnv...)

	return env
}

// limitedWriter is an io.Writer that limits total bytes written.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
	discarded int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)

	if lw.written >= lw.max {
		lw.truncated = true
		lw.discarded += int64(n)
		return n, nil // Pretend we wrote it
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		// Partial write
		lw.truncated = true
		toWrite := p[:remaining]
		lw.discarded += int64(n) - remaining
		written, err := lw.w.Write(toWrite)
		lw.written += int64(written)
		return n, err // Return original length to avoid "short write" errors
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
