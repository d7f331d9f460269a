package proc

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"crewforge/internal/logging"
)

// Process is a handle to a long-lived child process started with Start.
// Output is captured continuously; snapshots are safe to take while the
// process is still running.
type Process struct {
	cmd     *exec.Cmd
	command Command
	stdout  *lockedBuffer
	stderr  *lockedBuffer

	startedAt time.Time
	done      chan struct{}

	mu            sync.Mutex
	exited        bool
	exitCode      int
	waitErr       error
	killRequested bool

	emit func(Event)
}

// Start launches a long-lived process and returns a handle to it.
// Unlike Run, it does not wait for completion; the process is killed when
// ctx is canceled or Kill is called.
func (r *ExecRunner) Start(ctx context.Context, cmd Command) (*Process, error) {
	logging.Proc("Starting process: %s", cmd.CommandString())

	if err := r.Validate(cmd); err != nil {
		logging.ProcWarn("Command validation failed: %s %v - %v", cmd.Binary, cmd.Arguments, err)
		return nil, err
	}

	cmd = r.config.merge(cmd)

	execCmd := exec.CommandContext(ctx, cmd.Binary, cmd.Arguments...)
	execCmd.Dir = cmd.WorkingDirectory
	execCmd.Env = r.buildEnvironment(cmd.Environment)

	stdout := &lockedBuffer{}
	stderr := &lockedBuffer{}
	execCmd.Stdout = &limitedWriter{w: stdout, max: cmd.MaxOutputBytes}
	execCmd.Stderr = &limitedWriter{w: stderr, max: cmd.MaxOutputBytes}

	if err := execCmd.Start(); err != nil {
		logging.ProcError("Failed to start process: %s - %v", cmd.Binary, err)
		return nil, fmt.Errorf("failed to start %s: %w", cmd.Binary, err)
	}

	p := &Process{
		cmd:       execCmd,
		command:   cmd,
		stdout:    stdout,
		stderr:    stderr,
		startedAt: time.Now(),
		done:      make(chan struct{}),
		exitCode:  -1,
		emit:      r.emitAudit,
	}

	r.emitAudit(Event{
		Type:      EventStart,
		Timestamp: p.startedAt,
		Command:   cmd,
	})

	logging.Proc("Process started: %s (pid=%d)", cmd.Binary, execCmd.Process.Pid)

	go p.reap()

	return p, nil
}

// reap waits for the process to exit and records its final state.
func (p *Process) reap() {
	err := p.cmd.Wait()
	finishedAt := time.Now()

	p.mu.Lock()
	p.exited = true
	p.waitErr = err
	if p.cmd.ProcessState != nil {
		p.exitCode = p.cmd.ProcessState.ExitCode()
	}
	exitCode := p.exitCode
	killed := p.killRequested
	p.mu.Unlock()

	result := &Result{
		Success:    true,
		ExitCode:   exitCode,
		Stdout:     p.stdout.String(),
		Stderr:     p.stderr.String(),
		StartedAt:  p.startedAt,
		FinishedAt: finishedAt,
		Duration:   finishedAt.Sub(p.startedAt),
	}

	eventType := EventComplete
	if killed {
		eventType = EventKilled
		result.Killed = true
		result.KillReason = "killed"
	}

	if p.emit != nil {
		p.emit(Event{
			Type:      eventType,
			Timestamp: finishedAt,
			Command:   p.command,
			Result:    result,
		})
	}

	logging.Proc("Process exited: %s -> exit=%d, duration=%s",
		p.command.Binary, exitCode, result.Duration)

	close(p.done)
}

// PID returns the process ID.
func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

// Running reports whether the process is still alive.
func (p *Process) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.exited
}

// ExitCode returns the exit code and whether the process has exited.
// Before exit it returns (-1, false).
func (p *Process) ExitCode() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.exited {
		return -1, false
	}
	return p.exitCode, true
}

// Stdout returns a snapshot of the captured standard output so far.
func (p *Process) Stdout() string {
	return p.stdout.String()
}

// Stderr returns a snapshot of the captured standard error so far.
func (p *Process) Stderr() string {
	return p.stderr.String()
}

// Done returns a channel closed when the process has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Kill forcibly terminates the process. Safe to call after exit.
func (p *Process) Kill() error {
	p.mu.Lock()
	if p.exited {
		p.mu.Unlock()
		return nil
	}
	p.killRequested = true
	p.mu.Unlock()

	logging.Proc("Killing process: %s (pid=%d)", p.command.Binary, p.cmd.Process.Pid)
	if err := p.cmd.Process.Kill(); err != nil {
		// The process may have exited between the check and the kill.
		select {
		case <-p.done:
			return nil
		default:
			return fmt.Errorf("failed to kill process: %w", err)
		}
	}
	return nil
}

// Wait blocks until the process exits or ctx is done.
func (p *Process) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop kills the process and waits for it to be reaped.
func (p *Process) Stop(ctx context.Context) error {
	if err := p.Kill(); err != nil {
		return err
	}
	return p.Wait(ctx)
}

// lockedBuffer is a bytes.Buffer safe for concurrent writer and reader.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
