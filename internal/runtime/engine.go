package runtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crewforge/internal/config"
)

// TaskStatus is the terminal state of one task execution.
type TaskStatus string

const (
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskSkipped   TaskStatus = "skipped"
)

// TaskResult is what an engine reports back for one task.
type TaskResult struct {
	Task     TaskSpec
	Status   TaskStatus
	Output   string
	Duration time.Duration
}

// Engine executes a single task, calling tools through the Invoker.
// The external orchestration engine satisfies this; its delegation and
// retry heuristics stay behind the interface.
type Engine interface {
	RunTask(ctx context.Context, task TaskSpec, invoker Invoker) (TaskResult, error)
}

// PlanEngine is the built-in engine used when no external engine is
// wired. It performs no delegation: each task resolves its role's
// provider and reports what would be delegated where.
type PlanEngine struct {
	cfg *config.Config
}

// NewPlanEngine creates a plan-only engine over the given configuration.
func NewPlanEngine(cfg *config.Config) *PlanEngine {
	return &PlanEngine{cfg: cfg}
}

// RunTask resolves the task's role assignment and renders the plan line.
func (e *PlanEngine) RunTask(ctx context.Context, task TaskSpec, invoker Invoker) (TaskResult, error) {
	started := time.Now()

	profile, err := e.cfg.RoleProvider(task.Role)
	if err != nil {
		return TaskResult{Task: task, Status: TaskFailed, Duration: time.Since(started)}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s -> %s", task.Role, profile)
	if task.ExpectedOutput != "" {
		fmt.Fprintf(&b, "\n  expected: %s", task.ExpectedOutput)
	}
	if len(task.DependsOn) > 0 {
		fmt.Fprintf(&b, "\n  after: %s", strings.Join(task.DependsOn, ", "))
	}

	return TaskResult{
		Task:     task,
		Status:   TaskCompleted,
		Output:   b.String(),
		Duration: time.Since(started),
	}, nil
}
