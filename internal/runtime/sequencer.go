package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"crewforge/internal/logging"
)

// RunSummary is the outcome of sequencing one workflow.
type RunSummary struct {
	RunID    string
	Workflow string
	Results  []TaskResult
	Duration time.Duration
}

// Completed reports whether every sequenced task completed.
func (s RunSummary) Completed() bool {
	if len(s.Results) == 0 {
		return false
	}
	for _, r := range s.Results {
		if r.Status != TaskCompleted {
			return false
		}
	}
	return true
}

// Sequencer drives a workflow's tasks through an engine in dependency
// order. Single-threaded: one task at a time, stopping at the first
// engine error or failed task.
type Sequencer struct {
	engine  Engine
	invoker Invoker
}

// NewSequencer wires an engine to the invoker its tasks will use.
func NewSequencer(engine Engine, invoker Invoker) *Sequencer {
	return &Sequencer{engine: engine, invoker: invoker}
}

// Run sequences the workflow. The returned summary holds results for
// every task that ran, including the failing one.
func (s *Sequencer) Run(ctx context.Context, wf *Workflow) (RunSummary, error) {
	ordered, err := wf.Order()
	if err != nil {
		return RunSummary{}, err
	}

	runID := uuid.NewString()
	started := time.Now()
	summary := RunSummary{RunID: runID, Workflow: wf.Name}

	logging.Runtime("run %s: workflow %q, %d task(s)", runID, wf.Name, len(ordered))
	logging.Audit().RunStart(runID, "run", wf.Name)

	for _, task := range ordered {
		select {
		case <-ctx.Done():
			s.finish(runID, &summary, started, false, ctx.Err().Error())
			return summary, ctx.Err()
		default:
		}

		logging.Runtime("task %s (role %s)", task.ID, task.Role)
		logging.Audit().TaskStart(task.ID, string(task.Role))
		taskStarted := time.Now()

		result, err := s.engine.RunTask(ctx, task, s.invoker)
		result.Task = task
		if result.Duration == 0 {
			result.Duration = time.Since(taskStarted)
		}

		if err != nil {
			result.Status = TaskFailed
			summary.Results = append(summary.Results, result)
			logging.Audit().TaskEnd(task.ID, result.Duration.Milliseconds(), false, err.Error())
			s.finish(runID, &summary, started, false, err.Error())
			return summary, fmt.Errorf("task %s: %w", task.ID, err)
		}

		summary.Results = append(summary.Results, result)
		logging.Audit().TaskEnd(task.ID, result.Duration.Milliseconds(), result.Status == TaskCompleted, "")

		if result.Status == TaskFailed {
			s.finish(runID, &summary, started, false, "")
			return summary, nil
		}
	}

	s.finish(runID, &summary, started, true, "")
	return summary, nil
}

func (s *Sequencer) finish(runID string, summary *RunSummary, started time.Time, success bool, errMsg string) {
	summary.Duration = time.Since(started)
	logging.Runtime("run %s finished in %s (success=%v)", runID, summary.Duration, success)
	logging.Audit().RunComplete(runID, summary.Duration.Milliseconds(), success, errMsg)
}
