package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crewforge/internal/config"
)

// scriptedEngine completes every task unless told otherwise.
type scriptedEngine struct {
	ran    []string
	errOn  map[string]error
	failOn map[string]bool
}

func (e *scriptedEngine) RunTask(ctx context.Context, task TaskSpec, invoker Invoker) (TaskResult, error) {
	e.ran = append(e.ran, task.ID)
	if err := e.errOn[task.ID]; err != nil {
		return TaskResult{}, err
	}
	if e.failOn[task.ID] {
		return TaskResult{Status: TaskFailed, Output: "tests failed"}, nil
	}
	return TaskResult{Status: TaskCompleted, Output: "done " + task.ID}, nil
}

func chainWorkflow() *Workflow {
	return &Workflow{
		Name: "todo-api",
		Tasks: []TaskSpec{
			{ID: "design", Role: config.RoleArchitect, Description: "d"},
			{ID: "build", Role: config.RoleDeveloper, Description: "b", DependsOn: []string{"design"}},
			{ID: "verify", Role: config.RoleTester, Description: "v", DependsOn: []string{"build"}},
		},
	}
}

func TestSequencerRunAllComplete(t *testing.T) {
	engine := &scriptedEngine{}
	seq := NewSequencer(engine, nil)

	summary, err := seq.Run(context.Background(), chainWorkflow())
	require.NoError(t, err)

	assert.Equal(t, []string{"design", "build", "verify"}, engine.ran)
	assert.True(t, summary.Completed())
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, "todo-api", summary.Workflow)
	require.Len(t, summary.Results, 3)
	for i, r := range summary.Results {
		assert.Equal(t, TaskCompleted, r.Status)
		assert.Equal(t, engine.ran[i], r.Task.ID)
		assert.Greater(t, r.Duration, time.Duration(0))
	}
}

func TestSequencerStopsOnEngineError(t *testing.T) {
	engine := &scriptedEngine{errOn: map[string]error{"build": errors.New("provider unreachable")}}
	seq := NewSequencer(engine, nil)

	summary, err := seq.Run(context.Background(), chainWorkflow())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task build: provider unreachable")

	// verify never ran
	assert.Equal(t, []string{"design", "build"}, engine.ran)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, TaskCompleted, summary.Results[0].Status)
	assert.Equal(t, TaskFailed, summary.Results[1].Status)
	assert.False(t, summary.Completed())
}

func TestSequencerStopsOnFailedTask(t *testing.T) {
	engine := &scriptedEngine{failOn: map[string]bool{"build": true}}
	seq := NewSequencer(engine, nil)

	summary, err := seq.Run(context.Background(), chainWorkflow())
	require.NoError(t, err)

	assert.Equal(t, []string{"design", "build"}, engine.ran)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, TaskFailed, summary.Results[1].Status)
	assert.Equal(t, "tests failed", summary.Results[1].Output)
	assert.False(t, summary.Completed())
}

func TestSequencerRunsInDependencyOrder(t *testing.T) {
	wf := &Workflow{
		Name: "shuffled",
		Tasks: []TaskSpec{
			{ID: "verify", Role: config.RoleTester, Description: "v", DependsOn: []string{"build"}},
			{ID: "design", Role: config.RoleArchitect, Description: "d"},
			{ID: "build", Role: config.RoleDeveloper, Description: "b", DependsOn: []string{"design"}},
		},
	}
	engine := &scriptedEngine{}
	seq := NewSequencer(engine, nil)

	_, err := seq.Run(context.Background(), wf)
	require.NoError(t, err)
	assert.Equal(t, []string{"design", "build", "verify"}, engine.ran)
}

func TestSequencerRejectsCyclicWorkflow(t *testing.T) {
	wf := &Workflow{
		Name: "cyclic",
		Tasks: []TaskSpec{
			{ID: "a", Role: config.RoleTester, Description: "x", DependsOn: []string{"b"}},
			{ID: "b", Role: config.RoleTester, Description: "y", DependsOn: []string{"a"}},
		},
	}
	engine := &scriptedEngine{}
	seq := NewSequencer(engine, nil)

	summary, err := seq.Run(context.Background(), wf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependency cycle")
	assert.Empty(t, engine.ran)
	assert.Empty(t, summary.Results)
}

func TestSequencerHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := &scriptedEngine{}
	seq := NewSequencer(engine, nil)

	summary, err := seq.Run(ctx, chainWorkflow())
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, engine.ran)
	assert.False(t, summary.Completed())
}

func TestRunSummaryCompleted(t *testing.T) {
	assert.False(t, RunSummary{}.Completed())

	mixed := RunSummary{Results: []TaskResult{
		{Status: TaskCompleted},
		{Status: TaskSkipped},
	}}
	assert.False(t, mixed.Completed())
}
