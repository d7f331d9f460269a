package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"crewforge/internal/runtime"
	"crewforge/internal/store"
	"crewforge/internal/workspace"

	"crewforge/cmd/crewforge/ui"
)

var planOnly bool

// runCmd sequences a workflow through the engine
var runCmd = &cobra.Command{
	Use:   "run [workflow-file]",
	Short: "Sequence a crew workflow",
	Long: `Loads a workflow definition, validates it, prints the role wiring,
and drives its tasks through the engine in dependency order.

The workflow may live in its own YAML file or under the "workflow:" key
of crewforge.yaml. Without an external engine the built-in plan engine
resolves each task's role assignment and reports what would be delegated.

Example:
  crewforge run workflow.yaml
  crewforge run --plan`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWorkflow,
}

func init() {
	runCmd.Flags().BoolVar(&planOnly, "plan", false, "Print the delegation plan without recording the run")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	workflowPath := configPath
	if len(args) > 0 {
		workflowPath = args[0]
	}

	wf, err := runtime.LoadWorkflow(workflowPath)
	if err != nil {
		return err
	}
	logger.Info("Workflow loaded",
		zap.String("name", wf.Name),
		zap.Int("tasks", len(wf.Tasks)))

	ws, err := openWorkspace()
	if err != nil {
		return err
	}

	styles := ui.DefaultStyles()
	fmt.Println(styles.Title.Render("Workflow: " + wf.Name))
	if wf.Goal != "" {
		fmt.Println(styles.Muted.Render("Goal: " + wf.Goal))
	}

	assignments, err := cfg.RoleAssignments()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	wiring := ui.NewTable("Role wiring", "Role", "Provider", "Model")
	for _, a := range assignments {
		wiring.AddRow(string(a.Role), a.Profile.Provider, a.Profile.Model)
	}
	fmt.Print(wiring.View(styles))

	baseCtx := cmd.Context()
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	registry, err := buildRegistry(ws)
	if err != nil {
		return err
	}
	invoker := runtime.NewRegistryInvoker(registry)
	sequencer := runtime.NewSequencer(runtime.NewPlanEngine(cfg), invoker)

	summary, runErr := sequencer.Run(ctx, wf)

	for _, result := range summary.Results {
		switch result.Status {
		case runtime.TaskCompleted:
			fmt.Println(styles.Success.Render("● " + result.Task.ID))
		default:
			fmt.Println(styles.Error.Render("● " + result.Task.ID + " (" + string(result.Status) + ")"))
		}
		if result.Output != "" {
			fmt.Println(indent(result.Output, "  "))
		}
	}

	if !planOnly {
		if err := recordWorkflowRun(ws, summary, runErr); err != nil {
			logger.Warn("Failed to record run", zap.Error(err))
		}
	}

	if runErr != nil {
		return runErr
	}
	if !summary.Completed() {
		fmt.Println(styles.Error.Render("Workflow stopped before completion."))
		os.Exit(1)
	}
	fmt.Println(styles.Success.Render(fmt.Sprintf("Workflow completed: %d task(s) in %s.", len(summary.Results), summary.Duration.Round(time.Millisecond))))
	return nil
}

func recordWorkflowRun(ws *workspace.Workspace, summary runtime.RunSummary, runErr error) error {
	st, err := openStore(ws)
	if err != nil {
		return err
	}
	defer st.Close()

	status := store.StatusPassed
	detail := ""
	switch {
	case runErr != nil:
		status = store.StatusError
		detail = runErr.Error()
	case !summary.Completed():
		status = store.StatusFailed
	}

	return st.RecordRun(store.RunRecord{
		ID:         summary.RunID,
		Kind:       store.KindRun,
		Target:     summary.Workflow,
		Status:     status,
		Detail:     detail,
		DurationMs: summary.Duration.Milliseconds(),
	})
}
