package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"crewforge/internal/proc"
	"crewforge/internal/store"
	"crewforge/internal/tools"
	"crewforge/internal/tools/webtest"
	"crewforge/internal/workspace"

	"crewforge/cmd/crewforge/ui"
)

var watchSource bool

// checkCmd verifies Python syntax
var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Check a Python file's syntax",
	Long: `Compiles the target file with the configured interpreter and reports
the diagnostics on failure.

With --watch, the workspace is watched for .py changes and every
settled change triggers a fresh check of the changed file.

Example:
  crewforge check app/main.py
  crewforge check --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&watchSource, "watch", false, "Re-check Python files as they change")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}

	runner := proc.NewExecRunner()
	checker := webtest.NewSyntaxChecker(ws, runner, cfg.Execution.PythonBin)
	styles := ui.DefaultStyles()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if watchSource {
		return watchChecks(ctx, ws, checker, styles)
	}

	if len(args) == 0 {
		return fmt.Errorf("a file argument is required unless --watch is set")
	}
	result, err := runSingleCheck(ctx, ws, checker, args[0])
	if err != nil {
		return err
	}
	if result.IsErr() {
		fmt.Println(styles.Error.Render(result.String()))
		os.Exit(1)
	}
	report, _ := result.Payload.(webtest.SyntaxReport)
	if !report.Passed {
		fmt.Println(styles.Error.Render(result.Message))
		os.Exit(1)
	}
	fmt.Println(styles.Success.Render(result.Message))
	return nil
}

// runSingleCheck checks one file and records the outcome.
func runSingleCheck(ctx context.Context, ws *workspace.Workspace, checker *webtest.SyntaxChecker, path string) (tools.Result, error) {
	started := time.Now()
	result, err := checker.Check(ctx, path)
	if err != nil {
		return result, fmt.Errorf("syntax check failed to run: %w", err)
	}

	status := store.StatusPassed
	detail := ""
	if result.IsErr() {
		status = store.StatusFailed
		detail = result.Message
	} else if report, ok := result.Payload.(webtest.SyntaxReport); ok && !report.Passed {
		status = store.StatusFailed
		detail = report.Output
	}

	st, err := openStore(ws)
	if err != nil {
		logger.Warn("Failed to open run store", zap.Error(err))
		return result, nil
	}
	defer st.Close()
	if err := st.RecordRun(store.RunRecord{
		ID:         uuid.NewString(),
		Kind:       store.KindCheck,
		Target:     path,
		Status:     status,
		Detail:     detail,
		DurationMs: time.Since(started).Milliseconds(),
	}); err != nil {
		logger.Warn("Failed to record check", zap.Error(err))
	}
	return result, nil
}

// watchChecks re-checks changed files until interrupted.
func watchChecks(parent context.Context, ws *workspace.Workspace, checker *webtest.SyntaxChecker, styles ui.Styles) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	watcher, err := webtest.NewSourceWatcher(ws, func(ctx context.Context, rel string) {
		result, err := runSingleCheck(ctx, ws, checker, rel)
		if err != nil {
			fmt.Println(styles.Error.Render(fmt.Sprintf("%s: %v", rel, err)))
			return
		}
		renderWatchResult(styles, rel, result)
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Stop()

	fmt.Println(styles.Info.Render("Watching " + ws.Root() + " for .py changes (Ctrl-C to stop)"))
	<-ctx.Done()

	stats := watcher.Stats()
	fmt.Println(styles.Muted.Render(fmt.Sprintf("Stopped: %d check(s) triggered.", stats.ChecksTriggered)))
	return nil
}

func renderWatchResult(styles ui.Styles, rel string, result tools.Result) {
	if result.IsErr() {
		fmt.Println(styles.Error.Render(fmt.Sprintf("%s: %s", rel, result.String())))
		return
	}
	if report, ok := result.Payload.(webtest.SyntaxReport); ok && !report.Passed {
		fmt.Println(styles.Error.Render(fmt.Sprintf("❌ %s", rel)))
		fmt.Println(styles.Muted.Render(indent(report.Output, "  ")))
		return
	}
	fmt.Println(styles.Success.Render(fmt.Sprintf("✅ %s", rel)))
}
