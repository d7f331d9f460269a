package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

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

// testCmd runs a functional suite against the generated app
var testCmd = &cobra.Command{
	Use:   "test [suite-file]",
	Short: "Run a functional API test suite",
	Long: `Loads a suite file (target entry file plus HTTP cases), boots the
target under uvicorn, sweeps the cases in order, and reports per-case
results. The sweep stops at the first failing case.

Suite file:
  target: app/main.py
  cases:
    - endpoint: /todos
      method: GET
      expected_status: 200

Exits non-zero when any case fails or the server never comes up.`,
	Args: cobra.ExactArgs(1),
	RunE: runSuite,
}

func runSuite(cmd *cobra.Command, args []string) error {
	suite, err := webtest.LoadSuite(args[0])
	if err != nil {
		return err
	}
	logger.Info("Suite loaded",
		zap.String("target", suite.Target),
		zap.Int("cases", len(suite.Cases)))

	ws, err := openWorkspace()
	if err != nil {
		return err
	}

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

	runner := proc.NewExecRunner()
	tester := webtest.NewAPITester(ws, runner, serverConfig())

	styles := ui.DefaultStyles()
	fmt.Println(styles.Title.Render("Functional tests: " + suite.Target))

	runID := uuid.NewString()
	result, err := tester.Run(ctx, suite.Target, suite.Cases)
	if err != nil {
		recordSuiteRun(ws, runID, suite.Target, store.StatusError, err.Error(), nil)
		return fmt.Errorf("functional test run failed: %w", err)
	}

	report, _ := result.Payload.(webtest.Report)
	renderReport(styles, result, report)

	detail := ""
	if result.IsErr() {
		detail = result.Message
	}
	recordSuiteRun(ws, runID, suite.Target, suiteStatus(result, report), detail, &report)

	if result.IsErr() || !report.Passed() {
		os.Exit(1)
	}
	return nil
}

// renderReport prints the sweep outcome with per-case styling.
func renderReport(styles ui.Styles, result tools.Result, report webtest.Report) {
	if result.IsErr() {
		fmt.Println(styles.Error.Render(result.String()))
		return
	}
	for _, caseResult := range report.Results {
		line := caseResult.Line()
		if caseResult.Passed {
			fmt.Println(styles.Success.Render(line))
		} else {
			fmt.Println(styles.Error.Render(line))
		}
	}
	passed, total := report.Counts()
	summary := fmt.Sprintf("%d/%d cases passed", passed, total)
	if report.Passed() {
		fmt.Println(styles.Success.Render(summary))
	} else {
		fmt.Println(styles.Error.Render(summary))
	}
}

func suiteStatus(result tools.Result, report webtest.Report) string {
	if result.IsErr() || !report.Passed() {
		return store.StatusFailed
	}
	return store.StatusPassed
}

// recordSuiteRun persists the sweep and its case results. Recording
// failures never mask the sweep outcome.
func recordSuiteRun(ws *workspace.Workspace, runID, target, status, detail string, report *webtest.Report) {
	st, err := openStore(ws)
	if err != nil {
		logger.Warn("Failed to open run store", zap.Error(err))
		return
	}
	defer st.Close()

	if err := st.RecordRun(store.RunRecord{
		ID:     runID,
		Kind:   store.KindTest,
		Target: target,
		Status: status,
		Detail: detail,
	}); err != nil {
		logger.Warn("Failed to record run", zap.Error(err))
		return
	}
	if report != nil {
		if err := st.RecordReport(runID, *report); err != nil {
			logger.Warn("Failed to record case results", zap.Error(err))
		}
	}
}
