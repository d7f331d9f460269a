package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"crewforge/internal/store"

	"crewforge/cmd/crewforge/ui"
)

var historyLimit int

// historyCmd lists recorded runs
var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recent runs from the history store",
	Long: `Lists the most recent workflow runs, test sweeps, and syntax checks.
With a run ID argument, shows that run's per-case results instead.

Example:
  crewforge history
  crewforge history --limit 25
  crewforge history 4f8d2c1a-...`,
	Args: cobra.MaximumNArgs(1),
	RunE: showHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of runs to show")
}

func showHistory(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	st, err := openStore(ws)
	if err != nil {
		return err
	}
	defer st.Close()

	styles := ui.DefaultStyles()

	if len(args) == 1 {
		return showRunCases(st, styles, args[0])
	}

	runs, err := st.RecentRuns(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println(styles.Muted.Render("No runs recorded yet."))
		return nil
	}

	table := ui.NewTable("Recent runs", "Run", "Kind", "Target", "Status", "Duration", "When")
	for _, run := range runs {
		table.AddRow(
			shortID(run.ID),
			run.Kind,
			run.Target,
			styledStatus(styles, run.Status),
			(time.Duration(run.DurationMs) * time.Millisecond).String(),
			run.StartedAt.Format("2006-01-02 15:04:05"),
		)
	}
	fmt.Print(table.View(styles))

	stats, err := st.Stats()
	if err != nil {
		return nil
	}
	fmt.Println(styles.Muted.Render(fmt.Sprintf("%d run(s) recorded: %d passed, %d failed.",
		stats.TotalRuns, stats.PassedCount, stats.FailedCount)))
	return nil
}

// showRunCases prints the per-case breakdown of one test run. Accepts
// the shortened IDs the listing prints.
func showRunCases(st *store.RunStore, styles ui.Styles, runID string) error {
	runID = resolveRunID(st, runID)
	cases, err := st.CasesForRun(runID)
	if err != nil {
		return fmt.Errorf("failed to read case results: %w", err)
	}
	if len(cases) == 0 {
		fmt.Println(styles.Muted.Render("No case results recorded for " + runID))
		return nil
	}

	table := ui.NewTable("Case results for "+shortID(runID), "#", "Method", "Endpoint", "Result", "Reason")
	for _, c := range cases {
		result := styles.Success.Render("pass")
		if !c.Passed {
			result = styles.Error.Render("fail")
		}
		table.AddRow(fmt.Sprintf("%d", c.Seq), c.Method, c.Endpoint, result, c.Reason)
	}
	fmt.Print(table.View(styles))
	return nil
}

// resolveRunID expands a unique ID prefix to the full run ID.
func resolveRunID(st *store.RunStore, prefix string) string {
	runs, err := st.RecentRuns(200)
	if err != nil {
		return prefix
	}
	for _, run := range runs {
		if strings.HasPrefix(run.ID, prefix) {
			return run.ID
		}
	}
	return prefix
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func styledStatus(styles ui.Styles, status string) string {
	switch status {
	case store.StatusPassed:
		return styles.Success.Render(status)
	case store.StatusFailed:
		return styles.Error.Render(status)
	default:
		return styles.Warning.Render(status)
	}
}
