package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"crewforge/internal/config"
	"crewforge/internal/logging"
	"crewforge/internal/proc"
	"crewforge/internal/store"
	"crewforge/internal/tools"
	"crewforge/internal/tools/core"
	"crewforge/internal/tools/shell"
	"crewforge/internal/tools/webtest"
	"crewforge/internal/workspace"
)

var (
	// Global flags
	verbose      bool
	configPath   string
	workspaceDir string

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "crewforge",
	Short: "crewforge - sandboxed tool layer for multi-agent FastAPI builds",
	Long: `crewforge gives a crew of LLM agents a safe place to work: file tools
confined to a workspace sandbox, a Python syntax checker, and a functional
API test harness that boots the generated FastAPI app under uvicorn and
sweeps declarative HTTP cases against it.

Roles (architect, developer, tester) map to providers in crewforge.yaml;
the agent engine itself plugs in behind the tool contract.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zapConfig := zap.NewProductionConfig()
		if verbose {
			zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		if workspaceDir != "" {
			cfg.Workspace.Root = workspaceDir
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// versionCmd prints the build identity
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the crewforge version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", cfg.Name, cfg.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "crewforge.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVarP(&workspaceDir, "workspace", "w", "", "Workspace directory (default: from config)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openWorkspace resolves the sandbox root and brings category logging up
// inside it. Commands that touch the workspace call this first.
func openWorkspace() (*workspace.Workspace, error) {
	ws, err := workspace.New(cfg.Workspace.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}
	if err := logging.Initialize(ws.Root()); err != nil {
		logger.Warn("Category logging unavailable", zap.Error(err))
	}
	return ws, nil
}

// openStore opens the run history database under the workspace.
func openStore(ws *workspace.Workspace) (*store.RunStore, error) {
	dbPath := cfg.Store.DatabasePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(ws.Root(), dbPath)
	}
	return store.NewRunStore(dbPath)
}

// buildRegistry wires the full tool surface over the workspace: the
// confined file tools, command execution, and the syntax and functional
// test harness.
func buildRegistry(ws *workspace.Workspace) (*tools.Registry, error) {
	procConfig := proc.DefaultConfig()
	procConfig.DefaultWorkingDir = ws.Root()
	procConfig.DefaultTimeout = cfg.GetExecutionTimeout()
	runner := proc.NewExecRunnerWithConfig(procConfig)

	registry := tools.NewRegistry()
	if err := core.RegisterAll(registry, ws); err != nil {
		return nil, fmt.Errorf("failed to register file tools: %w", err)
	}
	if err := shell.RegisterAll(registry, ws, runner); err != nil {
		return nil, fmt.Errorf("failed to register shell tools: %w", err)
	}
	if err := webtest.RegisterAll(registry, ws, runner, serverConfig(), cfg.Execution.PythonBin); err != nil {
		return nil, fmt.Errorf("failed to register test tools: %w", err)
	}
	return registry, nil
}

// indent prefixes every line of s.
func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

// serverConfig maps the YAML server section onto the harness knobs.
func serverConfig() webtest.ServerConfig {
	sc := webtest.DefaultServerConfig()
	sc.Host = cfg.Server.Host
	sc.Port = cfg.Server.Port
	sc.UvicornBin = cfg.Server.UvicornBin
	sc.StartupBudget = cfg.GetStartupBudget()
	sc.ProbeInterval = cfg.GetProbeInterval()
	sc.RequestTimeout = cfg.GetRequestTimeout()
	sc.TeardownTimeout = cfg.GetTeardownTimeout()
	return sc
}
