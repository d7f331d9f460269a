package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func resetState() {
	CloseAll()
	CloseAudit()
	loggers = make(map[Category]*Logger)
	logsDir = ""
	workspace = ""
	config = loggingConfig{}
	configLoaded = false
	auditLogger = nil
}

// TestAllCategoriesLog tests that all categories create log files when debug_mode is true
func TestAllCategoriesLog(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("CREWFORGE_DEBUG", "")

	configDir := filepath.Join(tempDir, ".crewforge")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configContent := `{
		"logging": {
			"level": "debug",
			"debug_mode": true,
			"categories": {
				"boot": true,
				"config": true,
				"workspace": true,
				"store": true,
				"tools": true,
				"files": true,
				"syntax": true,
				"api_test": true,
				"server": true,
				"proc": true,
				"watch": true,
				"runtime": true
			}
		}
	}`

	configPath := filepath.Join(configDir, "config.json")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	resetState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	if !IsDebugMode() {
		t.Error("Expected debug mode to be enabled")
	}

	categories := []Category{
		CategoryBoot,
		CategoryConfig,
		CategoryWorkspace,
		CategoryStore,
		CategoryTools,
		CategoryFiles,
		CategorySyntax,
		CategoryAPITest,
		CategoryServer,
		CategoryProc,
		CategoryWatch,
		CategoryRuntime,
	}

	for _, cat := range categories {
		if !IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be enabled", cat)
		}

		logger := Get(cat)
		logger.Info("Test info message for %s", cat)
		logger.Debug("Test debug message for %s", cat)
		logger.Warn("Test warn message for %s", cat)
		logger.Error("Test error message for %s", cat)
	}

	// Also test convenience functions
	Boot("Convenience boot log")
	Config("Convenience config log")
	Workspace("Convenience workspace log")
	Store("Convenience store log")
	Tools("Convenience tools log")
	Files("Convenience files log")
	Syntax("Convenience syntax log")
	APITest("Convenience api_test log")
	Server("Convenience server log")
	Proc("Convenience proc log")
	Watch("Convenience watch log")
	Runtime("Convenience runtime log")

	// Close all loggers to flush
	CloseAll()
	CloseAudit()

	logsPath := filepath.Join(tempDir, ".crewforge", "logs")
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}

	t.Logf("Created %d log files in %s", len(entries), logsPath)

	for _, cat := range categories {
		found := false
		for _, entry := range entries {
			if strings.Contains(entry.Name(), string(cat)+".log") {
				found = true
				content, err := os.ReadFile(filepath.Join(logsPath, entry.Name()))
				if err != nil {
					t.Errorf("Failed to read log file for %s: %v", cat, err)
					continue
				}
				if len(content) == 0 {
					t.Errorf("Log file for %s is empty", cat)
				}
				break
			}
		}
		if !found {
			t.Errorf("No log file found for category: %s", cat)
		}
	}
}

// TestDebugModeDisabled tests that no logs are created when debug_mode is false
func TestDebugModeDisabled(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("CREWFORGE_DEBUG", "")

	configDir := filepath.Join(tempDir, ".crewforge")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configContent := `{
		"logging": {
			"level": "info",
			"debug_mode": false,
			"categories": {
				"boot": true,
				"tools": true
			}
		}
	}`

	configPath := filepath.Join(configDir, "config.json")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	resetState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	if IsDebugMode() {
		t.Error("Expected debug mode to be DISABLED (production mode)")
	}

	for _, cat := range []Category{CategoryBoot, CategoryTools, CategoryServer} {
		if IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be DISABLED when debug_mode=false", cat)
		}
	}

	// These should be silent no-ops
	Boot("This should NOT be logged")
	Tools("This should NOT be logged")
	Server("This should NOT be logged")
	CloseAll()

	logsPath := filepath.Join(tempDir, ".crewforge", "logs")
	if _, err := os.Stat(logsPath); !os.IsNotExist(err) {
		entries, _ := os.ReadDir(logsPath)
		if len(entries) > 0 {
			t.Errorf("Expected no log files in production mode, found %d", len(entries))
		}
	}
}

// TestCategoryToggle tests that disabled categories produce no files
func TestCategoryToggle(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("CREWFORGE_DEBUG", "")

	configDir := filepath.Join(tempDir, ".crewforge")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configContent := `{
		"logging": {
			"level": "debug",
			"debug_mode": true,
			"categories": {
				"tools": true,
				"server": false
			}
		}
	}`

	configPath := filepath.Join(configDir, "config.json")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	resetState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	if !IsCategoryEnabled(CategoryTools) {
		t.Error("tools category should be enabled")
	}
	if IsCategoryEnabled(CategoryServer) {
		t.Error("server category should be disabled")
	}
	// Unlisted categories default to enabled in debug mode
	if !IsCategoryEnabled(CategoryFiles) {
		t.Error("unlisted category should default to enabled")
	}

	Tools("tools are on")
	Server("server is off")
	CloseAll()

	logsPath := filepath.Join(tempDir, ".crewforge", "logs")
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}

	hasToolsLog := false
	hasServerLog := false
	for _, entry := range entries {
		if strings.Contains(entry.Name(), "tools.log") {
			hasToolsLog = true
		}
		if strings.Contains(entry.Name(), "server.log") {
			hasServerLog = true
		}
	}
	if !hasToolsLog {
		t.Error("Should have tools log file (enabled)")
	}
	if hasServerLog {
		t.Error("Should NOT have server log file (disabled)")
	}
}

// TestTimerLogging tests the timing helper
func TestTimerLogging(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("CREWFORGE_DEBUG", "")

	configDir := filepath.Join(tempDir, ".crewforge")
	os.MkdirAll(configDir, 0755)

	configContent := `{"logging": {"level": "debug", "debug_mode": true}}`
	os.WriteFile(filepath.Join(configDir, "config.json"), []byte(configContent), 0644)

	resetState()
	Initialize(tempDir)

	timer := StartTimer(CategoryTools, "TestOperation")
	time.Sleep(time.Millisecond)
	elapsed := timer.Stop()

	if elapsed <= 0 {
		t.Error("Timer should have recorded non-zero duration")
	}

	timer2 := StartTimer(CategoryTools, "ThresholdOperation")
	time.Sleep(time.Millisecond)
	if elapsed2 := timer2.StopWithThreshold(time.Nanosecond); elapsed2 <= 0 {
		t.Error("Threshold timer should have recorded non-zero duration")
	}

	CloseAll()
	CloseAudit()
}
