package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all crewforge configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Workspace sandbox
	Workspace WorkspaceConfig `yaml:"workspace"`

	// Model provider credentials and model choices
	Providers ProvidersConfig `yaml:"providers"`

	// Role to provider assignment
	Roles RolesConfig `yaml:"roles"`

	// Test harness server settings
	Server ServerConfig `yaml:"server"`

	// Subprocess execution settings
	Execution ExecutionConfig `yaml:"execution"`

	// Run history store
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// WorkspaceConfig configures the sandboxed project workspace.
type WorkspaceConfig struct {
	// Root is the workspace base path. A leading ~ expands to the home
	// directory when the workspace is opened.
	Root string `yaml:"root"`
}

// ProviderConfig holds one backend's credentials and model choice.
type ProviderConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// ProvidersConfig holds the three supported backends.
type ProvidersConfig struct {
	OpenAI    ProviderConfig `yaml:"openai"`
	Google    ProviderConfig `yaml:"google"`
	Anthropic ProviderConfig `yaml:"anthropic"`
}

// RolesConfig assigns a provider to each crew role.
type RolesConfig struct {
	Architect string `yaml:"architect"`
	Developer string `yaml:"developer"`
	Tester    string `yaml:"tester"`
}

// ServerConfig configures the functional test server.
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	UvicornBin      string `yaml:"uvicorn_bin"`
	StartupBudget   string `yaml:"startup_budget"`
	ProbeInterval   string `yaml:"probe_interval"`
	RequestTimeout  string `yaml:"request_timeout"`
	TeardownTimeout string `yaml:"teardown_timeout"`
}

// ExecutionConfig configures the subprocess runner.
type ExecutionConfig struct {
	// PythonBin is the interpreter used for syntax checks.
	PythonBin string `yaml:"python_bin"`

	// Default timeout for commands
	DefaultTimeout string `yaml:"default_timeout"`
}

// StoreConfig configures the run history store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "crewforge",
		Version: "0.4.0",

		Workspace: WorkspaceConfig{
			Root: "~/project/todo_list_fastapi_demo2",
		},

		Providers: ProvidersConfig{
			OpenAI:    ProviderConfig{Model: "gpt-4o"},
			Google:    ProviderConfig{Model: "gemini-2.0-flash"},
			Anthropic: ProviderConfig{Model: "claude-3-7-sonnet-20250219"},
		},

		Roles: RolesConfig{
			Architect: "anthropic",
			Developer: "google",
			Tester:    "openai",
		},

		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8000,
			UvicornBin:      "uvicorn",
			StartupBudget:   "5s",
			ProbeInterval:   "100ms",
			RequestTimeout:  "10s",
			TeardownTimeout: "5s",
		},

		Execution: ExecutionConfig{
			PythonBin:      "python3",
			DefaultTimeout: "30s",
		},

		Store: StoreConfig{
			DatabasePath: ".crewforge/crewforge.db",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "crewforge.log",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Environment still applies when no config file exists
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file. API keys are cleared before
// writing; secrets belong in the environment, not on disk.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	scrubbed := *c
	scrubbed.Providers.OpenAI.APIKey = ""
	scrubbed.Providers.Google.APIKey = ""
	scrubbed.Providers.Anthropic.APIKey = ""

	data, err := yaml.Marshal(&scrubbed)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides. The secret,
// model, and role variables keep the names the settings schema has
// always read; CREWFORGE_ variables cover knobs with no legacy name.
func (c *Config) applyEnvOverrides() {
	// Provider secrets
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Providers.OpenAI.APIKey = key
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.Providers.Google.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Providers.Anthropic.APIKey = key
	}

	// Model choice per provider
	if model := os.Getenv("MODEL_OPENAI"); model != "" {
		c.Providers.OpenAI.Model = model
	}
	if model := os.Getenv("MODEL_GOOGLE"); model != "" {
		c.Providers.Google.Model = model
	}
	if model := os.Getenv("MODEL_ANTHROPIC"); model != "" {
		c.Providers.Anthropic.Model = model
	}

	// Role assignment
	if provider := os.Getenv("ROLE_ARCHITECT"); provider != "" {
		c.Roles.Architect = provider
	}
	if provider := os.Getenv("ROLE_DEVELOPER"); provider != "" {
		c.Roles.Developer = provider
	}
	if provider := os.Getenv("ROLE_TESTER"); provider != "" {
		c.Roles.Tester = provider
	}

	// Workspace base path
	if root := os.Getenv("PROJECT_BASE_PATH"); root != "" {
		c.Workspace.Root = root
	}

	// Harness knobs
	if bin := os.Getenv("CREWFORGE_PYTHON"); bin != "" {
		c.Execution.PythonBin = bin
	}
	if bin := os.Getenv("CREWFORGE_UVICORN"); bin != "" {
		c.Server.UvicornBin = bin
	}
	if port := os.Getenv("CREWFORGE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// Database path from environment
	if path := os.Getenv("CREWFORGE_DB"); path != "" {
		c.Store.DatabasePath = path
	}
}

// GetStartupBudget returns the server startup budget as a duration.
func (c *Config) GetStartupBudget() time.Duration {
	d, err := time.ParseDuration(c.Server.StartupBudget)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetProbeInterval returns the readiness probe interval as a duration.
func (c *Config) GetProbeInterval() time.Duration {
	d, err := time.ParseDuration(c.Server.ProbeInterval)
	if err != nil {
		return 100 * time.Millisecond
	}
	return d
}

// GetRequestTimeout returns the per-request timeout as a duration.
func (c *Config) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.RequestTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetTeardownTimeout returns the server teardown timeout as a duration.
func (c *Config) GetTeardownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.TeardownTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetExecutionTimeout returns the default execution timeout as a duration.
func (c *Config) GetExecutionTimeout() time.Duration {
	d, err := time.ParseDuration(c.Execution.DefaultTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// requiredSecrets maps each provider to the environment variable that
// supplies its key, for the fail-fast report.
var requiredSecrets = []struct {
	provider string
	envVar   string
	key      func(*Config) string
}{
	{"openai", "OPENAI_API_KEY", func(c *Config) string { return c.Providers.OpenAI.APIKey }},
	{"google", "GOOGLE_API_KEY", func(c *Config) string { return c.Providers.Google.APIKey }},
	{"anthropic", "ANTHROPIC_API_KEY", func(c *Config) string { return c.Providers.Anthropic.APIKey }},
}

// Validate validates the configuration. All missing secrets are
// reported together so one fix round is enough.
func (c *Config) Validate() error {
	var missing []string
	for _, secret := range requiredSecrets {
		if secret.key(c) == "" {
			missing = append(missing, secret.envVar)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required API keys: set %s", strings.Join(missing, ", "))
	}

	for _, assignment := range []struct {
		role     Role
		provider string
	}{
		{RoleArchitect, c.Roles.Architect},
		{RoleDeveloper, c.Roles.Developer},
		{RoleTester, c.Roles.Tester},
	} {
		if !isValidProvider(assignment.provider) {
			return fmt.Errorf("invalid provider for role %s: %q (valid: %v)",
				assignment.role, assignment.provider, ValidProviders)
		}
	}

	if c.Workspace.Root == "" {
		return fmt.Errorf("workspace root is not configured")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	return nil
}
