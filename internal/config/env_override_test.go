package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides_Secrets(t *testing.T) {
	t.Run("keys land on their providers", func(t *testing.T) {
		clearSettingsEnv(t)
		t.Setenv("OPENAI_API_KEY", "sk-oa")
		t.Setenv("GOOGLE_API_KEY", "sk-gg")
		t.Setenv("ANTHROPIC_API_KEY", "sk-an")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "sk-oa", cfg.Providers.OpenAI.APIKey)
		assert.Equal(t, "sk-gg", cfg.Providers.Google.APIKey)
		assert.Equal(t, "sk-an", cfg.Providers.Anthropic.APIKey)
	})

	t.Run("empty env leaves config values alone", func(t *testing.T) {
		clearSettingsEnv(t)

		cfg := DefaultConfig()
		cfg.Providers.OpenAI.APIKey = "from-file"
		cfg.applyEnvOverrides()

		assert.Equal(t, "from-file", cfg.Providers.OpenAI.APIKey)
	})

	t.Run("env wins over file values", func(t *testing.T) {
		clearSettingsEnv(t)
		t.Setenv("OPENAI_API_KEY", "from-env")

		cfg := DefaultConfig()
		cfg.Providers.OpenAI.APIKey = "from-file"
		cfg.applyEnvOverrides()

		assert.Equal(t, "from-env", cfg.Providers.OpenAI.APIKey)
	})
}

func TestEnvOverrides_Models(t *testing.T) {
	clearSettingsEnv(t)
	t.Setenv("MODEL_OPENAI", "gpt-4o-mini")
	t.Setenv("MODEL_GOOGLE", "gemini-2.5-pro")
	t.Setenv("MODEL_ANTHROPIC", "claude-sonnet-4-20250514")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "gpt-4o-mini", cfg.Providers.OpenAI.Model)
	assert.Equal(t, "gemini-2.5-pro", cfg.Providers.Google.Model)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Providers.Anthropic.Model)
}

func TestEnvOverrides_Roles(t *testing.T) {
	t.Run("reassignment", func(t *testing.T) {
		clearSettingsEnv(t)
		t.Setenv("ROLE_ARCHITECT", "openai")
		t.Setenv("ROLE_DEVELOPER", "anthropic")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "openai", cfg.Roles.Architect)
		assert.Equal(t, "anthropic", cfg.Roles.Developer)
		// Untouched role keeps its default
		assert.Equal(t, "openai", cfg.Roles.Tester)
	})

	t.Run("invalid provider is caught by Validate, not the override", func(t *testing.T) {
		clearSettingsEnv(t)
		setRequiredKeys(t)
		t.Setenv("ROLE_TESTER", "cohere")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "cohere", cfg.Roles.Tester)
		assert.Error(t, cfg.Validate())
	})
}

func TestEnvOverrides_WorkspaceAndHarness(t *testing.T) {
	t.Run("workspace root", func(t *testing.T) {
		clearSettingsEnv(t)
		t.Setenv("PROJECT_BASE_PATH", "~/work/other_project")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "~/work/other_project", cfg.Workspace.Root)
	})

	t.Run("interpreter and server binaries", func(t *testing.T) {
		clearSettingsEnv(t)
		t.Setenv("CREWFORGE_PYTHON", "/opt/py/bin/python")
		t.Setenv("CREWFORGE_UVICORN", "/opt/py/bin/uvicorn")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/opt/py/bin/python", cfg.Execution.PythonBin)
		assert.Equal(t, "/opt/py/bin/uvicorn", cfg.Server.UvicornBin)
	})

	t.Run("port parses", func(t *testing.T) {
		clearSettingsEnv(t)
		t.Setenv("CREWFORGE_PORT", "8800")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, 8800, cfg.Server.Port)
	})

	t.Run("unparseable port is ignored", func(t *testing.T) {
		clearSettingsEnv(t)
		t.Setenv("CREWFORGE_PORT", "eight thousand")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, 8000, cfg.Server.Port)
	})

	t.Run("database path", func(t *testing.T) {
		clearSettingsEnv(t)
		t.Setenv("CREWFORGE_DB", "/tmp/history.db")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/history.db", cfg.Store.DatabasePath)
	})
}
