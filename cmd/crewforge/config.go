package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"crewforge/internal/config"

	"crewforge/cmd/crewforge/ui"
)

var configForce bool

// configCmd groups configuration commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or initialize the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets redacted",
	RunE:  showConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default crewforge.yaml",
	Long: `Writes the default configuration to the --config path. API keys are
never written; set them in the environment (OPENAI_API_KEY,
GOOGLE_API_KEY, ANTHROPIC_API_KEY).`,
	RunE: initConfig,
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing configuration file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func showConfig(cmd *cobra.Command, args []string) error {
	redacted := *cfg
	redacted.Providers.OpenAI.APIKey = redactKey(cfg.Providers.OpenAI.APIKey)
	redacted.Providers.Google.APIKey = redactKey(cfg.Providers.Google.APIKey)
	redacted.Providers.Anthropic.APIKey = redactKey(cfg.Providers.Anthropic.APIKey)

	data, err := yaml.Marshal(&redacted)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}

	styles := ui.DefaultStyles()
	fmt.Println(styles.Title.Render("Configuration (" + configPath + ")"))
	fmt.Print(string(data))

	if err := cfg.Validate(); err != nil {
		fmt.Println(styles.Warning.Render("Warning: " + err.Error()))
	}
	return nil
}

func redactKey(key string) string {
	if key == "" {
		return "(unset)"
	}
	return "(set)"
}

func initConfig(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}

	defaults := config.DefaultConfig()
	if err := defaults.Save(configPath); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	styles := ui.DefaultStyles()
	fmt.Println(styles.Success.Render("Wrote " + configPath))
	return nil
}
