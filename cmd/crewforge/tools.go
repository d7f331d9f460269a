package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"crewforge/internal/runtime"

	"crewforge/cmd/crewforge/ui"
)

var toolsJSON bool

// toolsCmd lists the tool contract surface
var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the registered tools and their contracts",
	Long: `Prints every tool the engine can invoke: name, category, and argument
schema. With --json the machine-readable contract is emitted instead,
suitable for wiring an external engine.`,
	RunE: listTools,
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "Emit the contract as JSON")
}

func listTools(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	registry, err := buildRegistry(ws)
	if err != nil {
		return err
	}

	contracts := runtime.Contracts(registry)

	if toolsJSON {
		data, err := json.MarshalIndent(contracts, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode contracts: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	styles := ui.DefaultStyles()
	table := ui.NewTable(fmt.Sprintf("Registered tools (%d)", len(contracts)),
		"Tool", "Category", "Arguments", "Description")
	for _, contract := range contracts {
		table.AddRow(contract.Name, contract.Category, renderArgs(contract), contract.Description)
	}
	fmt.Print(table.View(styles))
	return nil
}

// renderArgs compresses a schema into one cell: required args are starred.
func renderArgs(contract runtime.ToolContract) string {
	required := make(map[string]bool, len(contract.Schema.Required))
	for _, name := range contract.Schema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(contract.Schema.Properties))
	for name := range contract.Schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		if required[name] {
			parts = append(parts, name+"*")
		} else {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, ", ")
}
