package webtest

import (
	"context"
	"encoding/json"

	"crewforge/internal/proc"
	"crewforge/internal/tools"
	"crewforge/internal/workspace"
)

// APITestTool wraps the functional tester as a registrable tool.
func APITestTool(tester *APITester) *tools.Tool {
	return &tools.Tool{
		Name:        "api_test",
		Description: "Run functional HTTP tests against a live FastAPI application launched from a workspace file",
		Category:    tools.CategoryTest,
		Priority:    80,
		Execute: func(ctx context.Context, args map[string]any) (tools.Result, error) {
			filePath, _ := args["file_path"].(string)
			if filePath == "" {
				return tools.Errf(tools.KindInvalidArgument, "file_path is required"), nil
			}
			cases, err := decodeCases(args["test_cases"])
			if err != nil {
				return tools.Errf(tools.KindInvalidArgument, "invalid test_cases: %v", err), nil
			}
			return tester.Run(ctx, filePath, cases)
		},
		Schema: tools.ToolSchema{
			Required: []string{"file_path", "test_cases"},
			Properties: map[string]tools.Property{
				"file_path": {
					Type:        "string",
					Description: "The application entry file, relative to the workspace root",
				},
				"test_cases": {
					Type:        "array",
					Description: "Ordered test cases: endpoint, method, expected_status, optional payload and expected_response",
					Items:       &tools.PropertyItems{Type: "object"},
				},
			},
		},
	}
}

// decodeCases converts the loosely-typed argument value into test cases
// by round-tripping through JSON.
func decodeCases(v any) ([]TestCase, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var cases []TestCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, err
	}
	return cases, nil
}

// RegisterAll registers the test tools against the given registry.
func RegisterAll(registry *tools.Registry, ws *workspace.Workspace, runner proc.Runner, config ServerConfig, pythonBin string) error {
	checker := NewSyntaxChecker(ws, runner, pythonBin)
	tester := NewAPITester(ws, runner, config)

	for _, tool := range []*tools.Tool{
		CheckSyntaxTool(checker),
		APITestTool(tester),
	} {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}
	return nil
}
