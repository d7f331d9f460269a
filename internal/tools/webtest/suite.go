package webtest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Suite is a file-defined batch of test cases against one target app.
//
// Example:
//
//	target: app/main.py
//	cases:
//	  - endpoint: /todos
//	    method: GET
//	    expected_status: 200
//	  - endpoint: /todos
//	    method: POST
//	    expected_status: 201
//	    payload: {title: "buy milk"}
type Suite struct {
	Target string     `yaml:"target"`
	Cases  []TestCase `yaml:"cases"`
}

// LoadSuite reads and validates a suite definition from a YAML file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}

	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("failed to parse suite file %s: %w", path, err)
	}

	if suite.Target == "" {
		return nil, fmt.Errorf("suite %s: target is required", path)
	}
	if len(suite.Cases) == 0 {
		return nil, fmt.Errorf("suite %s: at least one case is required", path)
	}
	for i, tc := range suite.Cases {
		if err := tc.Validate(); err != nil {
			return nil, fmt.Errorf("suite %s: case %d: %w", path, i, err)
		}
	}
	return &suite, nil
}
