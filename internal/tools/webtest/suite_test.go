package webtest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeSuiteFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "suite.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSuite(t *testing.T) {
	t.Parallel()

	path := writeSuiteFile(t, `
target: app/main.py
cases:
  - endpoint: /todos
    method: GET
    expected_status: 200
  - endpoint: /todos
    method: POST
    expected_status: 201
    payload:
      title: buy milk
    expected_response:
      id: 1
      title: buy milk
`)

	suite, err := LoadSuite(path)
	if err != nil {
		t.Fatalf("LoadSuite: %v", err)
	}
	if suite.Target != "app/main.py" {
		t.Errorf("target = %q", suite.Target)
	}

	want := []TestCase{
		{Endpoint: "/todos", Method: "GET", ExpectedStatus: 200},
		{
			Endpoint:         "/todos",
			Method:           "POST",
			ExpectedStatus:   201,
			Payload:          map[string]any{"title": "buy milk"},
			ExpectedResponse: map[string]any{"id": 1, "title": "buy milk"},
		},
	}
	if diff := cmp.Diff(want, suite.Cases); diff != "" {
		t.Errorf("cases mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSuiteErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			"missing target",
			"cases:\n  - endpoint: /x\n    method: GET\n    expected_status: 200\n",
			"target is required",
		},
		{
			"no cases",
			"target: app/main.py\n",
			"at least one case",
		},
		{
			"invalid case",
			"target: app/main.py\ncases:\n  - endpoint: todos\n    method: GET\n    expected_status: 200\n",
			"case 0",
		},
		{
			"bad yaml",
			"target: [unterminated\n",
			"failed to parse",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSuiteFile(t, tt.content)
			_, err := LoadSuite(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.want)
			}
		})
	}
}

func TestLoadSuiteMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadSuite(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to read suite file") {
		t.Errorf("error = %q", err.Error())
	}
}
