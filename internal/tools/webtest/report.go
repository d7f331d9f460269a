package webtest

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// TestCase is one declarative HTTP assertion against the server under test.
type TestCase struct {
	// Endpoint is the request path, beginning with "/".
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// Method is the HTTP verb.
	Method string `yaml:"method" json:"method"`

	// ExpectedStatus is the status code the response must carry.
	ExpectedStatus int `yaml:"expected_status" json:"expected_status"`

	// Payload is an optional JSON request body.
	Payload map[string]any `yaml:"payload,omitempty" json:"payload,omitempty"`

	// ExpectedResponse, when present, is compared structurally against the
	// response body parsed as JSON.
	ExpectedResponse map[string]any `yaml:"expected_response,omitempty" json:"expected_response,omitempty"`
}

var validMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true,
}

// Validate checks the case invariants before any server is launched.
func (tc TestCase) Validate() error {
	if tc.Method == "" {
		return fmt.Errorf("method is required")
	}
	if !validMethods[strings.ToUpper(tc.Method)] {
		return fmt.Errorf("invalid method: %s", tc.Method)
	}
	if !strings.HasPrefix(tc.Endpoint, "/") {
		return fmt.Errorf("endpoint must begin with %q: %s", "/", tc.Endpoint)
	}
	if tc.ExpectedStatus <= 0 {
		return fmt.Errorf("expected_status is required")
	}
	return nil
}

// Name renders the case for report lines, e.g. "GET /todos".
func (tc TestCase) Name() string {
	return strings.ToUpper(tc.Method) + " " + tc.Endpoint
}

// CaseResult is the outcome of evaluating one test case.
type CaseResult struct {
	Case   TestCase `json:"case"`
	Passed bool     `json:"passed"`

	// Status is the observed status code (0 when the request never completed).
	Status int `json:"status,omitempty"`

	// Reason explains a failure, embedding expected and observed values.
	Reason string `json:"reason,omitempty"`
}

// Line renders the result as a human-readable report line.
func (r CaseResult) Line() string {
	if r.Passed {
		return fmt.Sprintf("✅ PASS: %s -> %d", r.Case.Name(), r.Status)
	}
	return fmt.Sprintf("❌ FAIL: %s -> %s", r.Case.Name(), r.Reason)
}

// Report is the ordered sequence of per-case results. Evaluation stops at
// the first failure, so a failed report ends with its one FAIL entry.
type Report struct {
	Results []CaseResult `json:"results"`
}

// Passed reports whether every evaluated case passed.
func (r Report) Passed() bool {
	for _, result := range r.Results {
		if !result.Passed {
			return false
		}
	}
	return true
}

// Lines returns the per-case report lines in evaluation order.
func (r Report) Lines() []string {
	lines := make([]string, 0, len(r.Results))
	for _, result := range r.Results {
		lines = append(lines, result.Line())
	}
	return lines
}

// String renders the whole report, one line per case.
func (r Report) String() string {
	return strings.Join(r.Lines(), "\n")
}

// Counts returns how many cases passed and how many were evaluated.
func (r Report) Counts() (passed, total int) {
	for _, result := range r.Results {
		if result.Passed {
			passed++
		}
	}
	return passed, len(r.Results)
}

// SyntaxReport is the structured payload of a check_syntax run.
type SyntaxReport struct {
	Passed bool   `json:"passed"`
	Output string `json:"output,omitempty"`
}

// jsonEqual compares two values for structural equality under JSON
// semantics: both sides are round-tripped through encoding/json so that
// numeric types normalize before comparison.
func jsonEqual(expected, got any) bool {
	ne, err := normalizeJSON(expected)
	if err != nil {
		return false
	}
	ng, err := normalizeJSON(got)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(ne, ng)
}

func normalizeJSON(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// compactJSON renders a value as one-line JSON for failure reasons.
func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
