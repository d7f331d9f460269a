package webtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"crewforge/internal/logging"
	"crewforge/internal/proc"
	"crewforge/internal/tools"
	"crewforge/internal/workspace"
)

// serverProcess is the slice of proc.Process the harness needs. Tests
// substitute a stub so no real uvicorn is launched.
type serverProcess interface {
	PID() int
	Running() bool
	ExitCode() (int, bool)
	Stdout() string
	Stderr() string
	Stop(ctx context.Context) error
}

// APITester launches the application under test as a child server
// process and sweeps declarative HTTP test cases against it.
//
// Exactly one tester run may hold the server port at a time; runs from
// other goroutines queue on the shared port gate.
type APITester struct {
	ws     *workspace.Workspace
	config ServerConfig

	start func(ctx context.Context, cmd proc.Command) (serverProcess, error)
	probe func(addr string) bool
}

// NewAPITester wires a tester to a real process runner.
func NewAPITester(ws *workspace.Workspace, runner proc.Runner, config ServerConfig) *APITester {
	return &APITester{
		ws:     ws,
		config: config,
		start: func(ctx context.Context, cmd proc.Command) (serverProcess, error) {
			return runner.Start(ctx, cmd)
		},
		probe: probeTCP,
	}
}

// Run launches the server for filePath and evaluates cases in order,
// stopping at the first failure. The server process is reclaimed on
// every return path.
func (t *APITester) Run(ctx context.Context, filePath string, cases []TestCase) (tools.Result, error) {
	for i, tc := range cases {
		if err := tc.Validate(); err != nil {
			return tools.Errf(tools.KindInvalidArgument, "invalid test case %d: %v", i, err), nil
		}
	}

	abs, err := t.ws.Resolve(filePath)
	if err != nil {
		return pathFailure(filePath, err), nil
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return tools.Errf(tools.KindNotFound, "test file not found: %s", filePath), nil
		}
		return tools.Errf(tools.KindIO, "failed to stat test file: %v", err), nil
	}

	module := strings.TrimSuffix(filepath.Base(abs), ".py")
	cmd := proc.Command{
		Binary: t.config.UvicornBin,
		Arguments: []string{
			module + ":app",
			"--host", t.config.Host,
			"--port", fmt.Sprintf("%d", t.config.Port),
		},
		WorkingDirectory: filepath.Dir(abs),
		Tag:              "api_test",
	}

	if err := acquirePort(ctx); err != nil {
		return tools.Result{}, err
	}
	defer releasePort()

	logging.APITest("starting server: %s", cmd.CommandString())
	logging.Audit().ServerEvent(logging.AuditServerStart, module, map[string]interface{}{
		"addr": t.config.Addr(),
		"file": filePath,
	})

	server, err := t.start(ctx, cmd)
	if err != nil {
		logging.APITestWarn("server launch failed: %v", err)
		return tools.Errf(tools.KindStartup, "failed to launch server: %v", err), nil
	}
	defer t.teardown(server, module)

	if result, ready := t.awaitReady(ctx, server, module); !ready {
		return result, ctx.Err()
	}

	client := &http.Client{Timeout: t.config.RequestTimeout}
	report := Report{}
	for _, tc := range cases {
		result := t.evaluateCase(ctx, client, tc)
		report.Results = append(report.Results, result)
		if !result.Passed {
			logging.APITest("case failed, stopping sweep: %s", tc.Name())
			break
		}
	}

	passed, total := report.Counts()
	logging.APITest("sweep complete: %d/%d passed", passed, total)
	return tools.OkPayload(report.String(), report), nil
}

// awaitReady polls the server address until it accepts connections or
// the startup budget runs out. A server that exits before becoming
// reachable fails immediately with its captured error stream.
func (t *APITester) awaitReady(ctx context.Context, server serverProcess, module string) (tools.Result, bool) {
	deadline := time.Now().Add(t.config.StartupBudget)
	for {
		if code, exited := server.ExitCode(); exited {
			logging.APITestWarn("server exited before ready: exit code %d", code)
			logging.Audit().ServerEvent(logging.AuditServerExit, module, map[string]interface{}{
				"exit_code": code,
			})
			return tools.Errf(tools.KindStartup,
				"server failed to start: exit code %d\nerror log:\n%s", code, server.Stderr()), false
		}
		if t.probe(t.config.Addr()) {
			logging.APITest("server ready on %s", t.config.Addr())
			logging.Audit().ServerEvent(logging.AuditServerReady, module, nil)
			return tools.Result{}, true
		}
		if time.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return tools.Result{}, false
		case <-time.After(t.config.ProbeInterval):
		}
	}

	if code, exited := server.ExitCode(); exited {
		return tools.Errf(tools.KindStartup,
			"server failed to start: exit code %d\nerror log:\n%s", code, server.Stderr()), false
	}
	logging.APITestWarn("server not ready after %s", t.config.StartupBudget)
	return tools.Errf(tools.KindStartup,
		"server did not become ready within %s\nerror log:\n%s",
		t.config.StartupBudget, server.Stderr()), false
}

// evaluateCase issues one request and compares status and body against
// the case expectations.
func (t *APITester) evaluateCase(ctx context.Context, client *http.Client, tc TestCase) CaseResult {
	url := t.config.BaseURL() + tc.Endpoint

	var body *bytes.Reader
	if tc.Payload != nil {
		data, err := json.Marshal(tc.Payload)
		if err != nil {
			return CaseResult{Case: tc, Reason: fmt.Sprintf("invalid payload: %v", err)}
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(tc.Method), url, body)
	if err != nil {
		return CaseResult{Case: tc, Reason: fmt.Sprintf("Request Error: %v", err)}
	}
	if tc.Payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		logging.APITestDebug("request failed: %s: %v", tc.Name(), err)
		return CaseResult{Case: tc, Reason: fmt.Sprintf("Request Error: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := readBody(resp)
	if err != nil {
		return CaseResult{Case: tc, Status: resp.StatusCode, Reason: fmt.Sprintf("Request Error: %v", err)}
	}

	if resp.StatusCode != tc.ExpectedStatus {
		return CaseResult{
			Case:   tc,
			Status: resp.StatusCode,
			Reason: fmt.Sprintf("expected status %d, got %d", tc.ExpectedStatus, resp.StatusCode),
		}
	}

	if tc.ExpectedResponse != nil {
		var got any
		if err := json.Unmarshal(respBody, &got); err != nil {
			return CaseResult{
				Case:   tc,
				Status: resp.StatusCode,
				Reason: fmt.Sprintf("expected response %s, got unparseable body %q",
					compactJSON(tc.ExpectedResponse), string(respBody)),
			}
		}
		if !jsonEqual(tc.ExpectedResponse, got) {
			return CaseResult{
				Case:   tc,
				Status: resp.StatusCode,
				Reason: fmt.Sprintf("expected response %s, got %s",
					compactJSON(tc.ExpectedResponse), compactJSON(got)),
			}
		}
	}

	return CaseResult{Case: tc, Passed: true, Status: resp.StatusCode}
}

// teardown kills and reaps the server. It uses a fresh context so the
// reclaim happens even when the caller's context is already canceled.
func (t *APITester) teardown(server serverProcess, module string) {
	logging.APITest("shutting down server (pid %d)", server.PID())
	ctx, cancel := context.WithTimeout(context.Background(), t.config.TeardownTimeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logging.APITestWarn("server teardown: %v", err)
	}
	logging.Audit().ServerEvent(logging.AuditServerKill, module, nil)
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
