package proc

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestProcess_StartAndStop(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Uses sleep")
	}

	runner := NewExecRunner()

	proc, err := runner.Start(context.Background(), Command{
		Binary:    "sleep",
		Arguments: []string{"30"},
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if !proc.Running() {
		t.Error("Expected process to be running")
	}
	if proc.PID() <= 0 {
		t.Errorf("Expected positive pid, got %d", proc.PID())
	}
	if _, exited := proc.ExitCode(); exited {
		t.Error("Expected ExitCode to report not-exited while running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := proc.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if proc.Running() {
		t.Error("Expected process to be stopped")
	}
}

func TestProcess_CapturesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Uses sh")
	}

	runner := NewExecRunner()

	proc, err := runner.Start(context.Background(), Command{
		Binary:    "sh",
		Arguments: []string{"-c", "echo out; echo err >&2"},
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := proc.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	if !strings.Contains(proc.Stdout(), "out") {
		t.Errorf("Expected stdout to contain 'out', got %q", proc.Stdout())
	}
	if !strings.Contains(proc.Stderr(), "err") {
		t.Errorf("Expected stderr to contain 'err', got %q", proc.Stderr())
	}
}

func TestProcess_ExitCodeRecorded(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Uses sh")
	}

	runner := NewExecRunner()

	proc, err := runner.Start(context.Background(), Command{
		Binary:    "sh",
		Arguments: []string{"-c", "exit 3"},
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := proc.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	code, exited := proc.ExitCode()
	if !exited {
		t.Fatal("Expected process to be exited")
	}
	if code != 3 {
		t.Errorf("Expected exit code 3, got %d", code)
	}
}

func TestProcess_ContextCancelKills(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Uses sleep")
	}

	runner := NewExecRunner()

	ctx, cancel := context.WithCancel(context.Background())
	proc, err := runner.Start(ctx, Command{
		Binary:    "sleep",
		Arguments: []string{"30"},
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	if err := proc.Wait(waitCtx); err != nil {
		t.Fatalf("Process did not exit after context cancel: %v", err)
	}
}

func TestProcess_KillAfterExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Uses true")
	}

	runner := NewExecRunner()

	proc, err := runner.Start(context.Background(), Command{Binary: "true"})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := proc.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	if err := proc.Kill(); err != nil {
		t.Errorf("Kill after exit should be a no-op, got: %v", err)
	}
}

func TestProcess_KillEmitsEvent(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Uses sleep")
	}

	runner := NewExecRunner()

	events := make(chan Event, 4)
	runner.SetAuditCallback(func(e Event) {
		events <- e
	})

	proc, err := runner.Start(context.Background(), Command{
		Binary:    "sleep",
		Arguments: []string{"30"},
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := proc.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	var got []EventType
	for len(got) < 2 {
		select {
		case e := <-events:
			got = append(got, e.Type)
		case <-time.After(2 * time.Second):
			t.Fatalf("Timed out waiting for events, got %v", got)
		}
	}

	if got[0] != EventStart {
		t.Errorf("Expected first event start, got %v", got[0])
	}
	if got[1] != EventKilled {
		t.Errorf("Expected killed event after Stop, got %v", got[1])
	}
}
