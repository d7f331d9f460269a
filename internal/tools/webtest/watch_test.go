package webtest

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"crewforge/internal/workspace"
)

func newWatchFixture(t *testing.T) (*SourceWatcher, *workspace.Workspace, chan string) {
	t.Helper()

	ws, err := workspace.New(t.TempDir())
	if err != nil {
		t.Fatalf("workspace.New: %v", err)
	}

	changes := make(chan string, 16)
	sw, err := NewSourceWatcher(ws, func(ctx context.Context, path string) {
		changes <- path
	})
	if err != nil {
		t.Fatalf("NewSourceWatcher: %v", err)
	}
	// Shorten the settle window so tests do not wait out the default.
	sw.debounceDur = 50 * time.Millisecond
	return sw, ws, changes
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fsnotify goroutines are not reliably reclaimed on Windows")
	}
}

func TestSourceWatcherStartStop(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	sw, _, _ := newWatchFixture(t)
	if err := sw.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Second Start is a no-op
	if err := sw.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	sw.Stop()
	// Second Stop is a no-op
	sw.Stop()
}

func TestSourceWatcherFiresOnPythonChange(t *testing.T) {
	skipOnWindows(t)

	sw, ws, changes := newWatchFixture(t)
	if err := sw.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sw.Stop()

	target := filepath.Join(ws.Root(), "main.py")
	if err := os.WriteFile(target, []byte("x = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case rel := <-changes:
		if rel != "main.py" {
			t.Errorf("callback path = %q", rel)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no callback for .py write")
	}

	stats := sw.Stats()
	if stats.ChecksTriggered == 0 {
		t.Error("stats should record the triggered check")
	}
	if stats.LastEventPath != target {
		t.Errorf("LastEventPath = %q", stats.LastEventPath)
	}
}

func TestSourceWatcherIgnoresOtherFiles(t *testing.T) {
	skipOnWindows(t)

	sw, ws, changes := newWatchFixture(t)
	if err := sw.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sw.Stop()

	if err := os.WriteFile(filepath.Join(ws.Root(), "notes.txt"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case rel := <-changes:
		t.Fatalf("unexpected callback for %q", rel)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestSourceWatcherPicksUpNewDirectories(t *testing.T) {
	skipOnWindows(t)

	sw, ws, changes := newWatchFixture(t)
	if err := sw.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sw.Stop()

	newDir := filepath.Join(ws.Root(), "app")
	if err := os.Mkdir(newDir, 0755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a beat to register the new directory.
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(newDir, "main.py"), []byte("x = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case rel := <-changes:
		if rel != filepath.Join("app", "main.py") {
			t.Errorf("callback path = %q", rel)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no callback for file in new directory")
	}
}

func TestSourceWatcherStopBeforeStart(t *testing.T) {
	skipOnWindows(t)

	sw, _, _ := newWatchFixture(t)
	sw.Stop() // Must not panic or block
}

func TestSourceWatcherConcurrentStats(t *testing.T) {
	skipOnWindows(t)

	sw, ws, _ := newWatchFixture(t)
	if err := sw.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sw.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = sw.Stats()
			}
		}()
	}
	if err := os.WriteFile(filepath.Join(ws.Root(), "busy.py"), []byte("x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	wg.Wait()
}
