package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestNewCreatesRoot(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "nested", "project")

	ws, err := New(target)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	info, err := os.Stat(ws.Root())
	if err != nil {
		t.Fatalf("root not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("root is not a directory")
	}
}

func TestNewRequiresRoot(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty root")
	}
}

func TestNewExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	ws, err := New("~/sandbox")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	resolvedHome, err := filepath.EvalSymlinks(home)
	if err != nil {
		t.Fatalf("EvalSymlinks failed: %v", err)
	}
	want := filepath.Join(resolvedHome, "sandbox")
	if ws.Root() != want {
		t.Errorf("root = %q, want %q", ws.Root(), want)
	}
}

func TestResolveContained(t *testing.T) {
	ws := newTestWorkspace(t)

	tests := []struct {
		name string
		rel  string
		want string
	}{
		{"simple file", "main.py", "main.py"},
		{"nested file", "app/models/user.py", "app/models/user.py"},
		{"dot prefix", "./config.yaml", "config.yaml"},
		{"internal dotdot", "app/../main.py", "main.py"},
		{"trailing slash", "app/", "app"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ws.Resolve(tt.rel)
			if err != nil {
				t.Fatalf("Resolve(%q) failed: %v", tt.rel, err)
			}
			want := filepath.Join(ws.Root(), tt.want)
			if got != want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.rel, got, want)
			}
		})
	}
}

func TestResolveRejectsEscapes(t *testing.T) {
	ws := newTestWorkspace(t)
	outside := t.TempDir()

	tests := []struct {
		name string
		rel  string
	}{
		{"empty", ""},
		{"parent", ".."},
		{"traversal", "../secrets.txt"},
		{"deep traversal", "a/b/../../../etc/passwd"},
		{"absolute outside", filepath.Join(outside, "file.txt")},
		{"absolute root", string(filepath.Separator)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ws.Resolve(tt.rel)
			if err == nil {
				t.Fatalf("Resolve(%q) succeeded, want rejection", tt.rel)
			}
			var escErr *EscapeError
			if !errors.As(err, &escErr) {
				t.Errorf("error type = %T, want *EscapeError", err)
			}
		})
	}
}

func TestResolveAbsoluteInside(t *testing.T) {
	ws := newTestWorkspace(t)

	inside := filepath.Join(ws.Root(), "data", "cases.json")
	got, err := ws.Resolve(inside)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != inside {
		t.Errorf("Resolve = %q, want %q", got, inside)
	}
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}

	ws := newTestWorkspace(t)
	outside := t.TempDir()

	link := filepath.Join(ws.Root(), "sneaky")
	if err := os.Symlink(outside, link); err != nil {
		t.Fatalf("Symlink failed: %v", err)
	}

	if _, err := ws.Resolve("sneaky/file.txt"); err == nil {
		t.Error("expected rejection for symlink pointing outside workspace")
	}
	var escErr *EscapeError
	if _, err := ws.Resolve("sneaky"); !errors.As(err, &escErr) {
		t.Errorf("error = %v, want *EscapeError", err)
	}
}

func TestResolveSymlinkInside(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}

	ws := newTestWorkspace(t)

	target := filepath.Join(ws.Root(), "real")
	if err := os.MkdirAll(target, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	link := filepath.Join(ws.Root(), "alias")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("Symlink failed: %v", err)
	}

	got, err := ws.Resolve("alias/notes.txt")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	want := filepath.Join(target, "notes.txt")
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveMissingTarget(t *testing.T) {
	ws := newTestWorkspace(t)

	got, err := ws.Resolve("does/not/exist/yet.py")
	if err != nil {
		t.Fatalf("Resolve failed for missing target: %v", err)
	}
	want := filepath.Join(ws.Root(), "does", "not", "exist", "yet.py")
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestRelRoundTrip(t *testing.T) {
	ws := newTestWorkspace(t)

	abs, err := ws.Resolve("app/main.py")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := ws.Rel(abs); got != filepath.Join("app", "main.py") {
		t.Errorf("Rel = %q, want app/main.py", got)
	}
}

func TestRelOutsideUnchanged(t *testing.T) {
	ws := newTestWorkspace(t)
	outside := filepath.Join(t.TempDir(), "elsewhere.txt")

	if got := ws.Rel(outside); got != outside {
		t.Errorf("Rel = %q, want %q unchanged", got, outside)
	}
}

func TestEscapeErrorMessage(t *testing.T) {
	err := &EscapeError{Path: "../x", Reason: "path traversal"}
	want := `path "../x" rejected: path traversal`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return ws
}
