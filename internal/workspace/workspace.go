// Package workspace confines all file operations to a single sandbox root.
// Every tool path is resolved through here; a path that escapes the root,
// whether by "..", by an absolute prefix, or through a symlink, is rejected.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"crewforge/internal/logging"
)

// EscapeError reports a path that failed confinement checks.
type EscapeError struct {
	Path   string
	Reason string
}

func (e *EscapeError) Error() string {
	return fmt.Sprintf("path %q rejected: %s", e.Path, e.Reason)
}

// Workspace is an absolute, symlink-resolved sandbox root.
// Immutable after construction.
type Workspace struct {
	root string
}

// New creates the workspace root if needed and canonicalizes it.
// A leading "~" is expanded against the current user's home directory.
func New(root string) (*Workspace, error) {
	if root == "" {
		return nil, fmt.Errorf("workspace root required")
	}

	expanded, err := expandHome(root)
	if err != nil {
		return nil, fmt.Errorf("failed to expand workspace root: %w", err)
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to absolutize workspace root: %w", err)
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace root: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}

	logging.Workspace("Workspace root: %s", resolved)
	return &Workspace{root: resolved}, nil
}

// Root returns the canonical workspace root.
func (w *Workspace) Root() string {
	return w.root
}

// Resolve joins rel onto the workspace root and verifies the result stays
// inside it. The target does not need to exist; symlinks along the deepest
// existing ancestor are resolved before the containment check so a link
// pointing outside the root cannot smuggle a path through.
func (w *Workspace) Resolve(rel string) (string, error) {
	if rel == "" {
		return "", &EscapeError{Path: rel, Reason: "empty path"}
	}

	candidate := rel
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(w.root, candidate)
	}
	candidate = filepath.Clean(candidate)

	if hasTraversal(candidate) {
		return "", &EscapeError{Path: rel, Reason: "path traversal"}
	}

	resolved, err := resolveExisting(candidate)
	if err != nil {
		return "", &EscapeError{Path: rel, Reason: "invalid path"}
	}

	if !w.contains(resolved) {
		logging.WorkspaceDebug("Rejected escape: %s -> %s", rel, resolved)
		return "", &EscapeError{Path: rel, Reason: "outside workspace"}
	}

	logging.WorkspaceDebug("Resolved %s -> %s", rel, resolved)
	return resolved, nil
}

// Rel converts an absolute path back to its workspace-relative form.
// Paths outside the workspace are returned unchanged.
func (w *Workspace) Rel(abs string) string {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return abs
	}
	return rel
}

// hasTraversal reports whether the cleaned path still carries a ".." component.
func hasTraversal(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

// resolveExisting resolves symlinks on the deepest existing ancestor of path
// and rejoins the non-existing remainder onto it.
func resolveExisting(path string) (string, error) {
	remainder := make([]string, 0, 4)
	current := path

	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			for i := len(remainder) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, remainder[i])
			}
			return resolved, nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no existing ancestor for %s", path)
		}
		remainder = append(remainder, filepath.Base(current))
		current = parent
	}
}

// contains reports whether abs is the root itself or lives under it.
func (w *Workspace) contains(abs string) bool {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// expandHome expands a leading "~" to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "~" {
		return os.UserHomeDir()
	}
	if strings.HasPrefix(path, "~"+string(filepath.Separator)) || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
