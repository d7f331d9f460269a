package core

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"crewforge/internal/logging"
	"crewforge/internal/tools"
	"crewforge/internal/workspace"
)

// GlobTool returns a tool for finding workspace files matching a pattern.
func GlobTool(ws *workspace.Workspace) *tools.Tool {
	return &tools.Tool{
		Name:        "glob",
		Description: "Find workspace files matching a glob pattern",
		Category:    tools.CategoryFiles,
		Priority:    85,
		Execute: func(ctx context.Context, args map[string]any) (tools.Result, error) {
			return executeGlob(ctx, ws, args)
		},
		Schema: tools.ToolSchema{
			Required: []string{"pattern"},
			Properties: map[string]tools.Property{
				"pattern": {
					Type:        "string",
					Description: "Glob pattern (e.g., '**/*.py', 'app/*.py')",
				},
				"base_path": {
					Type:        "string",
					Description: "Base directory for search, relative to the workspace root (default: root)",
				},
				"max_results": {
					Type:        "integer",
					Description: "Maximum number of results (default: 100)",
					Default:     100,
				},
			},
		},
	}
}

func executeGlob(ctx context.Context, ws *workspace.Workspace, args map[string]any) (tools.Result, error) {
	pattern, _ := args["pattern"].(string)
	if pattern == "" {
		return tools.Errf(tools.KindInvalidArgument, "pattern is required"), nil
	}

	basePath := "."
	if bp, ok := args["base_path"].(string); ok && bp != "" {
		basePath = bp
	}

	maxResults := 100
	if mr, ok := intArg(args, "max_results"); ok && mr > 0 {
		maxResults = mr
	}

	logging.FilesDebug("glob: pattern=%s, base=%s", pattern, basePath)

	base, err := ws.Resolve(basePath)
	if err != nil {
		return resolveFailure(basePath, err), nil
	}

	var matches []string

	// Handle ** patterns (recursive)
	if strings.Contains(pattern, "**") {
		parts := strings.Split(pattern, "**")
		prefix := strings.TrimSuffix(parts[0], "/")
		suffix := ""
		if len(parts) > 1 {
			suffix = strings.TrimPrefix(parts[1], "/")
		}

		searchPath := base
		if prefix != "" {
			searchPath = filepath.Join(base, prefix)
		}

		err := filepath.Walk(searchPath, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil // Skip errors
			}

			if len(matches) >= maxResults {
				return filepath.SkipAll
			}

			if info.IsDir() {
				return nil
			}

			// Check suffix match
			if suffix != "" {
				matched, _ := filepath.Match(suffix, info.Name())
				if !matched {
					// Try matching the full relative path suffix
					relPath, _ := filepath.Rel(searchPath, path)
					matched, _ = filepath.Match(suffix, relPath)
				}
				if matched {
					relPath, _ := filepath.Rel(base, path)
					matches = append(matches, relPath)
				}
			} else {
				relPath, _ := filepath.Rel(base, path)
				matches = append(matches, relPath)
			}

			return nil
		})
		if err != nil {
			return tools.Errf(tools.KindIO, "failed to walk directory: %v", err), nil
		}
	} else {
		// Simple glob
		fullPattern := filepath.Join(base, pattern)
		globMatches, err := filepath.Glob(fullPattern)
		if err != nil {
			return tools.Errf(tools.KindInvalidArgument, "invalid glob pattern: %v", err), nil
		}

		for i, m := range globMatches {
			if i >= maxResults {
				break
			}
			relPath, _ := filepath.Rel(base, m)
			matches = append(matches, relPath)
		}
	}

	logging.Files("glob completed: %s (%d matches)", pattern, len(matches))

	if len(matches) == 0 {
		return tools.Ok("No files found matching pattern: %s", pattern), nil
	}

	return tools.Ok("%s", strings.Join(matches, "\n")), nil
}

// GrepTool returns a tool for searching workspace file contents.
func GrepTool(ws *workspace.Workspace) *tools.Tool {
	return &tools.Tool{
		Name:        "grep",
		Description: "Search for a pattern in workspace file contents",
		Category:    tools.CategoryFiles,
		Priority:    85,
		Execute: func(ctx context.Context, args map[string]any) (tools.Result, error) {
			return executeGrep(ctx, ws, args)
		},
		Schema: tools.ToolSchema{
			Required: []string{"pattern"},
			Properties: map[string]tools.Property{
				"pattern": {
					Type:        "string",
					Description: "Regular expression pattern to search for",
				},
				"path": {
					Type:        "string",
					Description: "File or directory to search, relative to the workspace root (default: root)",
				},
				"file_pattern": {
					Type:        "string",
					Description: "Glob pattern for files to search (e.g., '*.py')",
				},
				"max_results": {
					Type:        "integer",
					Description: "Maximum number of matches (default: 50)",
					Default:     50,
				},
				"ignore_case": {
					Type:        "boolean",
					Description: "Case insensitive search (default: false)",
					Default:     false,
				},
			},
		},
	}
}

// grepMatch represents a single grep match.
type grepMatch struct {
	File       string
	LineNumber int
	Line       string
}

func executeGrep(ctx context.Context, ws *workspace.Workspace, args map[string]any) (tools.Result, error) {
	pattern, _ := args["pattern"].(string)
	if pattern == "" {
		return tools.Errf(tools.KindInvalidArgument, "pattern is required"), nil
	}

	path := "."
	if p, ok := args["path"].(string); ok && p != "" {
		path = p
	}

	filePattern := ""
	if fp, ok := args["file_pattern"].(string); ok {
		filePattern = fp
	}

	maxResults := 50
	if mr, ok := intArg(args, "max_results"); ok && mr > 0 {
		maxResults = mr
	}

	ignoreCase := false
	if ic, ok := args["ignore_case"].(bool); ok {
		ignoreCase = ic
	}

	logging.FilesDebug("grep: pattern=%s, path=%s", pattern, path)

	// Compile regex
	if ignoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return tools.Errf(tools.KindInvalidArgument, "invalid regex pattern: %v", err), nil
	}

	abs, err := ws.Resolve(path)
	if err != nil {
		return resolveFailure(path, err), nil
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return tools.Errf(tools.KindNotFound, "path not found: %s", path), nil
		}
		return tools.Errf(tools.KindIO, "failed to stat path: %v", err), nil
	}

	// Collect files to search
	var files []string
	if info.IsDir() {
		err := filepath.Walk(abs, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}

			if info.IsDir() {
				// Skip hidden and common excluded directories
				name := info.Name()
				if p != abs && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "__pycache__" || name == "venv") {
					return filepath.SkipDir
				}
				return nil
			}

			if filePattern != "" {
				matched, _ := filepath.Match(filePattern, info.Name())
				if !matched {
					return nil
				}
			}

			files = append(files, p)
			return nil
		})
		if err != nil {
			return tools.Errf(tools.KindIO, "failed to walk directory: %v", err), nil
		}
	} else {
		files = []string{abs}
	}

	// Search each file
	var matches []grepMatch
	for _, file := range files {
		if len(matches) >= maxResults {
			break
		}

		fileMatches, err := searchFile(file, re, maxResults-len(matches))
		if err != nil {
			continue // Skip files with errors
		}

		matches = append(matches, fileMatches...)
	}

	logging.Files("grep completed: %s (%d matches)", pattern, len(matches))

	if len(matches) == 0 {
		return tools.Ok("No matches found for pattern: %s", pattern), nil
	}

	// Format output with workspace-relative paths
	var sb strings.Builder
	for _, m := range matches {
		sb.WriteString(fmt.Sprintf("%s:%d: %s\n", ws.Rel(m.File), m.LineNumber, m.Line))
	}

	return tools.Ok("%s", sb.String()), nil
}

func searchFile(path string, re *regexp.Regexp, maxMatches int) ([]grepMatch, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var matches []grepMatch

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if re.MatchString(line) {
			matches = append(matches, grepMatch{
				File:       path,
				LineNumber: lineNum,
				Line:       strings.TrimSpace(line),
			})

			if len(matches) >= maxMatches {
				break
			}
		}
	}

	return matches, scanner.Err()
}
