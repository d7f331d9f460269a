package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"crewforge/internal/diff"
	"crewforge/internal/logging"
	"crewforge/internal/tools"
	"crewforge/internal/workspace"
)

// editDiffPreviewLines caps the diff appended to edit_file responses.
const editDiffPreviewLines = 40

// ReadFileTool returns a tool for reading file contents from the workspace.
func ReadFileTool(ws *workspace.Workspace) *tools.Tool {
	return &tools.Tool{
		Name:        "read_file",
		Description: "Read the contents of a file in the workspace",
		Category:    tools.CategoryFiles,
		Priority:    90,
		Execute: func(ctx context.Context, args map[string]any) (tools.Result, error) {
			return executeReadFile(ctx, ws, args)
		},
		Schema: tools.ToolSchema{
			Required: []string{"path"},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "The file path to read, relative to the workspace root",
				},
				"start_line": {
					Type:        "integer",
					Description: "Starting line number (1-indexed, optional)",
				},
				"end_line": {
					Type:        "integer",
					Description: "Ending line number (inclusive, optional)",
				},
			},
		},
	}
}

func executeReadFile(ctx context.Context, ws *workspace.Workspace, args map[string]any) (tools.Result, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return tools.Errf(tools.KindInvalidArgument, "path is required"), nil
	}

	logging.FilesDebug("read_file: path=%s", path)

	abs, err := ws.Resolve(path)
	if err != nil {
		return resolveFailure(path, err), nil
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Audit().FileOp(logging.AuditFileRead, path, false, "not found")
			return tools.Errf(tools.KindNotFound, "file not found: %s", path), nil
		}
		logging.Audit().FileOp(logging.AuditFileRead, path, false, err.Error())
		return tools.Errf(tools.KindIO, "failed to read file: %v", err), nil
	}

	result := string(content)

	// Handle line range if specified
	startLine, hasStart := intArg(args, "start_line")
	endLine, hasEnd := intArg(args, "end_line")

	if hasStart || hasEnd {
		lines := strings.Split(result, "\n")

		if !hasStart {
			startLine = 1
		}
		if !hasEnd {
			endLine = len(lines)
		}

		// Convert to 0-indexed
		startLine--
		if startLine < 0 {
			startLine = 0
		}
		if endLine > len(lines) {
			endLine = len(lines)
		}
		if startLine > endLine {
			startLine = endLine
		}

		result = strings.Join(lines[startLine:endLine], "\n")
	}

	logging.Files("read_file completed: %s (%d bytes)", path, len(result))
	logging.Audit().FileOp(logging.AuditFileRead, path, true, "")
	return tools.Ok("%s", result), nil
}

// WriteFileTool returns a tool for writing content to a workspace file.
func WriteFileTool(ws *workspace.Workspace) *tools.Tool {
	return &tools.Tool{
		Name:        "write_file",
		Description: "Write content to a file in the workspace, creating it if it doesn't exist",
		Category:    tools.CategoryFiles,
		Priority:    80,
		Execute: func(ctx context.Context, args map[string]any) (tools.Result, error) {
			return executeWriteFile(ctx, ws, args)
		},
		Schema: tools.ToolSchema{
			Required: []string{"path", "content"},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "The file path to write, relative to the workspace root",
				},
				"content": {
					Type:        "string",
					Description: "The content to write",
				},
				"create_dirs": {
					Type:        "boolean",
					Description: "Create parent directories if they don't exist (default: true)",
					Default:     true,
				},
			},
		},
	}
}

func executeWriteFile(ctx context.Context, ws *workspace.Workspace, args map[string]any) (tools.Result, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return tools.Errf(tools.KindInvalidArgument, "path is required"), nil
	}

	content, _ := args["content"].(string)

	createDirs := true
	if cd, ok := args["create_dirs"].(bool); ok {
		createDirs = cd
	}

	logging.FilesDebug("write_file: path=%s, size=%d", path, len(content))

	abs, err := ws.Resolve(path)
	if err != nil {
		return resolveFailure(path, err), nil
	}

	// Create parent directories if needed
	if createDirs {
		if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
			logging.Audit().FileOp(logging.AuditFileWrite, path, false, err.Error())
			return tools.Errf(tools.KindIO, "failed to create directories: %v", err), nil
		}
	}

	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		logging.Audit().FileOp(logging.AuditFileWrite, path, false, err.Error())
		return tools.Errf(tools.KindIO, "failed to write file: %v", err), nil
	}

	logging.Files("write_file completed: %s (%d bytes)", path, len(content))
	logging.Audit().FileOp(logging.AuditFileWrite, path, true, "")
	return tools.Ok("Wrote %d bytes to %s", len(content), path), nil
}

// EditFileTool returns a tool for editing workspace files with search/replace.
func EditFileTool(ws *workspace.Workspace) *tools.Tool {
	return &tools.Tool{
		Name:        "edit_file",
		Description: "Edit a file by replacing text",
		Category:    tools.CategoryFiles,
		Priority:    85,
		Execute: func(ctx context.Context, args map[string]any) (tools.Result, error) {
			return executeEditFile(ctx, ws, args)
		},
		Schema: tools.ToolSchema{
			Required: []string{"path", "old_text", "new_text"},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "The file path to edit, relative to the workspace root",
				},
				"old_text": {
					Type:        "string",
					Description: "The text to find and replace",
				},
				"new_text": {
					Type:        "string",
					Description: "The replacement text",
				},
				"replace_all": {
					Type:        "boolean",
					Description: "Replace all occurrences (default: false, replaces first only)",
					Default:     false,
				},
			},
		},
	}
}

func executeEditFile(ctx context.Context, ws *workspace.Workspace, args map[string]any) (tools.Result, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return tools.Errf(tools.KindInvalidArgument, "path is required"), nil
	}

	oldText, _ := args["old_text"].(string)
	if oldText == "" {
		return tools.Errf(tools.KindInvalidArgument, "old_text is required"), nil
	}

	newText, _ := args["new_text"].(string)

	replaceAll := false
	if ra, ok := args["replace_all"].(bool); ok {
		replaceAll = ra
	}

	logging.FilesDebug("edit_file: path=%s, old_len=%d, new_len=%d", path, len(oldText), len(newText))

	abs, err := ws.Resolve(path)
	if err != nil {
		return resolveFailure(path, err), nil
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return tools.Errf(tools.KindNotFound, "file not found: %s", path), nil
		}
		return tools.Errf(tools.KindIO, "failed to read file: %v", err), nil
	}

	contentStr := string(content)

	if !strings.Contains(contentStr, oldText) {
		return tools.Errf(tools.KindNotFound, "old_text not found in %s", path), nil
	}

	var newContent string
	var count int
	if replaceAll {
		count = strings.Count(contentStr, oldText)
		newContent = strings.ReplaceAll(contentStr, oldText, newText)
	} else {
		count = 1
		newContent = strings.Replace(contentStr, oldText, newText, 1)
	}

	if err := os.WriteFile(abs, []byte(newContent), 0644); err != nil {
		logging.Audit().FileOp(logging.AuditFileWrite, path, false, err.Error())
		return tools.Errf(tools.KindIO, "failed to write file: %v", err), nil
	}

	logging.Files("edit_file completed: %s (%d replacements)", path, count)
	logging.Audit().FileOp(logging.AuditFileWrite, path, true, "")

	if preview := diff.Preview(contentStr, newContent, editDiffPreviewLines); preview != "" {
		return tools.Ok("Replaced %d occurrence(s) in %s\n%s", count, path, preview), nil
	}
	return tools.Ok("Replaced %d occurrence(s) in %s", count, path), nil
}

// DeleteFileTool returns a tool for deleting workspace files.
func DeleteFileTool(ws *workspace.Workspace) *tools.Tool {
	return &tools.Tool{
		Name:        "delete_file",
		Description: "Delete a file from the workspace",
		Category:    tools.CategoryFiles,
		Priority:    50,
		Execute: func(ctx context.Context, args map[string]any) (tools.Result, error) {
			return executeDeleteFile(ctx, ws, args)
		},
		Schema: tools.ToolSchema{
			Required: []string{"path"},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "The file path to delete, relative to the workspace root",
				},
			},
		},
	}
}

func executeDeleteFile(ctx context.Context, ws *workspace.Workspace, args map[string]any) (tools.Result, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return tools.Errf(tools.KindInvalidArgument, "path is required"), nil
	}

	logging.FilesDebug("delete_file: path=%s", path)

	abs, err := ws.Resolve(path)
	if err != nil {
		return resolveFailure(path, err), nil
	}

	// Safety check - don't delete directories
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return tools.Errf(tools.KindNotFound, "file not found: %s", path), nil
		}
		return tools.Errf(tools.KindIO, "failed to stat file: %v", err), nil
	}

	if info.IsDir() {
		return tools.Errf(tools.KindInvalidArgument, "cannot delete directory %s with delete_file", path), nil
	}

	if err := os.Remove(abs); err != nil {
		logging.Audit().FileOp(logging.AuditFileWrite, path, false, err.Error())
		return tools.Errf(tools.KindIO, "failed to delete file: %v", err), nil
	}

	logging.Files("delete_file completed: %s", path)
	logging.Audit().FileOp(logging.AuditFileWrite, path, true, "")
	return tools.Ok("Deleted %s", path), nil
}

// ListFilesTool returns a tool for listing workspace directory contents.
func ListFilesTool(ws *workspace.Workspace) *tools.Tool {
	return &tools.Tool{
		Name:        "list_files",
		Description: "List files in a workspace directory",
		Category:    tools.CategoryFiles,
		Priority:    85,
		Execute: func(ctx context.Context, args map[string]any) (tools.Result, error) {
			return executeListFiles(ctx, ws, args)
		},
		Schema: tools.ToolSchema{
			Required: []string{"path"},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "The directory path to list, relative to the workspace root",
				},
				"recursive": {
					Type:        "boolean",
					Description: "List recursively (default: false)",
					Default:     false,
				},
				"include_hidden": {
					Type:        "boolean",
					Description: "Include hidden files (default: false)",
					Default:     false,
				},
			},
		},
	}
}

func executeListFiles(ctx context.Context, ws *workspace.Workspace, args map[string]any) (tools.Result, error) {
	path, _ := args["path"].(string)
	if path == "" {
		path = "."
	}

	recursive := false
	if r, ok := args["recursive"].(bool); ok {
		recursive = r
	}

	includeHidden := false
	if ih, ok := args["include_hidden"].(bool); ok {
		includeHidden = ih
	}

	logging.FilesDebug("list_files: path=%s, recursive=%v", path, recursive)

	abs, err := ws.Resolve(path)
	if err != nil {
		return resolveFailure(path, err), nil
	}

	// A missing directory is reported, not raised, so agents can react to it
	if _, err := os.Stat(abs); os.IsNotExist(err) {
		logging.Files("list_files: directory does not exist: %s", path)
		logging.Audit().FileOp(logging.AuditFileList, path, true, "")
		return tools.Ok("Directory does not exist: %s", path), nil
	}

	var files []string

	if recursive {
		err := filepath.Walk(abs, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return nil // Skip errors
			}

			name := info.Name()
			if !includeHidden && strings.HasPrefix(name, ".") && p != abs {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			relPath, _ := filepath.Rel(abs, p)
			if relPath == "." {
				return nil
			}

			if info.IsDir() {
				files = append(files, relPath+"/")
			} else {
				files = append(files, relPath)
			}

			return nil
		})
		if err != nil {
			return tools.Errf(tools.KindIO, "failed to walk directory: %v", err), nil
		}
	} else {
		entries, err := os.ReadDir(abs)
		if err != nil {
			return tools.Errf(tools.KindIO, "failed to read directory: %v", err), nil
		}

		for _, entry := range entries {
			name := entry.Name()
			if !includeHidden && strings.HasPrefix(name, ".") {
				continue
			}

			if entry.IsDir() {
				files = append(files, name+"/")
			} else {
				files = append(files, name)
			}
		}
	}

	logging.Files("list_files completed: %s (%d entries)", path, len(files))
	logging.Audit().FileOp(logging.AuditFileList, path, true, "")
	return tools.Ok("%s", strings.Join(files, "\n")), nil
}

// resolveFailure maps a workspace resolution error to a tagged result.
func resolveFailure(path string, err error) tools.Result {
	var escErr *workspace.EscapeError
	if errors.As(err, &escErr) {
		logging.FilesDebug("rejected path: %v", err)
		return tools.Errf(tools.KindInvalidArgument, "%v", err)
	}
	return tools.Errf(tools.KindIO, "failed to resolve path %s: %v", path, err)
}

// intArg extracts an integer argument, accepting JSON float64 and Go ints.
func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
