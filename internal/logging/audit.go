// Package logging provides audit logging as structured JSON-line events.
// Audit events record every tool invocation, file operation, and server
// lifecycle transition so a run can be reconstructed after the fact.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// Tool execution events
	AuditToolInvoke   AuditEventType = "tool_invoke"
	AuditToolComplete AuditEventType = "tool_complete"
	AuditToolError    AuditEventType = "tool_error"

	// File operations
	AuditFileRead  AuditEventType = "file_read"
	AuditFileWrite AuditEventType = "file_write"
	AuditFileList  AuditEventType = "file_list"

	// Server subprocess lifecycle
	AuditServerStart AuditEventType = "server_start"
	AuditServerReady AuditEventType = "server_ready"
	AuditServerExit  AuditEventType = "server_exit"
	AuditServerKill  AuditEventType = "server_kill"

	// Workflow run events
	AuditRunStart    AuditEventType = "run_start"
	AuditRunComplete AuditEventType = "run_complete"
	AuditTaskStart   AuditEventType = "task_start"
	AuditTaskEnd     AuditEventType = "task_end"
)

// AuditEvent represents a structured audit log entry.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"`    // Unix milliseconds
	EventType  AuditEventType         `json:"event"` // Event type
	Category   string                 `json:"cat"`   // Log category
	RunID      string                 `json:"run"`   // Run correlation
	Target     string                 `json:"target"`
	Action     string                 `json:"action"`
	Success    bool                   `json:"success"`
	DurationMs int64                  `json:"dur_ms"`
	Error      string                 `json:"error"`
	Message    string                 `json:"msg"`
	Fields     map[string]interface{} `json:"fields"`
}

var (
	auditFile   *os.File
	auditMu     sync.Mutex
	auditLogger *AuditLogger
)

// AuditLogger handles structured audit logging
type AuditLogger struct {
	runID    string
	category Category
}

// InitAudit initializes the audit logging system
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil // Already initialized
	}

	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.log", date))

	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file

	header := fmt.Sprintf("# Audit log started at %s\n", time.Now().Format(time.RFC3339))
	auditFile.WriteString(header)

	return nil
}

// CloseAudit closes the audit log file
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns the global audit logger
func Audit() *AuditLogger {
	if auditLogger == nil {
		auditLogger = &AuditLogger{}
	}
	return auditLogger
}

// AuditWithRun creates an audit logger scoped to a run
func AuditWithRun(runID string) *AuditLogger {
	return &AuditLogger{runID: runID}
}

// AuditWithContext creates a fully-scoped audit logger
func AuditWithContext(runID string, category Category) *AuditLogger {
	return &AuditLogger{runID: runID, category: category}
}

// Log writes an audit event
func (a *AuditLogger) Log(event AuditEvent) {
	if !IsDebugMode() || auditFile == nil {
		return
	}

	// Fill in defaults
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.RunID == "" && a.runID != "" {
		event.RunID = a.runID
	}
	if event.Category == "" && a.category != "" {
		event.Category = string(a.category)
	}
	if event.Fields == nil {
		event.Fields = make(map[string]interface{})
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	data, err := json.Marshal(event)
	if err == nil {
		auditFile.WriteString(string(data) + "\n")
	}
}

// =============================================================================
// CONVENIENCE METHODS FOR COMMON EVENTS
// =============================================================================

// ToolInvoke logs a tool invocation
func (a *AuditLogger) ToolInvoke(tool string, args map[string]interface{}) {
	a.Log(AuditEvent{
		EventType: AuditToolInvoke,
		Target:    tool,
		Success:   true,
		Fields:    map[string]interface{}{"args": args},
		Message:   fmt.Sprintf("Tool invoked: %s", tool),
	})
}

// ToolComplete logs a tool completion
func (a *AuditLogger) ToolComplete(tool string, durationMs int64, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType:  AuditToolComplete,
		Target:     tool,
		Success:    success,
		DurationMs: durationMs,
		Error:      errMsg,
		Message:    fmt.Sprintf("Tool completed: %s (success=%v, %dms)", tool, success, durationMs),
	})
}

// FileOp logs a file tool operation
func (a *AuditLogger) FileOp(event AuditEventType, path string, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType: event,
		Target:    path,
		Success:   success,
		Error:     errMsg,
		Message:   fmt.Sprintf("File op %s: %s (success=%v)", event, path, success),
	})
}

// ServerEvent logs a server subprocess lifecycle transition
func (a *AuditLogger) ServerEvent(event AuditEventType, target string, fields map[string]interface{}) {
	a.Log(AuditEvent{
		EventType: event,
		Target:    target,
		Success:   event != AuditServerExit,
		Fields:    fields,
		Message:   fmt.Sprintf("Server %s: %s", event, target),
	})
}

// RunStart logs a workflow run start
func (a *AuditLogger) RunStart(runID, kind, target string) {
	a.Log(AuditEvent{
		EventType: AuditRunStart,
		RunID:     runID,
		Target:    target,
		Action:    kind,
		Success:   true,
		Message:   fmt.Sprintf("Run started: %s (%s)", runID, kind),
	})
}

// RunComplete logs a workflow run completion
func (a *AuditLogger) RunComplete(runID string, durationMs int64, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType:  AuditRunComplete,
		RunID:      runID,
		Success:    success,
		DurationMs: durationMs,
		Error:      errMsg,
		Message:    fmt.Sprintf("Run completed: %s (success=%v, %dms)", runID, success, durationMs),
	})
}

// TaskStart logs the start of a delegated task
func (a *AuditLogger) TaskStart(taskID, role string) {
	a.Log(AuditEvent{
		EventType: AuditTaskStart,
		Target:    taskID,
		Action:    role,
		Success:   true,
		Message:   fmt.Sprintf("Task started: %s (role=%s)", taskID, role),
	})
}

// TaskEnd logs the end of a delegated task
func (a *AuditLogger) TaskEnd(taskID string, durationMs int64, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType:  AuditTaskEnd,
		Target:     taskID,
		Success:    success,
		DurationMs: durationMs,
		Error:      errMsg,
		Message:    fmt.Sprintf("Task ended: %s (success=%v, %dms)", taskID, success, durationMs),
	})
}
