// Package shell exposes workspace-confined command execution as a tool.
//
// Agents building an app need more than file edits: installing packages,
// probing the interpreter, inspecting process state. run_command covers
// that through the proc runner, so timeouts, output caps, and the
// environment allowlist apply the same as for every other subprocess.
package shell
