// Package core provides the workspace-confined filesystem tools.
//
// Every path argument is resolved through the workspace sandbox before
// touching disk; escapes come back as invalid_argument results, and I/O
// failures come back as tagged results rather than faults, so a calling
// agent can read and react to them.
//
// Tools:
//   - read_file: Read file contents
//   - write_file: Write content to a file
//   - edit_file: Edit file with replacements
//   - list_files: List directory contents
//   - glob: Find files matching a pattern
//   - grep: Search file contents with regex
//   - delete_file: Delete a file
package core
