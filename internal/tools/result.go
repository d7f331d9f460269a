package tools

import "fmt"

// Status tags a Result as success or failure.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// ErrorKind classifies tool failures so callers can branch without
// parsing messages.
type ErrorKind string

const (
	// KindNone is the kind of successful results.
	KindNone ErrorKind = ""

	// KindNotFound means a requested file or resource does not exist.
	KindNotFound ErrorKind = "not_found"

	// KindIO means a filesystem or workspace operation failed.
	KindIO ErrorKind = "io"

	// KindStartup means a server under test failed to become ready.
	KindStartup ErrorKind = "startup"

	// KindRequest means an HTTP request to the server under test failed.
	KindRequest ErrorKind = "request"

	// KindInvalidArgument means the tool was called with bad arguments.
	KindInvalidArgument ErrorKind = "invalid_argument"
)

// Result is the tagged outcome of a tool execution. Message is always
// human-readable; Kind is set only on errors. Payload optionally carries
// structured data (e.g. a functional test report).
type Result struct {
	Status  Status    `json:"status"`
	Kind    ErrorKind `json:"kind,omitempty"`
	Message string    `json:"message"`
	Payload any       `json:"payload,omitempty"`
}

// Ok builds a successful result with a formatted message.
func Ok(format string, args ...any) Result {
	return Result{
		Status:  StatusOK,
		Message: fmt.Sprintf(format, args...),
	}
}

// OkPayload builds a successful result carrying structured data.
func OkPayload(message string, payload any) Result {
	return Result{
		Status:  StatusOK,
		Message: message,
		Payload: payload,
	}
}

// Errf builds a failed result with the given kind and formatted message.
func Errf(kind ErrorKind, format string, args ...any) Result {
	return Result{
		Status:  StatusError,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsErr returns true for failed results.
func (r Result) IsErr() bool {
	return r.Status == StatusError
}

// String renders the result for display. Errors carry an "Error: " prefix
// so agent transcripts read the same as plain output.
func (r Result) String() string {
	if r.IsErr() {
		return "Error: " + r.Message
	}
	return r.Message
}
